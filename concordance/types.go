// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package concordance

import (
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/lineage/callable"
	"gopkg.in/guregu/null.v3"
)

// SourceType is the laboratory method behind a call.
type SourceType int

const (
	Sanger SourceType = iota
	CapillaryElectrophoresis
	WGSShortRead
	WGSLongRead
	TargetedNGS
	Chip
	Manual
)

type sourceInfo struct {
	name       string
	snpWeight  float64
	strWeight  float64
	sequencing bool
}

var sourceTable = [...]sourceInfo{
	Sanger:                   {"SANGER", 1.0, 0.8, false},
	CapillaryElectrophoresis: {"CAPILLARY_ELECTROPHORESIS", 1.0, 1.0, false},
	WGSShortRead:             {"WGS_SHORT_READ", 0.85, 0.5, true},
	WGSLongRead:              {"WGS_LONG_READ", 0.95, 0.7, true},
	TargetedNGS:              {"TARGETED_NGS", 0.75, 0.6, true},
	Chip:                     {"CHIP", 0.5, 0.3, false},
	Manual:                   {"MANUAL", 0.6, 0.6, false},
}

func (t SourceType) info() sourceInfo {
	if t < 0 || int(t) >= len(sourceTable) {
		return sourceTable[Manual]
	}
	return sourceTable[t]
}

// String implements fmt.Stringer.
func (t SourceType) String() string { return t.info().name }

// SNPWeight is the method weight for SNP and INDEL calls.
func (t SourceType) SNPWeight() float64 { return t.info().snpWeight }

// STRWeight is the method weight for STR calls.
func (t SourceType) STRWeight() float64 { return t.info().strWeight }

// Sequencing reports whether the method produces aligned reads, and hence
// mapping qualities.
func (t SourceType) Sequencing() bool { return t.info().sequencing }

// ParseSourceType parses a source type name such as "WGS_SHORT_READ".
func ParseSourceType(name string) (SourceType, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, s := range sourceTable {
		if s.name == name {
			return SourceType(i), nil
		}
	}
	return Manual, errors.E(errors.Invalid, "concordance.ParseSourceType: unrecognized source type", name)
}

// ConsensusState is the call state of a source or of the consensus.
type ConsensusState int

const (
	Derived ConsensusState = iota
	Ancestral
	NoCall
	Heteroplasmy
)

var stateNames = [...]string{"DERIVED", "ANCESTRAL", "NO_CALL", "HETEROPLASMY"}

func (s ConsensusState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return stateNames[NoCall]
	}
	return stateNames[s]
}

// ParseConsensusState parses a state name.  The empty string is NoCall.
func ParseConsensusState(name string) (ConsensusState, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return NoCall, nil
	}
	for i, n := range stateNames {
		if n == name {
			return ConsensusState(i), nil
		}
	}
	return NoCall, errors.E(errors.Invalid, "concordance.ParseConsensusState: unrecognized state", name)
}

// Status classifies a consensus.
type Status int

const (
	// NoCoverage means no source contributed any weight.
	NoCoverage Status = iota
	// Confirmed is a confident consensus at a known tree position.
	Confirmed
	// Novel is a confident consensus at a position not in the tree.
	Novel
	// Conflict means the sources disagree too much to call.
	Conflict
	// Pending means neither confident nor conflicting.
	Pending
)

var statusNames = [...]string{"NO_COVERAGE", "CONFIRMED", "NOVEL", "CONFLICT", "PENDING"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "INVALID"
	}
	return statusNames[s]
}

// VariantKind selects the method weight and grouping rule.
type VariantKind int

const (
	SNP VariantKind = iota
	INDEL
	STR
)

var kindNames = [...]string{"SNP", "INDEL", "STR"}

func (k VariantKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "INVALID"
	}
	return kindNames[k]
}

// ParseVariantKind parses "SNP", "INDEL" or "STR".
func ParseVariantKind(name string) (VariantKind, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range kindNames {
		if n == name {
			return VariantKind(i), nil
		}
	}
	return SNP, errors.E(errors.Invalid, "concordance.ParseVariantKind: unrecognized kind", name)
}

// SourceCall is one method's call for a variant.
type SourceCall struct {
	SourceID     string
	SourceType   SourceType
	CalledAllele string
	State        ConsensusState
	ReadDepth    null.Int
	// MappingQuality is ignored for non-sequencing sources.
	MappingQuality null.Float
	CallableState  callable.State
	// CalledRepeatCount overrides the repeat count parsed from CalledAllele
	// for STR calls.
	CalledRepeatCount null.Int
	AlleleFraction    null.Float
}

// WeightedCall is an input call with the weight it voted with.  NoCall
// inputs are reported with weight 0.
type WeightedCall struct {
	SourceCall
	Weight float64
	// Voted is false for calls that did not take part in the consensus.
	Voted bool
}

// Result is the consensus for one variant.
type Result struct {
	ConsensusAllele string
	ConsensusState  ConsensusState
	Status          Status
	// Confidence is the winning weight divided by the total weight.
	Confidence float64
	// Discordance is the losing weight divided by the total weight.
	Discordance float64
	// SourceCount counts all inputs, including no-calls.
	SourceCount     int
	ConcordantCount int
	DiscordantCount int
	WeightedCalls   []WeightedCall
	// LikelyHeteroplasmy is advisory and never changes Status.
	LikelyHeteroplasmy bool
}
