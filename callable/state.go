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
package callable

import (
	"strings"

	"github.com/grailbio/base/errors"
)

// State is the coverage/quality verdict a CallableLoci-style walker assigns
// to a genomic position.
type State int

const (
	// Unset means no classification was supplied (e.g. chip or Sanger data).
	Unset State = iota
	// Callable positions have adequate depth and mapping quality.
	Callable
	// NoCoverage positions have zero reads.
	NoCoverage
	// LowCoverage positions have some reads, but fewer than the minimum depth.
	LowCoverage
	// ExcessiveCoverage positions exceed the maximum depth, often repeats.
	ExcessiveCoverage
	// PoorMappingQuality positions are dominated by low-MAPQ reads.
	PoorMappingQuality
	// RefN positions are N in the reference genome.
	RefN
	// Unknown is an explicit "could not classify" verdict.
	Unknown
)

var stateNames = [...]string{
	"UNSET",
	"CALLABLE",
	"NO_COVERAGE",
	"LOW_COVERAGE",
	"EXCESSIVE_COVERAGE",
	"POOR_MAPPING_QUALITY",
	"REF_N",
	"UNKNOWN",
}

// stateWeights scale a sequencing source's vote in concordance.  Unset
// sources (non-sequencing methods) are not penalized.
var stateWeights = [...]float64{
	Unset:              1.0,
	Callable:           1.0,
	NoCoverage:         0,
	LowCoverage:        0.5,
	ExcessiveCoverage:  0.8,
	PoorMappingQuality: 0.5,
	RefN:               0,
	Unknown:            0.5,
}

// String implements fmt.Stringer.  It returns the CallableLoci spelling.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return stateNames[Unknown]
	}
	return stateNames[s]
}

// Weight returns the multiplicative factor applied to a call made at a
// position with this state.
func (s State) Weight() float64 {
	if s < 0 || int(s) >= len(stateWeights) {
		return stateWeights[Unknown]
	}
	return stateWeights[s]
}

// ParseState parses a CallableLoci state name.  The empty string maps to
// Unset.
func ParseState(name string) (State, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return Unset, nil
	}
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return Unknown, errors.E(errors.Invalid, "callable.ParseState: unrecognized state", name)
}
