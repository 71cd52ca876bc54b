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
package resolve

import (
	"fmt"

	"github.com/grailbio/lineage/callable"
	"github.com/grailbio/lineage/genome"
	"gopkg.in/guregu/null.v3"
)

// SourceKind tags the provenance of a ResolvedCall.
type SourceKind int

const (
	// FromVCF means a variant-caller record exists at the position.
	FromVCF SourceKind = iota
	// InferredReference means no record exists, but the position is covered
	// well enough to assume the sample matches the reference genome.
	InferredReference
	// NoCall means the position's state cannot be determined.
	NoCall
)

// CallSource carries the provenance of a ResolvedCall.  Which payload fields
// are meaningful depends on Kind:
//
//   FromVCF:           Depth, Quality
//   InferredReference: State
//   NoCall:            Reason
type CallSource struct {
	Kind    SourceKind
	Depth   int
	Quality float64
	State   callable.State
	Reason  string
}

// VCFSource returns a FromVCF provenance.
func VCFSource(depth int, quality float64) CallSource {
	return CallSource{Kind: FromVCF, Depth: depth, Quality: quality}
}

// InferredSource returns an InferredReference provenance.
func InferredSource(state callable.State) CallSource {
	return CallSource{Kind: InferredReference, State: state}
}

// NoCallSource returns a NoCall provenance.
func NoCallSource(reason string) CallSource {
	return CallSource{Kind: NoCall, Reason: reason}
}

// String implements fmt.Stringer.
func (s CallSource) String() string {
	switch s.Kind {
	case FromVCF:
		return fmt.Sprintf("FromVcf(depth=%d, quality=%g)", s.Depth, s.Quality)
	case InferredReference:
		return fmt.Sprintf("InferredReference(%v)", s.State)
	case NoCall:
		return fmt.Sprintf("NoCall(%s)", s.Reason)
	}
	panic(fmt.Sprintf("resolve: unknown source kind %d", s.Kind))
}

// ResolvedCall is the resolver's verdict for one position.
type ResolvedCall struct {
	Contig  string
	Pos     genome.PosType
	Build   genome.Build
	Allele  string
	Source  CallSource
	Quality null.Float
}

// Key returns the call's position key.
func (c ResolvedCall) Key() genome.Key {
	return genome.Key{Contig: c.Contig, Pos: c.Pos}
}

// IsNoCall reports whether the call carries no allele information.
func (c ResolvedCall) IsNoCall() bool {
	return c.Source.Kind == NoCall
}

// Alleles flattens resolved calls into the position->allele map consumed by
// the tree scorer.  NoCall positions are omitted.
func Alleles(calls map[genome.Key]ResolvedCall) map[genome.Key]string {
	out := make(map[genome.Key]string, len(calls))
	for k, c := range calls {
		if c.IsNoCall() || c.Allele == "" {
			continue
		}
		out[k] = c.Allele
	}
	return out
}
