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
	"context"
	"fmt"

	"github.com/grailbio/base/log"
	"github.com/grailbio/lineage/callable"
	"github.com/grailbio/lineage/genome"
	"gopkg.in/guregu/null.v3"
)

// Reasons attached to NoCall results.
const (
	ReasonReferenceLookupFailed = "Reference lookup failed"
	ReasonNoCallableRecord      = "No callable-loci record"
	ReasonNoVariantSource       = "No variant-call source available"
	ReasonNoCallableSource      = "No callable-loci source available"
	ReasonNoReferenceSource     = "No reference genome available"
)

// VariantCall is one variant-caller record at a position.
type VariantCall struct {
	Ref       string
	Alt       string
	IsVariant bool
	Depth     int
	Quality   float64
}

// VariantSource looks up variant-caller records.  It must return a
// *genome.BuildMismatchError if build differs from the build it indexes.
// Positions without a record are absent from the result.
type VariantSource interface {
	QueryPositions(ctx context.Context, build genome.Build, keys []genome.Key) (map[genome.Key]VariantCall, error)
}

// CallableSource classifies positions by coverage and mapping quality.
// Unclassified positions are absent from the result.
type CallableSource interface {
	QueryPositions(ctx context.Context, keys []genome.Key) (map[genome.Key]callable.State, error)
}

// ReferenceSource returns the reference genome base at a 1-based position.
type ReferenceSource interface {
	Base(contig string, pos genome.PosType) (byte, error)
}

// Query is one position to resolve.  Ref is the caller's expectation of the
// reference allele (typically the tree's ancestral allele); it is only used
// for diagnostics.
type Query struct {
	Contig string
	Pos    genome.PosType
	Ref    string
}

// Key returns the query's position key.
func (q Query) Key() genome.Key {
	return genome.Key{Contig: q.Contig, Pos: q.Pos}
}

// Resolver resolves batches of positions for one sample.  Any collaborator
// may be nil; positions that would need it become NoCalls.
type Resolver struct {
	Variants  VariantSource
	Callable  CallableSource
	Reference ReferenceSource
}

// Resolve produces one ResolvedCall per distinct requested position.  It
// returns a nil map and a *genome.BuildMismatchError if the variant source
// is indexed on a different build; no other error is returned.
func (r *Resolver) Resolve(ctx context.Context, build genome.Build, queries []Query) (map[genome.Key]ResolvedCall, error) {
	out := make(map[genome.Key]ResolvedCall, len(queries))
	if len(queries) == 0 {
		return out, nil
	}
	keys := make([]genome.Key, 0, len(queries))
	expectedRef := make(map[genome.Key]string, len(queries))
	for _, q := range queries {
		k := q.Key()
		if _, dup := expectedRef[k]; dup {
			continue
		}
		expectedRef[k] = q.Ref
		keys = append(keys, k)
	}

	emit := func(k genome.Key, allele string, src CallSource, qual null.Float) {
		out[k] = ResolvedCall{Contig: k.Contig, Pos: k.Pos, Build: build, Allele: allele, Source: src, Quality: qual}
	}

	// Step 1: direct variant-caller records.
	var vcalls map[genome.Key]VariantCall
	if r.Variants == nil {
		vcalls = map[genome.Key]VariantCall{}
		log.Debug.Printf("resolve: %s", ReasonNoVariantSource)
	} else {
		var err error
		if vcalls, err = r.Variants.QueryPositions(ctx, build, keys); err != nil {
			if genome.IsBuildMismatch(err) {
				log.Error.Printf("resolve: %v; %d position(s) not resolved", err, len(keys))
				return nil, err
			}
			log.Error.Printf("resolve: variant query failed: %v", err)
			reason := fmt.Sprintf("Variant query failed: %v", err)
			for _, k := range keys {
				emit(k, "", NoCallSource(reason), null.Float{})
			}
			return out, nil
		}
	}
	var gaps []genome.Key
	for _, k := range keys {
		vc, ok := vcalls[k]
		if !ok {
			gaps = append(gaps, k)
			continue
		}
		allele := vc.Ref
		if vc.IsVariant {
			allele = vc.Alt
		}
		if ref := expectedRef[k]; ref != "" && !genome.SameAllele(ref, vc.Ref) {
			log.Debug.Printf("resolve: %v: VCF REF %s differs from expected %s", k, vc.Ref, ref)
		}
		emit(k, genome.NormalizeAllele(allele), VCFSource(vc.Depth, vc.Quality), null.FloatFrom(vc.Quality))
	}
	if len(gaps) == 0 {
		return out, nil
	}

	// Step 2: fill gaps from the callable-loci classification.
	if r.Callable == nil {
		for _, k := range gaps {
			emit(k, "", NoCallSource(ReasonNoCallableSource), null.Float{})
		}
		return out, nil
	}
	states, err := r.Callable.QueryPositions(ctx, gaps)
	if err != nil {
		log.Error.Printf("resolve: callable-loci query failed: %v", err)
		reason := fmt.Sprintf("Callable loci query failed: %v", err)
		for _, k := range gaps {
			emit(k, "", NoCallSource(reason), null.Float{})
		}
		return out, nil
	}
	var nInferred, nNoCall int
	for _, k := range gaps {
		state, ok := states[k]
		switch {
		case !ok:
			emit(k, "", NoCallSource(ReasonNoCallableRecord), null.Float{})
			nNoCall++
		case state == callable.Callable:
			if r.Reference == nil {
				emit(k, "", NoCallSource(ReasonNoReferenceSource), null.Float{})
				nNoCall++
				continue
			}
			base, err := r.Reference.Base(k.Contig, k.Pos)
			if err != nil {
				log.Debug.Printf("resolve: %v: reference lookup: %v", k, err)
				emit(k, "", NoCallSource(ReasonReferenceLookupFailed), null.Float{})
				nNoCall++
				continue
			}
			allele := genome.NormalizeAllele(string(base))
			if ref := expectedRef[k]; ref != "" && !genome.SameAllele(ref, allele) {
				log.Debug.Printf("resolve: %v: reference base %s differs from expected %s", k, allele, ref)
			}
			emit(k, allele, InferredSource(callable.Callable), null.Float{})
			nInferred++
		case state == callable.RefN:
			emit(k, "N", InferredSource(callable.RefN), null.Float{})
			nInferred++
		default:
			emit(k, "", NoCallSource(state.String()), null.Float{})
			nNoCall++
		}
	}
	log.Debug.Printf("resolve: %d position(s): %d from VCF, %d inferred, %d no-call",
		len(keys), len(keys)-len(gaps), nInferred, nNoCall)
	return out, nil
}
