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
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/lineage/genome"
)

// Variant is the set of source calls for one variant.
type Variant struct {
	ID     string
	Contig string
	Pos    genome.PosType
	Kind   VariantKind
	// InTree reports whether the position defines a haplogroup.
	InTree bool
	Calls  []SourceCall
}

// Run computes the consensus of v.
func (e *Engine) Run(v Variant) Result {
	if v.Kind == STR {
		return e.STR(v.Calls, v.InTree)
	}
	return e.SNP(v.Calls, v.Kind, v.InTree)
}

// RunBatch computes the consensus of every variant, splitting the variants
// into at most parallelism contiguous jobs.  Results are in input order.
func RunBatch(variants []Variant, opts Opts, parallelism int) ([]Result, error) {
	if parallelism <= 0 {
		parallelism = 1
	}
	if parallelism > len(variants) {
		parallelism = len(variants)
	}
	results := make([]Result, len(variants))
	if len(variants) == 0 {
		return results, nil
	}
	e := Engine{Opts: opts}
	log.Debug.Printf("concordance.RunBatch: %d variants, %d jobs", len(variants), parallelism)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		start := (jobIdx * len(variants)) / parallelism
		end := ((jobIdx + 1) * len(variants)) / parallelism
		for i := start; i < end; i++ {
			results[i] = e.Run(variants[i])
		}
		return nil
	})
	return results, err
}
