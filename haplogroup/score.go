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
package haplogroup

import (
	"sort"

	"github.com/grailbio/lineage/genome"
)

// ScoreOpts controls tree traversal.
type ScoreOpts struct {
	// MaxConsecutiveAncestral is the number of consecutive all-ancestral
	// branches after which the children of a lineage are not visited.
	MaxConsecutiveAncestral int
}

// DefaultScoreOpts tolerates one all-ancestral branch but not two.
var DefaultScoreOpts = ScoreOpts{
	MaxConsecutiveAncestral: 2,
}

// Result is the cumulative evidence for one haplogroup, from its root down.
type Result struct {
	Name string
	// Score is the sum of branch scores along the lineage.
	Score float64
	// MatchingSNPs, AncestralMatches and NoCalls are cumulative along the
	// lineage.
	MatchingSNPs     int
	AncestralMatches int
	NoCalls          int
	// TotalSNPs is the number of loci defining this node alone.
	TotalSNPs int
	// CumulativeSNPs is the number of loci from the root to this node.
	CumulativeSNPs int
	// Depth is 0 for a root.
	Depth       int
	LineagePath []string
}

type lineageState struct {
	score                float64
	derived              int
	ancestral            int
	noCalls              int
	snps                 int
	consecutiveAncestral int
}

// locusCall classifies the call at one locus.
type locusCall int

const (
	noCall locusCall = iota
	derivedCall
	ancestralCall
)

func classify(l *Locus, build genome.Build, alleles map[genome.Key]string) locusCall {
	c, ok := l.Coords[build]
	if !ok {
		return noCall
	}
	got, ok := alleles[c.Key()]
	if !ok {
		return noCall
	}
	switch {
	case genome.SameAllele(got, c.Derived):
		return derivedCall
	case genome.SameAllele(got, c.Ancestral):
		return ancestralCall
	}
	return noCall
}

// BranchScore returns the score contribution of a branch with the given
// numbers of derived and ancestral calls.
func BranchScore(derived, ancestral int) float64 {
	callable := derived + ancestral
	if callable == 0 {
		return 0
	}
	return (2*float64(derived)/float64(callable) - 1) * float64(callable)
}

// Score walks the tree depth-first and returns one Result per visited node,
// ordered by descending score, then ascending depth, then name.  alleles maps
// positions on the given build to the called allele (see resolve.Alleles).
func Score(tree *Tree, build genome.Build, alleles map[genome.Key]string, opts ScoreOpts) []Result {
	if tree == nil {
		return nil
	}
	var (
		results []Result
		path    []string
	)
	var visit func(id NodeID, depth int, st lineageState)
	visit = func(id NodeID, depth int, st lineageState) {
		n := &tree.Nodes[id]
		var derived, ancestral, noCalls int
		for i := range n.Loci {
			switch classify(&n.Loci[i], build, alleles) {
			case derivedCall:
				derived++
			case ancestralCall:
				ancestral++
			default:
				noCalls++
			}
		}
		st.score += BranchScore(derived, ancestral)
		st.derived += derived
		st.ancestral += ancestral
		st.noCalls += noCalls
		st.snps += len(n.Loci)
		switch {
		case derived > 0:
			st.consecutiveAncestral = 0
		case ancestral > 0:
			st.consecutiveAncestral++
		}
		path = append(path, n.Name)
		results = append(results, Result{
			Name:             n.Name,
			Score:            st.score,
			MatchingSNPs:     st.derived,
			AncestralMatches: st.ancestral,
			NoCalls:          st.noCalls,
			TotalSNPs:        len(n.Loci),
			CumulativeSNPs:   st.snps,
			Depth:            depth,
			LineagePath:      append([]string(nil), path...),
		})
		if opts.MaxConsecutiveAncestral <= 0 || st.consecutiveAncestral < opts.MaxConsecutiveAncestral {
			for _, child := range n.Children {
				visit(child, depth+1, st)
			}
		}
		path = path[:len(path)-1]
	}
	for _, root := range tree.Roots {
		visit(root, 0, lineageState{})
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.Name < b.Name
	})
	return results
}
