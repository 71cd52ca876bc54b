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

import "math"

const (
	// ChipMaxConfidence caps confidence for genotyping-array input.
	ChipMaxConfidence = 0.85
	// SequencingMaxConfidence caps confidence for sequencing input.
	SequencingMaxConfidence = 1.0

	ambiguityGap     = 0.2
	ambiguityScaling = 0.5
)

// isAncestorPath reports whether a is a prefix of b.
func isAncestorPath(a, b []string) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Confidence scores the top result in [0, maxCap].  It is the fraction of
// callable lineage loci that are derived, reduced by up to 10% when a
// competing lineage (one that is not an ancestor of top) scores within 20%
// of it.  results is the sorted output of Score.
func Confidence(top Result, results []Result, maxCap float64) float64 {
	var quality float64
	if callable := top.MatchingSNPs + top.AncestralMatches; callable > 0 {
		quality = float64(top.MatchingSNPs) / float64(callable)
	}
	var penalty float64
	if top.Score > 0 {
		for _, r := range results {
			if r.Name == top.Name || isAncestorPath(r.LineagePath, top.LineagePath) {
				continue
			}
			// results is sorted, so the first competitor is the best one.
			if gap := (top.Score - r.Score) / top.Score; gap < ambiguityGap {
				penalty = (ambiguityGap - gap) * ambiguityScaling
			}
			break
		}
	}
	return math.Min(maxCap, math.Max(0, quality*(1-penalty)))
}
