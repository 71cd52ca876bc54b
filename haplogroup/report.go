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
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/tsv"
)

const lineageSep = ">"

// WriteResultsTSV writes at most top results (all if top <= 0), best first.
// The first row carries the confidence of the best result; the rest carry an
// empty confidence column.
func WriteResultsTSV(w io.Writer, results []Result, top int, maxConfidence float64) error {
	out := tsv.NewWriter(w)
	out.WriteString("rank\thaplogroup\tscore\tconfidence\tmatching_snps\tancestral_matches\tno_calls\ttotal_snps\tcumulative_snps\tdepth\tlineage")
	if err := out.EndLine(); err != nil {
		return err
	}
	n := len(results)
	if top > 0 && top < n {
		n = top
	}
	for i, r := range results[:n] {
		out.WriteUint32(uint32(i + 1))
		out.WriteString(r.Name)
		out.WriteString(strconv.FormatFloat(r.Score, 'f', -1, 64))
		if i == 0 {
			out.WriteString(strconv.FormatFloat(Confidence(r, results, maxConfidence), 'f', 4, 64))
		} else {
			out.WriteString("")
		}
		out.WriteUint32(uint32(r.MatchingSNPs))
		out.WriteUint32(uint32(r.AncestralMatches))
		out.WriteUint32(uint32(r.NoCalls))
		out.WriteUint32(uint32(r.TotalSNPs))
		out.WriteUint32(uint32(r.CumulativeSNPs))
		out.WriteUint32(uint32(r.Depth))
		out.WriteString(strings.Join(r.LineagePath, lineageSep))
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}
