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
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/lineage/callable"
	"github.com/grailbio/lineage/genome"
	"gopkg.in/guregu/null.v3"
)

// callRow is one source call.  Rows of one variant share the variant column
// and need not be adjacent.  Empty numeric cells are absent values.
type callRow struct {
	Variant        string `tsv:"variant"`
	Contig         string `tsv:"contig"`
	Position       string `tsv:"position"`
	Kind           string `tsv:"kind"`
	InTree         string `tsv:"in_tree"`
	SourceID       string `tsv:"source_id"`
	SourceType     string `tsv:"source_type"`
	Allele         string `tsv:"allele"`
	State          string `tsv:"state"`
	Depth          string `tsv:"depth"`
	MappingQuality string `tsv:"mapq"`
	CallableState  string `tsv:"callable_state"`
	RepeatCount    string `tsv:"repeat_count"`
	AlleleFraction string `tsv:"allele_fraction"`
}

func parseNullInt(s string) (null.Int, error) {
	if s = strings.TrimSpace(s); s == "" || s == "." {
		return null.Int{}, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return null.Int{}, err
	}
	return null.IntFrom(v), nil
}

func parseNullFloat(s string) (null.Float, error) {
	if s = strings.TrimSpace(s); s == "" || s == "." {
		return null.Float{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}, err
	}
	return null.FloatFrom(v), nil
}

func (row *callRow) sourceCall() (c SourceCall, err error) {
	c.SourceID = row.SourceID
	c.CalledAllele = strings.TrimSpace(row.Allele)
	if c.SourceType, err = ParseSourceType(row.SourceType); err != nil {
		return
	}
	if c.State, err = ParseConsensusState(row.State); err != nil {
		return
	}
	if c.CallableState, err = callable.ParseState(row.CallableState); err != nil {
		return
	}
	if c.ReadDepth, err = parseNullInt(row.Depth); err != nil {
		return
	}
	if c.MappingQuality, err = parseNullFloat(row.MappingQuality); err != nil {
		return
	}
	if c.CalledRepeatCount, err = parseNullInt(row.RepeatCount); err != nil {
		return
	}
	c.AlleleFraction, err = parseNullFloat(row.AlleleFraction)
	return
}

// ReadSourceCallsTSV reads source calls and groups them by variant, in order
// of first appearance.  The header names the columns variant, contig,
// position, kind, in_tree, source_id, source_type, allele, state, depth,
// mapq, callable_state, repeat_count and allele_fraction.
func ReadSourceCallsTSV(r io.Reader) ([]Variant, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	tr.Comment = '#'

	var (
		variants []Variant
		index    = map[string]int{}
	)
	for line := 2; ; line++ {
		var row callRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		call, err := row.sourceCall()
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("concordance.ReadSourceCallsTSV: line %d", line))
		}
		kind, err := ParseVariantKind(row.Kind)
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("concordance.ReadSourceCallsTSV: line %d", line))
		}
		i, ok := index[row.Variant]
		if !ok {
			pos, err := strconv.ParseInt(row.Position, 10, 32)
			if err != nil {
				return nil, errors.E(errors.Invalid, err, fmt.Sprintf("concordance.ReadSourceCallsTSV: line %d: position", line))
			}
			inTree := false
			if row.InTree != "" {
				if inTree, err = strconv.ParseBool(row.InTree); err != nil {
					return nil, errors.E(errors.Invalid, err, fmt.Sprintf("concordance.ReadSourceCallsTSV: line %d: in_tree", line))
				}
			}
			i = len(variants)
			index[row.Variant] = i
			variants = append(variants, Variant{
				ID:     row.Variant,
				Contig: row.Contig,
				Pos:    genome.PosType(pos),
				Kind:   kind,
				InTree: inTree,
			})
		} else if variants[i].Kind != kind {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("concordance.ReadSourceCallsTSV: line %d: variant %s is both %v and %v", line, row.Variant, variants[i].Kind, kind))
		}
		variants[i].Calls = append(variants[i].Calls, call)
	}
	return variants, nil
}

// LoadSourceCalls reads a source call TSV from a local or S3 path.
func LoadSourceCalls(ctx context.Context, path string) ([]Variant, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	variants, err := ReadSourceCallsTSV(in.Reader(ctx))
	if err != nil {
		_ = in.Close(ctx)
		return nil, errors.E(err, path)
	}
	return variants, in.Close(ctx)
}

// WriteResultsTSV writes one row per variant.  results[i] is the consensus
// of variants[i].
func WriteResultsTSV(w io.Writer, variants []Variant, results []Result) error {
	if len(variants) != len(results) {
		return errors.E(errors.Invalid, fmt.Sprintf("concordance.WriteResultsTSV: %d variants, %d results", len(variants), len(results)))
	}
	out := tsv.NewWriter(w)
	out.WriteString("variant\tcontig\tposition\tkind\tconsensus_allele\tconsensus_state\tstatus\tconfidence\tsource_count\tconcordant_count\tdiscordant_count\tlikely_heteroplasmy")
	if err := out.EndLine(); err != nil {
		return err
	}
	for i, v := range variants {
		r := &results[i]
		out.WriteString(v.ID)
		out.WriteString(v.Contig)
		out.WriteUint32(uint32(v.Pos))
		out.WriteString(v.Kind.String())
		out.WriteString(r.ConsensusAllele)
		out.WriteString(r.ConsensusState.String())
		out.WriteString(r.Status.String())
		out.WriteString(strconv.FormatFloat(r.Confidence, 'f', 4, 64))
		out.WriteUint32(uint32(r.SourceCount))
		out.WriteUint32(uint32(r.ConcordantCount))
		out.WriteUint32(uint32(r.DiscordantCount))
		out.WriteString(strconv.FormatBool(r.LikelyHeteroplasmy))
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}
