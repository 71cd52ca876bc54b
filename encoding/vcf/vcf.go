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

// Package vcf indexes single-sample VCF records by position so the resolver
// can look up a batch of tree positions in one pass.
package vcf

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/brentp/vcfgo"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/lineage/genome"
	"github.com/grailbio/lineage/resolve"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Opts controls VCF loading.
type Opts struct {
	// Build is the reference build the VCF was called against.  If it is
	// BuildUnknown the build is detected from ##reference / ##contig header
	// lines; an explicit Build overrides the header.
	Build genome.Build
	// Sample selects the sample column by name.  Empty selects the first.
	Sample string
	// Keep, if non-nil, restricts the index to positions for which it
	// returns true (e.g. the tree's defining positions).
	Keep func(genome.Key) bool
}

// Index holds one call per position for a single sample.
type Index struct {
	build  genome.Build
	sample string
	calls  map[genome.Key]resolve.VariantCall
}

// Build returns the reference build the index was loaded against.
func (x *Index) Build() genome.Build { return x.build }

// Sample returns the name of the indexed sample column.
func (x *Index) Sample() string { return x.sample }

// Len returns the number of indexed positions.
func (x *Index) Len() int { return len(x.calls) }

// QueryPositions implements resolve.VariantSource.
func (x *Index) QueryPositions(ctx context.Context, build genome.Build, keys []genome.Key) (map[genome.Key]resolve.VariantCall, error) {
	if build != x.build {
		return nil, &genome.BuildMismatchError{Expected: build, Actual: x.build}
	}
	out := make(map[genome.Key]resolve.VariantCall, len(keys))
	for _, k := range keys {
		if c, ok := x.calls[k]; ok {
			out[k] = c
		}
	}
	return out, nil
}

// readHeaderLines consumes the "##" meta lines from r and returns them,
// leaving r positioned at the "#CHROM" line.
func readHeaderLines(r *bufio.Reader) ([]string, error) {
	var meta []string
	for {
		peek, err := r.Peek(2)
		if err != nil || string(peek) != "##" {
			return meta, nil
		}
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		meta = append(meta, strings.TrimRight(line, "\r\n"))
		if err == io.EOF {
			return meta, nil
		}
	}
}

func detectBuild(meta []string) genome.Build {
	for _, line := range meta {
		if strings.HasPrefix(line, "##reference=") || strings.HasPrefix(line, "##assembly=") ||
			(strings.HasPrefix(line, "##contig=") && strings.Contains(line, "assembly=")) {
			if b := genome.DetectBuild(line); b != genome.BuildUnknown {
				return b
			}
		}
	}
	return genome.BuildUnknown
}

// NewIndex reads a VCF from r.
func NewIndex(r io.Reader, opts Opts) (*Index, error) {
	br := bufio.NewReader(r)
	meta, err := readHeaderLines(br)
	if err != nil {
		return nil, errors.Wrap(err, "vcf.NewIndex: reading header")
	}
	x := &Index{build: opts.Build, calls: make(map[genome.Key]resolve.VariantCall)}
	if x.build == genome.BuildUnknown {
		if x.build = detectBuild(meta); x.build == genome.BuildUnknown {
			return nil, errors.New("vcf.NewIndex: reference build not given and not found in VCF header")
		}
	} else if detected := detectBuild(meta); detected != genome.BuildUnknown && detected != x.build {
		log.Printf("vcf.NewIndex: header suggests %v, using requested %v", detected, x.build)
	}

	var head bytes.Buffer
	for _, line := range meta {
		head.WriteString(line)
		head.WriteByte('\n')
	}
	rdr, err := vcfgo.NewReader(io.MultiReader(&head, br), false)
	if err != nil {
		return nil, errors.Wrap(err, "vcf.NewIndex")
	}
	sampleIdx := 0
	if names := rdr.Header.SampleNames; len(names) > 0 {
		x.sample = names[0]
		if opts.Sample != "" {
			sampleIdx = -1
			for i, n := range names {
				if n == opts.Sample {
					sampleIdx = i
					x.sample = n
				}
			}
			if sampleIdx < 0 {
				return nil, errors.Errorf("vcf.NewIndex: sample %s not in VCF (have %v)", opts.Sample, names)
			}
		}
	} else if opts.Sample != "" {
		return nil, errors.Errorf("vcf.NewIndex: sample %s requested from a sites-only VCF", opts.Sample)
	}

	var nSkipped int
	for v := rdr.Read(); v != nil; v = rdr.Read() {
		key := genome.Key{Contig: v.Chromosome, Pos: genome.PosType(v.Pos)}
		if opts.Keep != nil && !opts.Keep(key) {
			continue
		}
		call, ok := toCall(v, sampleIdx)
		if !ok {
			nSkipped++
			continue
		}
		if prev, dup := x.calls[key]; dup && prev.IsVariant {
			// Keep the first variant record when a gVCF repeats a position.
			continue
		}
		x.calls[key] = call
	}
	if err := rdr.Error(); err != nil {
		// vcfgo accumulates per-line validation problems; the records it could
		// parse are still usable.
		log.Error.Printf("vcf.NewIndex: %v", err)
	}
	log.Printf("vcf.NewIndex: sample %q on %v: %d position(s) indexed, %d no-call record(s) skipped",
		x.sample, x.build, len(x.calls), nSkipped)
	return x, nil
}

// NewIndexFromPath is a wrapper for NewIndex that takes a path instead of an
// io.Reader.  Gzipped (and bgzipped) input is detected from the file name.
func NewIndexFromPath(ctx context.Context, path string, opts Opts) (x *Index, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return NewIndex(reader, opts)
}

// toCall converts one record.  ok is false for missing genotypes ("./.").
func toCall(v *vcfgo.Variant, sampleIdx int) (call resolve.VariantCall, ok bool) {
	call = resolve.VariantCall{
		Ref:     v.Ref(),
		Quality: float64(v.Quality),
	}
	alts := v.Alt()
	if len(alts) == 0 || v.Samples == nil || sampleIdx >= len(v.Samples) || v.Samples[sampleIdx] == nil {
		// Sites-only record: its presence is the call.
		for _, a := range alts {
			if isRealAllele(a) {
				call.Alt = a
				call.IsVariant = true
				break
			}
		}
		call.Depth = infoDepth(v)
		return call, true
	}
	s := v.Samples[sampleIdx]
	allele := -1
	for _, gt := range s.GT {
		if gt < 0 {
			continue
		}
		if allele < 0 || (allele == 0 && gt > 0) {
			allele = gt
		}
	}
	if allele < 0 {
		return call, false
	}
	if allele > 0 && allele <= len(alts) && isRealAllele(alts[allele-1]) {
		call.Alt = alts[allele-1]
		call.IsVariant = true
	} else if len(alts) > 0 {
		call.Alt = alts[0]
	}
	call.Depth = s.DP
	if call.Depth <= 0 {
		call.Depth = infoDepth(v)
	}
	return call, true
}

// isRealAllele rejects symbolic gVCF alleles such as <NON_REF> and "*".
func isRealAllele(a string) bool {
	return a != "" && a != "." && a != "*" && !strings.HasPrefix(a, "<")
}

func infoDepth(v *vcfgo.Variant) int {
	raw, err := v.Info().Get("DP")
	if err != nil || raw == nil {
		return 0
	}
	switch d := raw.(type) {
	case int:
		return d
	case string:
		n, _ := strconv.Atoi(d)
		return n
	}
	return 0
}
