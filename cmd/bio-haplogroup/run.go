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
package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/lineage/callable"
	"github.com/grailbio/lineage/encoding/vcf"
	"github.com/grailbio/lineage/genome"
	"github.com/grailbio/lineage/haplogroup"
	"github.com/grailbio/lineage/reference"
	"github.com/grailbio/lineage/resolve"
)

// sampleInput is one manifest row.  Name labels the outputs; VCFSample
// selects the VCF sample column (empty selects the first).
type sampleInput struct {
	Name      string `tsv:"sample"`
	VCF       string `tsv:"vcf"`
	VCFSample string `tsv:"vcf_sample"`
	Callable  string `tsv:"callable"`
}

type runOpts struct {
	TreePath      string
	Build         string
	VCFBuild      string
	Samples       []sampleInput
	ManifestPath  string
	FastaPath     string
	OneBasedBED   bool
	MaxConfidence float64
	Score         haplogroup.ScoreOpts
	Top           int
	OutPrefix     string
	Parallelism   int
}

// sampleResult is one row of the summary.
type sampleResult struct {
	name       string
	top        haplogroup.Result
	confidence float64
	positions  int
	resolved   int
	err        error
}

func readManifest(ctx context.Context, path string) (samples []sampleInput, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	r.Comment = '#'
	labels := map[string]string{}
	for {
		var s sampleInput
		if err := r.Read(&s); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(err, path)
		}
		if s.Name == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: row %d has no sample label", path, len(samples)+1))
		}
		if s.VCF == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: sample %q has no VCF", path, s.Name))
		}
		label := sampleLabel(s, "")
		if prev, ok := labels[label]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: samples %q and %q would both write %s", path, prev, s.Name, label))
		}
		labels[label] = s.Name
		samples = append(samples, s)
	}
	return samples, nil
}

// sampleLabel returns a file-name-safe label for s.
func sampleLabel(s sampleInput, vcfSample string) string {
	name := s.Name
	if name == "" {
		name = vcfSample
	}
	if name == "" {
		name = strings.TrimSuffix(strings.TrimSuffix(filepath.Base(s.VCF), ".gz"), ".vcf")
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, name)
}

type haplogrouper struct {
	opts    runOpts
	build   genome.Build
	vcfOpts vcf.Opts
	tree    *haplogroup.Tree
	queries []resolve.Query
	ref     *reference.Reference
}

func (h *haplogrouper) processSample(ctx context.Context, s sampleInput) (res sampleResult) {
	res.positions = len(h.queries)
	opts := h.vcfOpts
	opts.Sample = s.VCFSample
	index, err := vcf.NewIndexFromPath(ctx, s.VCF, opts)
	if err != nil {
		res.name = sampleLabel(s, "")
		res.err = err
		return
	}
	res.name = sampleLabel(s, index.Sample())
	resolver := resolve.Resolver{Variants: index}
	if s.Callable != "" {
		classifier, err := callable.ReadBEDFromPath(ctx, s.Callable, callable.Opts{OneBasedInput: h.opts.OneBasedBED})
		if err != nil {
			res.err = err
			return
		}
		resolver.Callable = classifier
	}
	if h.ref != nil {
		resolver.Reference = h.ref
	}
	calls, err := resolver.Resolve(ctx, h.build, h.queries)
	if err != nil {
		res.err = err
		return
	}
	alleles := resolve.Alleles(calls)
	res.resolved = len(alleles)
	results := haplogroup.Score(h.tree, h.build, alleles, h.opts.Score)
	if len(results) > 0 {
		res.top = results[0]
		res.confidence = haplogroup.Confidence(results[0], results, h.opts.MaxConfidence)
	}
	out, err := file.Create(ctx, h.opts.OutPrefix+"."+res.name+".haplogroups.tsv")
	if err != nil {
		res.err = err
		return
	}
	if err = haplogroup.WriteResultsTSV(out.Writer(ctx), results, h.opts.Top, h.opts.MaxConfidence); err != nil {
		_ = out.Close(ctx)
		res.err = err
		return
	}
	res.err = out.Close(ctx)
	log.Printf("%s: %s (score %g, confidence %.3f), %d/%d positions called",
		res.name, res.top.Name, res.top.Score, res.confidence, res.resolved, res.positions)
	return
}

func writeSummary(ctx context.Context, path string, results []sampleResult) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := out.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	w := tsv.NewWriter(out.Writer(ctx))
	w.WriteString("sample\thaplogroup\tscore\tconfidence\tmatching_snps\tancestral_matches\tpositions\tcalled_positions\terror")
	if err = w.EndLine(); err != nil {
		return err
	}
	for _, r := range results {
		w.WriteString(r.name)
		w.WriteString(r.top.Name)
		w.WriteString(strconv.FormatFloat(r.top.Score, 'f', -1, 64))
		w.WriteString(strconv.FormatFloat(r.confidence, 'f', 4, 64))
		w.WriteUint32(uint32(r.top.MatchingSNPs))
		w.WriteUint32(uint32(r.top.AncestralMatches))
		w.WriteUint32(uint32(r.positions))
		w.WriteUint32(uint32(r.resolved))
		if r.err != nil {
			w.WriteString(strings.Replace(r.err.Error(), "\t", " ", -1))
		} else {
			w.WriteString("")
		}
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// run assigns haplogroups to every sample and writes the per-sample and
// summary reports.  A sample whose inputs cannot be read, or whose VCF is on
// the wrong build, is reported in the summary and makes run return an error
// after all samples are processed.
func run(ctx context.Context, opts runOpts) (err error) {
	h := haplogrouper{opts: opts}
	if h.build, err = genome.ParseBuild(opts.Build); err != nil {
		return err
	}
	if opts.VCFBuild != "" {
		if h.vcfOpts.Build, err = genome.ParseBuild(opts.VCFBuild); err != nil {
			return err
		}
	}
	if h.tree, err = haplogroup.LoadTree(ctx, opts.TreePath); err != nil {
		return err
	}
	keys, ancestral := h.tree.Positions(h.build)
	if len(keys) == 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("tree %s has no loci on %v", opts.TreePath, h.build))
	}
	for _, k := range keys {
		h.queries = append(h.queries, resolve.Query{Contig: k.Contig, Pos: k.Pos, Ref: ancestral[k]})
	}
	h.vcfOpts.Keep = func(k genome.Key) bool {
		_, ok := ancestral[k]
		return ok
	}
	log.Printf("loaded tree %s: %d haplogroups, %d positions on %v", opts.TreePath, h.tree.Len(), len(keys), h.build)

	samples := opts.Samples
	if opts.ManifestPath != "" {
		if samples, err = readManifest(ctx, opts.ManifestPath); err != nil {
			return err
		}
	}
	if opts.FastaPath != "" {
		if h.ref, err = reference.Open(ctx, opts.FastaPath); err != nil {
			return err
		}
		defer func() {
			if e := h.ref.Close(ctx); e != nil && err == nil {
				err = e
			}
		}()
	} else {
		log.Printf("no -fasta given: CALLABLE positions absent from the VCF will be no-calls")
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(samples) {
		parallelism = len(samples)
	}
	results := make([]sampleResult, len(samples))
	if len(samples) > 0 {
		err = traverse.Each(parallelism, func(jobIdx int) error {
			start := (jobIdx * len(samples)) / parallelism
			end := ((jobIdx + 1) * len(samples)) / parallelism
			for i := start; i < end; i++ {
				results[i] = h.processSample(ctx, samples[i])
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	if err = writeSummary(ctx, opts.OutPrefix+".summary.tsv", results); err != nil {
		return err
	}
	var nFailed int
	for _, r := range results {
		if r.err != nil {
			nFailed++
			if genome.IsBuildMismatch(r.err) {
				log.Error.Printf("%s: %v; rerun with the matching -build", r.name, r.err)
			} else {
				log.Error.Printf("%s: %v", r.name, r.err)
			}
		}
	}
	if nFailed > 0 {
		return errors.E(fmt.Sprintf("%d of %d sample(s) failed", nFailed, len(samples)))
	}
	return nil
}
