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
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/lineage/haplogroup"
)

var (
	treePath      = flag.String("tree", "", "Haplogroup tree TSV (required)")
	buildName     = flag.String("build", "GRCh38", "Reference build the tree positions are resolved on, e.g. GRCh37, GRCh38, T2T, rCRS")
	vcfPath       = flag.String("vcf", "", "Sample VCF path (optionally gzipped); this xor -manifest required")
	vcfBuild      = flag.String("vcf-build", "", "Reference build of the VCF(s); detected from the VCF header if empty")
	sampleName    = flag.String("sample", "", "Sample label and VCF sample column for -vcf; defaults to the first VCF sample")
	callablePath  = flag.String("callable", "", "CallableLoci BED for -vcf (optional)")
	manifestPath  = flag.String("manifest", "", "TSV with columns sample, vcf, vcf_sample, callable; this xor -vcf required")
	fastaPath     = flag.String("fasta", "", "Reference FASTA for the -build assembly; required to call CALLABLE positions absent from the VCF")
	oneBasedBED   = flag.Bool("one-based-bed", false, "Callable BED start coordinates are 1-based")
	maxConfidence = flag.Float64("max-confidence", haplogroup.SequencingMaxConfidence, "Upper bound on the reported confidence; use 0.85 for chip data")
	maxAncestral  = flag.Int("max-consecutive-ancestral", haplogroup.DefaultScoreOpts.MaxConsecutiveAncestral, "Stop descending a lineage after this many consecutive all-ancestral branches")
	top           = flag.Int("top", 20, "Number of ranked haplogroups written per sample; 0 = all")
	outPrefix     = flag.String("out", "bio-haplogroup", "Output path prefix")
	parallelism   = flag.Int("parallelism", 0, "Maximum number of samples processed simultaneously; 0 = runtime.NumCPU()")
)

func bioHaplogroupUsage() {
	fmt.Printf("Usage: %s [OPTIONS] -tree tree.tsv {-vcf sample.vcf | -manifest samples.tsv}\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioHaplogroupUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 0 {
		log.Fatalf("Unexpected positional arguments; please check flag syntax: '%s'", strings.Join(flag.Args(), " "))
	}
	if *treePath == "" {
		log.Fatalf("-tree is required")
	}
	if (*vcfPath == "") == (*manifestPath == "") {
		log.Fatalf("exactly one of -vcf and -manifest is required")
	}
	ctx := vcontext.Background()
	opts := runOpts{
		TreePath:      *treePath,
		Build:         *buildName,
		VCFBuild:      *vcfBuild,
		ManifestPath:  *manifestPath,
		FastaPath:     *fastaPath,
		OneBasedBED:   *oneBasedBED,
		MaxConfidence: *maxConfidence,
		Score:         haplogroup.ScoreOpts{MaxConsecutiveAncestral: *maxAncestral},
		Top:           *top,
		OutPrefix:     *outPrefix,
		Parallelism:   *parallelism,
	}
	if *vcfPath != "" {
		opts.Samples = []sampleInput{{Name: *sampleName, VCF: *vcfPath, VCFSample: *sampleName, Callable: *callablePath}}
	}
	if err := run(ctx, opts); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}
