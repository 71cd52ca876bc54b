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
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/lineage/concordance"
)

var (
	inPath            = flag.String("in", "", "Input source-call TSV (required)")
	outPath           = flag.String("out", "consensus.tsv", "Output consensus TSV")
	conflictThreshold = flag.Float64("conflict-threshold", concordance.DefaultOpts.ConflictThreshold, "Discordance ratio above which a variant is a CONFLICT")
	confirmThreshold  = flag.Float64("confirm-threshold", concordance.DefaultOpts.ConfirmThreshold, "Confidence at or above which a variant is CONFIRMED or NOVEL")
	strTolerance      = flag.Int("str-tolerance", concordance.DefaultOpts.STRTolerance, "Largest repeat-count difference treated as stutter")
	parallelism       = flag.Int("parallelism", 0, "Number of concurrent jobs; 0 = runtime.NumCPU()")
)

func bioConcordanceUsage() {
	fmt.Printf("Usage: %s [OPTIONS] -in calls.tsv\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func run(ctx context.Context, in, out string, opts concordance.Opts, parallelism int) (err error) {
	variants, err := concordance.LoadSourceCalls(ctx, in)
	if err != nil {
		return err
	}
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	results, err := concordance.RunBatch(variants, opts, parallelism)
	if err != nil {
		return err
	}
	dst, err := file.Create(ctx, out)
	if err != nil {
		return err
	}
	defer func() {
		if e := dst.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if err = concordance.WriteResultsTSV(dst.Writer(ctx), variants, results); err != nil {
		return err
	}
	counts := map[concordance.Status]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	log.Printf("%d variant(s): %d confirmed, %d novel, %d pending, %d conflict, %d no coverage",
		len(results), counts[concordance.Confirmed], counts[concordance.Novel], counts[concordance.Pending],
		counts[concordance.Conflict], counts[concordance.NoCoverage])
	return nil
}

func main() {
	flag.Usage = bioConcordanceUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 0 {
		log.Fatalf("Unexpected positional arguments; please check flag syntax: '%s'", strings.Join(flag.Args(), " "))
	}
	if *inPath == "" {
		log.Fatalf("-in is required")
	}
	opts := concordance.DefaultOpts
	opts.ConflictThreshold = *conflictThreshold
	opts.ConfirmThreshold = *confirmThreshold
	opts.STRTolerance = *strTolerance
	if err := run(vcontext.Background(), *inPath, *outPath, opts, *parallelism); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}
