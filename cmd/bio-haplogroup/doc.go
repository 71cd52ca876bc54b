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

/*
bio-haplogroup assigns Y-DNA or mtDNA haplogroups to one or more samples.

For every sample it resolves each tree-defining position, first from the
sample's VCF, then (for positions the VCF does not mention) from GATK
CallableLoci output and the reference genome, and scores the result against
the haplogroup tree.  Positions that are neither in the VCF nor confidently
callable are treated as no-calls rather than as ancestral.

Sample usage:
bio-haplogroup \
    -tree ytree.tsv \
    -build GRCh38 \
    -vcf sample.vcf.gz \
    -callable sample.callable.bed \
    -fasta GRCh38.fa \
    -out output-prefix

Many samples can be processed at once with -manifest, a TSV with columns
sample, vcf, vcf_sample and callable.  sample is a unique label used in
output file names; vcf_sample names the VCF sample column to read (empty
selects the first) and callable may be empty.  Per-sample rankings are
written to
<out>.<sample>.haplogroups.tsv, and the best assignment of every sample to
<out>.summary.tsv.
*/
package main
