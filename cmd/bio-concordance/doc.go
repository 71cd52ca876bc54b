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
bio-concordance merges per-method calls of Y-DNA/mtDNA variants into one
consensus call per variant.

The input TSV has one row per source call with columns variant, contig,
position, kind (SNP, INDEL or STR), in_tree, source_id, source_type, allele,
state, depth, mapq, callable_state, repeat_count and allele_fraction.  Empty
numeric cells are treated as absent.  The output TSV has one row per variant
with its consensus allele, state, status and confidence.

Sample usage:
bio-concordance \
    -in calls.tsv \
    -out consensus.tsv
*/
package main
