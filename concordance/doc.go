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

/*Package concordance merges calls for one variant made by several
laboratory methods into a single consensus call.

Each call is weighted by how much its method is trusted for the variant kind,
boosted by read depth and scaled by mapping quality and callable-loci state.
SNP and INDEL calls vote for their exact allele.  STR calls vote for every
repeat count within a stutter tolerance of their own.  The share of the total
weight carried by the winner is the result's confidence, which drives its
Status.
*/
package concordance
