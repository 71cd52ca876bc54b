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

/*Package haplogroup places a sample on a Y-DNA or mtDNA phylogenetic tree.

  The tree is an indexed arena (see Tree): nodes refer to their parent and
  children by NodeID, never by pointer.  Score walks every root depth-first,
  accumulating derived/ancestral evidence along each lineage, and returns one
  Result per visited node, best first.  Confidence turns the best Result into
  a bounded score that is penalized when an unrelated lineage scores almost
  as well.

  Branch scoring rewards dense "starburst" branches whose many
  phylo-equivalent markers are mostly derived, and penalizes branches in
  proportion to their ancestral evidence:

    branchScore = (2*derived/callable - 1) * callable,   callable = derived + ancestral

  Descent stops after MaxConsecutiveAncestral branches in a row whose calls
  were all ancestral.  Branches with no calls at all do not count against the
  lineage.
*/
package haplogroup
