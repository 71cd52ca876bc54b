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

/*Package resolve decides, for every tree-defining or profile-defining
  position, what the sample's state is.

  Variant callers only emit records where the sample differs from the
  reference (or where they were asked to emit reference blocks), so the
  absence of a VCF record is ambiguous: the sample may match the reference,
  or the position may simply not have been sequenced well enough to call.
  The resolver closes that gap using the callable-loci classification and
  the reference genome:

    VCF record present      -> FromVCF (alt if variant, else ref)
    CALLABLE, no record     -> InferredReference, allele = reference base
    REF_N                   -> InferredReference, allele "N"
    any other state/absent  -> NoCall with a reason

  The reference base is looked up in the genome rather than copied from the
  tree's ancestral allele, because the reference genome itself carries the
  derived allele at some haplogroup-defining sites.

  Every collaborator is queried once per batch.  Collaborator failures are
  folded into NoCall reasons; only a reference-build mismatch is returned to
  the caller as an error.
*/
package resolve
