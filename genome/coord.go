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
package genome

import (
	"fmt"
	"sort"
)

// PosType is the integer type used for 1-based genomic positions.
type PosType = int32

// Key identifies a single 1-based position on a named contig.  It is the map
// key used by every batch lookup in this module, so that a batch of n
// positions costs O(n) rather than O(n^2).
type Key struct {
	Contig string
	Pos    PosType
}

// String renders the key as "contig:pos".
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Contig, k.Pos)
}

// Compare returns (negative int, 0, positive int) if (k<k1, k=k1, k>k1)
// respectively.  Contigs are ordered lexically.
func (k Key) Compare(k1 Key) int {
	if k.Contig != k1.Contig {
		if k.Contig < k1.Contig {
			return -1
		}
		return 1
	}
	return int(k.Pos - k1.Pos)
}

// LT returns true iff k < k1.
func (k Key) LT(k1 Key) bool {
	return k.Compare(k1) < 0
}

// SortKeys sorts keys in place by contig, then position.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].LT(keys[j]) })
}
