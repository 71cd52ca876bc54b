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

import "strings"

// NormalizeAllele upper-cases and trims an allele string so that base
// comparison is case-insensitive.
func NormalizeAllele(allele string) string {
	return strings.ToUpper(strings.TrimSpace(allele))
}

// SameAllele reports whether two alleles are equal ignoring case.  Empty
// alleles never match.
func SameAllele(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
