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
	"strings"

	"github.com/grailbio/base/errors"
)

// Build identifies a reference genome assembly.  Coordinates are only
// comparable between calls and tree loci that share a Build.
type Build int

const (
	// BuildUnknown is the zero value; it never matches a real build.
	BuildUnknown Build = iota
	// GRCh37 is also known as hg19/b37.
	GRCh37
	// GRCh38 is also known as hg38.
	GRCh38
	// T2T is the CHM13v2 telomere-to-telomere assembly (hs1).
	T2T
	// RCRS is the revised Cambridge Reference Sequence for mtDNA.
	RCRS
)

var buildNames = [...]string{"unknown", "GRCh37", "GRCh38", "T2T", "rCRS"}

var buildAliases = map[string]Build{
	"grch37":    GRCh37,
	"hg19":      GRCh37,
	"b37":       GRCh37,
	"hs37d5":    GRCh37,
	"grch38":    GRCh38,
	"hg38":      GRCh38,
	"b38":       GRCh38,
	"t2t":       T2T,
	"chm13":     T2T,
	"chm13v2":   T2T,
	"hs1":       T2T,
	"rcrs":      RCRS,
	"nc_012920": RCRS,
}

// String implements fmt.Stringer.
func (b Build) String() string {
	if b < 0 || int(b) >= len(buildNames) {
		return buildNames[BuildUnknown]
	}
	return buildNames[b]
}

// ParseBuild maps a build name or one of its common aliases
// (case-insensitive) to a Build.
func ParseBuild(name string) (Build, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if b, ok := buildAliases[key]; ok {
		return b, nil
	}
	// Accept versioned names such as "NC_012920.1" or "GRCh38.p14".
	if dot := strings.IndexByte(key, '.'); dot > 0 {
		if b, ok := buildAliases[key[:dot]]; ok {
			return b, nil
		}
	}
	return BuildUnknown, errors.E(errors.Invalid, "genome.ParseBuild: unrecognized reference build", name)
}

// DetectBuild looks for a build alias inside free text, such as a VCF
// "##reference=file:///refs/GRCh38.fa" line.  An alias only matches as a
// whole token, so "b37" inside an md5 digest is ignored.  When several
// aliases match, the leftmost wins, then the longest.  It returns
// BuildUnknown when nothing matches.
func DetectBuild(text string) Build {
	lower := strings.ToLower(text)
	best, bestAt, bestLen := BuildUnknown, len(lower), 0
	for alias, b := range buildAliases {
		at := tokenIndex(lower, alias)
		if at < 0 {
			continue
		}
		if at < bestAt || (at == bestAt && len(alias) > bestLen) {
			best, bestAt, bestLen = b, at, len(alias)
		}
	}
	return best
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// tokenIndex returns the first index of tok in s that is neither preceded
// nor followed by a letter or digit, or -1.
func tokenIndex(s, tok string) int {
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], tok)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(tok)
		if (i == 0 || !isAlnum(s[i-1])) && (end == len(s) || !isAlnum(s[end])) {
			return i
		}
		from = i + 1
	}
	return -1
}
