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
package haplogroup

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/lineage/genome"
)

// treeRow is one row of a tree TSV: a locus of a node on one build.  Nodes
// that carry no loci of their own (or are listed before their loci) have an
// empty locus column.
type treeRow struct {
	Haplogroup string `tsv:"haplogroup"`
	Parent     string `tsv:"parent"`
	Locus      string `tsv:"locus"`
	Kind       string `tsv:"kind"`
	Build      string `tsv:"build"`
	Contig     string `tsv:"contig"`
	Position   string `tsv:"position"`
	Ancestral  string `tsv:"ancestral"`
	Derived    string `tsv:"derived"`
}

// ReadTreeTSV reads a haplogroup tree.  The first row is a header naming the
// columns haplogroup, parent, locus, kind, build, contig, position, ancestral
// and derived, in any order.  Lines starting with '#' are ignored.  A locus
// defined on several builds appears once per build.
func ReadTreeTSV(r io.Reader) (*Tree, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	tr.Comment = '#'

	type nodeInfo struct {
		parent string
		loci   []Locus
		index  map[string]int
	}
	var (
		order []string
		nodes = make(map[string]*nodeInfo)
	)
	for line := 2; ; line++ {
		var row treeRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		n := nodes[row.Haplogroup]
		if n == nil {
			n = &nodeInfo{parent: row.Parent, index: make(map[string]int)}
			nodes[row.Haplogroup] = n
			order = append(order, row.Haplogroup)
		} else if n.parent != row.Parent {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("haplogroup.ReadTreeTSV: line %d: node %s has parents %q and %q", line, row.Haplogroup, n.parent, row.Parent))
		}
		if row.Locus == "" {
			continue
		}
		kind, err := ParseVariantKind(row.Kind)
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("line %d", line))
		}
		build, err := genome.ParseBuild(row.Build)
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("line %d", line))
		}
		pos, err := strconv.ParseInt(row.Position, 10, 32)
		if err != nil || pos <= 0 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("haplogroup.ReadTreeTSV: line %d: bad position %q", line, row.Position))
		}
		i, ok := n.index[row.Locus]
		if !ok {
			i = len(n.loci)
			n.index[row.Locus] = i
			n.loci = append(n.loci, Locus{Name: row.Locus, Kind: kind, Coords: make(map[genome.Build]Coord)})
		}
		if _, dup := n.loci[i].Coords[build]; dup {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("haplogroup.ReadTreeTSV: line %d: locus %s has two %v coordinates", line, row.Locus, build))
		}
		n.loci[i].Coords[build] = Coord{
			Contig:    row.Contig,
			Pos:       genome.PosType(pos),
			Ancestral: genome.NormalizeAllele(row.Ancestral),
			Derived:   genome.NormalizeAllele(row.Derived),
		}
	}
	b := NewTreeBuilder()
	for _, name := range order {
		n := nodes[name]
		if err := b.Add(name, n.parent, n.loci...); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// LoadTree reads a tree TSV from a local or S3 path.
func LoadTree(ctx context.Context, path string) (*Tree, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	t, err := ReadTreeTSV(in.Reader(ctx))
	if err != nil {
		_ = in.Close(ctx)
		return nil, errors.E(err, path)
	}
	return t, in.Close(ctx)
}
