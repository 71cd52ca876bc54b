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
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/lineage/genome"
)

// VariantKind distinguishes point substitutions from insertions/deletions.
type VariantKind int

const (
	// SNP is a single-nucleotide substitution.
	SNP VariantKind = iota
	// INDEL is an insertion or deletion.
	INDEL
)

// String implements fmt.Stringer.
func (k VariantKind) String() string {
	if k == INDEL {
		return "INDEL"
	}
	return "SNP"
}

// ParseVariantKind parses "SNP" or "INDEL" (case-insensitive); empty means SNP.
func ParseVariantKind(s string) (VariantKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "SNP":
		return SNP, nil
	case "INDEL":
		return INDEL, nil
	}
	return SNP, errors.E(errors.Invalid, "haplogroup.ParseVariantKind: unrecognized kind", s)
}

// Coord places a locus on one reference build.
type Coord struct {
	Contig    string
	Pos       genome.PosType
	Ancestral string
	Derived   string
}

// Key returns the coordinate's position key.
func (c Coord) Key() genome.Key {
	return genome.Key{Contig: c.Contig, Pos: c.Pos}
}

// Locus is a named tree-defining marker.
type Locus struct {
	Name   string
	Kind   VariantKind
	Coords map[genome.Build]Coord
}

// NodeID indexes Tree.Nodes.
type NodeID int32

// NoNode is the Parent of a root.
const NoNode NodeID = -1

// Node is one haplogroup.  Loci are the markers defining this branch only,
// not those inherited from ancestors.
type Node struct {
	Name     string
	Parent   NodeID
	Loci     []Locus
	Children []NodeID
}

// Tree is an immutable forest of haplogroup nodes, normally one per DNA
// type.  Build it with a TreeBuilder.
type Tree struct {
	Nodes  []Node
	Roots  []NodeID
	byName map[string]NodeID
}

// Lookup returns the node with the given name.
func (t *Tree) Lookup(name string) (NodeID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Node returns the node with the given ID.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Positions returns the distinct positions of all loci on the given build,
// sorted, together with each position's ancestral allele.  It is the input
// to the resolver.
func (t *Tree) Positions(build genome.Build) ([]genome.Key, map[genome.Key]string) {
	anc := make(map[genome.Key]string)
	for i := range t.Nodes {
		for _, l := range t.Nodes[i].Loci {
			c, ok := l.Coords[build]
			if !ok {
				continue
			}
			if _, seen := anc[c.Key()]; !seen {
				anc[c.Key()] = c.Ancestral
			}
		}
	}
	keys := make([]genome.Key, 0, len(anc))
	for k := range anc {
		keys = append(keys, k)
	}
	genome.SortKeys(keys)
	return keys, anc
}

// TreeBuilder accumulates nodes in any order; Build links them.
type TreeBuilder struct {
	nodes   []Node
	parents []string
	byName  map[string]NodeID
}

// NewTreeBuilder returns an empty builder.
func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{byName: make(map[string]NodeID)}
}

// Add registers a node.  parent is "" for a root.  Adding loci to an existing
// node name appends them, provided the parent agrees.
func (b *TreeBuilder) Add(name, parent string, loci ...Locus) error {
	if name == "" {
		return errors.E(errors.Invalid, "haplogroup.TreeBuilder: empty node name")
	}
	if name == parent {
		return errors.E(errors.Invalid, fmt.Sprintf("haplogroup.TreeBuilder: node %s is its own parent", name))
	}
	if id, ok := b.byName[name]; ok {
		if b.parents[id] != parent {
			return errors.E(errors.Invalid, fmt.Sprintf("haplogroup.TreeBuilder: node %s has parents %q and %q", name, b.parents[id], parent))
		}
		b.nodes[id].Loci = append(b.nodes[id].Loci, loci...)
		return nil
	}
	b.byName[name] = NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{Name: name, Parent: NoNode, Loci: loci})
	b.parents = append(b.parents, parent)
	return nil
}

// Build links parents and children and validates that the result is a
// forest: every parent exists and every node is reachable from a root.
func (b *TreeBuilder) Build() (*Tree, error) {
	t := &Tree{Nodes: b.nodes, byName: b.byName}
	for i, parent := range b.parents {
		id := NodeID(i)
		if parent == "" {
			t.Roots = append(t.Roots, id)
			continue
		}
		pid, ok := b.byName[parent]
		if !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("haplogroup.TreeBuilder: node %s has unknown parent %s", t.Nodes[i].Name, parent))
		}
		t.Nodes[i].Parent = pid
		t.Nodes[pid].Children = append(t.Nodes[pid].Children, id)
	}
	// Children in name order keep traversal deterministic.
	for i := range t.Nodes {
		children := t.Nodes[i].Children
		sort.Slice(children, func(a, b int) bool { return t.Nodes[children[a]].Name < t.Nodes[children[b]].Name })
	}
	reached := 0
	stack := append([]NodeID(nil), t.Roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reached++
		stack = append(stack, t.Nodes[id].Children...)
	}
	if reached != len(t.Nodes) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("haplogroup.TreeBuilder: %d node(s) are on a parent cycle", len(t.Nodes)-reached))
	}
	b.nodes, b.parents, b.byName = nil, nil, make(map[string]NodeID)
	return t, nil
}
