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

// Package reference answers "which base does the reference genome carry at
// this position" from FASTA data, either held in memory or read on demand
// through a samtools .fai index.  See http://www.htslib.org/doc/faidx.html.
//
// Sequence names are the stretch of characters excluding spaces immediately
// after '>', so '>chrY Homo sapiens Y' becomes 'chrY'.
package reference

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/grailbio/lineage/genome"
	"github.com/pkg/errors"
)

const scanBufferSize = 1024 * 1024 * 300

// "<name>\t<length>\t<byte offset>\t<bases per line>\t<bytes per line>"
var faiLine = regexp.MustCompile(`^(\S+)\t(\d+)\t(\d+)\t(\d+)\t(\d+)`)

// Genome is a read-only reference sequence set.  Implementations are safe
// for concurrent use.
type Genome interface {
	// Base returns the upper-cased base at a 1-based position.
	Base(contig string, pos genome.PosType) (byte, error)
	// Len returns the length of the named contig.
	Len(contig string) (int, error)
	// Contigs returns contig names in file order.
	Contigs() []string
}

// contigAliases lets "Y" find "chrY", "MT" find "chrM", and vice versa.
func contigAliases(name string) []string {
	aliases := []string{name}
	bare := strings.TrimPrefix(name, "chr")
	if bare != name {
		aliases = append(aliases, bare)
	} else {
		aliases = append(aliases, "chr"+name)
	}
	switch bare {
	case "M":
		aliases = append(aliases, "MT", "chrMT")
	case "MT":
		aliases = append(aliases, "M", "chrM")
	}
	return aliases
}

func checkPos(contig string, pos genome.PosType, length int) error {
	if pos < 1 || int(pos) > length {
		return errors.Errorf("position %d out of range for contig %s with length %d", pos, contig, length)
	}
	return nil
}

type memGenome struct {
	seqs  map[string]string
	names []string
}

// New reads all FASTA data from r into memory.
func New(r io.Reader) (Genome, error) {
	g := &memGenome{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, scanBufferSize)
	var (
		name string
		seq  strings.Builder
	)
	flush := func() error {
		if name == "" {
			if seq.Len() != 0 {
				return errors.Errorf("malformed FASTA: sequence data before first header")
			}
			return nil
		}
		if _, dup := g.seqs[name]; dup {
			return errors.Errorf("malformed FASTA: duplicate sequence %s", name)
		}
		g.seqs[name] = seq.String()
		g.names = append(g.names, name)
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return nil, err
			}
			name = strings.Split(line[1:], " ")[0]
			continue
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA data")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *memGenome) lookup(contig string) (string, string, bool) {
	for _, alias := range contigAliases(contig) {
		if s, ok := g.seqs[alias]; ok {
			return alias, s, true
		}
	}
	return "", "", false
}

// Base implements Genome.Base().
func (g *memGenome) Base(contig string, pos genome.PosType) (byte, error) {
	name, s, ok := g.lookup(contig)
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", contig)
	}
	if err := checkPos(name, pos, len(s)); err != nil {
		return 0, err
	}
	return upper(s[pos-1]), nil
}

// Len implements Genome.Len().
func (g *memGenome) Len(contig string) (int, error) {
	_, s, ok := g.lookup(contig)
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", contig)
	}
	return len(s), nil
}

// Contigs implements Genome.Contigs().
func (g *memGenome) Contigs() []string {
	return g.names
}

type faiEntry struct {
	length    int64
	offset    int64
	lineBase  int64
	lineWidth int64
}

type indexedGenome struct {
	entries map[string]faiEntry
	names   []string

	mu     sync.Mutex
	reader io.ReadSeeker
	buf    [1]byte
}

// NewIndexed creates a Genome that seeks into fasta for each lookup using a
// .fai index, without reading the sequence data into memory.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Genome, error) {
	g := &indexedGenome{entries: make(map[string]faiEntry), reader: fasta}
	scanner := bufio.NewScanner(index)
	for scanner.Scan() {
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		m := faiLine.FindStringSubmatch(scanner.Text())
		if len(m) != 6 {
			return nil, fmt.Errorf("invalid index line: %s", scanner.Text())
		}
		var e faiEntry
		e.length, _ = strconv.ParseInt(m[2], 10, 64)
		e.offset, _ = strconv.ParseInt(m[3], 10, 64)
		e.lineBase, _ = strconv.ParseInt(m[4], 10, 64)
		e.lineWidth, _ = strconv.ParseInt(m[5], 10, 64)
		if e.lineBase <= 0 || e.lineWidth < e.lineBase {
			return nil, fmt.Errorf("invalid line geometry in index line: %s", scanner.Text())
		}
		g.entries[m[1]] = e
		g.names = append(g.names, m[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA index")
	}
	return g, nil
}

func (g *indexedGenome) lookup(contig string) (string, faiEntry, bool) {
	for _, alias := range contigAliases(contig) {
		if e, ok := g.entries[alias]; ok {
			return alias, e, true
		}
	}
	return "", faiEntry{}, false
}

// Base implements Genome.Base().
func (g *indexedGenome) Base(contig string, pos genome.PosType) (byte, error) {
	name, e, ok := g.lookup(contig)
	if !ok {
		return 0, errors.Errorf("sequence not found in index: %s", contig)
	}
	if err := checkPos(name, pos, int(e.length)); err != nil {
		return 0, err
	}
	pos0 := int64(pos - 1)
	off := e.offset + (pos0/e.lineBase)*e.lineWidth + pos0%e.lineBase

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.reader.Seek(off, io.SeekStart); err != nil {
		return 0, errors.Wrapf(err, "seek to offset %d", off)
	}
	if _, err := io.ReadFull(g.reader, g.buf[:]); err != nil {
		return 0, errors.Wrapf(err, "read at offset %d (bad index?)", off)
	}
	return upper(g.buf[0]), nil
}

// Len implements Genome.Len().
func (g *indexedGenome) Len(contig string) (int, error) {
	_, e, ok := g.lookup(contig)
	if !ok {
		return 0, errors.Errorf("sequence not found in index: %s", contig)
	}
	return int(e.length), nil
}

// Contigs implements Genome.Contigs().
func (g *indexedGenome) Contigs() []string {
	return g.names
}

func upper(b byte) byte {
	if 'a' <= b && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
