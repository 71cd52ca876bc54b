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
package callable

import (
	"bufio"
	"context"
	"io"
	"strconv"

	"github.com/biogo/store/interval"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/lineage/genome"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Opts controls CallableLoci BED loading.
type Opts struct {
	// OneBasedInput interprets the BED interval boundaries as one-based
	// [start, end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// Entry is one labeled interval, with 0-based half-open coordinates.
type Entry struct {
	Contig string
	Start0 int
	End    int
	State  State
}

// stateInterval adapts an Entry to biogo's integer interval tree.
type stateInterval struct {
	start, end int
	state      State
	id         uintptr
}

func (s stateInterval) Overlap(b interval.IntRange) bool {
	return s.start < b.End && b.Start < s.end
}

func (s stateInterval) ID() uintptr { return s.id }

func (s stateInterval) Range() interval.IntRange {
	return interval.IntRange{Start: s.start, End: s.end}
}

// point is a single 0-based position used as a tree query.
type point int

func (p point) Overlap(b interval.IntRange) bool {
	return b.Start <= int(p) && int(p) < b.End
}

// Classifier answers "what is the callable state of this position" from a
// set of labeled intervals, one interval tree per contig.  It is safe for
// concurrent readers once built.
type Classifier struct {
	trees map[string]*interval.IntTree
	nBase map[State]int
}

// NewClassifier builds a Classifier from labeled intervals.  Entries need not
// be sorted.  Empty intervals are skipped.
func NewClassifier(entries []Entry) (*Classifier, error) {
	c := &Classifier{
		trees: make(map[string]*interval.IntTree),
		nBase: make(map[State]int),
	}
	for i, e := range entries {
		if e.Start0 < 0 || e.End < e.Start0 {
			return nil, errors.Errorf("callable.NewClassifier: invalid interval %s:[%d, %d)", e.Contig, e.Start0, e.End)
		}
		if e.End == e.Start0 {
			continue
		}
		tree := c.trees[e.Contig]
		if tree == nil {
			tree = &interval.IntTree{}
			c.trees[e.Contig] = tree
		}
		if err := tree.Insert(stateInterval{start: e.Start0, end: e.End, state: e.State, id: uintptr(i)}, true); err != nil {
			return nil, errors.Wrapf(err, "callable.NewClassifier: %s:[%d, %d)", e.Contig, e.Start0, e.End)
		}
		c.nBase[e.State] += e.End - e.Start0
	}
	for _, tree := range c.trees {
		tree.AdjustRanges()
	}
	return c, nil
}

// State returns the callable state at a 1-based position.  ok is false when
// no interval covers it.  If intervals overlap, the one listed first wins.
func (c *Classifier) State(key genome.Key) (state State, ok bool) {
	tree := c.trees[key.Contig]
	if tree == nil {
		return Unset, false
	}
	hits := tree.Get(point(key.Pos - 1))
	if len(hits) == 0 {
		return Unset, false
	}
	best := hits[0].(stateInterval)
	for _, h := range hits[1:] {
		if si := h.(stateInterval); si.id < best.id {
			best = si
		}
	}
	return best.state, true
}

// QueryPositions classifies a batch of positions.  Positions without a
// covering interval are absent from the result.
func (c *Classifier) QueryPositions(ctx context.Context, keys []genome.Key) (map[genome.Key]State, error) {
	out := make(map[genome.Key]State, len(keys))
	for _, k := range keys {
		if s, ok := c.State(k); ok {
			out[k] = s
		}
	}
	return out, nil
}

// Bases returns the number of bases labeled with the given state.
func (c *Classifier) Bases(s State) int {
	return c.nBase[s]
}

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// ReadBED loads a CallableLoci BED ("contig start end STATE").  Header,
// "track" and "#" lines are ignored.
func ReadBED(r io.Reader, opts Opts) (*Classifier, error) {
	var startSubtract int
	if opts.OneBasedInput {
		startSubtract++
	}
	var (
		tokens  [4][]byte
		entries []Entry
		lineIdx int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 || tokens[0][0] == '#' || string(tokens[0]) == "track" || string(tokens[0]) == "browser" {
			continue
		}
		if nToken != 4 {
			return nil, errors.Errorf("callable.ReadBED: line %d has %d tokens, expected 4", lineIdx, nToken)
		}
		start, err := strconv.Atoi(string(tokens[1]))
		if err != nil {
			return nil, errors.Wrapf(err, "callable.ReadBED: line %d", lineIdx)
		}
		start -= startSubtract
		end, err := strconv.Atoi(string(tokens[2]))
		if err != nil {
			return nil, errors.Wrapf(err, "callable.ReadBED: line %d", lineIdx)
		}
		if start < 0 || end < start {
			return nil, errors.Errorf("callable.ReadBED: invalid coordinate pair on line %d", lineIdx)
		}
		state, err := ParseState(string(tokens[3]))
		if err != nil {
			return nil, errors.Wrapf(err, "callable.ReadBED: line %d", lineIdx)
		}
		entries = append(entries, Entry{Contig: string(tokens[0]), Start0: start, End: end, State: state})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	c, err := NewClassifier(entries)
	if err != nil {
		return nil, err
	}
	log.Printf("callable BED loaded, %d interval(s), %d callable base(s)", len(entries), c.Bases(Callable))
	return c, nil
}

// ReadBEDFromPath is a wrapper for ReadBED that takes a path instead of an
// io.Reader.  Gzipped input is detected from the file name.
func ReadBEDFromPath(ctx context.Context, path string, opts Opts) (c *Classifier, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return ReadBED(reader, opts)
}
