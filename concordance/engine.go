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
package concordance

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/lineage/genome"
)

// Opts holds the thresholds of the consensus engine.
type Opts struct {
	// A consensus whose discordance ratio exceeds ConflictThreshold is a
	// Conflict.
	ConflictThreshold float64
	// A consensus with at least ConfirmThreshold confidence is Confirmed
	// (known position) or Novel.
	ConfirmThreshold float64
	// Allele fractions in [HeteroplasmyLow, HeteroplasmyHigh] flag likely
	// heteroplasmy.
	HeteroplasmyLow  float64
	HeteroplasmyHigh float64
	// MapqCap is the mapping quality at which a sequencing call gets full
	// weight.
	MapqCap float64
	// STRTolerance is the largest repeat count difference treated as
	// stutter.
	STRTolerance int
}

// DefaultOpts are the production thresholds.
var DefaultOpts = Opts{
	ConflictThreshold: 0.30,
	ConfirmThreshold:  0.70,
	HeteroplasmyLow:   0.15,
	HeteroplasmyHigh:  0.85,
	MapqCap:           60,
	STRTolerance:      1,
}

// Engine computes consensus calls.  It is stateless and safe for concurrent
// use.
type Engine struct {
	Opts Opts
}

// SNPConsensus runs Engine.SNP with DefaultOpts.
func SNPConsensus(calls []SourceCall, kind VariantKind, inTree bool) Result {
	e := Engine{Opts: DefaultOpts}
	return e.SNP(calls, kind, inTree)
}

// STRConsensus runs Engine.STR with DefaultOpts.
func STRConsensus(calls []SourceCall, inTree bool) Result {
	e := Engine{Opts: DefaultOpts}
	return e.STR(calls, inTree)
}

// Weight returns the vote weight of c for a variant of the given kind.
func (e *Engine) Weight(c SourceCall, kind VariantKind) float64 {
	w := c.SourceType.SNPWeight()
	if kind == STR {
		w = c.SourceType.STRWeight()
	}
	if c.ReadDepth.Valid && c.ReadDepth.Int64 > 0 {
		w *= 1 + math.Min(math.Sqrt(float64(c.ReadDepth.Int64))/10, 1)
	}
	if c.SourceType.Sequencing() && c.MappingQuality.Valid && e.Opts.MapqCap > 0 {
		w *= math.Max(0, math.Min(c.MappingQuality.Float64/e.Opts.MapqCap, 1))
	}
	return w * c.CallableState.Weight()
}

// status sets the confidence, discordance and status of r from the winning
// and total vote weights.  Discordance is (total-win)/total, not
// 1-Confidence.
func (e *Engine) status(r *Result, win, total float64, inTree bool) {
	if total <= 0 {
		r.Status = NoCoverage
		r.ConsensusAllele = ""
		r.ConsensusState = NoCall
		r.Confidence = 0
		r.Discordance = 0
		r.ConcordantCount, r.DiscordantCount = 0, 0
		r.LikelyHeteroplasmy = false
		return
	}
	r.Confidence = win / total
	r.Discordance = math.Max(0, (total-win)/total)
	switch {
	case r.Discordance > e.Opts.ConflictThreshold:
		r.Status = Conflict
	case r.Confidence >= e.Opts.ConfirmThreshold:
		if inTree {
			r.Status = Confirmed
		} else {
			r.Status = Novel
		}
	default:
		r.Status = Pending
	}
}

func (e *Engine) heteroplasmic(c SourceCall) bool {
	if c.State == Heteroplasmy {
		return true
	}
	return c.AlleleFraction.Valid && c.AlleleFraction.Float64 >= e.Opts.HeteroplasmyLow && c.AlleleFraction.Float64 <= e.Opts.HeteroplasmyHigh
}

type alleleGroup struct {
	allele string
	weight float64
	calls  int
	states [len(stateNames)]int
}

// SNP computes the consensus of SNP or INDEL calls.  Calls with state NoCall
// or an empty allele do not vote.  inTree reports whether the variant is a
// known tree position.
func (e *Engine) SNP(calls []SourceCall, kind VariantKind, inTree bool) Result {
	r := Result{ConsensusState: NoCall, SourceCount: len(calls)}
	groups := map[string]*alleleGroup{}
	var total float64
	for _, c := range calls {
		wc := WeightedCall{SourceCall: c}
		allele := genome.NormalizeAllele(c.CalledAllele)
		if c.State != NoCall && allele != "" {
			wc.Weight = e.Weight(c, kind)
			wc.Voted = true
			g := groups[allele]
			if g == nil {
				g = &alleleGroup{allele: allele}
				groups[allele] = g
			}
			g.weight += wc.Weight
			g.calls++
			if c.State >= 0 && int(c.State) < len(g.states) {
				g.states[c.State]++
			}
			total += wc.Weight
			if e.heteroplasmic(c) {
				r.LikelyHeteroplasmy = true
			}
		}
		r.WeightedCalls = append(r.WeightedCalls, wc)
	}
	var win *alleleGroup
	for _, g := range groups {
		if win == nil || g.weight > win.weight ||
			(g.weight == win.weight && (g.calls > win.calls || (g.calls == win.calls && g.allele < win.allele))) {
			win = g
		}
	}
	if win == nil {
		e.status(&r, 0, 0, inTree)
		return r
	}
	r.ConsensusAllele = win.allele
	best := -1
	for s, n := range win.states {
		if best < 0 || n > win.states[best] {
			best = s
		}
	}
	r.ConsensusState = ConsensusState(best)
	for _, wc := range r.WeightedCalls {
		if !wc.Voted {
			continue
		}
		if genome.NormalizeAllele(wc.CalledAllele) == win.allele {
			r.ConcordantCount++
		} else {
			r.DiscordantCount++
		}
	}
	e.status(&r, win.weight, total, inTree)
	return r
}

// RepeatCount returns the STR repeat count of c: CalledRepeatCount if set,
// else the integer part of the allele, optionally prefixed "MARKER=".
func RepeatCount(c SourceCall) (int, bool) {
	if c.CalledRepeatCount.Valid {
		return int(c.CalledRepeatCount.Int64), true
	}
	s := strings.TrimSpace(c.CalledAllele)
	if i := strings.LastIndexAny(s, "=:"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// STR computes the consensus of short tandem repeat calls.  Counts within
// Opts.STRTolerance of each other are concordant.  The consensus state is
// always Derived.
func (e *Engine) STR(calls []SourceCall, inTree bool) Result {
	r := Result{ConsensusState: NoCall, SourceCount: len(calls)}
	var (
		counts []int
		total  float64
	)
	for _, c := range calls {
		wc := WeightedCall{SourceCall: c}
		if c.State != NoCall {
			if n, ok := RepeatCount(c); ok {
				wc.Weight = e.Weight(c, STR)
				wc.Voted = true
				total += wc.Weight
				counts = append(counts, n)
			}
		}
		r.WeightedCalls = append(r.WeightedCalls, wc)
	}
	if len(counts) == 0 {
		e.status(&r, 0, 0, inTree)
		return r
	}
	sort.Ints(counts)
	cluster := func(center int) (w float64) {
		for _, wc := range r.WeightedCalls {
			if !wc.Voted {
				continue
			}
			if n, _ := RepeatCount(wc.SourceCall); abs(n-center) <= e.Opts.STRTolerance {
				w += wc.Weight
			}
		}
		return w
	}
	win, winWeight := counts[0], cluster(counts[0])
	for _, c := range counts[1:] {
		// counts is ascending, so ties keep the smaller count.
		if w := cluster(c); w > winWeight {
			win, winWeight = c, w
		}
	}
	display, displayWeight := -1, 0.0
	for i, wc := range r.WeightedCalls {
		if !wc.Voted {
			continue
		}
		n, _ := RepeatCount(wc.SourceCall)
		if abs(n-win) <= e.Opts.STRTolerance {
			r.ConcordantCount++
		} else {
			r.DiscordantCount++
		}
		if n == win && (display < 0 || wc.Weight > displayWeight) {
			display, displayWeight = i, wc.Weight
		}
	}
	r.ConsensusAllele = strings.TrimSpace(r.WeightedCalls[display].CalledAllele)
	if r.ConsensusAllele == "" {
		r.ConsensusAllele = strconv.Itoa(win)
	}
	r.ConsensusState = Derived
	e.status(&r, winWeight, total, inTree)
	return r
}
