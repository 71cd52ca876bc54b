package haplogroup_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grailbio/lineage/genome"
	"github.com/grailbio/lineage/haplogroup"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snp(name string, pos genome.PosType, anc, der string) haplogroup.Locus {
	return haplogroup.Locus{
		Name: name,
		Kind: haplogroup.SNP,
		Coords: map[genome.Build]haplogroup.Coord{
			genome.GRCh38: {Contig: "chrY", Pos: pos, Ancestral: anc, Derived: der},
		},
	}
}

type nodeSpec struct {
	name, parent string
	loci         []haplogroup.Locus
}

func buildTree(t *testing.T, nodes ...nodeSpec) *haplogroup.Tree {
	b := haplogroup.NewTreeBuilder()
	for _, n := range nodes {
		require.NoError(t, b.Add(n.name, n.parent, n.loci...))
	}
	tree, err := b.Build()
	require.NoError(t, err)
	return tree
}

func names(results []haplogroup.Result) []string {
	var out []string
	for _, r := range results {
		out = append(out, r.Name)
	}
	return out
}

func find(results []haplogroup.Result, name string) *haplogroup.Result {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

func key(pos genome.PosType) genome.Key {
	return genome.Key{Contig: "chrY", Pos: pos}
}

func TestChildBeatsRoot(t *testing.T) {
	tree := buildTree(t,
		nodeSpec{"R", "", []haplogroup.Locus{snp("M1", 100, "A", "G")}},
		nodeSpec{"R1", "R", []haplogroup.Locus{snp("M2", 200, "C", "T")}},
	)
	results := haplogroup.Score(tree, genome.GRCh38, map[genome.Key]string{
		key(100): "G",
		key(200): "t",
	}, haplogroup.DefaultScoreOpts)
	require.Len(t, results, 2)
	top := results[0]
	expect.EQ(t, top.Name, "R1")
	expect.EQ(t, top.Score, 2.0)
	expect.EQ(t, top.MatchingSNPs, 2)
	expect.EQ(t, top.AncestralMatches, 0)
	expect.EQ(t, top.TotalSNPs, 1)
	expect.EQ(t, top.CumulativeSNPs, 2)
	expect.EQ(t, top.Depth, 1)
	expect.EQ(t, top.LineagePath, []string{"R", "R1"})
	expect.EQ(t, results[1].Score, 1.0)
	expect.EQ(t, haplogroup.Confidence(top, results, haplogroup.SequencingMaxConfidence), 1.0)
	expect.EQ(t, haplogroup.Confidence(top, results, haplogroup.ChipMaxConfidence), haplogroup.ChipMaxConfidence)
}

func TestTieBreakPrefersParent(t *testing.T) {
	// R1 adds no evidence over R, so both score 1 and R must rank first.
	tree := buildTree(t,
		nodeSpec{"R", "", []haplogroup.Locus{snp("M1", 100, "A", "G")}},
		nodeSpec{"R1", "R", []haplogroup.Locus{snp("M2", 200, "C", "T")}},
		nodeSpec{"R1a", "R1", nil},
	)
	results := haplogroup.Score(tree, genome.GRCh38, map[genome.Key]string{key(100): "G"}, haplogroup.DefaultScoreOpts)
	expect.EQ(t, names(results), []string{"R", "R1", "R1a"})
	for _, r := range results {
		expect.EQ(t, r.Score, 1.0, r.Name)
	}
	expect.EQ(t, results[1].NoCalls, 1)
}

func TestTieBreakByName(t *testing.T) {
	tree := buildTree(t,
		nodeSpec{"B", "", []haplogroup.Locus{snp("b", 100, "A", "G")}},
		nodeSpec{"A", "", []haplogroup.Locus{snp("a", 200, "C", "T")}},
	)
	results := haplogroup.Score(tree, genome.GRCh38, map[genome.Key]string{key(100): "G", key(200): "T"}, haplogroup.DefaultScoreOpts)
	expect.EQ(t, names(results), []string{"A", "B"})
}

func TestBranchScoreMonotone(t *testing.T) {
	expect.EQ(t, haplogroup.BranchScore(0, 0), 0.0)
	expect.EQ(t, haplogroup.BranchScore(3, 0), 3.0)
	expect.EQ(t, haplogroup.BranchScore(0, 2), -2.0)
	assert.InDelta(t, 1.0, haplogroup.BranchScore(2, 1), 1e-12)
	for a := 0; a < 6; a++ {
		for d := 0; d < 10; d++ {
			assert.True(t, haplogroup.BranchScore(d+1, a) >= haplogroup.BranchScore(d, a), "d=%d a=%d", d, a)
			assert.True(t, haplogroup.BranchScore(d, a+1) < haplogroup.BranchScore(d, a), "d=%d a=%d", d, a)
		}
	}
}

func chain() []nodeSpec {
	return []nodeSpec{
		{"A", "", []haplogroup.Locus{snp("a", 1, "A", "G")}},
		{"B", "A", []haplogroup.Locus{snp("b", 2, "A", "G")}},
		{"C", "B", []haplogroup.Locus{snp("c", 3, "A", "G")}},
		{"D", "C", []haplogroup.Locus{snp("d", 4, "A", "G")}},
	}
}

func TestStopDescent(t *testing.T) {
	tests := []struct {
		name    string
		calls   map[genome.Key]string
		visited []string
	}{
		{
			name:    "two ancestral branches halt",
			calls:   map[genome.Key]string{key(1): "A", key(2): "A", key(3): "G", key(4): "G"},
			visited: []string{"A", "B"},
		},
		{
			name:    "derived branch resets",
			calls:   map[genome.Key]string{key(1): "A", key(2): "G", key(3): "A", key(4): "G"},
			visited: []string{"A", "B", "C", "D"},
		},
		{
			name:    "no-call branch leaves counter unchanged",
			calls:   map[genome.Key]string{key(1): "A", key(3): "A", key(4): "G"},
			visited: []string{"A", "B", "C"},
		},
		{
			name:    "no calls at all",
			calls:   nil,
			visited: []string{"A", "B", "C", "D"},
		},
	}
	tree := buildTree(t, chain()...)
	for _, tt := range tests {
		results := haplogroup.Score(tree, genome.GRCh38, tt.calls, haplogroup.DefaultScoreOpts)
		got := names(results)
		assert.ElementsMatch(t, tt.visited, got, tt.name)
	}
}

func TestCumulativeCounts(t *testing.T) {
	tree := buildTree(t, chain()...)
	results := haplogroup.Score(tree, genome.GRCh38, map[genome.Key]string{
		key(1): "G", key(2): "A", key(3): "T", key(4): "G",
	}, haplogroup.DefaultScoreOpts)
	d := find(results, "D")
	require.NotNil(t, d)
	expect.EQ(t, d.MatchingSNPs, 2)
	expect.EQ(t, d.AncestralMatches, 1)
	// "T" matches neither allele of c.
	expect.EQ(t, d.NoCalls, 1)
	expect.EQ(t, d.CumulativeSNPs, 4)
	expect.EQ(t, d.Score, 1.0)
	expect.EQ(t, d.LineagePath, []string{"A", "B", "C", "D"})
}

func TestBuildSpecificCoordinates(t *testing.T) {
	l := snp("M1", 100, "A", "G")
	l.Coords[genome.GRCh37] = haplogroup.Coord{Contig: "Y", Pos: 90, Ancestral: "A", Derived: "G"}
	tree := buildTree(t, nodeSpec{"R", "", []haplogroup.Locus{l, snp("M2", 200, "C", "T")}})
	// GRCh37 calls at the GRCh38 position must not count.
	calls := map[genome.Key]string{
		{Contig: "Y", Pos: 90}: "G",
		key(200):               "T",
	}
	r38 := haplogroup.Score(tree, genome.GRCh38, calls, haplogroup.DefaultScoreOpts)
	expect.EQ(t, r38[0].MatchingSNPs, 1)
	expect.EQ(t, r38[0].NoCalls, 1)
	r37 := haplogroup.Score(tree, genome.GRCh37, calls, haplogroup.DefaultScoreOpts)
	expect.EQ(t, r37[0].MatchingSNPs, 1)
	expect.EQ(t, r37[0].NoCalls, 1)

	keys, anc := tree.Positions(genome.GRCh38)
	expect.EQ(t, keys, []genome.Key{key(100), key(200)})
	expect.EQ(t, anc[key(100)], "A")
	keys, _ = tree.Positions(genome.GRCh37)
	expect.EQ(t, keys, []genome.Key{{Contig: "Y", Pos: 90}})
}

func TestEmptyInputs(t *testing.T) {
	empty := buildTree(t)
	expect.EQ(t, len(haplogroup.Score(empty, genome.GRCh38, map[genome.Key]string{key(1): "G"}, haplogroup.DefaultScoreOpts)), 0)
	expect.EQ(t, len(haplogroup.Score(nil, genome.GRCh38, nil, haplogroup.DefaultScoreOpts)), 0)
	results := haplogroup.Score(buildTree(t, chain()...), genome.GRCh38, map[genome.Key]string{}, haplogroup.DefaultScoreOpts)
	expect.EQ(t, len(results), 4)
	expect.EQ(t, results[0].Name, "A")
	expect.EQ(t, haplogroup.Confidence(results[0], results, 1), 0.0)
	expect.EQ(t, haplogroup.Confidence(haplogroup.Result{}, nil, 1), 0.0)
}

func TestConfidencePenalty(t *testing.T) {
	var xLoci, yLoci []haplogroup.Locus
	calls := map[genome.Key]string{}
	for i := genome.PosType(1); i <= 10; i++ {
		xLoci = append(xLoci, snp("x", i, "A", "G"))
		calls[key(i)] = "G"
	}
	for i := genome.PosType(101); i <= 109; i++ {
		yLoci = append(yLoci, snp("y", i, "A", "G"))
		calls[key(i)] = "G"
	}
	tree := buildTree(t, nodeSpec{"X", "", xLoci}, nodeSpec{"Y", "", yLoci})
	results := haplogroup.Score(tree, genome.GRCh38, calls, haplogroup.DefaultScoreOpts)
	expect.EQ(t, names(results), []string{"X", "Y"})
	// gap = (10-9)/10, penalty = (0.2-0.1)*0.5
	assert.InDelta(t, 0.95, haplogroup.Confidence(results[0], results, 1), 1e-9)

	// A competitor more than 20% behind costs nothing.
	for i := genome.PosType(101); i <= 103; i++ {
		calls[key(i)] = "A"
	}
	results = haplogroup.Score(tree, genome.GRCh38, calls, haplogroup.DefaultScoreOpts)
	expect.EQ(t, haplogroup.Confidence(results[0], results, 1), 1.0)
}

func TestConfidenceMatchQuality(t *testing.T) {
	top := haplogroup.Result{Name: "R1", Score: 2, MatchingSNPs: 3, AncestralMatches: 1, LineagePath: []string{"R", "R1"}}
	parent := haplogroup.Result{Name: "R", Score: 2, MatchingSNPs: 2, LineagePath: []string{"R"}}
	// The parent is an ancestor and never competes.
	expect.EQ(t, haplogroup.Confidence(top, []haplogroup.Result{top, parent}, 1), 0.75)
	expect.EQ(t, haplogroup.Confidence(top, []haplogroup.Result{top, parent}, 0.5), 0.5)
	// Non-positive top scores take no penalty.
	top.Score = -1
	other := haplogroup.Result{Name: "Q", Score: -1, LineagePath: []string{"Q"}}
	expect.EQ(t, haplogroup.Confidence(top, []haplogroup.Result{top, other}, 1), 0.75)
}

func TestTreeBuilderErrors(t *testing.T) {
	b := haplogroup.NewTreeBuilder()
	require.NoError(t, b.Add("R1", "R"))
	_, err := b.Build()
	assert.Error(t, err, "unknown parent")

	b = haplogroup.NewTreeBuilder()
	require.NoError(t, b.Add("R", ""))
	assert.Error(t, b.Add("R", "Q"), "conflicting parent")
	assert.Error(t, b.Add("", "R"), "empty name")
	assert.Error(t, b.Add("Q", "Q"), "self parent")

	b = haplogroup.NewTreeBuilder()
	require.NoError(t, b.Add("A", "B"))
	require.NoError(t, b.Add("B", "A"))
	require.NoError(t, b.Add("R", ""))
	_, err = b.Build()
	assert.Error(t, err, "cycle")

	b = haplogroup.NewTreeBuilder()
	require.NoError(t, b.Add("R", "", snp("M1", 1, "A", "G")))
	require.NoError(t, b.Add("R", "", snp("M2", 2, "C", "T")))
	require.NoError(t, b.Add("R2", "R"))
	require.NoError(t, b.Add("R1", "R"))
	tree, err := b.Build()
	require.NoError(t, err)
	expect.EQ(t, tree.Len(), 3)
	id, ok := tree.Lookup("R")
	require.True(t, ok)
	expect.EQ(t, len(tree.Node(id).Loci), 2)
	expect.EQ(t, tree.Node(tree.Node(id).Children[0]).Name, "R1")
}

const treeTSV = `haplogroup	parent	locus	kind	build	contig	position	ancestral	derived
R		M207	SNP	GRCh38	chrY	15581983	A	G
R		M207	SNP	GRCh37	Y	17693863	a	g
R1	R	M173	SNP	GRCh38	chrY	13532101	A	C
R1b	R1							
R1b1	R1b	L21	snp	hg38	chrY	21869273	C	G
`

func TestReadTreeTSV(t *testing.T) {
	tree, err := haplogroup.ReadTreeTSV(strings.NewReader(treeTSV))
	require.NoError(t, err)
	expect.EQ(t, tree.Len(), 4)
	expect.EQ(t, len(tree.Roots), 1)
	id, ok := tree.Lookup("R")
	require.True(t, ok)
	loci := tree.Node(id).Loci
	require.Len(t, loci, 1)
	expect.EQ(t, loci[0].Coords[genome.GRCh37], haplogroup.Coord{Contig: "Y", Pos: 17693863, Ancestral: "A", Derived: "G"})
	id, _ = tree.Lookup("R1b")
	expect.EQ(t, len(tree.Node(id).Loci), 0)
	expect.EQ(t, tree.Node(tree.Node(id).Parent).Name, "R1")

	results := haplogroup.Score(tree, genome.GRCh38, map[genome.Key]string{
		{Contig: "chrY", Pos: 15581983}: "G",
		{Contig: "chrY", Pos: 13532101}: "C",
		{Contig: "chrY", Pos: 21869273}: "G",
	}, haplogroup.DefaultScoreOpts)
	expect.EQ(t, results[0].Name, "R1b1")
	expect.EQ(t, results[0].LineagePath, []string{"R", "R1", "R1b", "R1b1"})
}

func TestParseVariantKind(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want haplogroup.VariantKind
	}{{"", haplogroup.SNP}, {"Snp", haplogroup.SNP}, {" snp ", haplogroup.SNP}, {"InDel", haplogroup.INDEL}} {
		got, err := haplogroup.ParseVariantKind(tt.in)
		assert.NoError(t, err, tt.in)
		expect.EQ(t, got, tt.want, tt.in)
	}
	_, err := haplogroup.ParseVariantKind("MNP")
	assert.Error(t, err)
}

func TestReadTreeTSVErrors(t *testing.T) {
	header := "haplogroup\tparent\tlocus\tkind\tbuild\tcontig\tposition\tancestral\tderived\n"
	for _, body := range []string{
		"R\t\tM1\tSNP\tGRCh38\tchrY\tx\tA\tG\n",
		"R\t\tM1\tSNP\tGRCh99\tchrY\t1\tA\tG\n",
		"R\t\tM1\tMNP\tGRCh38\tchrY\t1\tA\tG\n",
		"R\t\tM1\tSNP\tGRCh38\tchrY\t1\tA\tG\nR\t\tM1\tSNP\tGRCh38\tchrY\t2\tA\tG\n",
		"R\t\t\t\t\t\t\t\t\nR1\tR\t\t\t\t\t\t\t\nR1\tQ\t\t\t\t\t\t\t\n",
		"R1\tR\t\t\t\t\t\t\t\n",
	} {
		_, err := haplogroup.ReadTreeTSV(strings.NewReader(header + body))
		assert.Error(t, err, body)
	}
}

func TestWriteResultsTSV(t *testing.T) {
	tree := buildTree(t,
		nodeSpec{"R", "", []haplogroup.Locus{snp("M1", 100, "A", "G")}},
		nodeSpec{"R1", "R", []haplogroup.Locus{snp("M2", 200, "C", "T")}},
	)
	results := haplogroup.Score(tree, genome.GRCh38, map[genome.Key]string{key(100): "G", key(200): "T"}, haplogroup.DefaultScoreOpts)
	var buf bytes.Buffer
	require.NoError(t, haplogroup.WriteResultsTSV(&buf, results, 1, haplogroup.ChipMaxConfidence))
	expect.EQ(t, buf.String(),
		"rank\thaplogroup\tscore\tconfidence\tmatching_snps\tancestral_matches\tno_calls\ttotal_snps\tcumulative_snps\tdepth\tlineage\n"+
			"1\tR1\t2\t0.8500\t2\t0\t0\t1\t2\t1\tR>R1\n")
}
