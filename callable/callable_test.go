package callable_test

import (
	"bytes"
	"compress/gzip"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/lineage/callable"
	"github.com/grailbio/lineage/genome"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestReadBED(t *testing.T) {
	ctx := vcontext.Background()
	c, err := callable.ReadBEDFromPath(ctx, "testdata/callable_status.bed", callable.Opts{})
	assert.NoError(t, err)

	tests := []struct {
		key   genome.Key
		state callable.State
		ok    bool
	}{
		{genome.Key{Contig: "chrY", Pos: 1}, callable.NoCoverage, true},
		{genome.Key{Contig: "chrY", Pos: 100}, callable.NoCoverage, true},
		{genome.Key{Contig: "chrY", Pos: 101}, callable.Callable, true},
		{genome.Key{Contig: "chrY", Pos: 2000}, callable.Callable, true},
		{genome.Key{Contig: "chrY", Pos: 2001}, callable.RefN, true},
		{genome.Key{Contig: "chrY", Pos: 2100}, callable.LowCoverage, true},
		{genome.Key{Contig: "chrY", Pos: 2101}, callable.Unset, false},
		{genome.Key{Contig: "chrM", Pos: 16569}, callable.Callable, true},
		{genome.Key{Contig: "chr1", Pos: 5}, callable.Unset, false},
	}
	for _, tt := range tests {
		got, ok := c.State(tt.key)
		expect.EQ(t, ok, tt.ok, tt.key)
		expect.EQ(t, got, tt.state, tt.key)
	}
	expect.EQ(t, c.Bases(callable.Callable), 1900+16569)
}

func TestQueryPositions(t *testing.T) {
	c, err := callable.NewClassifier([]callable.Entry{
		{Contig: "chrY", Start0: 10, End: 20, State: callable.PoorMappingQuality},
		{Contig: "chrY", Start0: 0, End: 10, State: callable.ExcessiveCoverage},
	})
	assert.NoError(t, err)
	keys := []genome.Key{{Contig: "chrY", Pos: 5}, {Contig: "chrY", Pos: 15}, {Contig: "chrY", Pos: 25}}
	got, err := c.QueryPositions(vcontext.Background(), keys)
	assert.NoError(t, err)
	expect.EQ(t, got, map[genome.Key]callable.State{
		{Contig: "chrY", Pos: 5}:  callable.ExcessiveCoverage,
		{Contig: "chrY", Pos: 15}: callable.PoorMappingQuality,
	})
}

func TestReadBEDErrors(t *testing.T) {
	for _, input := range []string{
		"chrY\t0\t10\n",
		"chrY\tx\t10\tCALLABLE\n",
		"chrY\t10\t5\tCALLABLE\n",
		"chrY\t0\t10\tSOMETIMES\n",
	} {
		_, err := callable.ReadBED(strings.NewReader(input), callable.Opts{})
		expect.NotNil(t, err, input)
	}
}

func TestReadBEDOneBasedGzip(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("#header\ntrack name=callable\nchrY 1 10 CALLABLE\n"))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())

	ctx := vcontext.Background()
	path := filepath.Join(tmpdir, "callable.bed.gz")
	out, err := file.Create(ctx, path)
	assert.NoError(t, err)
	_, err = out.Writer(ctx).Write(buf.Bytes())
	assert.NoError(t, err)
	assert.NoError(t, out.Close(ctx))

	c, err := callable.ReadBEDFromPath(ctx, path, callable.Opts{OneBasedInput: true})
	assert.NoError(t, err)
	s, ok := c.State(genome.Key{Contig: "chrY", Pos: 1})
	expect.True(t, ok)
	expect.EQ(t, s, callable.Callable)
	_, ok = c.State(genome.Key{Contig: "chrY", Pos: 11})
	expect.False(t, ok)
}

func TestStateWeight(t *testing.T) {
	expect.EQ(t, callable.NoCoverage.Weight(), 0.0)
	expect.EQ(t, callable.Unset.Weight(), 1.0)
	expect.EQ(t, callable.Callable.String(), "CALLABLE")
	s, err := callable.ParseState("poor_mapping_quality")
	assert.NoError(t, err)
	expect.EQ(t, s, callable.PoorMappingQuality)
}
