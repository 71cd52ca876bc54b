package genome_test

import (
	"testing"

	"github.com/grailbio/lineage/genome"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
)

func TestParseBuild(t *testing.T) {
	tests := []struct {
		name string
		want genome.Build
		ok   bool
	}{
		{"GRCh38", genome.GRCh38, true},
		{"hg19", genome.GRCh37, true},
		{" chm13 ", genome.T2T, true},
		{"NC_012920.1", genome.RCRS, true},
		{"GRCh38.p14", genome.GRCh38, true},
		{"mm10", genome.BuildUnknown, false},
	}
	for _, tt := range tests {
		got, err := genome.ParseBuild(tt.name)
		expect.EQ(t, got, tt.want, tt.name)
		expect.EQ(t, err == nil, tt.ok, tt.name)
	}
}

func TestDetectBuild(t *testing.T) {
	expect.EQ(t, genome.DetectBuild("##reference=file:///refs/Homo_sapiens_assembly38.GRCh38.fasta"), genome.GRCh38)
	expect.EQ(t, genome.DetectBuild("##contig=<ID=chrY,length=57227415,assembly=hg38>"), genome.GRCh38)
	expect.EQ(t, genome.DetectBuild("##source=HaplotypeCaller"), genome.BuildUnknown)
	expect.EQ(t, genome.DetectBuild("##reference=/refs/GRCh38_full_analysis_set.fa"), genome.GRCh38)
	expect.EQ(t, genome.DetectBuild("##reference=chm13v2.0.fa"), genome.T2T)

	// Aliases inside digests or longer words do not count.
	expect.EQ(t, genome.DetectBuild("##contig=<ID=chrY,md5=1b37e9a0b38f,assembly=hg19>"), genome.GRCh37)
	expect.EQ(t, genome.DetectBuild("##contig=<ID=chrY,md5=7ab38c0>"), genome.BuildUnknown)
	expect.EQ(t, genome.DetectBuild("##reference=mychm13x.fa"), genome.BuildUnknown)

	// The leftmost alias wins, whatever the map order.
	for i := 0; i < 20; i++ {
		expect.EQ(t, genome.DetectBuild("##reference=hg38 (lifted from hg19)"), genome.GRCh38)
		expect.EQ(t, genome.DetectBuild("##assembly=b37,b38"), genome.GRCh37)
	}
}

func TestKeyOrder(t *testing.T) {
	keys := []genome.Key{{"chrY", 20}, {"chrM", 3000}, {"chrY", 3}}
	genome.SortKeys(keys)
	expect.EQ(t, keys, []genome.Key{{"chrM", 3000}, {"chrY", 3}, {"chrY", 20}})
	expect.EQ(t, keys[0].String(), "chrM:3000")
}

func TestSameAllele(t *testing.T) {
	expect.True(t, genome.SameAllele("g", "G"))
	expect.False(t, genome.SameAllele("", ""))
	expect.False(t, genome.SameAllele("A", "AT"))
	expect.EQ(t, genome.NormalizeAllele(" at "), "AT")
}

func TestBuildMismatch(t *testing.T) {
	var err error = &genome.BuildMismatchError{Expected: genome.GRCh38, Actual: genome.GRCh37}
	expect.True(t, genome.IsBuildMismatch(err))
	expect.True(t, genome.IsBuildMismatch(errors.Wrap(err, "query")))
	e, ok := genome.AsBuildMismatch(errors.Wrap(err, "query"))
	expect.True(t, ok)
	expect.EQ(t, e.Actual, genome.GRCh37)
	expect.False(t, genome.IsBuildMismatch(errors.New("other")))
	expect.False(t, genome.IsBuildMismatch(nil))
}
