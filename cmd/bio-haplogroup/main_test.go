package main

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/lineage/haplogroup"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const testTree = `haplogroup	parent	locus	kind	build	contig	position	ancestral	derived
R		M207	SNP	GRCh38	chrY	10	A	G
R1	R	M173	SNP	GRCh38	chrY	20	C	T
R1b	R1	L21	SNP	GRCh38	chrY	30	G	A
R2	R	M479	SNP	GRCh38	chrY	40	T	C
`

const testVCF = `##fileformat=VCFv4.2
##reference=GRCh38
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1
chrY	10	M207	A	G	99	PASS	.	GT	1
chrY	20	M173	C	T	99	PASS	.	GT	1
chrY	25	.	A	C	99	PASS	.	GT	1
`

const testBED = "chrY\t0\t35\tCALLABLE\nchrY\t35\t50\tNO_COVERAGE\n"

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	assert.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func readLines(t *testing.T, path string) []string {
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func testOpts(t *testing.T, dir string) runOpts {
	// chrY:30 is G (ancestral for L21), chrY:40 is T.
	seq := strings.Repeat("A", 29) + "G" + strings.Repeat("A", 9) + "T" + strings.Repeat("A", 10)
	return runOpts{
		TreePath:      writeFile(t, dir, "tree.tsv", testTree),
		Build:         "GRCh38",
		FastaPath:     writeFile(t, dir, "ref.fa", ">chrY\n"+seq+"\n"),
		MaxConfidence: haplogroup.SequencingMaxConfidence,
		Score:         haplogroup.DefaultScoreOpts,
		OutPrefix:     filepath.Join(dir, "out"),
		Parallelism:   2,
	}
}

func TestRunSingleSample(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, "tempdir:", dir)

	opts := testOpts(t, dir)
	opts.Samples = []sampleInput{{
		VCF:      writeFile(t, dir, "s1.vcf", testVCF),
		Callable: writeFile(t, dir, "s1.bed", testBED),
	}}
	assert.NoError(t, run(ctx, opts))

	lines := readLines(t, filepath.Join(dir, "out.S1.haplogroups.tsv"))
	assert.EQ(t, len(lines), 5)
	expect.EQ(t, lines[1], "1\tR1\t2\t1.0000\t2\t0\t0\t1\t2\t1\tR>R1")
	expect.True(t, strings.HasPrefix(lines[2], "2\tR\t1\t"))

	summary := readLines(t, filepath.Join(dir, "out.summary.tsv"))
	assert.EQ(t, len(summary), 2)
	// Positions 30 and 40 come from the reference and the BED; 40 is not
	// callable.
	expect.EQ(t, summary[1], "S1\tR1\t2\t1.0000\t2\t0\t4\t3\t")
}

func TestRunManifest(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, "tempdir:", dir)

	vcfPath := writeFile(t, dir, "s1.vcf", testVCF)
	wrongBuild := writeFile(t, dir, "s2.vcf", strings.Replace(testVCF, "GRCh38", "GRCh37", 1))
	opts := testOpts(t, dir)
	opts.Top = 1
	opts.ManifestPath = writeFile(t, dir, "manifest.tsv",
		"sample\tvcf\tvcf_sample\tcallable\n"+
			"NA1\t"+vcfPath+"\tS1\t\n"+
			"NA2\t"+wrongBuild+"\t\t\n")
	opts.OutPrefix = filepath.Join(dir, "batch")
	err := run(ctx, opts)
	expect.NotNil(t, err)

	summary := readLines(t, filepath.Join(dir, "batch.summary.tsv"))
	assert.EQ(t, len(summary), 3)
	// Without a callable BED, positions absent from the VCF are no-calls.
	// R1b ties R1 and is not its ancestor, so it competes.
	expect.EQ(t, summary[1], "NA1\tR1\t2\t0.9000\t2\t0\t4\t2\t")
	expect.True(t, strings.HasPrefix(summary[2], "NA2\t"))
	expect.True(t, strings.Contains(summary[2], "GRCh37"))
	lines := readLines(t, filepath.Join(dir, "batch.NA1.haplogroups.tsv"))
	expect.EQ(t, len(lines), 2)
}

func TestReadManifestErrors(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, "tempdir:", dir)

	header := "sample\tvcf\tvcf_sample\tcallable\n"
	for _, body := range []string{
		// Two rows writing the same output file.
		"S1\ta.vcf\t\t\nS1\tb.vcf\t\t\n",
		"S 1\ta.vcf\t\t\nS/1\tb.vcf\t\t\n",
		"\ta.vcf\t\t\n",
		"S1\t\t\t\n",
	} {
		_, err := readManifest(ctx, writeFile(t, dir, "manifest.tsv", header+body))
		expect.NotNil(t, err, body)
	}
	samples, err := readManifest(ctx, writeFile(t, dir, "manifest.tsv", header+"NA1\ta.vcf\tS1\tx.bed\nNA2\tb.vcf\t\t\n"))
	assert.NoError(t, err)
	expect.EQ(t, samples, []sampleInput{
		{Name: "NA1", VCF: "a.vcf", VCFSample: "S1", Callable: "x.bed"},
		{Name: "NA2", VCF: "b.vcf"},
	})
}

func TestSampleLabel(t *testing.T) {
	expect.EQ(t, sampleLabel(sampleInput{Name: "a b"}, "x"), "a_b")
	expect.EQ(t, sampleLabel(sampleInput{}, "HG00096"), "HG00096")
	expect.EQ(t, sampleLabel(sampleInput{VCF: "/data/NA12878.vcf.gz"}, ""), "NA12878")
}
