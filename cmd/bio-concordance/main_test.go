package main

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/lineage/concordance"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const testCalls = `variant	contig	position	kind	in_tree	source_id	source_type	allele	state	depth	mapq	callable_state	repeat_count	allele_fraction
M269	chrY	22739367	SNP	true	wgs1	WGS_SHORT_READ	T	DERIVED	30	60	CALLABLE		
M269	chrY	22739367	SNP	true	wgs2	WGS_LONG_READ	T	DERIVED	30	60	CALLABLE		
M269	chrY	22739367	SNP	true	ce	CAPILLARY_ELECTROPHORESIS	C	ANCESTRAL					
new1	chrY	9000000	SNP	false	wgs1	WGS_SHORT_READ	A	DERIVED	10	60	NO_COVERAGE		
`

func TestRun(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, "tempdir:", dir)

	in := filepath.Join(dir, "calls.tsv")
	out := filepath.Join(dir, "consensus.tsv")
	assert.NoError(t, ioutil.WriteFile(in, []byte(testCalls), 0644))
	assert.NoError(t, run(ctx, in, out, concordance.DefaultOpts, 0))

	data, err := ioutil.ReadFile(out)
	assert.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.EQ(t, len(lines), 3)
	expect.True(t, strings.HasPrefix(lines[1], "M269\tchrY\t22739367\tSNP\tT\tDERIVED\tCONFIRMED\t0.7"))
	expect.True(t, strings.HasSuffix(lines[1], "\t3\t2\t1\tfalse"))
	expect.EQ(t, lines[2], "new1\tchrY\t9000000\tSNP\t\tNO_CALL\tNO_COVERAGE\t0.0000\t1\t0\t0\tfalse")

	expect.NotNil(t, run(ctx, filepath.Join(dir, "missing.tsv"), out, concordance.DefaultOpts, 1))
}
