package genotype

import (
	"bytes"
	"context"
	"io/ioutil"
	"math"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

const dosageHeader = "marker allele1 allele2 S1 S2 S3\n"

func testQuality(r2 map[string]float64) QualityIndex {
	q := QualityIndex{}
	for k, v := range r2 {
		q[k] = v
	}
	return q
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	quality := testQuality(map[string]float64{
		"HLA_DRB1_0101": 0.95,
		"HLA_DRB1_1501": 0.92,
		"HLA_A_0101":    0.88,
		"HLA_B_0702":    0.10, // fails QC
	})
	path := testWriteFile(t, tempDir, "sub_001.dosage",
		dosageHeader+
			"HLA_DRB1_0101 P A 1.9 0.1 0.0\n"+
			"HLA_DRB1_1501 P A 0.3 1.2 0.0\n"+
			"HLA_A_0101 P A 0.9 2.0 1.1\n"+
			"HLA_B_0702 P A 2.0 2.0 2.0\n"+ // QC-failed, ignored
			"HLA_C_0102 P A 2.0 2.0 2.0\n"+ // absent from quality index, ignored
			"rs9271366 A G 1.0 1.0 1.0\n"+ // non-HLA, ignored
			"HLA_DRB1_13 P A 1.0 1.0 1.0\n") // two-digit subtype, ignored
	mass, err := Aggregate(ctx, path, quality, DosageHeaderCols)
	assert.NoError(t, err)
	expect.EQ(t, mass, DosageMass{
		{"DRB1", "01:01"}: 1.9,
		{"DRB1", "15:01"}: 0.3,
		{"A", "01:01"}:    0.9,
	})
}

func TestAggregateSumsRedundantMarkers(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	// Two tag markers aliasing to DRB1*01:01: contributions add, even past
	// the per-marker diploid bound of 2.0.
	quality := testQuality(map[string]float64{
		"HLA_DRB1_0101": 0.95,
	})
	path := testWriteFile(t, tempDir, "alias.dosage",
		"marker allele1 allele2 S1\n"+
			"HLA_DRB1_0101 P A 1.7\n"+
			"HLA_DRB1_0101 P A 1.1\n")
	mass, err := Aggregate(ctx, path, quality, DosageHeaderCols)
	assert.NoError(t, err)
	expect.EQ(t, mass[DosageKey{"DRB1", "01:01"}], 1.7+1.1)
}

func TestAggregateGzipInput(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	quality := testQuality(map[string]float64{
		"HLA_DRB1_0101": 0.95,
		"HLA_A_0101":    0.88,
	})
	path := filepath.Join(tempDir, "sub_001.dosage.gz")
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(dosageHeader +
		"HLA_DRB1_0101 P A 1.9 0.1 0.0\n" +
		"HLA_A_0101 P A 0.9 2.0 1.1\n"))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	assert.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0644))

	// The compressed matrix must aggregate exactly as its plain-text form
	// would; a mass that comes back empty here means the stream was read raw.
	mass, err := Aggregate(ctx, path, quality, DosageHeaderCols)
	assert.NoError(t, err)
	expect.EQ(t, mass, DosageMass{
		{"DRB1", "01:01"}: 1.9,
		{"A", "01:01"}:    0.9,
	})
}

func TestAggregateDeterministic(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	quality := testQuality(map[string]float64{
		"HLA_DQA1_0501": 0.77,
		"HLA_DQB1_0201": 0.81,
	})
	path := testWriteFile(t, tempDir, "rep.dosage",
		"marker allele1 allele2 S1\n"+
			"HLA_DQA1_0501 P A 0.30000001\n"+
			"HLA_DQB1_0201 P A 1.10000004\n"+
			"HLA_DQA1_0501 P A 0.59999999\n")
	first, err := Aggregate(ctx, path, quality, DosageHeaderCols)
	assert.NoError(t, err)
	second, err := Aggregate(ctx, path, quality, DosageHeaderCols)
	assert.NoError(t, err)
	for key, want := range first {
		got := second[key]
		expect.EQ(t, math.Float64bits(got), math.Float64bits(want), key.Gene+"*"+key.AlleleType)
	}
	expect.EQ(t, len(first), len(second))
}

func TestAggregateEmptyMass(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	// Nothing passes QC: valid all-missing outcome, not an error.
	path := testWriteFile(t, tempDir, "empty.dosage",
		"marker allele1 allele2 S1\n"+
			"HLA_DRB1_0101 P A 1.9\n")
	mass, err := Aggregate(ctx, path, QualityIndex{}, DosageHeaderCols)
	assert.NoError(t, err)
	expect.EQ(t, len(mass), 0)
}

func TestAggregateColumnOutOfRange(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	quality := testQuality(map[string]float64{"HLA_DRB1_0101": 0.95})
	path := testWriteFile(t, tempDir, "short.dosage",
		"marker allele1 allele2 S1\n"+
			"HLA_DRB1_0101 P A 1.9\n")
	_, err := Aggregate(ctx, path, quality, DosageHeaderCols+5)
	assert.NotNil(t, err)
	assert.HasSubstr(t, err.Error(), "dosage column out of range")
}

func TestAggregateMissingFile(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	_, err := Aggregate(ctx, filepath.Join(tempDir, "nope.dosage"), QualityIndex{}, DosageHeaderCols)
	expect.True(t, IsMissingInput(err))
}
