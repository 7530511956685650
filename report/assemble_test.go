package report

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"

	"github.com/dsugurtuna/hla-pipeline-manager/genotype"
)

func testWriteFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
	return path
}

// writeImputedTriple lays down a quality/sample-list/dosage triple in which
// FAM003/AX1003 (sample-list row 3) is homozygous HLA-DRB1*01:01.
func writeImputedTriple(t *testing.T, dir string) (quality, fam, dosage string) {
	t.Helper()
	quality = testWriteFile(t, dir, "sub_001.bgl.r2",
		"HLA_DRB1_0101 0.9\n"+
			"HLA_DRB1_1501 0.9\n")
	fam = testWriteFile(t, dir, "sub_001.fam",
		"FAM001 AX1001 0 0 1 -9\n"+
			"FAM002 AX1002 0 0 2 -9\n"+
			"FAM003 AX1003 0 0 1 -9\n")
	dosage = testWriteFile(t, dir, "sub_001.dosage",
		"marker allele1 allele2 S1 S2 S3\n"+
			"HLA_DRB1_0101 P A 0.1 0.2 1.9\n"+
			"HLA_DRB1_1501 P A 1.2 0.9 0.3\n")
	return quality, fam, dosage
}

func TestAssembleImputed(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	quality, fam, dosage := writeImputedTriple(t, tempDir)
	participants := []Participant{{
		VID:            "V0001",
		ParticipantID:  "FAM003/AX1003",
		DataSource:     "Imputed",
		Batch:          "batch7",
		DosagePath:     dosage,
		QualityPath:    quality,
		SampleListPath: fam,
	}}
	r, err := Assemble(ctx, participants, DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(r.Rows), 1)
	expect.EQ(t, len(r.Skipped), 0)
	row := r.Rows[0]
	expect.EQ(t, row.VID, "V0001")
	expect.EQ(t, row.DataSource, "Imputed")
	// Panel order: A, B, C, DPA1, DPB1, DQA1, DQB1, DRB1.
	expect.EQ(t, row.Cells, []string{
		"-/-", "-/-", "-/-", "-/-", "-/-", "-/-", "-/-",
		"HLA-DRB1*01:01/HLA-DRB1*01:01",
	})
}

func TestAssembleFailureIsolation(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	quality, fam, dosage := writeImputedTriple(t, tempDir)
	good := Participant{
		VID:            "V0002",
		ParticipantID:  "FAM003/AX1003",
		DataSource:     "Imputed",
		Batch:          "batch7",
		DosagePath:     dosage,
		QualityPath:    quality,
		SampleListPath: fam,
	}
	absent := good
	absent.VID = "V0001"
	absent.ParticipantID = "FAM009/AX9999" // not in the sample list
	noFiles := good
	noFiles.VID = "V0003"
	noFiles.DosagePath = filepath.Join(tempDir, "nope.dosage")

	r, err := Assemble(ctx, []Participant{absent, good, noFiles}, DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(r.Rows), 1)
	expect.EQ(t, r.Rows[0].VID, "V0002")
	assert.EQ(t, len(r.Skipped), 2)
	expect.EQ(t, r.Skipped[0].ParticipantID, "FAM009/AX9999")
	expect.True(t, genotype.IsSampleNotFound(r.Skipped[0].Cause))
	expect.EQ(t, r.Skipped[1].VID, "V0003")
	expect.True(t, genotype.IsMissingInput(r.Skipped[1].Cause))
}

func TestAssembleReferencePassThrough(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	ref := testWriteFile(t, tempDir, "cookhla.csv",
		"V_ID,Participant_ID,Data_Source,Batch,HLA_A,HLA_B,HLA_C,HLA_DPA1,HLA_DPB1,HLA_DQA1,HLA_DQB1,HLA_DRB1\n"+
			"V0009,FAM004/AX1004,CookHLA,batch2,HLA-A*01:01/HLA-A*02:01,-/-,-/-,-/-,-/-,-/-,HLA-DQB1*06:02/-,HLA-DRB1*15:01/HLA-DRB1*15:01\n")
	participants := []Participant{{
		VID:           "V0009",
		ParticipantID: "FAM004/AX1004",
		DataSource:    "CookHLA",
		Batch:         "batch2",
		RefReport:     ref,
	}}
	r, err := Assemble(ctx, participants, DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(r.Rows), 1)
	expect.EQ(t, r.Rows[0].Cells[0], "HLA-A*01:01/HLA-A*02:01")
	expect.EQ(t, r.Rows[0].Cells[7], "HLA-DRB1*15:01/HLA-DRB1*15:01")
}

func TestAssembleReferenceRowMissing(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	ref := testWriteFile(t, tempDir, "cookhla.csv",
		"V_ID,Participant_ID,Data_Source,Batch,HLA_A,HLA_B,HLA_C,HLA_DPA1,HLA_DPB1,HLA_DQA1,HLA_DQB1,HLA_DRB1\n")
	participants := []Participant{{
		VID:           "V0009",
		ParticipantID: "FAM004/AX1004",
		DataSource:    "CookHLA",
		RefReport:     ref,
	}}
	r, err := Assemble(ctx, participants, DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, len(r.Rows), 0)
	assert.EQ(t, len(r.Skipped), 1)
	assert.HasSubstr(t, r.Skipped[0].Cause.Error(), "no row for participant")
}

func TestAssembleDeterministicOrder(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	quality, fam, dosage := writeImputedTriple(t, tempDir)
	var participants []Participant
	for _, vid := range []string{"V0003", "V0001", "V0002"} {
		participants = append(participants, Participant{
			VID:            vid,
			ParticipantID:  "FAM003/AX1003",
			DataSource:     "Imputed",
			DosagePath:     dosage,
			QualityPath:    quality,
			SampleListPath: fam,
		})
	}
	opts := DefaultOpts
	opts.Parallelism = 3
	r, err := Assemble(ctx, participants, opts)
	assert.NoError(t, err)
	assert.EQ(t, len(r.Rows), 3)
	expect.EQ(t, []string{r.Rows[0].VID, r.Rows[1].VID, r.Rows[2].VID},
		[]string{"V0001", "V0002", "V0003"})
}

func TestAssembleEmptyPanel(t *testing.T) {
	ctx := context.Background()
	_, err := Assemble(ctx, nil, Opts{})
	assert.NotNil(t, err)
	assert.HasSubstr(t, err.Error(), "empty gene panel")
}

func TestWriteCSV(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	r := &Report{
		Genes: DefaultOpts.Genes,
		Rows: []Row{{
			VID:           "V0001",
			ParticipantID: "FAM003/AX1003",
			DataSource:    "Imputed",
			Batch:         "batch7",
			Cells: []string{
				"-/-", "-/-", "-/-", "-/-", "-/-", "-/-", "-/-",
				"HLA-DRB1*01:01/HLA-DRB1*01:01",
			},
		}},
	}
	path := filepath.Join(tempDir, "deliverable.csv")
	assert.NoError(t, WriteCSV(ctx, r, path))
	got, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	expect.EQ(t, string(got),
		"V_ID,Participant_ID,Data_Source,Batch,HLA_A,HLA_B,HLA_C,HLA_DPA1,HLA_DPB1,HLA_DQA1,HLA_DQB1,HLA_DRB1\n"+
			"V0001,FAM003/AX1003,Imputed,batch7,-/-,-/-,-/-,-/-,-/-,-/-,-/-,HLA-DRB1*01:01/HLA-DRB1*01:01\n")
}

func TestWriteCSVGzip(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	r := &Report{
		Genes: DefaultOpts.Genes,
		Rows: []Row{{
			VID:           "V0001",
			ParticipantID: "FAM003/AX1003",
			DataSource:    "Imputed",
			Batch:         "batch7",
			Cells: []string{
				"-/-", "-/-", "-/-", "-/-", "-/-", "-/-", "-/-",
				"HLA-DRB1*01:01/HLA-DRB1*01:01",
			},
		}},
	}
	path := filepath.Join(tempDir, "deliverable.csv.gz")
	assert.NoError(t, WriteCSV(ctx, r, path))
	in, err := os.Open(path)
	assert.NoError(t, err)
	defer in.Close() // nolint: errcheck
	gz, err := gzip.NewReader(in)
	assert.NoError(t, err)
	got, err := ioutil.ReadAll(gz)
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	expect.EQ(t, string(got),
		"V_ID,Participant_ID,Data_Source,Batch,HLA_A,HLA_B,HLA_C,HLA_DPA1,HLA_DPB1,HLA_DQA1,HLA_DQB1,HLA_DRB1\n"+
			"V0001,FAM003/AX1003,Imputed,batch7,-/-,-/-,-/-,-/-,-/-,-/-,-/-,HLA-DRB1*01:01/HLA-DRB1*01:01\n")
}

func TestReadManifest(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	path := testWriteFile(t, tempDir, "manifest.tsv",
		"VID\tParticipantID\tDataSource\tBatch\tDosagePath\tQualityPath\tSampleListPath\tRefReport\n"+
			"V0001\tFAM003/AX1003\tImputed\tbatch7\ta.dosage\ta.bgl.r2\ta.fam\t\n"+
			"V0002\tFAM004/AX1004\tCookHLA\tbatch2\t\t\t\tcookhla.csv\n")
	participants, err := ReadManifest(ctx, path)
	assert.NoError(t, err)
	assert.EQ(t, len(participants), 2)
	expect.EQ(t, participants[0].VID, "V0001")
	expect.EQ(t, participants[0].DosagePath, "a.dosage")
	expect.EQ(t, participants[0].RefReport, "")
	expect.EQ(t, participants[1].RefReport, "cookhla.csv")
	expect.EQ(t, participants[1].ParticipantID, "FAM004/AX1004")
}
