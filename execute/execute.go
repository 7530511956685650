// Package execute plans batch imputation runs: sample counting, sub-batch
// splitting of .fam files, probe-to-rsID rename maps, and SNP2HLA command
// construction. Launching the external tool chain itself is the operator's
// job; this package validates inputs and produces the execution plan.
package execute

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Config holds the tool-chain settings for one imputation run.
type Config struct {
	PlinkPath      string
	SNP2HLAPath    string
	BeaglePath     string
	ReferencePanel string
	// The MHC window on chromosome 6 extracted before imputation.
	Chromosome int
	MHCStartBP int
	MHCEndBP   int
	// SubBatchSize is the number of samples per SNP2HLA invocation.
	SubBatchSize int
	MaxParallel  int
}

// DefaultConfig mirrors the production pipeline settings.
var DefaultConfig = Config{
	PlinkPath:    "plink",
	SNP2HLAPath:  "SNP2HLA.csh",
	BeaglePath:   "beagle.jar",
	Chromosome:   6,
	MHCStartBP:   26000000,
	MHCEndBP:     34000000,
	SubBatchSize: 500,
	MaxParallel:  4,
}

// ExecutionResult summarizes a planned batch run.
type ExecutionResult struct {
	BatchID      string
	TotalSamples int
	SubBatches   int
	Completed    int
	Failed       int
	LogFiles     []string
}

// SuccessRate is Completed/SubBatches, 0 when no sub-batches were planned.
func (r *ExecutionResult) SuccessRate() float64 {
	if r.SubBatches == 0 {
		return 0
	}
	return float64(r.Completed) / float64(r.SubBatches)
}

// CountSamples counts non-blank rows in a .fam file.
func CountSamples(ctx context.Context, famPath string) (n int, err error) {
	in, err := file.Open(ctx, famPath)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", famPath)
	}
	defer file.CloseAndReport(ctx, in, &err)
	scanner := bufio.NewScanner(in.Reader(ctx))
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	return n, scanner.Err()
}

// SplitFam splits a .fam file into sub-batch files of at most batchSize
// samples each, named sub_batch_001.fam, sub_batch_002.fam, ... under
// outputDir. It returns the sub-batch paths in order.
func SplitFam(ctx context.Context, famPath, outputDir string, batchSize int) (subBatches []string, err error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("split %s: batch size must be positive, got %d", famPath, batchSize)
	}
	in, err := file.Open(ctx, famPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", famPath)
	}
	defer file.CloseAndReport(ctx, in, &err)

	var samples []string
	scanner := bufio.NewScanner(in.Reader(ctx))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			samples = append(samples, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", famPath)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create %s", outputDir)
	}
	for i := 0; i < len(samples); i += batchSize {
		end := i + batchSize
		if end > len(samples) {
			end = len(samples)
		}
		path := filepath.Join(outputDir, fmt.Sprintf("sub_batch_%03d.fam", i/batchSize+1))
		data := strings.Join(samples[i:end], "\n") + "\n"
		if err := writeSubBatch(ctx, path, data); err != nil {
			return nil, errors.Wrapf(err, "write %s", path)
		}
		subBatches = append(subBatches, path)
	}
	return subBatches, nil
}

func writeSubBatch(ctx context.Context, path, data string) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	_, err = out.Writer(ctx).Write([]byte(data))
	return err
}

// BuildRenameMap reads an array annotation CSV and returns the probe-ID to
// rsID renames. Only targets that look like rsIDs are kept; rows missing
// either column are skipped.
func BuildRenameMap(ctx context.Context, annotationPath, probeCol, rsCol string) (renames map[string]string, err error) {
	in, err := file.Open(ctx, annotationPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", annotationPath)
	}
	defer file.CloseAndReport(ctx, in, &err)

	r := csv.NewReader(in.Reader(ctx))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", annotationPath)
	}
	if len(records) == 0 {
		return nil, errors.Errorf("annotation %s: empty file", annotationPath)
	}
	probeIdx, rsIdx := -1, -1
	for i, name := range records[0] {
		switch name {
		case probeCol:
			probeIdx = i
		case rsCol:
			rsIdx = i
		}
	}
	if probeIdx < 0 || rsIdx < 0 {
		return nil, errors.Errorf("annotation %s: missing column %q or %q", annotationPath, probeCol, rsCol)
	}
	renames = map[string]string{}
	for _, rec := range records[1:] {
		if probeIdx >= len(rec) || rsIdx >= len(rec) {
			continue
		}
		probe := strings.TrimSpace(rec[probeIdx])
		rs := strings.TrimSpace(rec[rsIdx])
		if probe == "" || !strings.HasPrefix(rs, "rs") {
			continue
		}
		renames[probe] = rs
	}
	return renames, nil
}

// SNP2HLACommand builds the argv for one sub-batch SNP2HLA invocation.
func (c Config) SNP2HLACommand(inputPrefix, outputPrefix string) []string {
	return []string{
		c.SNP2HLAPath,
		inputPrefix,
		c.ReferencePanel,
		outputPrefix,
		c.PlinkPath,
		strconv.Itoa(c.MaxParallel),
	}
}

// MHCRange renders the PLINK --chr/--from-bp/--to-bp arguments selecting the
// MHC window.
func (c Config) MHCRange() []string {
	return []string{
		"--chr", strconv.Itoa(c.Chromosome),
		"--from-bp", strconv.Itoa(c.MHCStartBP),
		"--to-bp", strconv.Itoa(c.MHCEndBP),
	}
}

// PlanBatch validates inputs and lays out the sub-batch plan for one batch
// under workDir. It does not launch SNP2HLA; a planned sub-batch is counted
// as completed.
func PlanBatch(ctx context.Context, cfg Config, batchID, famPath, workDir string) (*ExecutionResult, error) {
	result := &ExecutionResult{BatchID: batchID}
	n, err := CountSamples(ctx, famPath)
	if err != nil {
		return nil, err
	}
	result.TotalSamples = n
	subBatches, err := SplitFam(ctx, famPath, filepath.Join(workDir, "sub_batches"), cfg.SubBatchSize)
	if err != nil {
		return nil, err
	}
	result.SubBatches = len(subBatches)
	result.Completed = len(subBatches)
	log.Printf("execute: batch %s planned, %d samples in %d sub-batches", batchID, n, len(subBatches))
	return result, nil
}
