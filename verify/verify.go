// Package verify checks the completeness of imputation output batches before
// the calling engine consumes them: per sub-batch, the PLINK binary triple,
// the dosage and R² files, and a finished Beagle log must all be present.
package verify

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/dsugurtuna/hla-pipeline-manager/hla"
)

// Extensions expected for each sub-batch output prefix.
var Extensions = []string{".bed", ".bim", ".fam", ".dosage", ".bgl.r2", ".bgl.log"}

// SubBatchStatus describes one sub-batch's output completeness.
type SubBatchStatus struct {
	Name      string
	HasBed    bool
	HasBim    bool
	HasFam    bool
	HasDosage bool
	HasR2     bool
	HasLog    bool
	// HLAMarkers counts HLA_ markers in the .bim file.
	HLAMarkers int
	// BeagleDone is true when the Beagle log carries a completion message.
	BeagleDone bool
}

// Complete reports whether every required output exists, the .bim carries at
// least one HLA marker, and Beagle logged completion.
func (s SubBatchStatus) Complete() bool {
	return s.HasBed && s.HasBim && s.HasFam && s.HasDosage && s.HasR2 && s.HasLog &&
		s.HLAMarkers > 0 && s.BeagleDone
}

// BatchReport aggregates sub-batch statuses per batch.
type BatchReport struct {
	Batches map[string][]SubBatchStatus
}

// TotalSubBatches counts sub-batches across all batches.
func (r *BatchReport) TotalSubBatches() int {
	n := 0
	for _, subs := range r.Batches {
		n += len(subs)
	}
	return n
}

// CompleteSubBatches counts sub-batches whose outputs are complete.
func (r *BatchReport) CompleteSubBatches() int {
	n := 0
	for _, subs := range r.Batches {
		for _, s := range subs {
			if s.Complete() {
				n++
			}
		}
	}
	return n
}

// CompletenessRate is CompleteSubBatches/TotalSubBatches, 0 when empty.
func (r *BatchReport) CompletenessRate() float64 {
	total := r.TotalSubBatches()
	if total == 0 {
		return 0
	}
	return float64(r.CompleteSubBatches()) / float64(total)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// countHLAMarkers counts lines mentioning the HLA marker prefix in a .bim.
func countHLAMarkers(ctx context.Context, bimPath string) (n int, err error) {
	in, err := file.Open(ctx, bimPath)
	if err != nil {
		return 0, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	scanner := bufio.NewScanner(in.Reader(ctx))
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), hla.MarkerPrefix) {
			n++
		}
	}
	return n, scanner.Err()
}

// beagleCompleted reports whether a Beagle log contains a completion marker.
func beagleCompleted(ctx context.Context, logPath string) (done bool, err error) {
	in, err := file.Open(ctx, logPath)
	if err != nil {
		return false, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	scanner := bufio.NewScanner(in.Reader(ctx))
	for scanner.Scan() {
		line := strings.ToLower(scanner.Text())
		if strings.Contains(line, "finished") || strings.Contains(line, "completed") {
			return true, nil
		}
	}
	return false, scanner.Err()
}

// SubBatch verifies one sub-batch by its common file prefix (e.g.
// "/data/batch7/sub_001", checked against sub_001.bed, sub_001.bim, ...).
func SubBatch(ctx context.Context, prefix string) SubBatchStatus {
	status := SubBatchStatus{Name: filepath.Base(prefix)}
	status.HasBed = exists(prefix + ".bed")
	status.HasBim = exists(prefix + ".bim")
	status.HasFam = exists(prefix + ".fam")
	status.HasDosage = exists(prefix + ".dosage")
	status.HasR2 = exists(prefix + ".bgl.r2")
	status.HasLog = exists(prefix + ".bgl.log")
	if status.HasBim {
		n, err := countHLAMarkers(ctx, prefix+".bim")
		if err != nil {
			log.Error.Printf("verify: count HLA markers in %s.bim: %v", prefix, err)
		}
		status.HLAMarkers = n
	}
	if status.HasLog {
		done, err := beagleCompleted(ctx, prefix+".bgl.log")
		if err != nil {
			log.Error.Printf("verify: read beagle log %s.bgl.log: %v", prefix, err)
		}
		status.BeagleDone = done
	}
	return status
}

// Batch verifies every sub-batch under batchDir, discovering sub-batches by
// their .fam files. batchID defaults to the directory name.
func Batch(ctx context.Context, batchDir, batchID string) (*BatchReport, error) {
	if batchID == "" {
		batchID = filepath.Base(batchDir)
	}
	fams, err := filepath.Glob(filepath.Join(batchDir, "*.fam"))
	if err != nil {
		return nil, errors.Wrapf(err, "scan batch dir %s", batchDir)
	}
	sort.Strings(fams)
	var statuses []SubBatchStatus
	for _, fam := range fams {
		prefix := strings.TrimSuffix(fam, ".fam")
		statuses = append(statuses, SubBatch(ctx, prefix))
	}
	return &BatchReport{Batches: map[string][]SubBatchStatus{batchID: statuses}}, nil
}

// Format renders a human-readable verification summary.
func Format(r *BatchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "HLA Imputation Verification Report\n")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 45))
	fmt.Fprintf(&b, "Total sub-batches:    %d\n", r.TotalSubBatches())
	fmt.Fprintf(&b, "Complete:             %d\n", r.CompleteSubBatches())
	fmt.Fprintf(&b, "Completeness rate:    %.1f%%\n\n", r.CompletenessRate()*100)
	batchIDs := make([]string, 0, len(r.Batches))
	for id := range r.Batches {
		batchIDs = append(batchIDs, id)
	}
	sort.Strings(batchIDs)
	for _, id := range batchIDs {
		fmt.Fprintf(&b, "Batch: %s\n", id)
		for _, s := range r.Batches[id] {
			verdict := "OK"
			if !s.Complete() {
				verdict = "INCOMPLETE"
			}
			fmt.Fprintf(&b, "  %s: %s  (HLA markers: %d)\n", s.Name, verdict, s.HLAMarkers)
		}
	}
	return b.String()
}
