package genotype

import (
	"bufio"
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"

	"github.com/dsugurtuna/hla-pipeline-manager/hla"
)

// MinMarkerR2 is the imputation-quality gate. A marker whose R² is missing,
// NaN, or <= this value is excluded from dosage aggregation. The threshold is
// fixed pipeline policy, not a tunable.
const MinMarkerR2 = 0.30

// QualityIndex maps a marker identifier to its imputation R². A NaN entry
// records the imputation tool's not-a-number sentinel for monomorphic
// markers.
type QualityIndex map[string]float64

// PassesQC reports whether markerID clears the R² gate. Markers absent from
// the index fail QC; the gate is strict (R² exactly equal to MinMarkerR2
// fails).
func (q QualityIndex) PassesQC(markerID string) bool {
	r2, ok := q[markerID]
	if !ok || math.IsNaN(r2) {
		return false
	}
	return r2 > MinMarkerR2
}

// LoadQuality reads a per-marker quality file (whitespace-separated rows of
// "<marker> <R²>", extra columns ignored) and retains the HLA-marker rows.
// Scores that do not parse as numbers are kept as NaN so that PassesQC
// rejects them. Rows with fewer than two fields make the file malformed.
func LoadQuality(ctx context.Context, path string) (q QualityIndex, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingInputFile, "quality file %s: %v", path, err)
	}
	defer file.CloseAndReport(ctx, in, &err)

	q = QualityIndex{}
	scanner := bufio.NewScanner(in.Reader(ctx))
	nLine := 0
	for scanner.Scan() {
		nLine++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errors.Wrapf(ErrMalformedQualityFile, "%s:%d: want at least 2 fields, got %d", path, nLine, len(fields))
		}
		if !strings.HasPrefix(fields[0], hla.MarkerPrefix) {
			continue
		}
		r2, perr := strconv.ParseFloat(fields[1], 64)
		if perr != nil {
			r2 = math.NaN()
		}
		q[fields[0]] = r2
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(ErrMalformedQualityFile, "%s: %v", path, err)
	}
	return q, nil
}
