package genotype

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/dsugurtuna/hla-pipeline-manager/hla"
)

// DosageKey identifies one accumulation slot of a DosageMass.
type DosageKey struct {
	Gene       string
	AlleleType string
}

// DosageMass accumulates dosage per (gene, allele type) for one participant.
//
// Several redundant tag markers can encode the same allele type; their
// dosages are summed, which can push a slot past the per-marker diploid
// maximum of 2.0. Whether that pooling is intentional in the upstream
// reference panel is unresolved, so the sum is preserved exactly here and
// the classifier thresholds are applied to the pooled value.
type DosageMass map[DosageKey]float64

// Add accumulates dosage for one marker.
func (m DosageMass) Add(gene, alleleType string, dosage float64) {
	m[DosageKey{gene, alleleType}] += dosage
}

// Aggregate streams a dosage matrix and accumulates per-(gene, allele type)
// dosage mass for the sample at the given 0-based column. A path ending in
// .gz is decompressed on the fly. The first row is
// the header and is skipped. Rows are dropped, without error, when the marker
// is not an HLA marker, fails the R² gate of quality, has a malformed
// subtype, or carries an unparseable dosage value. A row shorter than the
// target column is a hard error since it means the located column cannot be
// trusted.
//
// An empty mass is a valid result: it means no marker passed QC for this
// sample, and the classifier will report every gene as negative.
func Aggregate(ctx context.Context, path string, quality QualityIndex, col int) (mass DosageMass, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingInputFile, "dosage file %s: %v", path, err)
	}
	defer file.CloseAndReport(ctx, in, &err)

	var r io.Reader = in.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, gzErr := gzip.NewReader(r)
		if gzErr != nil {
			return nil, errors.Wrapf(gzErr, "dosage file %s: gzip", path)
		}
		defer func() {
			if closeErr := gz.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		r = gz
	}

	mass = DosageMass{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024) // dosage rows grow with sample count
	header := true
	nLine := 0
	for scanner.Scan() {
		nLine++
		line := scanner.Text()
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		marker, ok := hla.ParseMarker(fields[0])
		if !ok {
			continue
		}
		if !quality.PassesQC(marker.ID) {
			continue
		}
		if col >= len(fields) {
			return nil, errors.Wrapf(ErrColumnOutOfRange, "%s:%d: marker %s has %d fields, want column %d", path, nLine, marker.ID, len(fields), col)
		}
		dosage, perr := strconv.ParseFloat(fields[col], 64)
		if perr != nil {
			continue
		}
		mass.Add(marker.Gene, marker.AlleleType, dosage)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read dosage file %s", path)
	}
	return mass, nil
}
