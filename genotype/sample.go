package genotype

import (
	"bufio"
	"context"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// DosageHeaderCols is the number of leading metadata columns in a dosage
// matrix row (marker, allele1, allele2). Per-sample dosage values start at
// this 0-based field index, in sample-list row order.
const DosageHeaderCols = 3

// CompositeID builds the participant identifier used for sample-list lookup
// from the family and within-family IDs of a .fam-style row.
func CompositeID(familyID, sampleID string) string {
	return familyID + "/" + sampleID
}

// LocateSample scans a sample-list file (whitespace-separated rows, family ID
// in the first field and within-family ID in the second) for the row whose
// composite "FID/IID" identifier equals compositeID, and returns the 0-based
// dosage-matrix column holding that sample's dosages. Matching is exact,
// case-sensitive, first match wins.
func LocateSample(ctx context.Context, path, compositeID string) (col int, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return 0, errors.Wrapf(ErrMissingInputFile, "sample-list file %s: %v", path, err)
	}
	defer file.CloseAndReport(ctx, in, &err)

	scanner := bufio.NewScanner(in.Reader(ctx))
	nRow := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, errors.Wrapf(ErrMalformedSampleFile, "%s: row %d has %d fields, want at least 2", path, nRow+1, len(fields))
		}
		if CompositeID(fields[0], fields[1]) == compositeID {
			return nRow + DosageHeaderCols, nil
		}
		nRow++
	}
	if err := scanner.Err(); err != nil {
		return 0, errors.Wrapf(ErrMalformedSampleFile, "%s: %v", path, err)
	}
	if nRow == 0 {
		return 0, errors.Wrapf(ErrMalformedSampleFile, "%s: no sample rows", path)
	}
	return 0, errors.Wrapf(ErrSampleNotFound, "%s in %s (%d rows scanned)", compositeID, path, nRow)
}
