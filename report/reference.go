package report

import (
	"context"
	"encoding/csv"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"

	"github.com/dsugurtuna/hla-pipeline-manager/genotype"
)

// loadReference reads a deliverable-format CSV produced by an external
// caller and returns the per-gene cells for participantID, verbatim. The
// engine never reinterprets or merges external calls; they are copied into
// the assembled report as-is.
func loadReference(ctx context.Context, path, participantID string, genes []string) (cells []string, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(genotype.ErrMissingInputFile, "reference report %s: %v", path, err)
	}
	defer file.CloseAndReport(ctx, in, &err)

	r := csv.NewReader(in.Reader(ctx))
	r.FieldsPerRecord = len(deliverableHeader(genes))
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parse reference report %s", path)
	}
	if len(records) == 0 {
		return nil, errors.Errorf("reference report %s: empty file", path)
	}
	for _, rec := range records[1:] {
		if rec[1] == participantID {
			return rec[4:], nil
		}
	}
	return nil, errors.Errorf("reference report %s: no row for participant %s", path, participantID)
}
