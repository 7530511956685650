package report

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// deliverableHeader builds the CSV header for a gene panel:
// V_ID,Participant_ID,Data_Source,Batch,HLA_A,...
func deliverableHeader(genes []string) []string {
	header := []string{"V_ID", "Participant_ID", "Data_Source", "Batch"}
	for _, gene := range genes {
		header = append(header, "HLA_"+gene)
	}
	return header
}

// WriteCSV renders the deliverable to path. Downstream clinical consumers
// parse by column position and delimiter, so the layout here is
// bit-for-bit significant. A path ending in .gz is gzip-compressed.
func WriteCSV(ctx context.Context, r *Report, path string) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.CloseAndReport(ctx, out, &err)

	var w io.Writer = out.Writer(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(w)
		defer func() {
			if e := gz.Close(); e != nil && err == nil {
				err = e
			}
		}()
		w = gz
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(deliverableHeader(r.Genes)); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	record := make([]string, 0, 4+len(r.Genes))
	for _, row := range r.Rows {
		record = record[:0]
		record = append(record, row.VID, row.ParticipantID, row.DataSource, row.Batch)
		record = append(record, row.Cells...)
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	log.Printf("report: deliverable written to %s (%d rows)", path, len(r.Rows))
	return nil
}
