// Package report drives the dosage-to-genotype calling engine across a set
// of participants and renders the combined result as the clinical CSV
// deliverable.
package report

import (
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// Participant is one row of the run manifest. A participant is evaluated on
// one of two paths: when RefReport is set, its genotype calls are read
// pre-computed from that deliverable-format file and passed through
// verbatim; otherwise the dosage/quality/sample-list triple is pushed
// through the calling engine. Which path is authoritative for a given
// participant is the manifest author's decision, never the engine's.
type Participant struct {
	// VID is the deliverable row identifier.
	VID string
	// ParticipantID is the composite "FID/IID" identifier used for
	// sample-list lookup and reported in the deliverable.
	ParticipantID string
	// DataSource tags where the calls came from, e.g. "CookHLA" or
	// "Imputed".
	DataSource string
	Batch      string

	DosagePath     string
	QualityPath    string
	SampleListPath string

	// RefReport optionally points at an existing deliverable-format CSV
	// holding this participant's externally produced calls.
	RefReport string
}

// ReadManifest loads a tab-separated run manifest whose header row names the
// Participant fields (VID, ParticipantID, DataSource, Batch, DosagePath,
// QualityPath, SampleListPath, RefReport).
func ReadManifest(ctx context.Context, path string) (participants []Participant, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open manifest %s", path)
	}
	defer file.CloseAndReport(ctx, in, &err)

	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	for {
		var p Participant
		if err := r.Read(&p); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "read manifest %s", path)
		}
		participants = append(participants, p)
	}
	return participants, nil
}
