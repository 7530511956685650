package report

import (
	"context"
	"runtime"
	"sort"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"

	"github.com/dsugurtuna/hla-pipeline-manager/genotype"
	"github.com/dsugurtuna/hla-pipeline-manager/hla"
)

// Opts configures a report run.
type Opts struct {
	// Genes is the reported panel, in column order. Empty is a
	// misconfiguration and fails the whole run.
	Genes []string
	// Parallelism bounds the number of participants evaluated at once.
	// 0 = runtime.NumCPU().
	Parallelism int
}

// DefaultOpts reports the standard eight-gene panel.
var DefaultOpts = Opts{
	Genes: hla.Panel,
}

// Row is one participant's line of the deliverable. Cells holds the rendered
// per-gene genotype calls, parallel to the run's gene panel. Rows are
// immutable once appended to a Report.
type Row struct {
	VID           string
	ParticipantID string
	DataSource    string
	Batch         string
	Cells         []string
}

// Skip records a participant excluded from the deliverable and why.
type Skip struct {
	VID           string
	ParticipantID string
	Cause         error
}

// Report is the assembled deliverable: rows in deterministic (V_ID) order
// plus the skip summary. A failed participant never aborts the run and never
// vanishes silently; it is listed in Skipped.
type Report struct {
	Genes   []string
	Rows    []Row
	Skipped []Skip
}

// Assemble evaluates every participant and collects the deliverable.
// Participants are independent, so they run in parallel worker jobs; only
// the final collection and sort are serialized. Per-participant failures
// (missing inputs, malformed files, sample-list misses) skip that
// participant; an empty gene panel is the only run-fatal condition here.
func Assemble(ctx context.Context, participants []Participant, opts Opts) (*Report, error) {
	genes := opts.Genes
	if len(genes) == 0 {
		return nil, errors.New("report: empty gene panel")
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(participants) && len(participants) > 0 {
		parallelism = len(participants)
	}

	rows := make([]*Row, len(participants))
	evalErrs := make([]error, len(participants))
	err := traverse.Each(parallelism, func(jobIdx int) error {
		for i := jobIdx; i < len(participants); i += parallelism {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows[i], evalErrs[i] = evaluate(ctx, participants[i], genes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := &Report{Genes: genes}
	for i, p := range participants {
		if evalErrs[i] != nil {
			log.Error.Printf("report: skipping participant %s (%s): %v", p.ParticipantID, p.VID, evalErrs[i])
			report.Skipped = append(report.Skipped, Skip{VID: p.VID, ParticipantID: p.ParticipantID, Cause: evalErrs[i]})
			continue
		}
		report.Rows = append(report.Rows, *rows[i])
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].VID != report.Rows[j].VID {
			return report.Rows[i].VID < report.Rows[j].VID
		}
		return report.Rows[i].ParticipantID < report.Rows[j].ParticipantID
	})
	if n := len(report.Skipped); n > 0 {
		ids := make([]string, n)
		for i, s := range report.Skipped {
			ids[i] = s.ParticipantID
		}
		log.Printf("report: %d of %d participants skipped: %s", n, len(participants), strings.Join(ids, ", "))
	}
	log.Printf("report: assembled %d rows", len(report.Rows))
	return report, nil
}

// evaluate produces one participant's row, either passed through from an
// external reference report or computed by the calling engine.
func evaluate(ctx context.Context, p Participant, genes []string) (*Row, error) {
	row := &Row{
		VID:           p.VID,
		ParticipantID: p.ParticipantID,
		DataSource:    p.DataSource,
		Batch:         p.Batch,
	}
	if p.RefReport != "" {
		cells, err := loadReference(ctx, p.RefReport, p.ParticipantID, genes)
		if err != nil {
			return nil, err
		}
		row.Cells = cells
		return row, nil
	}

	quality, err := genotype.LoadQuality(ctx, p.QualityPath)
	if err != nil {
		return nil, err
	}
	col, err := genotype.LocateSample(ctx, p.SampleListPath, p.ParticipantID)
	if err != nil {
		return nil, err
	}
	mass, err := genotype.Aggregate(ctx, p.DosagePath, quality, col)
	if err != nil {
		return nil, err
	}
	row.Cells = make([]string, len(genes))
	for i, gene := range genes {
		row.Cells[i] = genotype.Classify(mass, gene).String()
	}
	return row, nil
}
