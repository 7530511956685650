package main

/*
hla-report runs the dosage-to-genotype calling engine over a participant
manifest and writes the clinical CSV deliverable.

The manifest is a tab-separated file with header columns
VID/ParticipantID/DataSource/Batch/DosagePath/QualityPath/SampleListPath/
RefReport; participants with a RefReport path have their calls passed
through from that file, everyone else is called from their
dosage/quality/sample-list triple.
*/

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/dsugurtuna/hla-pipeline-manager/hla"
	"github.com/dsugurtuna/hla-pipeline-manager/report"
)

var (
	genes       = flag.String("genes", strings.Join(hla.Panel, ","), "Comma-separated gene panel, in deliverable column order")
	parallelism = flag.Int("parallelism", 0, "Maximum number of participants evaluated at once; 0 = runtime.NumCPU()")
)

func hlaReportUsage() {
	fmt.Printf("Usage: %s [OPTIONS] manifest.tsv out.csv\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = hlaReportUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 2 {
		log.Fatalf("Expected manifest and output positional arguments; got '%s'", strings.Join(flag.Args(), " "))
	}
	manifestPath := flag.Arg(0)
	outPath := flag.Arg(1)

	ctx := vcontext.Background()
	participants, err := report.ReadManifest(ctx, manifestPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts := report.Opts{
		Genes:       strings.Split(*genes, ","),
		Parallelism: *parallelism,
	}
	r, err := report.Assemble(ctx, participants, opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := report.WriteCSV(ctx, r, outPath); err != nil {
		log.Fatalf("%v", err)
	}
	if n := len(r.Skipped); n > 0 {
		log.Error.Printf("%d participants skipped; deliverable is partial", n)
	}
	log.Debug.Printf("exiting")
}
