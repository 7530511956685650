package cmd

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"

	"github.com/dsugurtuna/hla-pipeline-manager/hla"
	"github.com/dsugurtuna/hla-pipeline-manager/report"
)

func newCmdReport() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "report",
		Short:    "Generate the clinical genotype deliverable",
		ArgsName: "manifest.tsv out.csv",
	}
	genesFlag := cmd.Flags.String("genes", strings.Join(hla.Panel, ","), "Comma-separated gene panel, in deliverable column order")
	parallelismFlag := cmd.Flags.Int("parallelism", 0, "Maximum number of participants evaluated at once; 0 = runtime.NumCPU()")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("report takes manifest and output paths, but got %v", argv)
		}
		ctx := vcontext.Background()
		participants, err := report.ReadManifest(ctx, argv[0])
		if err != nil {
			return err
		}
		r, err := report.Assemble(ctx, participants, report.Opts{
			Genes:       strings.Split(*genesFlag, ","),
			Parallelism: *parallelismFlag,
		})
		if err != nil {
			return err
		}
		if err := report.WriteCSV(ctx, r, argv[1]); err != nil {
			return err
		}
		if n := len(r.Skipped); n > 0 {
			return fmt.Errorf("%d of %d participants skipped; deliverable is partial", n, len(participants))
		}
		return nil
	})
	return cmd
}
