package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"

	"github.com/dsugurtuna/hla-pipeline-manager/verify"
)

func newCmdVerify() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "verify",
		Short:    "Check completeness of imputation outputs for a batch",
		ArgsName: "batchdir",
	}
	batchIDFlag := cmd.Flags.String("batch-id", "", "Batch identifier; defaults to the directory name")
	strictFlag := cmd.Flags.Bool("strict", false, "Exit non-zero unless every sub-batch is complete")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("verify takes one batch directory argument, but got %v", argv)
		}
		ctx := vcontext.Background()
		report, err := verify.Batch(ctx, argv[0], *batchIDFlag)
		if err != nil {
			return err
		}
		fmt.Fprint(env.Stdout, verify.Format(report))
		if *strictFlag && report.CompleteSubBatches() != report.TotalSubBatches() {
			return fmt.Errorf("%d of %d sub-batches incomplete",
				report.TotalSubBatches()-report.CompleteSubBatches(), report.TotalSubBatches())
		}
		return nil
	})
	return cmd
}
