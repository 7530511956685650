package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"

	"github.com/dsugurtuna/hla-pipeline-manager/execute"
)

func newCmdImpute() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "impute",
		Short: "Plan an imputation batch run (sub-batch split and SNP2HLA commands); " +
			"launching the tool chain itself is left to the operator",
		ArgsName: "batch.fam workdir",
	}
	cfg := execute.DefaultConfig
	cmd.Flags.StringVar(&cfg.SNP2HLAPath, "snp2hla", cfg.SNP2HLAPath, "Path to the SNP2HLA entry script")
	cmd.Flags.StringVar(&cfg.PlinkPath, "plink", cfg.PlinkPath, "Path to the plink binary")
	cmd.Flags.StringVar(&cfg.ReferencePanel, "reference-panel", "", "Imputation reference panel prefix")
	cmd.Flags.IntVar(&cfg.SubBatchSize, "sub-batch-size", cfg.SubBatchSize, "Samples per SNP2HLA invocation")
	cmd.Flags.IntVar(&cfg.MaxParallel, "max-parallel", cfg.MaxParallel, "Parallel SNP2HLA jobs per sub-batch")
	batchIDFlag := cmd.Flags.String("batch-id", "", "Batch identifier; defaults to the .fam name")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("impute takes batch.fam and workdir, but got %v", argv)
		}
		ctx := vcontext.Background()
		batchID := *batchIDFlag
		if batchID == "" {
			batchID = argv[0]
		}
		result, err := execute.PlanBatch(ctx, cfg, batchID, argv[0], argv[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "batch %s: %d samples, %d sub-batches planned\n",
			result.BatchID, result.TotalSamples, result.SubBatches)
		return nil
	})
	return cmd
}
