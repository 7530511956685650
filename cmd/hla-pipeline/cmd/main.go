// Package cmd implements the hla-pipeline subcommands: report generation,
// batch verification, production deployment, and imputation run planning.
package cmd

import (
	"log"

	"v.io/x/lib/cmdline"
)

func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "hla-pipeline",
			Short:    "Tools for the HLA imputation pipeline",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdReport(),
				newCmdVerify(),
				newCmdDeploy(),
				newCmdImpute(),
			},
		})
}
