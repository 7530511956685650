package cmd

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"

	"github.com/dsugurtuna/hla-pipeline-manager/deploy"
)

func newCmdDeploy() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "deploy",
		Short:    "Deploy result files to production with backup-first copy",
		ArgsName: "sourcedir targetdir",
	}
	backupRootFlag := cmd.Flags.String("backup-root", "", "Backup root directory; defaults to <targetdir>/../backups")
	extensionsFlag := cmd.Flags.String("extensions", strings.Join(deploy.DefaultExtensions, ","), "Comma-separated file extensions to deploy")
	dryRunFlag := cmd.Flags.Bool("dry-run", false, "Report what would be copied without copying")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("deploy takes sourcedir and targetdir, but got %v", argv)
		}
		d := deploy.New(argv[1], *backupRootFlag, strings.Split(*extensionsFlag, ","))
		report, err := d.Deploy(argv[0], *dryRunFlag)
		if err != nil {
			return err
		}
		if report.BackupDir != "" {
			fmt.Fprintf(env.Stdout, "backed up %d files to %s\n", len(report.FilesBackedUp), report.BackupDir)
		}
		fmt.Fprintf(env.Stdout, "deployed %d files to %s\n", len(report.FilesDeployed), report.TargetDir)
		if !*dryRunFlag && !report.Verified {
			return fmt.Errorf("post-deploy verification failed in %s", report.TargetDir)
		}
		return nil
	})
	return cmd
}
