// Package deploy moves imputation result files into a production directory
// with a backup-first strategy: whatever the target currently holds is copied
// into a timestamped backup directory before anything is overwritten.
package deploy

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// DefaultExtensions is the PLINK binary file set deployed when no explicit
// extension list is configured.
var DefaultExtensions = []string{".bed", ".bim", ".fam"}

// backupTimestamp is the layout of backup directory names.
const backupTimestamp = "20060102_150405"

// Deployer copies result files into TargetDir, backing up existing
// production files under BackupRoot first.
type Deployer struct {
	TargetDir  string
	BackupRoot string
	Extensions []string

	// now is a hook for tests; nil means time.Now.
	now func() time.Time
}

// New returns a Deployer for targetDir. backupRoot defaults to a "backups"
// directory next to the target; extensions default to DefaultExtensions.
func New(targetDir, backupRoot string, extensions []string) *Deployer {
	if backupRoot == "" {
		backupRoot = filepath.Join(filepath.Dir(targetDir), "backups")
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Deployer{TargetDir: targetDir, BackupRoot: backupRoot, Extensions: extensions}
}

// Report summarizes one deployment.
type Report struct {
	SourceDir     string
	TargetDir     string
	BackupDir     string
	FilesDeployed []string
	FilesBackedUp []string
	Verified      bool
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() // nolint: errcheck
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() // nolint: errcheck
		return err
	}
	return out.Close()
}

func (d *Deployer) glob(dir string) ([]string, error) {
	var paths []string
	for _, ext := range d.Extensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

// backup copies the current production files into a fresh timestamped
// directory and returns its path.
func (d *Deployer) backup(report *Report) (string, error) {
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	backupDir := filepath.Join(d.BackupRoot, now().Format(backupTimestamp))
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", err
	}
	existing, err := d.glob(d.TargetDir)
	if err != nil {
		return "", err
	}
	for _, path := range existing {
		name := filepath.Base(path)
		if err := copyFile(path, filepath.Join(backupDir, name)); err != nil {
			return "", errors.Wrapf(err, "back up %s", name)
		}
		report.FilesBackedUp = append(report.FilesBackedUp, name)
	}
	return backupDir, nil
}

// Deploy copies matching files from sourceDir into the production target,
// after backing up whatever the target already holds. With dryRun set it
// only reports what would be copied. The returned report's Verified field is
// true once every deployed file has been re-checked in the target.
func (d *Deployer) Deploy(sourceDir string, dryRun bool) (*Report, error) {
	report := &Report{SourceDir: sourceDir, TargetDir: d.TargetDir}

	toDeploy, err := d.glob(sourceDir)
	if err != nil {
		return nil, errors.Wrapf(err, "scan source dir %s", sourceDir)
	}
	if len(toDeploy) == 0 {
		log.Printf("deploy: nothing to deploy from %s", sourceDir)
		return report, nil
	}

	if !dryRun {
		if _, err := os.Stat(d.TargetDir); err == nil {
			backupDir, err := d.backup(report)
			if err != nil {
				return nil, errors.Wrapf(err, "back up %s", d.TargetDir)
			}
			report.BackupDir = backupDir
			log.Printf("deploy: backed up %d files to %s", len(report.FilesBackedUp), backupDir)
		}
		if err := os.MkdirAll(d.TargetDir, 0755); err != nil {
			return nil, errors.Wrapf(err, "create target dir %s", d.TargetDir)
		}
	}
	for _, path := range toDeploy {
		name := filepath.Base(path)
		if !dryRun {
			if err := copyFile(path, filepath.Join(d.TargetDir, name)); err != nil {
				return nil, errors.Wrapf(err, "deploy %s", name)
			}
		}
		report.FilesDeployed = append(report.FilesDeployed, name)
	}

	if !dryRun {
		report.Verified = true
		for _, name := range report.FilesDeployed {
			if _, err := os.Stat(filepath.Join(d.TargetDir, name)); err != nil {
				report.Verified = false
				log.Error.Printf("deploy: verification failed for %s: %v", name, err)
			}
		}
		log.Printf("deploy: %d files deployed to %s (verified=%v)", len(report.FilesDeployed), d.TargetDir, report.Verified)
	}
	return report, nil
}
