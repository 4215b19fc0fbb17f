// Package rundir lays out the per run output directory:
//
//	runs/20251019_120000/
//	  checkpoints/
//	  output.log
//	  profiles.json
//	  ai_prompt.md
//	  <targets file copy>
package rundir

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	perr "ghfinder/internal/platform/errors"
)

// Layout names inside a run directory
const (
	CheckpointsDir = "checkpoints"
	LogFile        = "output.log"
	ProfilesFile   = "profiles.json"
	PromptFile     = "ai_prompt.md"

	// NameLayout formats run directory names
	NameLayout = "20060102_150405"
)

// Dir is one run's output directory
type Dir struct {
	Base string // parent of every run, e.g. "runs"
	Name string // run directory name
	ID   string // unique run id attached to logs and checkpoints

	log *os.File
}

// New creates base/<now> with its checkpoints subdirectory
func New(base string, now time.Time) (*Dir, error) {
	return Open(base, now.Format(NameLayout))
}

// Open creates or reuses base/name, e.g. when resuming a run
func Open(base, name string) (*Dir, error) {
	if base == "" {
		base = "runs"
	}
	d := &Dir{Base: base, Name: name, ID: uuid.NewString()}
	if err := os.MkdirAll(d.Path(CheckpointsDir), 0o750); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "create run dir %s", d.Root())
	}
	return d, nil
}

// Root is the run directory path
func (d *Dir) Root() string { return filepath.Join(d.Base, d.Name) }

// Path joins elems under the run directory
func (d *Dir) Path(elems ...string) string {
	return filepath.Join(append([]string{d.Root()}, elems...)...)
}

// LogWriter opens output.log for appending. Close releases it
func (d *Dir) LogWriter() (io.Writer, error) {
	if d.log != nil {
		return d.log, nil
	}
	f, err := os.OpenFile(d.Path(LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "open %s", LogFile)
	}
	d.log = f
	return f, nil
}

// CopyIn copies src into the run directory under its base name
func (d *Dir) CopyIn(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeNotFound, "open %s", src)
	}
	defer in.Close()

	dst := d.Path(filepath.Base(src))
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "copy %s", src)
	}
	return dst, out.Close()
}

// Close closes output.log when open
func (d *Dir) Close() error {
	if d.log == nil {
		return nil
	}
	err := d.log.Close()
	d.log = nil
	return err
}
