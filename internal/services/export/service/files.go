package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	perr "ghfinder/internal/platform/errors"
	pdomain "ghfinder/internal/services/profiler/domain"
)

// Analysis output modes
const (
	ModeConsole = "console"
	ModeAuto    = "auto"
)

// WriteProfiles writes ps as a JSON array, ordered as given
func (s *Svc) WriteProfiles(path string, ps []*pdomain.Profile) error {
	if ps == nil {
		ps = []*pdomain.Profile{}
	}
	b, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode profiles")
	}
	return writeFile(path, b)
}

// WritePrompt writes the ai prompt for ps. Nothing is written without
// evaluated profiles
func (s *Svc) WritePrompt(path string, ps []*pdomain.Profile) error {
	body := s.Prompt(ps)
	if body == "" {
		return nil
	}
	return writeFile(path, []byte(body))
}

// WriteAnalysis renders the analysis report. mode is "console", "auto" for a
// timestamped file, or a file name. It returns the file written, if any
func (s *Svc) WriteAnalysis(mode string, ps []*pdomain.Profile, console io.Writer) (string, error) {
	report := s.Analysis(ps)
	switch mode {
	case "":
		return "", nil
	case ModeConsole:
		_, err := io.WriteString(console, report+"\n")
		return "", err
	case ModeAuto:
		mode = fmt.Sprintf("llm_analysis_%s.md", s.cfg.Now().Format("20060102_150405"))
	}
	if err := writeFile(mode, []byte(report)); err != nil {
		s.log.Warn().Err(err).Str("file", mode).Msg("analysis file not written, printing instead")
		_, _ = io.WriteString(console, report+"\n")
		return "", err
	}
	return mode, nil
}

func writeFile(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "write %s", path)
	}
	return nil
}
