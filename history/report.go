package history

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"obd-backend/pkg/log"
)

const (
	DefaultReportPath  = "diagnostic_report.txt"
	NoDiagnosisMessage = "No diagnosis available to generate a report."

	reportHeader = "\n--- Diagnostic Report ---\n"
	reportFooter = "--- End of Report ---\n"
)

// Reporter writes the most recent entry to a fixed file, overwriting it.
type Reporter struct {
	fs   afero.Fs
	path string
}

func NewReporter(fs afero.Fs, path string) *Reporter {
	if strings.TrimSpace(path) == "" {
		path = DefaultReportPath
	}
	return &Reporter{fs: fs, path: path}
}

func (r *Reporter) Path() string { return r.path }

// Generate renders the most recent entry of s to the report file. With an
// empty history it returns NoDiagnosisMessage and leaves the filesystem alone.
func (r *Reporter) Generate(s *Store) (string, error) {
	last, ok := s.MostRecent()
	if !ok {
		return NoDiagnosisMessage, nil
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := afero.WriteFile(r.fs, r.path, []byte(Render(last)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	log.Info("report written", zap.String("path", r.path), zap.String("entry", last.ID))
	return fmt.Sprintf("Report generated and saved as '%s'", filepath.Base(r.path)), nil
}

// Render formats one entry as banner-delimited "Label: value" lines in
// record field order.
func Render(e Entry) string {
	var b strings.Builder
	b.WriteString(reportHeader)
	for _, f := range e.Diagnosis.Fields() {
		fmt.Fprintf(&b, "%s: %s\n", f.Label, f.Value)
	}
	b.WriteString(reportFooter)
	return b.String()
}
