// Package runs persists pipeline runs: a SQLite index of run records plus one
// artifact directory per run.
package runs

import (
	"errors"
	"time"

	"github.com/KaramelBytes/edaloom/internal/plot"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Status of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one pipeline invocation.
type Run struct {
	ID               string          `json:"id"`
	SourceName       string          `json:"source_name"`
	SourceFile       string          `json:"source_file,omitempty"`
	Status           Status          `json:"status"`
	Error            string          `json:"error,omitempty"`
	Rows             int             `json:"rows"`
	Cols             int             `json:"cols"`
	Model            string          `json:"model,omitempty"`
	InsightsFallback bool            `json:"insights_fallback"`
	Artifacts        []plot.Artifact `json:"artifacts"`
	ReportFile       string          `json:"report_file,omitempty"`
	InsightsFile     string          `json:"insights_file,omitempty"`
	PDFFile          string          `json:"pdf_file,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	FinishedAt       time.Time       `json:"finished_at"`
}

// Duration is the wall time of a finished run, or zero.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.CreatedAt)
}

// Files lists every file name a client may download from the run directory.
func (r *Run) Files() []string {
	var out []string
	for _, a := range r.Artifacts {
		out = append(out, a.Name)
	}
	for _, f := range []string{r.ReportFile, r.InsightsFile, r.PDFFile, r.SourceFile} {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// HasFile reports whether name is one of the run's own files.
func (r *Run) HasFile(name string) bool {
	for _, f := range r.Files() {
		if f == name {
			return true
		}
	}
	return false
}
