package runs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/edaloom/internal/report"
	"github.com/KaramelBytes/edaloom/internal/utils"
)

const (
	manifestFileName = "run.json"
	// DatabaseFileName is the SQLite index kept at the data root.
	DatabaseFileName = "edaloom.db"
)

// Workspace owns the per-run artifact directories under <root>/runs.
type Workspace struct {
	root string
}

// NewWorkspace uses root (the data dir) and creates it when missing.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		return nil, errors.New("data directory not set")
	}
	if err := utils.EnsureDir(filepath.Join(root, "runs")); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the data directory.
func (w *Workspace) Root() string { return w.root }

// DatabasePath is where the run index lives.
func (w *Workspace) DatabasePath() string { return filepath.Join(w.root, DatabaseFileName) }

// NewRun allocates an id and an empty directory for a run over sourceName.
func (w *Workspace) NewRun(sourceName string) (*Run, error) {
	r := &Run{
		ID:         uuid.NewString(),
		SourceName: filepath.Base(sourceName),
		Status:     StatusRunning,
		CreatedAt:  time.Now().UTC(),
	}
	if err := os.Mkdir(w.Dir(r.ID), 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return r, nil
}

// Dir is the artifact directory of run id.
func (w *Workspace) Dir(id string) string { return filepath.Join(w.root, "runs", id) }

// validID accepts only canonical UUIDs so ids can be joined into paths.
func validID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == strings.ToLower(id)
}

// SaveSource copies the uploaded file into the run directory under a safe
// name and records it on r.
func (w *Workspace) SaveSource(r *Run, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(r.SourceName))
	name := utils.SafeFileStem(strings.TrimSuffix(r.SourceName, filepath.Ext(r.SourceName))) + ext
	if reservedName(name) {
		name = "source_" + name
	}
	p := filepath.Join(w.Dir(r.ID), name)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("save source: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return "", fmt.Errorf("save source: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("save source: %w", err)
	}
	r.SourceFile = name
	return p, nil
}

// reservedName reports whether name is one the run writes itself, so an
// upload stored under it would be overwritten.
func reservedName(name string) bool {
	switch strings.ToLower(name) {
	case manifestFileName, report.ReportFileName, report.InsightsFileName, report.PDFFileName:
		return true
	}
	return false
}

// SaveManifest writes run.json into the run directory.
func (w *Workspace) SaveManifest(r *Run) error {
	return utils.WriteJSONFile(filepath.Join(w.Dir(r.ID), manifestFileName), r)
}

// LoadManifest reads run.json back; it lets a run be recovered without the database.
func (w *Workspace) LoadManifest(id string) (*Run, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	b, err := os.ReadFile(filepath.Join(w.Dir(id), manifestFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &r, nil
}

// FilePath resolves a downloadable file of r. Only names the run itself
// recorded are accepted.
func (w *Workspace) FilePath(r *Run, name string) (string, error) {
	if !validID(r.ID) || !utils.IsPlainFileName(name) || !r.HasFile(name) {
		return "", fmt.Errorf("%w: %s/%s", fs.ErrNotExist, r.ID, name)
	}
	return filepath.Join(w.Dir(r.ID), name), nil
}

// Remove deletes the run directory.
func (w *Workspace) Remove(id string) error {
	if !validID(id) {
		return fmt.Errorf("refusing to remove invalid run id %q", id)
	}
	return os.RemoveAll(w.Dir(id))
}
