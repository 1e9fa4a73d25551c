package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/edaloom/internal/plot"
)

const timeLayout = time.RFC3339Nano

// Store is the SQLite index of runs. It is safe for concurrent use.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the database at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{conn: conn, path: dbPath}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Create inserts a new run record.
func (s *Store) Create(ctx context.Context, r *Run) error {
	if r.Status == "" {
		r.Status = StatusRunning
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	arts, err := json.Marshal(nonNil(r.Artifacts))
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO runs (id, source_name, source_file, status, error, row_count, col_count, model,
		insights_fallback, artifacts, report_file, insights_file, pdf_file, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SourceName, r.SourceFile, string(r.Status), r.Error, r.Rows, r.Cols, r.Model,
		boolInt(r.InsightsFallback), string(arts), r.ReportFile, r.InsightsFile, r.PDFFile,
		formatTime(r.CreatedAt), formatTime(r.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// Finish stores the outcome of a successful run.
func (s *Store) Finish(ctx context.Context, r *Run) error {
	r.Status = StatusCompleted
	r.Error = ""
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	return s.update(ctx, r)
}

// Fail marks a run as failed with the given cause.
func (s *Store) Fail(ctx context.Context, r *Run, cause error) error {
	r.Status = StatusFailed
	if cause != nil {
		r.Error = cause.Error()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	return s.update(ctx, r)
}

func (s *Store) update(ctx context.Context, r *Run) error {
	arts, err := json.Marshal(nonNil(r.Artifacts))
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE runs SET source_file = ?, status = ?, error = ?, row_count = ?, col_count = ?, model = ?,
		insights_fallback = ?, artifacts = ?, report_file = ?, insights_file = ?, pdf_file = ?, finished_at = ?
		WHERE id = ?`,
		r.SourceFile, string(r.Status), r.Error, r.Rows, r.Cols, r.Model,
		boolInt(r.InsightsFallback), string(arts), r.ReportFile, r.InsightsFile, r.PDFFile,
		formatTime(r.FinishedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

const selectRun = `SELECT id, source_name, source_file, status, error, row_count, col_count, model,
	insights_fallback, artifacts, report_file, insights_file, pdf_file, created_at, finished_at FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r                 Run
		status, arts      string
		created, finished string
		fallback          int
	)
	if err := sc.Scan(&r.ID, &r.SourceName, &r.SourceFile, &status, &r.Error, &r.Rows, &r.Cols, &r.Model,
		&fallback, &arts, &r.ReportFile, &r.InsightsFile, &r.PDFFile, &created, &finished); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	r.InsightsFallback = fallback != 0
	if err := json.Unmarshal([]byte(arts), &r.Artifacts); err != nil {
		return nil, fmt.Errorf("decode artifacts of %s: %w", r.ID, err)
	}
	r.CreatedAt = parseTime(created)
	r.FinishedAt = parseTime(finished)
	return &r, nil
}

// Get returns the run with the given id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.conn.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// List returns the most recent runs first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	q := selectRun + ` ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes a run record. Unknown ids return ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// StaleRunning is how far past the cutoff a run still marked running must be
// before it counts as abandoned (for example by a crashed process).
const StaleRunning = 24 * time.Hour

// Expired returns ids of runs created before the cutoff. Runs still marked
// running are included only when they are StaleRunning older than that.
func (s *Store) Expired(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id FROM runs WHERE created_at < ? AND (status != ? OR created_at < ?) ORDER BY created_at`,
		formatTime(before), string(StatusRunning), formatTime(before.Add(-StaleRunning)))
	if err != nil {
		return nil, fmt.Errorf("expired runs: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nonNil(a []plot.Artifact) []plot.Artifact {
	if a == nil {
		return []plot.Artifact{}
	}
	return a
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatTime stores UTC with a fixed-width layout so text order is time order.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
