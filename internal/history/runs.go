package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/substrcount/internal/models"
)

// timeLayout is fixed-width so started_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, root, pattern, strategy, workers, started_at, duration_ms, files_scanned, files_failed, total_matches`

// SaveRun stores a completed run together with its report and failures.
func (s *Store) SaveRun(ctx context.Context, summary *models.RunSummary, report *models.Report) error {
	if summary == nil || summary.RunID == "" {
		return fmt.Errorf("save run: missing run id")
	}
	if report == nil {
		report = models.NewReport()
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		summary.Root,
		summary.Pattern,
		summary.Strategy,
		summary.Workers,
		summary.StartedAt.UTC().Format(timeLayout),
		summary.Duration.Milliseconds(),
		summary.FilesScanned,
		summary.FilesFailed,
		summary.TotalMatches,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, f := range summary.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_failures (run_id, path, phase, message) VALUES (?, ?, ?, ?)`,
			summary.RunID, f.Path, f.Phase, f.Message,
		); err != nil {
			return fmt.Errorf("insert run failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run. Failures are not loaded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]models.RunSummary, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun loads one run and its failures. id may be a unique prefix of the
// full run id.
func (s *Store) GetRun(ctx context.Context, id string) (*models.RunSummary, error) {
	run, _, err := s.loadRun(ctx, id, false)
	return run, err
}

// LoadReport loads one run and the report it produced.
func (s *Store) LoadReport(ctx context.Context, id string) (*models.RunSummary, *models.Report, error) {
	return s.loadRun(ctx, id, true)
}

func (s *Store) loadRun(ctx context.Context, id string, withReport bool) (*models.RunSummary, *models.Report, error) {
	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+`, report FROM runs WHERE id = ?`, fullID)
	var reportJSON string
	run, err := scanRun(row, &reportJSON)
	if err != nil {
		return nil, nil, err
	}

	failures, err := s.loadFailures(ctx, fullID)
	if err != nil {
		return nil, nil, err
	}
	run.Failures = failures

	if !withReport {
		return run, nil, nil
	}

	report := models.NewReport()
	if err := json.Unmarshal([]byte(reportJSON), report); err != nil {
		return nil, nil, fmt.Errorf("decode stored report for %s: %w", fullID, err)
	}
	return run, report, nil
}

// resolveID expands a run id prefix to the single matching id.
func (s *Store) resolveID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrRunNotFound)
	}

	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escaped+"%")
	if err != nil {
		return "", fmt.Errorf("query run id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate run ids: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, prefix)
	}
}

func (s *Store) loadFailures(ctx context.Context, runID string) ([]models.FileFailure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, phase, message FROM run_failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run failures: %w", err)
	}
	defer rows.Close()

	failures := make([]models.FileFailure, 0)
	for rows.Next() {
		var f models.FileFailure
		if err := rows.Scan(&f.Path, &f.Phase, &f.Message); err != nil {
			return nil, fmt.Errorf("scan run failure: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run failures: %w", err)
	}
	return failures, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner, extra ...interface{}) (*models.RunSummary, error) {
	var run models.RunSummary
	var startedAt string
	var durationMS int64

	dest := []interface{}{
		&run.RunID,
		&run.Root,
		&run.Pattern,
		&run.Strategy,
		&run.Workers,
		&startedAt,
		&durationMS,
		&run.FilesScanned,
		&run.FilesFailed,
		&run.TotalMatches,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	run.StartedAt = t
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return &run, nil
}
