package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/embruze/SexualEqualityABM-1/internal/sensitivity"
	"github.com/embruze/SexualEqualityABM-1/internal/simulation"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrRunExists is returned when importing a run whose ID is already stored.
var ErrRunExists = errors.New("run already exists")

// sqlitePragmas are applied by the driver to every connection it opens.
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

func dsn(dbPath string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return dbPath + "?" + q.Encode()
}

// Run is one stored simulation run.
type Run struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Scenario  simulation.Scenario `json:"scenario"`
	Baseline  *simulation.Trial   `json:"baseline,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// SQLiteStore keeps runs and their sensitivity results in a SQLite database.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the results database at dbPath.
func Open(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// NewRun records a run of sc and returns a sink that attaches sensitivity
// results to it. baseline may be nil when no baseline run was made.
func (s *SQLiteStore) NewRun(ctx context.Context, sc simulation.Scenario, baseline *simulation.Trial) (*RunSink, error) {
	run := Run{
		ID:        uuid.NewString(),
		Name:      sc.Name,
		Scenario:  sc,
		Baseline:  baseline,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := insertRun(ctx, s.db, run); err != nil {
		return nil, err
	}
	return &RunSink{store: s, runID: run.ID}, nil
}

// ImportRun records a run made elsewhere together with its stored results,
// keeping its ID and creation time. Everything is written in one transaction,
// so a failed import leaves nothing behind. It returns ErrRunExists if the ID
// is already stored.
func (s *SQLiteStore) ImportRun(ctx context.Context, run Run, rows map[string][]sensitivity.Row, series map[string][]sensitivity.Series) error {
	if _, err := uuid.Parse(run.ID); err != nil {
		return fmt.Errorf("invalid run ID %q: %w", run.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, run.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check run: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrRunExists, run.ID)
	}

	if err := insertRun(ctx, tx, run); err != nil {
		return err
	}
	for _, pass := range sortedKeys(rows) {
		if err := insertRows(ctx, tx, run.ID, pass, rows[pass]); err != nil {
			return fmt.Errorf("failed to import %s rows: %w", pass, err)
		}
	}
	for _, pass := range sortedKeys(series) {
		if err := insertSeries(ctx, tx, run.ID, pass, series[pass]); err != nil {
			return fmt.Errorf("failed to import %s series: %w", pass, err)
		}
	}
	return tx.Commit()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRun(ctx context.Context, db execer, run Run) error {
	scenarioJSON, err := json.Marshal(run.Scenario)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}
	var baselineJSON sql.NullString
	if run.Baseline != nil {
		data, err := json.Marshal(run.Baseline)
		if err != nil {
			return fmt.Errorf("failed to marshal baseline: %w", err)
		}
		baselineJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, name, seed, scenario, baseline, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, strconv.FormatUint(run.Scenario.Seed, 10), string(scenarioJSON), baselineJSON,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// GetRun returns the run with the given ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, scenario, baseline, created_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns every stored run, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, scenario, baseline, created_at FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and all of its results.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run          Run
		scenarioJSON string
		baselineJSON sql.NullString
		createdAt    string
	)
	if err := sc.Scan(&run.ID, &run.Name, &scenarioJSON, &baselineJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(scenarioJSON), &run.Scenario); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario of run %s: %w", run.ID, err)
	}
	if baselineJSON.Valid {
		var t simulation.Trial
		if err := json.Unmarshal([]byte(baselineJSON.String), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal baseline of run %s: %w", run.ID, err)
		}
		run.Baseline = &t
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at of run %s: %w", run.ID, err)
	}
	run.CreatedAt = ts
	return &run, nil
}

// Rows returns the stored rows of a pass, in the order they were written.
func (s *SQLiteStore) Rows(ctx context.Context, runID, pass string) ([]sensitivity.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT label, value FROM result_rows WHERE run_id = ? AND pass = ? ORDER BY position`,
		runID, pass)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	var out []sensitivity.Row
	for rows.Next() {
		var r sensitivity.Row
		if err := rows.Scan(&r.Label, &r.Value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Series returns the stored series of a pass, in the order they were written.
func (s *SQLiteStore) Series(ctx context.Context, runID, pass string) ([]sensitivity.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT series, label, x, depressed, concealed, discriminating, support_mean, policy_score
		FROM series_points WHERE run_id = ? AND pass = ?
		ORDER BY series, position`,
		runID, pass)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	var out []sensitivity.Series
	current := -1
	for rows.Next() {
		var (
			idx   int
			label string
			x     float64
			t     simulation.Trial
		)
		if err := rows.Scan(&idx, &label, &x, &t.Depressed, &t.Concealed, &t.Discriminating, &t.SupportMean, &t.PolicyScore); err != nil {
			return nil, fmt.Errorf("failed to scan series point: %w", err)
		}
		if idx != current {
			out = append(out, sensitivity.Series{Label: label})
			current = idx
		}
		last := &out[len(out)-1]
		last.X = append(last.X, x)
		last.Trials = append(last.Trials, t)
	}
	return out, rows.Err()
}

// RunSink writes sensitivity results for one run. It implements
// sensitivity.Sink.
type RunSink struct {
	store *SQLiteStore
	runID string
}

// RunID returns the ID of the run this sink writes to.
func (r *RunSink) RunID() string { return r.runID }

// WriteRows appends rows to the pass, after any rows already stored for it.
func (r *RunSink) WriteRows(ctx context.Context, pass string, rows []sensitivity.Row) error {
	return r.store.inTx(ctx, func(tx *sql.Tx) error {
		return insertRows(ctx, tx, r.runID, pass, rows)
	})
}

// WriteSeries appends series to the pass, after any series already stored
// for it.
func (r *RunSink) WriteSeries(ctx context.Context, pass string, series []sensitivity.Series) error {
	return r.store.inTx(ctx, func(tx *sql.Tx) error {
		return insertSeries(ctx, tx, r.runID, pass, series)
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRows(ctx context.Context, tx *sql.Tx, runID, pass string, rows []sensitivity.Row) error {
	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM result_rows WHERE run_id = ? AND pass = ?`,
		runID, pass).Scan(&next); err != nil {
		return fmt.Errorf("failed to find row position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO result_rows (run_id, pass, position, label, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, runID, pass, next+i, row.Label, row.Value); err != nil {
			return fmt.Errorf("failed to insert row %q: %w", row.Label, err)
		}
	}
	return nil
}

func insertSeries(ctx context.Context, tx *sql.Tx, runID, pass string, series []sensitivity.Series) error {
	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(series) + 1, 0) FROM series_points WHERE run_id = ? AND pass = ?`,
		runID, pass).Scan(&next); err != nil {
		return fmt.Errorf("failed to find series position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO series_points
			(run_id, pass, series, label, position, x, depressed, concealed, discriminating, support_mean, policy_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare series insert: %w", err)
	}
	defer stmt.Close()

	for i, sr := range series {
		if len(sr.X) != len(sr.Trials) {
			return fmt.Errorf("series %q has %d x values and %d trials", sr.Label, len(sr.X), len(sr.Trials))
		}
		for j, t := range sr.Trials {
			if _, err := stmt.ExecContext(ctx, runID, pass, next+i, sr.Label, j, sr.X[j],
				t.Depressed, t.Concealed, t.Discriminating, t.SupportMean, t.PolicyScore); err != nil {
				return fmt.Errorf("failed to insert series point %s[%d]: %w", sr.Label, j, err)
			}
		}
	}
	return nil
}
