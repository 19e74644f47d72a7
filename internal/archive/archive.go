// Package archive exports stored simulation runs to portable files and
// imports them back into a results store.
package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/embruze/SexualEqualityABM-1/internal/sensitivity"
	"github.com/embruze/SexualEqualityABM-1/internal/store"
)

// DirName is the archive directory inside the data directory.
const DirName = "exports"

// Extension is the file extension of archives.
const Extension = ".smd.gz"

// filePrefix starts every generated archive name.
const filePrefix = "smdsim-run-"

// rowPasses and seriesPasses are every pass an archive carries.
var (
	rowPasses    = []string{sensitivity.PassOddsRatio, sensitivity.PassRegression, sensitivity.PassImpactCorrelation}
	seriesPasses = []string{sensitivity.PassImpact, sensitivity.PassParameter}
)

// Archive is one run with everything its passes stored.
type Archive struct {
	CreatedAt time.Time                       `json:"created_at"`
	Run       store.Run                       `json:"run"`
	Rows      map[string][]sensitivity.Row    `json:"rows,omitempty"`
	Series    map[string][]sensitivity.Series `json:"series,omitempty"`
}

// counts returns the number of rows and series points in a.
func (a *Archive) counts() (rows, points int) {
	for _, r := range a.Rows {
		rows += len(r)
	}
	for _, ss := range a.Series {
		for _, s := range ss {
			points += len(s.X)
		}
	}
	return rows, points
}

// Source reads stored runs.
type Source interface {
	GetRun(ctx context.Context, id string) (*store.Run, error)
	Rows(ctx context.Context, runID, pass string) ([]sensitivity.Row, error)
	Series(ctx context.Context, runID, pass string) ([]sensitivity.Series, error)
}

// Destination records imported runs. ImportRun must store the run and its
// results atomically.
type Destination interface {
	ImportRun(ctx context.Context, run store.Run, rows map[string][]sensitivity.Row, series map[string][]sensitivity.Series) error
}

// DefaultDir returns the archive directory under dataDir.
func DefaultDir(dataDir string) string {
	return filepath.Join(dataDir, DirName)
}

// GeneratePath creates a timestamped archive filename for runID in dir.
func GeneratePath(dir, runID string) string {
	ts := time.Now().Format("20060102-150405")
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return filepath.Join(dir, fmt.Sprintf("%s%s-%s%s", filePrefix, ts, short, Extension))
}

// Collect gathers a run and all of its stored results.
func Collect(ctx context.Context, src Source, runID string) (*Archive, error) {
	run, err := src.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		CreatedAt: time.Now().UTC(),
		Run:       *run,
		Rows:      make(map[string][]sensitivity.Row),
		Series:    make(map[string][]sensitivity.Series),
	}
	for _, pass := range rowPasses {
		rows, err := src.Rows(ctx, runID, pass)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s rows: %w", pass, err)
		}
		if len(rows) > 0 {
			a.Rows[pass] = rows
		}
	}
	for _, pass := range seriesPasses {
		series, err := src.Series(ctx, runID, pass)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s series: %w", pass, err)
		}
		if len(series) > 0 {
			a.Series[pass] = series
		}
	}
	return a, nil
}

// Export writes the run with the given ID to path.
func Export(ctx context.Context, src Source, runID, path string) (*Header, error) {
	a, err := Collect(ctx, src, runID)
	if err != nil {
		return nil, err
	}
	return Write(path, a)
}

// ImportResult contains statistics about an import.
type ImportResult struct {
	RunID        string `json:"run_id"`
	RowsImported int    `json:"rows_imported"`
	Points       int    `json:"points_imported"`
}

// Import reads the archive at path and records its run in dst. A run whose
// ID is already stored is rejected with store.ErrRunExists. A failed import
// stores nothing, so it can be retried.
func Import(ctx context.Context, dst Destination, path string) (*ImportResult, error) {
	a, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := dst.ImportRun(ctx, a.Run, a.Rows, a.Series); err != nil {
		return nil, err
	}

	rows, points := a.counts()
	return &ImportResult{RunID: a.Run.ID, RowsImported: rows, Points: points}, nil
}
