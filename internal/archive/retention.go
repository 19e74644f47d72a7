package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/embruze/SexualEqualityABM-1/internal/store"
)

// Info describes one archive file. RunID is empty when the header could not
// be read.
type Info struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	RunID     string    `json:"run_id,omitempty"`
}

// Retention limits the archives kept per exports directory. Limits count
// runs, not files: only the newest archive of each run is kept, and older
// exports of the same run are always pruned. A zero field disables that
// limit.
type Retention struct {
	MaxRuns       int
	MaxAge        time.Duration
	MaxTotalBytes int64
}

// Plan returns the archives r prunes. archives must be sorted newest first.
// Archives whose run is not stored are the only copy of that run and are
// never pruned; neither are archives with an unreadable header.
func (r Retention) Plan(archives []Info, stored map[string]bool, now time.Time) []Info {
	var (
		prune []Info
		seen  = make(map[string]bool)
		runs  int
		total int64
	)
	for _, a := range archives {
		if a.RunID == "" {
			continue
		}
		if seen[a.RunID] {
			prune = append(prune, a)
			continue
		}
		seen[a.RunID] = true
		if !stored[a.RunID] {
			continue
		}

		switch {
		case r.MaxRuns > 0 && runs >= r.MaxRuns,
			r.MaxAge > 0 && now.Sub(a.CreatedAt) > r.MaxAge,
			r.MaxTotalBytes > 0 && runs > 0 && total+a.Size > r.MaxTotalBytes:
			prune = append(prune, a)
		default:
			runs++
			total += a.Size
		}
	}
	return prune
}

// List scans dir for archive files and returns them newest first.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive directory: %w", err)
	}

	var archives []Info
	for _, e := range entries {
		if e.IsDir() || !isArchiveFile(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}

		info := Info{
			Path:      filepath.Join(dir, e.Name()),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime(),
		}
		if h, err := ReadHeader(info.Path); err == nil {
			info.RunID = h.RunID
			if !h.CreatedAt.IsZero() {
				info.CreatedAt = h.CreatedAt
			}
		}
		archives = append(archives, info)
	}

	sort.SliceStable(archives, func(i, j int) bool {
		if !archives[i].CreatedAt.Equal(archives[j].CreatedAt) {
			return archives[i].CreatedAt.After(archives[j].CreatedAt)
		}
		return filepath.Base(archives[i].Path) > filepath.Base(archives[j].Path)
	})
	return archives, nil
}

// ApplyRetention deletes the archives in dir that r prunes. src tells which
// runs are still stored.
func ApplyRetention(ctx context.Context, dir string, r Retention, src Source) (deleted []string, err error) {
	archives, err := List(dir)
	if err != nil {
		return nil, err
	}

	stored := make(map[string]bool)
	for _, a := range archives {
		if a.RunID == "" {
			continue
		}
		if _, ok := stored[a.RunID]; ok {
			continue
		}
		_, err := src.GetRun(ctx, a.RunID)
		switch {
		case err == nil:
			stored[a.RunID] = true
		case errors.Is(err, store.ErrRunNotFound):
			stored[a.RunID] = false
		default:
			return nil, fmt.Errorf("checking run %s: %w", a.RunID, err)
		}
	}

	for _, a := range r.Plan(archives, stored, time.Now()) {
		if err := os.Remove(a.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(a.Path), err)
		}
		deleted = append(deleted, a.Path)
	}
	return deleted, nil
}

func isArchiveFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, Extension)
}

// ageUnits are the suffixes accepted by max_age.
var ageUnits = map[byte]time.Duration{
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// parseAge parses a whole number of hours, days or weeks such as "36h" or "30d".
func parseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid age %q", s)
	}
	unit, ok := ageUnits[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("invalid age %q: unit must be h, d or w", s)
	}
	n, err := strconv.ParseUint(s[:len(s)-1], 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid age %q", s)
	}
	return time.Duration(n) * unit, nil
}

// RetentionConfig is the retention setting as written in config.yaml.
type RetentionConfig struct {
	MaxRuns      int    `json:"max_runs" yaml:"max_runs"`
	MaxAge       string `json:"max_age,omitempty" yaml:"max_age,omitempty"`
	MaxTotalSize string `json:"max_total_size,omitempty" yaml:"max_total_size,omitempty"`
}

// Retention parses c. Sizes take SI or IEC suffixes ("50MB", "1GiB").
func (c RetentionConfig) Retention() (Retention, error) {
	if c.MaxRuns < 0 {
		return Retention{}, fmt.Errorf("retention max_runs must be non-negative, got %d", c.MaxRuns)
	}
	r := Retention{MaxRuns: c.MaxRuns}
	if c.MaxAge != "" {
		d, err := parseAge(c.MaxAge)
		if err != nil {
			return Retention{}, fmt.Errorf("retention max_age: %w", err)
		}
		r.MaxAge = d
	}
	if c.MaxTotalSize != "" {
		n, err := humanize.ParseBytes(c.MaxTotalSize)
		if err != nil {
			return Retention{}, fmt.Errorf("retention max_total_size: %w", err)
		}
		r.MaxTotalBytes = int64(n)
	}
	return r, nil
}
