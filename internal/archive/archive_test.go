package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embruze/SexualEqualityABM-1/internal/sensitivity"
	"github.com/embruze/SexualEqualityABM-1/internal/simulation"
	"github.com/embruze/SexualEqualityABM-1/internal/store"
)

func openStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(context.Background(), store.DBPath(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedRun stores a run with one pass of each shape and returns its ID.
func seedRun(t *testing.T, s *store.SQLiteStore) string {
	t.Helper()
	ctx := context.Background()

	sc := simulation.DefaultScenario()
	sc.Name = "archived"
	baseline := simulation.Trial{Depressed: 0.2, Concealed: 0.4, PolicyScore: 80}
	sink, err := s.NewRun(ctx, sc, &baseline)
	require.NoError(t, err)

	rows := []sensitivity.Row{
		{Label: sensitivity.PrevalenceLabel, Value: 0.2},
		{Label: "Minority_Depress", Value: 2.1},
	}
	require.NoError(t, sink.WriteRows(ctx, sensitivity.PassOddsRatio, rows))
	series := []sensitivity.Series{{
		Label:  "Attitude",
		X:      []float64{-1, 0, 1},
		Trials: []simulation.Trial{{Depressed: 0.5}, {Depressed: 0.3}, {Depressed: 0.1}},
	}}
	require.NoError(t, sink.WriteSeries(ctx, sensitivity.PassParameter, series))
	return sink.RunID()
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openStore(t)
	id := seedRun(t, src)

	path := GeneratePath(t.TempDir(), id)
	header, err := Export(ctx, src, id, path)
	require.NoError(t, err)
	assert.Equal(t, id, header.RunID)
	assert.Equal(t, "archived", header.Name)
	assert.Equal(t, 2, header.Rows)
	assert.Equal(t, 3, header.Points)

	dst := openStore(t)
	result, err := Import(ctx, dst, path)
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{RunID: id, RowsImported: 2, Points: 3}, result)

	want, err := Collect(ctx, src, id)
	require.NoError(t, err)
	got, err := Collect(ctx, dst, id)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want.Run, got.Run), "imported run differs")
	assert.Empty(t, cmp.Diff(want.Rows, got.Rows), "imported rows differ")
	assert.Empty(t, cmp.Diff(want.Series, got.Series), "imported series differ")
}

func TestImport_RejectsExistingRun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	id := seedRun(t, s)

	path := filepath.Join(t.TempDir(), "run"+Extension)
	_, err := Export(ctx, s, id, path)
	require.NoError(t, err)

	_, err = Import(ctx, s, path)
	assert.ErrorIs(t, err, store.ErrRunExists)
}

func TestImport_FailedImportCanBeRetried(t *testing.T) {
	ctx := context.Background()
	dst := openStore(t)
	dir := t.TempDir()

	trials := []simulation.Trial{{Depressed: 0.5}, {Depressed: 0.1}}
	a := &Archive{
		CreatedAt: time.Now().UTC(),
		Run: store.Run{
			ID:        uuid.NewString(),
			Name:      "ragged",
			Scenario:  simulation.DefaultScenario(),
			CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		Rows: map[string][]sensitivity.Row{
			sensitivity.PassOddsRatio: {{Label: sensitivity.PrevalenceLabel, Value: 0.2}},
		},
		Series: map[string][]sensitivity.Series{
			sensitivity.PassParameter: {{Label: "Attitude", X: []float64{-1, 0, 1}, Trials: trials}},
		},
	}
	ragged := filepath.Join(dir, "ragged"+Extension)
	_, err := Write(ragged, a)
	require.NoError(t, err)

	_, err = Import(ctx, dst, ragged)
	require.Error(t, err)

	_, err = dst.GetRun(ctx, a.Run.ID)
	assert.ErrorIs(t, err, store.ErrRunNotFound, "failed import left the run behind")
	rows, err := dst.Rows(ctx, a.Run.ID, sensitivity.PassOddsRatio)
	require.NoError(t, err)
	assert.Empty(t, rows, "failed import left rows behind")

	a.Series[sensitivity.PassParameter][0].X = []float64{-1, 1}
	fixed := filepath.Join(dir, "fixed"+Extension)
	_, err = Write(fixed, a)
	require.NoError(t, err)

	result, err := Import(ctx, dst, fixed)
	require.NoError(t, err, "retry after a failed import")
	assert.Equal(t, 1, result.RowsImported)
	assert.Equal(t, 2, result.Points)
}

func TestExport_UnknownRun(t *testing.T) {
	s := openStore(t)
	_, err := Export(context.Background(), s, "missing", filepath.Join(t.TempDir(), "x"+Extension))
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestRead_DetectsCorruption(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	id := seedRun(t, s)

	path := filepath.Join(t.TempDir(), "run"+Extension)
	_, err := Export(ctx, s, id, path)
	require.NoError(t, err)
	require.NoError(t, VerifyChecksum(path), "fresh archive")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0600))

	assert.ErrorContains(t, VerifyChecksum(path), "checksum mismatch")
	_, err = Read(path)
	assert.Error(t, err, "corrupted archive")
}

func TestReadHeader_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future"+Extension)
	require.NoError(t, os.WriteFile(path, []byte(`{"version":99}`+"\n"), 0600))

	_, err := ReadHeader(path)
	assert.Error(t, err)
}

func TestGeneratePath(t *testing.T) {
	path := GeneratePath("/data/exports", "6f1c0c1e-3a4b-4c8e-9d2f-2b7f6f0a9e11")
	base := filepath.Base(path)
	assert.True(t, isArchiveFile(base), "%s not recognized as an archive", base)
	assert.Contains(t, base, "6f1c0c1e")
	assert.Equal(t, "/data/exports", filepath.Dir(path))
	assert.Equal(t, filepath.Join("/data", DirName), DefaultDir("/data"))
}

func TestList_ReadsHeaders(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	id := seedRun(t, s)
	dir := t.TempDir()

	_, err := Export(ctx, s, id, filepath.Join(dir, filePrefix+"20250101-000000-a"+Extension))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0600))

	archives, err := List(dir)
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, id, archives[0].RunID)
	assert.WithinDuration(t, time.Now(), archives[0].CreatedAt, time.Minute, "CreatedAt is the export time")

	missing, err := List(filepath.Join(dir, "absent"))
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
