package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embruze/SexualEqualityABM-1/internal/agent"
	"github.com/embruze/SexualEqualityABM-1/internal/sensitivity"
	"github.com/embruze/SexualEqualityABM-1/internal/simulation"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), DBPath(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testScenario() simulation.Scenario {
	sc := simulation.DefaultScenario()
	sc.Name = "store-test"
	sc.Seed = 1<<63 + 5
	sc.Initial.Support = agent.Float(0.25)
	return sc
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", DirName)
	s, err := Open(context.Background(), DBPath(dir))
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, filepath.Join(dir, DBFile))
}

func TestOpen_Reopen(t *testing.T) {
	path := DBPath(t.TempDir())
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	sink, err := s.NewRun(ctx, testScenario(), nil)
	require.NoError(t, err)
	s.Close()

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetRun(ctx, sink.RunID())
	assert.NoError(t, err, "run survives reopen")
}

func TestInitSchema_RecordsVersion(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "schema.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, db))
	// A second call sees the existing schema and only validates it.
	require.NoError(t, InitSchema(ctx, db))

	version, err := getSchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestInitSchema_RejectsNewerVersion(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "schema.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, db))
	_, err = db.ExecContext(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, SchemaVersion+1)
	require.NoError(t, err)

	assert.Error(t, InitSchema(ctx, db))
}

func TestNewRun_GetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sc := testScenario()
	baseline := simulation.Trial{Depressed: 0.1, Concealed: 0.2, Discriminating: 0.3, SupportMean: 0.4, PolicyScore: 50}
	sink, err := s.NewRun(ctx, sc, &baseline)
	require.NoError(t, err)
	_, err = uuid.Parse(sink.RunID())
	assert.NoError(t, err, "run ID is a UUID")

	run, err := s.GetRun(ctx, sink.RunID())
	require.NoError(t, err)
	assert.Equal(t, sc.Name, run.Name)
	assert.Empty(t, cmp.Diff(sc, run.Scenario))
	require.NotNil(t, run.Baseline)
	assert.Equal(t, baseline, *run.Baseline)
	assert.False(t, run.CreatedAt.IsZero())
}

func TestGetRun_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		sink, err := s.NewRun(ctx, testScenario(), nil)
		require.NoError(t, err)
		ids[sink.RunID()] = true
	}

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, r := range runs {
		assert.True(t, ids[r.ID], "unexpected run %s", r.ID)
		assert.Nil(t, r.Baseline)
	}
}

func TestRunSink_RowsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sink, err := s.NewRun(ctx, testScenario(), nil)
	require.NoError(t, err)

	first := []sensitivity.Row{
		{Label: sensitivity.PrevalenceLabel, Value: 0.21},
		{Label: "Minority_Depress", Value: 1.9},
	}
	second := []sensitivity.Row{{Label: "Support_Depress", Value: 2.5}}
	require.NoError(t, sink.WriteRows(ctx, sensitivity.PassOddsRatio, first))
	require.NoError(t, sink.WriteRows(ctx, sensitivity.PassOddsRatio, second))

	got, err := s.Rows(ctx, sink.RunID(), sensitivity.PassOddsRatio)
	require.NoError(t, err)
	assert.Equal(t, append(first, second...), got)

	other, err := s.Rows(ctx, sink.RunID(), sensitivity.PassRegression)
	require.NoError(t, err)
	assert.Empty(t, other, "unwritten pass")
}

func TestRunSink_SeriesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sink, err := s.NewRun(ctx, testScenario(), nil)
	require.NoError(t, err)

	want := []sensitivity.Series{
		{
			Label: "Minority_Percentage",
			X:     []float64{0.05, 0.1},
			Trials: []simulation.Trial{
				{Depressed: 0.1, Concealed: 0.2, Discriminating: 0.2, SupportMean: 0.5, PolicyScore: 10},
				{Depressed: 0.15, Concealed: 0.25, Discriminating: 0.2, SupportMean: -0.45, PolicyScore: 12},
			},
		},
		{
			Label:  "SupportDepression_Impact",
			X:      []float64{0.05},
			Trials: []simulation.Trial{{Depressed: 0.3}},
		},
	}
	require.NoError(t, sink.WriteSeries(ctx, sensitivity.PassImpact, want[:1]))
	require.NoError(t, sink.WriteSeries(ctx, sensitivity.PassImpact, want[1:]))

	got, err := s.Series(ctx, sink.RunID(), sensitivity.PassImpact)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got))
}

func TestRunSink_RejectsRaggedSeries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sink, err := s.NewRun(ctx, testScenario(), nil)
	require.NoError(t, err)
	bad := []sensitivity.Series{{Label: "Attitude", X: []float64{0, 1}, Trials: []simulation.Trial{{}}}}
	assert.ErrorContains(t, sink.WriteSeries(ctx, sensitivity.PassParameter, bad), "2 x values and 1 trials")

	got, err := s.Series(ctx, sink.RunID(), sensitivity.PassParameter)
	require.NoError(t, err)
	assert.Empty(t, got, "rejected series was partially stored")
}

func TestDeleteRun_Cascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sink, err := s.NewRun(ctx, testScenario(), nil)
	require.NoError(t, err)
	require.NoError(t, sink.WriteRows(ctx, sensitivity.PassOddsRatio, []sensitivity.Row{{Label: "x", Value: 1}}))

	require.NoError(t, s.DeleteRun(ctx, sink.RunID()))
	rows, err := s.Rows(ctx, sink.RunID(), sensitivity.PassOddsRatio)
	require.NoError(t, err)
	assert.Empty(t, rows, "rows survived run deletion")
	assert.ErrorIs(t, s.DeleteRun(ctx, sink.RunID()), ErrRunNotFound)
}

func TestRunSink_DriverIntegration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sc := simulation.DefaultScenario()
	sc.Params.NodeCount = 10
	sc.Params.TimeSpan = 0
	sink, err := s.NewRun(ctx, sc, nil)
	require.NoError(t, err)

	d := sensitivity.NewDriver(sensitivity.Config{
		Options: sensitivity.Options{Parameter: true},
		Sink:    sink,
		RunID:   sink.RunID(),
	})
	report, err := d.Run(ctx, sc, nil)
	require.NoError(t, err)

	got, err := s.Series(ctx, sink.RunID(), sensitivity.PassParameter)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(report.Parameter, got), "stored parameter series differ from the report")
}

func importFixture() (Run, map[string][]sensitivity.Row, map[string][]sensitivity.Series) {
	baseline := simulation.Trial{Depressed: 0.3, PolicyScore: 12}
	run := Run{
		ID:        uuid.NewString(),
		Name:      "imported",
		Scenario:  testScenario(),
		Baseline:  &baseline,
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	rows := map[string][]sensitivity.Row{
		sensitivity.PassOddsRatio:  {{Label: sensitivity.PrevalenceLabel, Value: 0.3}},
		sensitivity.PassRegression: {{Label: "Support_Depress", Value: -0.8}},
	}
	series := map[string][]sensitivity.Series{
		sensitivity.PassParameter: {{
			Label:  "Attitude",
			X:      []float64{-1, 1},
			Trials: []simulation.Trial{{Depressed: 0.4}, {Depressed: 0.2}},
		}},
	}
	return run, rows, series
}

func TestImportRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, rows, series := importFixture()
	require.NoError(t, s.ImportRun(ctx, run, rows, series))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(run, *got))
	for pass, want := range rows {
		stored, err := s.Rows(ctx, run.ID, pass)
		require.NoError(t, err)
		assert.Equal(t, want, stored, pass)
	}
	stored, err := s.Series(ctx, run.ID, sensitivity.PassParameter)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(series[sensitivity.PassParameter], stored))

	assert.ErrorIs(t, s.ImportRun(ctx, run, nil, nil), ErrRunExists)

	run.ID = "not-a-uuid"
	assert.Error(t, s.ImportRun(ctx, run, nil, nil), "malformed ID")
}

func TestImportRun_FailureStoresNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, rows, series := importFixture()
	good := series[sensitivity.PassParameter]
	series[sensitivity.PassParameter] = []sensitivity.Series{{Label: "Attitude", X: []float64{-1, 0, 1}, Trials: good[0].Trials}}

	err := s.ImportRun(ctx, run, rows, series)
	assert.ErrorContains(t, err, "3 x values and 2 trials")

	_, err = s.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound, "run row rolled back")
	stored, err := s.Rows(ctx, run.ID, sensitivity.PassOddsRatio)
	require.NoError(t, err)
	assert.Empty(t, stored, "rows rolled back")

	// The same run imports cleanly once the data is fixed.
	series[sensitivity.PassParameter] = good
	require.NoError(t, s.ImportRun(ctx, run, rows, series))
	_, err = s.GetRun(ctx, run.ID)
	assert.NoError(t, err)
}
