package sensitivity

import (
	"context"
	"sync"

	"github.com/embruze/SexualEqualityABM-1/internal/simulation"
)

// Pass names, as handed to a Sink.
const (
	PassOddsRatio         = "odds_ratio"
	PassRegression        = "regression"
	PassImpact            = "impact"
	PassImpactCorrelation = "impact_correlation"
	PassParameter         = "parameter"
)

// Row is one labelled scalar of a tabular summary.
type Row struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is one swept variable: the swept values and the trial at each.
type Series struct {
	Label  string             `json:"label"`
	X      []float64          `json:"x"`
	Trials []simulation.Trial `json:"trials"`
}

// Outcome returns the i-th trial metric (in Trial.Values order) at every
// sweep point.
func (s Series) Outcome(i int) []float64 {
	out := make([]float64, len(s.Trials))
	for j, t := range s.Trials {
		out[j] = t.Values()[i]
	}
	return out
}

// Sink persists the data produced by each pass.
type Sink interface {
	WriteRows(ctx context.Context, pass string, rows []Row) error
	WriteSeries(ctx context.Context, pass string, series []Series) error
}

// MemorySink keeps everything written to it. It is safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	Rows   map[string][]Row
	Series map[string][]Series
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		Rows:   make(map[string][]Row),
		Series: make(map[string][]Series),
	}
}

func (m *MemorySink) WriteRows(_ context.Context, pass string, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rows[pass] = append(m.Rows[pass], rows...)
	return nil
}

func (m *MemorySink) WriteSeries(_ context.Context, pass string, series []Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Series[pass] = append(m.Series[pass], series...)
	return nil
}

type discardSink struct{}

func (discardSink) WriteRows(context.Context, string, []Row) error { return nil }
func (discardSink) WriteSeries(context.Context, string, []Series) error { return nil }
