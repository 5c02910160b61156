package scorer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/vegavis/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeProvider struct {
	markets map[string]domain.Market
	data    map[string]domain.MarketData
	listErr error
	calls   int
}

func (f *fakeProvider) ListMarkets(context.Context) (map[string]domain.Market, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.markets, nil
}

func (f *fakeProvider) LatestMarketData(_ context.Context, id string) (domain.MarketData, error) {
	f.calls++
	d, ok := f.data[id]
	if !ok {
		return domain.MarketData{}, errors.New("404")
	}
	return d, nil
}

type fakeNotifier struct{ got [][]domain.MarketScore }

func (f *fakeNotifier) Notify(_ context.Context, scores []domain.MarketScore) error {
	f.got = append(f.got, scores)
	return nil
}

type fakeStorage struct {
	cycleIDs []string
	saved    [][]domain.MarketScore
}

func (f *fakeStorage) SaveCycle(_ context.Context, id string, scores []domain.MarketScore) error {
	f.cycleIDs = append(f.cycleIDs, id)
	f.saved = append(f.saved, scores)
	return nil
}

func (f *fakeStorage) GetHistory(context.Context, string, time.Time, time.Time) ([]domain.LevelScore, error) {
	return nil, nil
}

func (f *fakeStorage) Close() error { return nil }

type fakeMetrics struct {
	scores  int
	skipped map[string]string
	cycles  int
}

func (f *fakeMetrics) ObserveScore(domain.MarketScore) { f.scores++ }
func (f *fakeMetrics) ObserveSkipped(id, reason string) {
	if f.skipped == nil {
		f.skipped = map[string]string{}
	}
	f.skipped[id] = reason
}
func (f *fakeMetrics) ObserveCycle(int, float64) { f.cycles++ }

// --- fixtures ---

func market(id, code, state string) domain.Market {
	return domain.Market{
		ID:            id,
		Code:          code,
		State:         state,
		DecimalPlaces: 0,
		RiskModel: &domain.LogNormalRiskModel{
			Tau:    1,
			Params: domain.LogNormalParams{Mu: 0, Sigma: 0.1},
		},
	}
}

func data(id, bid, ask, minValid, maxValid string) domain.MarketData {
	d := domain.MarketData{MarketID: id, BestBidPrice: bid, BestOfferPrice: ask}
	if minValid != "" {
		d.PriceMonitoringBounds = []domain.PriceMonitoringBound{{MinValidPrice: minValid, MaxValidPrice: maxValid}}
	}
	return d
}

func newProvider() *fakeProvider {
	noRisk := market("m4", "NORISK", domain.MarketStateActive)
	noRisk.RiskModel = nil

	return &fakeProvider{
		markets: map[string]domain.Market{
			"m1": market("m1", "BBB", domain.MarketStateActive),
			"m2": market("m2", "AAA", domain.MarketStateActive),
			"m3": market("m3", "PENDING", "STATE_PENDING"),
			"m4": noRisk,
			"m5": market("m5", "EMPTY", domain.MarketStateActive),
		},
		data: map[string]domain.MarketData{
			"m1": data("m1", "100", "101", "90", "110"),
			"m2": data("m2", "100", "101", "100", "110"), // ventana degenerada para compras
			"m3": data("m3", "100", "101", "90", "110"),
			"m4": data("m4", "100", "101", "90", "110"),
			"m5": data("m5", "0", "0", "", ""),
		},
	}
}

func testConfig() Config {
	return Config{
		Interval: time.Minute,
		Ladder:   domain.Ladder{Levels: 3, StepFraction: 0.01},
		Model:    domain.ModelConfig{MinProbabilityOfTrading: 0.001, TauScaling: 1},
		DryRun:   true,
	}
}

// --- tests ---

func TestScorer_RunOnce_ActiveMarketsSorted(t *testing.T) {
	metrics := &fakeMetrics{}
	s := New(testConfig(), newProvider(), nil, &fakeNotifier{}, metrics)

	scores, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, scores, 2)

	// Ordenados por código; m3 (pendiente) excluido
	assert.Equal(t, "AAA", scores[0].Book.Label)
	assert.Equal(t, "BBB", scores[1].Book.Label)
	assert.Len(t, scores[1].Levels, 8)

	assert.Equal(t, "no_risk_model", metrics.skipped["m4"])
	assert.Equal(t, "empty_book", metrics.skipped["m5"])
}

func TestScorer_RunOnce_MatchesDomain(t *testing.T) {
	cfg := testConfig()
	cfg.MarketIDs = []string{"m1"}
	s := New(cfg, newProvider(), nil, &fakeNotifier{}, nil)

	scores, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, scores, 1)

	book := scores[0].Book
	for _, l := range scores[0].Levels {
		want := domain.ProbabilityOfTrading(book.Evaluate(l.Side, l.Price, cfg.Model))
		assert.Equal(t, want, l.Probability)
	}
}

func TestScorer_RunOnce_KeepsDegenerateLevels(t *testing.T) {
	cfg := testConfig()
	cfg.MarketIDs = []string{"m2"}
	s := New(cfg, newProvider(), nil, &fakeNotifier{}, nil)

	scores, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, scores, 1)

	assert.Equal(t, 1, scores[0].DegenerateCount())
	for _, l := range scores[0].Levels {
		if l.Side == domain.SideBuy && l.Level == 1 {
			assert.True(t, math.IsNaN(l.Probability))
		}
	}
}

func TestScorer_RunOnce_UnknownConfiguredMarket(t *testing.T) {
	cfg := testConfig()
	cfg.MarketIDs = []string{"nope", "m1"}
	metrics := &fakeMetrics{}
	s := New(cfg, newProvider(), nil, &fakeNotifier{}, metrics)

	scores, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "unknown_market", metrics.skipped["nope"])
}

func TestScorer_RunOnce_ListError(t *testing.T) {
	provider := newProvider()
	provider.listErr = errors.New("connection refused")
	s := New(testConfig(), provider, nil, &fakeNotifier{}, nil)

	_, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.listErr)
}

func TestScorer_RunOnce_InvalidLadder(t *testing.T) {
	cfg := testConfig()
	cfg.Ladder.Levels = 0
	provider := newProvider()
	s := New(cfg, provider, nil, &fakeNotifier{}, nil)

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidLadder)
	assert.Equal(t, 0, provider.calls)
}

func TestScorer_Run_DryRunNotifiesAndRecords(t *testing.T) {
	notifier := &fakeNotifier{}
	store := &fakeStorage{}
	metrics := &fakeMetrics{}
	s := New(testConfig(), newProvider(), store, notifier, metrics)

	require.NoError(t, s.Run(context.Background()))

	require.Len(t, notifier.got, 1)
	assert.Len(t, notifier.got[0], 2)

	require.Len(t, store.cycleIDs, 1)
	_, err := uuid.Parse(store.cycleIDs[0])
	assert.NoError(t, err)
	assert.Len(t, store.saved[0], 2)

	assert.Equal(t, 2, metrics.scores)
	assert.Equal(t, 1, metrics.cycles)
}

func TestScorer_Run_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.DryRun = false
	cfg.Interval = time.Hour
	s := New(cfg, newProvider(), nil, &fakeNotifier{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

// cancelingProvider cancela el contexto en mitad del ciclo, como un SIGINT.
type cancelingProvider struct {
	*fakeProvider
	cancel context.CancelFunc
}

func (p *cancelingProvider) LatestMarketData(ctx context.Context, id string) (domain.MarketData, error) {
	p.cancel()
	return p.fakeProvider.LatestMarketData(ctx, id)
}

func TestScorer_Run_CancelMidCycleIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := &fakeNotifier{}
	provider := &cancelingProvider{fakeProvider: newProvider(), cancel: cancel}
	s := New(testConfig(), provider, nil, notifier, nil)

	assert.NoError(t, s.Run(ctx))
	assert.Empty(t, notifier.got)
}

func TestScorer_RunOnce_CancelMidCycleReturnsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &cancelingProvider{fakeProvider: newProvider(), cancel: cancel}
	s := New(testConfig(), provider, nil, &fakeNotifier{}, nil)

	_, err := s.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScorer_Evaluate(t *testing.T) {
	s := New(testConfig(), newProvider(), nil, &fakeNotifier{}, nil)

	p, book, err := s.Evaluate(context.Background(), "m1", domain.SideBuy, 99)
	require.NoError(t, err)
	assert.Equal(t, 100.0, book.BestBid)
	assert.InDelta(t, 0.44466700122369623, p, 1e-9)

	p, _, err = s.Evaluate(context.Background(), "m1", domain.SideSell, 100.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)
}

func TestScorer_Evaluate_Errors(t *testing.T) {
	s := New(testConfig(), newProvider(), nil, &fakeNotifier{}, nil)

	_, _, err := s.Evaluate(context.Background(), "nope", domain.SideBuy, 99)
	assert.ErrorIs(t, err, ErrUnknownMarket)

	_, _, err = s.Evaluate(context.Background(), "m5", domain.SideBuy, 99)
	assert.ErrorIs(t, err, domain.ErrEmptyBook)
}

func TestSkipReason(t *testing.T) {
	assert.Equal(t, "empty_book", skipReason(domain.ErrEmptyBook))
	assert.Equal(t, "invalid_price", skipReason(domain.ErrNotNumeric))
	assert.Equal(t, "fetch_error", skipReason(errors.New("boom")))
}
