package metrics_test

import (
	"io"
	"math"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/vegavis/internal/adapters/metrics"
	"github.com/alejandrodnm/vegavis/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeScore() domain.MarketScore {
	return domain.MarketScore{
		Book: domain.BookSnapshot{MarketID: "m1", Label: "BTCUSD", BestBid: 100, BestAsk: 101},
		Levels: []domain.LevelScore{
			{Side: domain.SideBuy, Level: 1, Price: 100, Probability: 0.5},
			{Side: domain.SideSell, Level: 2, Price: 102, Probability: 0.37},
			{Side: domain.SideSell, Level: 3, Price: 103, Probability: math.NaN()},
		},
	}
}

func TestPrometheus_ObserveScore(t *testing.T) {
	p := metrics.NewPrometheus()
	p.ObserveScore(makeScore())

	assert.InDelta(t, 0.5, testutil.ToFloat64(p.Probability.WithLabelValues("m1", "BTCUSD", "BUY", "1")), 1e-12)
	assert.InDelta(t, 0.37, testutil.ToFloat64(p.Probability.WithLabelValues("m1", "BTCUSD", "SELL", "2")), 1e-12)
	assert.Equal(t, 100.0, testutil.ToFloat64(p.BestBid.WithLabelValues("m1", "BTCUSD")))
	assert.Equal(t, 101.0, testutil.ToFloat64(p.BestAsk.WithLabelValues("m1", "BTCUSD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Degenerate.WithLabelValues("m1", "BTCUSD")))

	// El nivel NaN no se publica como gauge
	assert.Equal(t, 2, testutil.CollectAndCount(p.Probability))
}

func TestPrometheus_ObserveScore_DegenerateRemovesStaleGauge(t *testing.T) {
	p := metrics.NewPrometheus()

	valid := makeScore()
	valid.Levels = []domain.LevelScore{{Side: domain.SideBuy, Level: 1, Price: 100, Probability: 0.4}}
	p.ObserveScore(valid)
	require.Equal(t, 1, testutil.CollectAndCount(p.Probability))

	collapsed := makeScore()
	collapsed.Levels = []domain.LevelScore{{Side: domain.SideBuy, Level: 1, Price: 100, Probability: math.NaN()}}
	p.ObserveScore(collapsed)

	assert.Equal(t, 0, testutil.CollectAndCount(p.Probability))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Degenerate.WithLabelValues("m1", "BTCUSD")))
}

func TestPrometheus_ObserveScore_SameCodeDifferentMarkets(t *testing.T) {
	p := metrics.NewPrometheus()

	a := makeScore()
	b := makeScore()
	b.Book.MarketID = "m2"
	b.Book.BestBid = 200
	p.ObserveScore(a)
	p.ObserveScore(b)

	assert.Equal(t, 100.0, testutil.ToFloat64(p.BestBid.WithLabelValues("m1", "BTCUSD")))
	assert.Equal(t, 200.0, testutil.ToFloat64(p.BestBid.WithLabelValues("m2", "BTCUSD")))
	assert.Equal(t, 4, testutil.CollectAndCount(p.Probability))
}

func TestPrometheus_ObserveSkippedAndCycle(t *testing.T) {
	p := metrics.NewPrometheus()
	p.ObserveSkipped("m9", "empty_book")
	p.ObserveSkipped("m9", "empty_book")
	p.ObserveCycle(3, 0.42)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.Skipped.WithLabelValues("m9", "empty_book")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Cycles))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.MarketsPerScan))
}

func TestPrometheus_Handler(t *testing.T) {
	p := metrics.NewPrometheus()
	p.ObserveCycle(1, 0.1)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "vegavis_cycles_total 1")
}
