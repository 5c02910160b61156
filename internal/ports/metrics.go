package ports

import "github.com/alejandrodnm/vegavis/internal/domain"

// Metrics recibe observaciones de cada ciclo.
type Metrics interface {
	ObserveScore(score domain.MarketScore)
	ObserveSkipped(marketID, reason string)
	ObserveCycle(markets int, seconds float64)
}
