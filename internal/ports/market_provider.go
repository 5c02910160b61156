package ports

import (
	"context"

	"github.com/alejandrodnm/vegavis/internal/domain"
)

// MarketProvider obtiene mercados y su último estado desde el data node.
type MarketProvider interface {
	// ListMarkets devuelve todos los mercados indexados por ID.
	ListMarkets(ctx context.Context) (map[string]domain.Market, error)

	// LatestMarketData devuelve el último market data de un mercado.
	LatestMarketData(ctx context.Context, marketID string) (domain.MarketData, error)
}
