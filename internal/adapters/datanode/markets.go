package datanode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/vegavis/internal/domain"
)

const (
	marketsPath        = "/markets"
	latestMarketFormat = "/market/data/%s/latest"
)

// ErrMissingField indica que la respuesta no trae la clave esperada.
var ErrMissingField = errors.New("response is missing expected field")

// ListMarkets devuelve los mercados del data node indexados por ID.
// Cada domain.Market lleva en Raw el nodo JSON sin modificar.
func (c *Client) ListMarkets(ctx context.Context) (map[string]domain.Market, error) {
	var resp marketsResponse
	if err := c.get(ctx, marketsPath, &resp); err != nil {
		return nil, fmt.Errorf("datanode.ListMarkets: %w", err)
	}
	if resp.Markets == nil {
		return nil, fmt.Errorf("datanode.ListMarkets: %w: markets", ErrMissingField)
	}

	markets := make(map[string]domain.Market, len(resp.Markets.Edges))
	for _, edge := range resp.Markets.Edges {
		m, err := mapMarket(edge.Node)
		if err != nil {
			// El nodo es metadata opaca: se conserva aunque algún campo tipado no decodifique.
			opaque, idErr := mapOpaqueMarket(edge.Node)
			if idErr != nil {
				return nil, fmt.Errorf("datanode.ListMarkets: %w", idErr)
			}
			slog.Debug("market node kept without typed fields", "market_id", opaque.ID, "err", err)
			m = opaque
		}
		markets[m.ID] = m
	}

	slog.Debug("markets fetched", "count", len(markets))
	return markets, nil
}

// LatestMarketData devuelve el último marketData del mercado dado.
func (c *Client) LatestMarketData(ctx context.Context, marketID string) (domain.MarketData, error) {
	var resp marketDataResponse
	path := fmt.Sprintf(latestMarketFormat, url.PathEscape(marketID))
	if err := c.get(ctx, path, &resp); err != nil {
		return domain.MarketData{}, fmt.Errorf("datanode.LatestMarketData %s: %w", marketID, err)
	}
	if len(resp.MarketData) == 0 || bytes.Equal(resp.MarketData, []byte("null")) {
		return domain.MarketData{}, fmt.Errorf("datanode.LatestMarketData %s: %w: marketData", marketID, ErrMissingField)
	}

	data, err := mapMarketData(resp.MarketData)
	if err != nil {
		return domain.MarketData{}, fmt.Errorf("datanode.LatestMarketData %s: %w", marketID, err)
	}
	return data, nil
}
