package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const (
	MarketStateActive        = "STATE_ACTIVE"
	TradingModeContinuous    = "TRADING_MODE_CONTINUOUS"
	TradingModeMonitoringAuc = "TRADING_MODE_MONITORING_AUCTION"
)

// Market es un mercado listado en el data node.
type Market struct {
	ID                    string
	Code                  string // código del instrumento, p.ej. "BTCUSD.MF21"
	Name                  string
	State                 string // "STATE_ACTIVE", "STATE_SUSPENDED", ...
	TradingMode           string
	DecimalPlaces         int // decimales de los precios del mercado
	PositionDecimalPlaces int
	RiskModel             *LogNormalRiskModel // nil si el mercado usa otro modelo

	// Raw es el nodo JSON tal y como lo devolvió la API.
	Raw json.RawMessage
}

// LogNormalRiskModel es el modelo de riesgo configurado en el instrumento.
type LogNormalRiskModel struct {
	RiskAversionParameter float64
	Tau                   float64
	Params                LogNormalParams
}

// LogNormalParams son los parámetros del proceso de precios.
type LogNormalParams struct {
	Mu    float64
	R     float64
	Sigma float64
}

// RiskParams devuelve los parámetros que usa ProbabilityOfTrading.
func (m LogNormalRiskModel) RiskParams() RiskParams {
	return RiskParams{Mu: m.Params.Mu, Tau: m.Tau, Sigma: m.Params.Sigma}
}

// IsActive devuelve true si el mercado está abierto a trading.
func (m Market) IsActive() bool {
	return m.State == MarketStateActive
}

// Label devuelve el código del instrumento, o el ID truncado si no hay código.
func (m Market) Label() string {
	if m.Code != "" {
		return m.Code
	}
	if len(m.ID) > 12 {
		return m.ID[:12] + "..."
	}
	return m.ID
}

// MarketData es el último estado de mercado devuelto por el data node.
// Los precios vienen como enteros con padding (ver NumFromPaddedString).
type MarketData struct {
	MarketID              string
	MarkPrice             string
	BestBidPrice          string
	BestOfferPrice        string
	MidPrice              string
	TradingMode           string
	PriceMonitoringBounds []PriceMonitoringBound

	// Raw es el objeto "marketData" sin modificar.
	Raw json.RawMessage
}

// PriceMonitoringBound es un rango de precios válidos para un trigger de monitoring.
type PriceMonitoringBound struct {
	MinValidPrice  string
	MaxValidPrice  string
	ReferencePrice string
}

// ValidPriceRange devuelve la intersección de todos los bounds (el mayor mínimo y
// el menor máximo) ya escalada con decimals. Un bound con algún extremo vacío
// se ignora. Devuelve nil, nil si no queda ningún bound completo.
func (d MarketData) ValidPriceRange(decimals int) (*float64, *float64, error) {
	lo, hi := math.Inf(-1), math.Inf(1)
	found := false
	for i, b := range d.PriceMonitoringBounds {
		if strings.TrimSpace(b.MinValidPrice) == "" || strings.TrimSpace(b.MaxValidPrice) == "" {
			continue
		}
		minValid, err := NumFromPaddedString(b.MinValidPrice, decimals)
		if err != nil {
			return nil, nil, fmt.Errorf("bound %d min: %w", i, err)
		}
		maxValid, err := NumFromPaddedString(b.MaxValidPrice, decimals)
		if err != nil {
			return nil, nil, fmt.Errorf("bound %d max: %w", i, err)
		}
		lo = math.Max(lo, minValid)
		hi = math.Min(hi, maxValid)
		found = true
	}
	if !found {
		return nil, nil, nil
	}
	return &lo, &hi, nil
}
