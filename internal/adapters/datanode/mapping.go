package datanode

import (
	"encoding/json"
	"fmt"

	"github.com/alejandrodnm/vegavis/internal/domain"
)

// mapMarket decodifica un nodo de mercado y conserva los bytes originales en Raw.
func mapMarket(raw json.RawMessage) (domain.Market, error) {
	var n marketNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return domain.Market{}, fmt.Errorf("decode market node: %w", err)
	}

	decimals, err := intOrZero(n.DecimalPlaces)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market %s decimalPlaces: %w", n.ID, err)
	}
	posDecimals, err := intOrZero(n.PositionDecimalPlaces)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market %s positionDecimalPlaces: %w", n.ID, err)
	}

	m := domain.Market{
		ID:                    n.ID,
		Code:                  n.TradableInstrument.Instrument.Code,
		Name:                  n.TradableInstrument.Instrument.Name,
		State:                 n.State,
		TradingMode:           n.TradingMode,
		DecimalPlaces:         decimals,
		PositionDecimalPlaces: posDecimals,
		Raw:                   raw,
	}

	if rm := n.TradableInstrument.LogNormalRiskModel; rm != nil {
		riskModel, err := mapRiskModel(*rm)
		if err != nil {
			return domain.Market{}, fmt.Errorf("market %s risk model: %w", n.ID, err)
		}
		m.RiskModel = &riskModel
	}

	return m, nil
}

// mapOpaqueMarket solo extrae el ID de un nodo que mapMarket no pudo decodificar.
// El resto queda en Raw y RiskModel es nil, así que el scorer lo salta.
func mapOpaqueMarket(raw json.RawMessage) (domain.Market, error) {
	var n struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &n); err != nil {
		return domain.Market{}, fmt.Errorf("decode market node id: %w", err)
	}
	return domain.Market{ID: n.ID, Raw: raw}, nil
}

// mapRiskModel convierte el modelo log-normal del instrumento.
func mapRiskModel(rm logNormalRiskModel) (domain.LogNormalRiskModel, error) {
	var out domain.LogNormalRiskModel
	fields := []struct {
		name string
		src  json.Number
		dst  *float64
	}{
		{"riskAversionParameter", rm.RiskAversionParameter, &out.RiskAversionParameter},
		{"tau", rm.Tau, &out.Tau},
		{"mu", rm.Params.Mu, &out.Params.Mu},
		{"r", rm.Params.R, &out.Params.R},
		{"sigma", rm.Params.Sigma, &out.Params.Sigma},
	}
	for _, f := range fields {
		v, err := floatOrZero(f.src)
		if err != nil {
			return domain.LogNormalRiskModel{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return out, nil
}

// mapMarketData decodifica el objeto marketData y conserva los bytes originales.
func mapMarketData(raw json.RawMessage) (domain.MarketData, error) {
	var d marketData
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.MarketData{}, fmt.Errorf("decode market data: %w", err)
	}

	bounds := make([]domain.PriceMonitoringBound, 0, len(d.PriceMonitoringBounds))
	for _, b := range d.PriceMonitoringBounds {
		bounds = append(bounds, domain.PriceMonitoringBound{
			MinValidPrice:  b.MinValidPrice,
			MaxValidPrice:  b.MaxValidPrice,
			ReferencePrice: b.ReferencePrice,
		})
	}

	return domain.MarketData{
		MarketID:              d.Market,
		MarkPrice:             d.MarkPrice,
		BestBidPrice:          d.BestBidPrice,
		BestOfferPrice:        d.BestOfferPrice,
		MidPrice:              d.MidPrice,
		TradingMode:           d.MarketTradingMode,
		PriceMonitoringBounds: bounds,
		Raw:                   raw,
	}, nil
}

// floatOrZero trata los campos omitidos (valor por defecto en el gateway) como 0.
func floatOrZero(n json.Number) (float64, error) {
	if n == "" {
		return 0, nil
	}
	return n.Float64()
}

func intOrZero(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	v, err := n.Int64()
	return int(v), err
}
