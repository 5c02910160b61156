package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRiskModel indica que el mercado no usa un modelo log-normal.
	ErrNoRiskModel = errors.New("market has no log-normal risk model")
	// ErrEmptyBook indica que falta best bid o best ask.
	ErrEmptyBook = errors.New("order book has no best bid or best ask")
)

// BookSnapshot es el top of book de un mercado, en unidades de precio (float),
// junto con los parámetros de riesgo necesarios para evaluarlo.
type BookSnapshot struct {
	MarketID      string
	Label         string
	BestBid       float64
	BestAsk       float64
	MinValidPrice *float64 // nil si no hay price monitoring
	MaxValidPrice *float64
	Risk          RiskParams
}

// NewBookSnapshot combina la metadata del mercado con su último market data.
func NewBookSnapshot(m Market, d MarketData) (BookSnapshot, error) {
	if m.RiskModel == nil {
		return BookSnapshot{}, fmt.Errorf("domain.NewBookSnapshot %s: %w", m.ID, ErrNoRiskModel)
	}

	bid, err := NumFromPaddedString(d.BestBidPrice, m.DecimalPlaces)
	if err != nil {
		return BookSnapshot{}, fmt.Errorf("domain.NewBookSnapshot %s: best bid: %w", m.ID, err)
	}
	ask, err := NumFromPaddedString(d.BestOfferPrice, m.DecimalPlaces)
	if err != nil {
		return BookSnapshot{}, fmt.Errorf("domain.NewBookSnapshot %s: best offer: %w", m.ID, err)
	}
	if bid <= 0 || ask <= 0 {
		return BookSnapshot{}, fmt.Errorf("domain.NewBookSnapshot %s: %w", m.ID, ErrEmptyBook)
	}

	lo, hi, err := d.ValidPriceRange(m.DecimalPlaces)
	if err != nil {
		return BookSnapshot{}, fmt.Errorf("domain.NewBookSnapshot %s: %w", m.ID, err)
	}

	return BookSnapshot{
		MarketID:      m.ID,
		Label:         m.Label(),
		BestBid:       bid,
		BestAsk:       ask,
		MinValidPrice: lo,
		MaxValidPrice: hi,
		Risk:          m.RiskModel.RiskParams(),
	}, nil
}

// Midpoint devuelve el punto medio entre best bid y best ask.
func (b BookSnapshot) Midpoint() float64 {
	return (b.BestBid + b.BestAsk) / 2
}

// Spread devuelve el spread del book (ask - bid).
func (b BookSnapshot) Spread() float64 {
	return b.BestAsk - b.BestBid
}

// HasBounds devuelve true si hay un rango de precios válidos.
func (b BookSnapshot) HasBounds() bool {
	return b.MinValidPrice != nil && b.MaxValidPrice != nil
}

// Evaluate construye el EvaluationInput para una orden a price en este book.
func (b BookSnapshot) Evaluate(side Side, price float64, model ModelConfig) EvaluationInput {
	return EvaluationInput{
		Side:                    side,
		Price:                   price,
		BestBidPrice:            b.BestBid,
		BestAskPrice:            b.BestAsk,
		MinValidPrice:           b.MinValidPrice,
		MaxValidPrice:           b.MaxValidPrice,
		Risk:                    b.Risk,
		MinProbabilityOfTrading: model.MinProbabilityOfTrading,
		TauScaling:              model.TauScaling,
	}
}
