package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidLadder indica una configuración de ladder inutilizable.
var ErrInvalidLadder = errors.New("invalid ladder")

// ModelConfig son los parámetros de red que afectan a la probabilidad de trading.
type ModelConfig struct {
	MinProbabilityOfTrading float64
	TauScaling              float64 // 0 = DefaultTauScaling (un 0 explícito no es representable)
}

// Ladder define los precios candidatos a puntuar a cada lado del book.
//
// El nivel 0 es el mid (dentro del spread). El nivel 1 es el touch (best bid
// para compras, best ask para ventas) y cada nivel siguiente se aleja del
// touch StepFraction × touch.
type Ladder struct {
	Levels       int
	StepFraction float64
}

// Validate comprueba que el ladder genere precios positivos y distintos.
func (l Ladder) Validate() error {
	if l.Levels < 1 {
		return fmt.Errorf("%w: levels must be >= 1, got %d", ErrInvalidLadder, l.Levels)
	}
	if l.StepFraction <= 0 || l.StepFraction >= 1 {
		return fmt.Errorf("%w: step fraction must be in (0, 1), got %g", ErrInvalidLadder, l.StepFraction)
	}
	return nil
}

// Prices devuelve los Levels+1 precios candidatos para side, empezando por el mid.
func (l Ladder) Prices(side Side, b BookSnapshot) []float64 {
	prices := make([]float64, 0, l.Levels+1)
	prices = append(prices, b.Midpoint())

	for k := 0; k < l.Levels; k++ {
		offset := float64(k) * l.StepFraction
		if side == SideBuy {
			prices = append(prices, b.BestBid*(1-offset))
		} else {
			prices = append(prices, b.BestAsk*(1+offset))
		}
	}
	return prices
}

// LevelScore es la probabilidad de trading de un precio candidato.
type LevelScore struct {
	Side        Side
	Level       int
	Price       float64
	Probability float64
}

// Degenerate devuelve true si la ventana de precios válidos no tiene masa (z = 0).
func (s LevelScore) Degenerate() bool {
	return math.IsNaN(s.Probability)
}

// MarketScore es el resultado de puntuar el ladder completo de un mercado.
type MarketScore struct {
	Book     BookSnapshot
	Levels   []LevelScore // compras primero, luego ventas; cada lado por nivel
	ScoredAt time.Time
}

// BestLevel devuelve el nivel más alejado del touch cuya probabilidad supera
// threshold, para el lado dado. ok=false si ninguno lo supera.
func (ms MarketScore) BestLevel(side Side, threshold float64) (LevelScore, bool) {
	var best LevelScore
	found := false
	for _, s := range ms.Levels {
		if s.Side != side || s.Level == 0 || s.Degenerate() {
			continue
		}
		if s.Probability >= threshold && (!found || s.Level > best.Level) {
			best = s
			found = true
		}
	}
	return best, found
}

// DegenerateCount devuelve cuántos niveles dieron NaN.
func (ms MarketScore) DegenerateCount() int {
	n := 0
	for _, s := range ms.Levels {
		if s.Degenerate() {
			n++
		}
	}
	return n
}

// ScoreLadder puntúa todos los precios del ladder a ambos lados del book.
func ScoreLadder(b BookSnapshot, l Ladder, model ModelConfig) []LevelScore {
	scores := make([]LevelScore, 0, 2*(l.Levels+1))
	for _, side := range []Side{SideBuy, SideSell} {
		for level, price := range l.Prices(side, b) {
			scores = append(scores, LevelScore{
				Side:        side,
				Level:       level,
				Price:       price,
				Probability: ProbabilityOfTrading(b.Evaluate(side, price, model)),
			})
		}
	}
	return scores
}
