package domain

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultTauScaling se usa cuando la red no define un factor de escala para tau.
	DefaultTauScaling = 1.0

	// inSpreadProbability es la probabilidad asignada a precios dentro del spread.
	inSpreadProbability = 0.5
)

// RiskParams son los parámetros del modelo de riesgo log-normal del mercado.
type RiskParams struct {
	Mu    float64 // drift
	Tau   float64 // horizonte de proyección
	Sigma float64 // volatilidad
}

// EvaluationInput agrupa todo lo necesario para puntuar una orden.
// MinValidPrice y MaxValidPrice son nil si el mercado no tiene price monitoring.
type EvaluationInput struct {
	Side          Side
	Price         float64
	BestBidPrice  float64
	BestAskPrice  float64
	MinValidPrice *float64
	MaxValidPrice *float64
	Risk          RiskParams

	// MinProbabilityOfTrading es el parámetro de red que actúa como suelo.
	MinProbabilityOfTrading float64
	// TauScaling escala el horizonte tau. El valor cero significa "sin definir" y
	// se sustituye por DefaultTauScaling: un factor 0 explícito no es representable.
	TauScaling float64
}

// ProbabilityOfTrading estima la probabilidad de que la orden se ejecute.
//
// La probabilidad sigue la CDF de una log-normal acotada entre min_valid_price y
// el best bid (compras) o entre el best ask y max_valid_price (ventas),
// renormalizada a esa ventana y multiplicada por ½. Nunca devuelve menos que
// MinProbabilityOfTrading, salvo NaN cuando la ventana es degenerada (z = 0).
func ProbabilityOfTrading(in EvaluationInput) float64 {
	if in.Price > in.BestBidPrice && in.Price < in.BestAskPrice {
		return inSpreadProbability
	}
	if in.MinValidPrice == nil || in.MaxValidPrice == nil ||
		in.Price < *in.MinValidPrice || in.Price > *in.MaxValidPrice {
		return in.MinProbabilityOfTrading
	}

	var anchor, lower, upper float64
	if in.Side == SideBuy {
		anchor = in.BestBidPrice
		lower = *in.MinValidPrice
		upper = in.BestBidPrice
	} else {
		anchor = in.BestAskPrice
		lower = in.BestAskPrice
		upper = *in.MaxValidPrice
	}

	tauScaling := in.TauScaling
	if tauScaling == 0 {
		tauScaling = DefaultTauScaling
	}

	// Parametrización risk-neutral: ln(P_tau) ~ N(ln(anchor) + (mu - σ²/2)·tau, σ²·tau).
	dist := distuv.LogNormal{
		Mu:    math.Log(anchor) + (in.Risk.Mu-0.5*in.Risk.Sigma*in.Risk.Sigma)*in.Risk.Tau*tauScaling,
		Sigma: in.Risk.Sigma * math.Sqrt(in.Risk.Tau*tauScaling),
	}

	cdfLower := dist.CDF(lower)
	cdfUpper := dist.CDF(upper)
	z := cdfUpper - cdfLower

	var p float64
	if in.Side == SideBuy {
		p = 0.5 * (dist.CDF(in.Price) - cdfLower) / z
	} else {
		p = 0.5 * (cdfUpper - dist.CDF(in.Price)) / z
	}

	// NaN no es menor que nada: una ventana degenerada se propaga tal cual.
	if p < in.MinProbabilityOfTrading {
		return in.MinProbabilityOfTrading
	}
	return p
}

// CumulativeProbabilityOfTrading es un alias de ProbabilityOfTrading para los
// llamadores que usan el nombre acumulado.
func CumulativeProbabilityOfTrading(in EvaluationInput) float64 {
	return ProbabilityOfTrading(in)
}
