package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSide se devuelve cuando un string no corresponde a ningún lado.
var ErrUnknownSide = errors.New("unknown side")

// Side es el lado de una orden: compra o venta.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

// String devuelve el nombre que usa el data node.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "SIDE_BUY"
	case SideSell:
		return "SIDE_SELL"
	default:
		return "SIDE_UNSPECIFIED"
	}
}

// Short devuelve la etiqueta corta para tablas.
func (s Side) Short() string {
	if s == SideBuy {
		return "BUY"
	}
	return "SELL"
}

// ParseSide acepta "buy", "sell", "SIDE_BUY" o "SIDE_SELL" (sin distinguir mayúsculas).
func ParseSide(v string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "BUY", "SIDE_BUY":
		return SideBuy, nil
	case "SELL", "SIDE_SELL":
		return SideSell, nil
	}
	return 0, fmt.Errorf("domain.ParseSide %q: %w", v, ErrUnknownSide)
}
