package domain

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotNumeric se devuelve cuando un entero con padding no es un entero válido.
var ErrNotNumeric = errors.New("not a numeric value")

// NumFromPaddedInt convierte un entero de punto fijo (v × 10^decimals) a float64.
// decimals negativo no se valida: la división pasa a ser una multiplicación.
func NumFromPaddedInt(v int64, decimals int) float64 {
	if v == 0 {
		return 0
	}
	return float64(v) / math.Pow10(decimals)
}

// NumFromPaddedString es NumFromPaddedInt para los enteros que el data node
// serializa como string. Acepta valores mayores que int64.
// "" y "0" devuelven 0 sin error.
func NumFromPaddedString(s string, decimals int) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0, fmt.Errorf("domain.NumFromPaddedString %q: %w", s, ErrNotNumeric)
	}
	if v.Sign() == 0 {
		return 0, nil
	}

	return decimal.NewFromBigInt(v, -int32(decimals)).InexactFloat64(), nil
}
