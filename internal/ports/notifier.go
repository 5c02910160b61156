package ports

import (
	"context"

	"github.com/alejandrodnm/vegavis/internal/domain"
)

// Notifier presenta los ladders puntuados al usuario.
type Notifier interface {
	// Notify muestra las puntuaciones de un ciclo.
	// En la implementación de consola, imprime una tabla por mercado.
	Notify(ctx context.Context, scores []domain.MarketScore) error
}
