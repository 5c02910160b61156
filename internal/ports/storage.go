package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/vegavis/internal/domain"
)

// Storage registra los ladders de cada ciclo para consultarlos después.
type Storage interface {
	// SaveCycle persiste las puntuaciones de un ciclo identificado por cycleID.
	SaveCycle(ctx context.Context, cycleID string, scores []domain.MarketScore) error

	// GetHistory devuelve los niveles de un mercado registrados en el rango dado.
	GetHistory(ctx context.Context, marketID string, from, to time.Time) ([]domain.LevelScore, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
