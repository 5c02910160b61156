package scorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/vegavis/internal/domain"
	"github.com/alejandrodnm/vegavis/internal/ports"
	"github.com/google/uuid"
)

// ErrUnknownMarket indica que el ID pedido no está en el listado del data node.
var ErrUnknownMarket = errors.New("unknown market")

// Config contiene la configuración del scorer.
type Config struct {
	Interval  time.Duration
	Ladder    domain.Ladder
	Model     domain.ModelConfig
	MarketIDs []string // vacío = todos los mercados activos
	DryRun    bool     // un solo ciclo
}

// Scorer es el orquestador: fetch → snapshot → ladder → notify/record.
// Procesa los mercados de uno en uno.
type Scorer struct {
	cfg      Config
	markets  ports.MarketProvider
	storage  ports.Storage // opcional
	notifier ports.Notifier
	metrics  ports.Metrics // opcional

	previousDegenerate map[string]bool // mercados con ventana degenerada en el ciclo anterior
}

// New crea un Scorer con todas las dependencias inyectadas.
// storage y metrics pueden ser nil.
func New(
	cfg Config,
	markets ports.MarketProvider,
	storage ports.Storage,
	notifier ports.Notifier,
	metrics ports.Metrics,
) *Scorer {
	return &Scorer{
		cfg:                cfg,
		markets:            markets,
		storage:            storage,
		notifier:           notifier,
		metrics:            metrics,
		previousDegenerate: make(map[string]bool),
	}
}

// Run ejecuta el loop hasta que el contexto se cancele.
// Si cfg.DryRun está activo, solo ejecuta un ciclo.
func (s *Scorer) Run(ctx context.Context) error {
	slog.Info("scorer starting",
		"interval", s.cfg.Interval,
		"dry_run", s.cfg.DryRun,
		"levels", s.cfg.Ladder.Levels,
		"step", s.cfg.Ladder.StepFraction,
	)

	if err := s.runCycle(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("scorer stopped")
			return nil
		}
		slog.Error("scoring cycle failed", "err", err)
		if s.cfg.DryRun {
			return err
		}
	}

	if s.cfg.DryRun {
		return nil
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scorer stopped")
			return nil
		case <-ticker.C:
			err := s.runCycle(ctx)
			if errors.Is(err, context.Canceled) {
				slog.Info("scorer stopped")
				return nil
			}
			if err != nil {
				slog.Error("scoring cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve las puntuaciones, sin notificar.
func (s *Scorer) RunOnce(ctx context.Context) ([]domain.MarketScore, error) {
	return s.cycle(ctx)
}

// Evaluate calcula la probabilidad de trading de una orden concreta en un mercado.
func (s *Scorer) Evaluate(ctx context.Context, marketID string, side domain.Side, price float64) (float64, domain.BookSnapshot, error) {
	markets, err := s.markets.ListMarkets(ctx)
	if err != nil {
		return 0, domain.BookSnapshot{}, fmt.Errorf("scorer.Evaluate: list markets: %w", err)
	}
	m, ok := markets[marketID]
	if !ok {
		return 0, domain.BookSnapshot{}, fmt.Errorf("scorer.Evaluate %s: %w", marketID, ErrUnknownMarket)
	}

	book, err := s.snapshot(ctx, m)
	if err != nil {
		return 0, domain.BookSnapshot{}, fmt.Errorf("scorer.Evaluate: %w", err)
	}

	p := domain.ProbabilityOfTrading(book.Evaluate(side, price, s.cfg.Model))
	return p, book, nil
}

// runCycle ejecuta un ciclo completo y notifica/persiste los resultados.
func (s *Scorer) runCycle(ctx context.Context) error {
	start := time.Now()

	scores, err := s.cycle(ctx)
	if err != nil {
		return err
	}

	s.emitDegenerateAlerts(scores)

	if err := s.notifier.Notify(ctx, scores); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	cycleID := uuid.NewString()
	if s.storage != nil {
		if err := s.storage.SaveCycle(ctx, cycleID, scores); err != nil {
			slog.Warn("storage error", "err", err, "cycle_id", cycleID)
		}
	}

	if s.metrics != nil {
		for _, ms := range scores {
			s.metrics.ObserveScore(ms)
		}
		s.metrics.ObserveCycle(len(scores), time.Since(start).Seconds())
	}

	slog.Info("scoring cycle complete",
		"cycle_id", cycleID,
		"markets", len(scores),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// cycle hace list → (latest data → snapshot → ladder) por mercado.
// Los mercados que no se pueden evaluar se registran y se saltan.
func (s *Scorer) cycle(ctx context.Context) ([]domain.MarketScore, error) {
	if err := s.cfg.Ladder.Validate(); err != nil {
		return nil, fmt.Errorf("scorer.cycle: %w", err)
	}

	all, err := s.markets.ListMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("scorer.cycle: list markets: %w", err)
	}

	selected := s.selectMarkets(all)
	scores := make([]domain.MarketScore, 0, len(selected))

	for _, m := range selected {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scorer.cycle: %w", err)
		}

		book, err := s.snapshot(ctx, m)
		if err != nil {
			s.skip(m.ID, err)
			continue
		}

		scores = append(scores, domain.MarketScore{
			Book:     book,
			Levels:   domain.ScoreLadder(book, s.cfg.Ladder, s.cfg.Model),
			ScoredAt: time.Now().UTC(),
		})
	}

	return scores, nil
}

// snapshot obtiene el último market data y lo combina con la metadata.
func (s *Scorer) snapshot(ctx context.Context, m domain.Market) (domain.BookSnapshot, error) {
	data, err := s.markets.LatestMarketData(ctx, m.ID)
	if err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("latest market data: %w", err)
	}
	return domain.NewBookSnapshot(m, data)
}

// selectMarkets devuelve los mercados configurados, o todos los activos,
// ordenados por código para un output estable.
func (s *Scorer) selectMarkets(all map[string]domain.Market) []domain.Market {
	var selected []domain.Market

	if len(s.cfg.MarketIDs) > 0 {
		for _, id := range s.cfg.MarketIDs {
			m, ok := all[id]
			if !ok {
				s.skip(id, ErrUnknownMarket)
				continue
			}
			selected = append(selected, m)
		}
		return selected
	}

	for _, m := range all {
		if m.IsActive() {
			selected = append(selected, m)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		if selected[i].Code == selected[j].Code {
			return selected[i].ID < selected[j].ID
		}
		return selected[i].Code < selected[j].Code
	})
	return selected
}

// skip registra un mercado que no se pudo evaluar.
func (s *Scorer) skip(marketID string, err error) {
	reason := skipReason(err)
	slog.Debug("market skipped", "market_id", marketID, "reason", reason, "err", err)
	if s.metrics != nil {
		s.metrics.ObserveSkipped(marketID, reason)
	}
}

// emitDegenerateAlerts avisa de mercados cuya ventana de precios válidos pasó a
// no tener masa (z = 0) respecto al ciclo anterior.
func (s *Scorer) emitDegenerateAlerts(scores []domain.MarketScore) {
	current := make(map[string]bool)
	for _, ms := range scores {
		n := ms.DegenerateCount()
		if n == 0 {
			continue
		}
		current[ms.Book.MarketID] = true
		if s.previousDegenerate[ms.Book.MarketID] {
			continue // ya conocido
		}
		slog.Warn("degenerate valid-price window",
			"market", ms.Book.Label,
			"market_id", ms.Book.MarketID,
			"levels", n,
			"best_bid", ms.Book.BestBid,
			"best_ask", ms.Book.BestAsk,
		)
	}
	s.previousDegenerate = current
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyBook):
		return "empty_book"
	case errors.Is(err, domain.ErrNoRiskModel):
		return "no_risk_model"
	case errors.Is(err, domain.ErrNotNumeric):
		return "invalid_price"
	case errors.Is(err, ErrUnknownMarket):
		return "unknown_market"
	default:
		return "fetch_error"
	}
}
