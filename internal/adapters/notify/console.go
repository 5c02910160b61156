package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/vegavis/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out       io.Writer
	threshold float64 // probabilidad mínima para el resumen compacto
	table     bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(threshold float64, table bool) *Console {
	return &Console{out: os.Stdout, threshold: threshold, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, threshold float64, table bool) *Console {
	return &Console{out: w, threshold: threshold, table: table}
}

// Notify imprime el output en el modo configurado.
func (c *Console) Notify(_ context.Context, scores []domain.MarketScore) error {
	if len(scores) == 0 {
		fmt.Fprintf(c.out, "[%s] no markets scored\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		for _, ms := range scores {
			c.printLadder(ms)
		}
		return nil
	}
	c.printCompact(scores)
	return nil
}

// printCompact imprime una línea por mercado: el nivel más alejado del touch
// que sigue por encima del umbral, a cada lado.
func (c *Console) printCompact(scores []domain.MarketScore) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] %d mkts (PoT >= %.2f)\n", now, len(scores), c.threshold)

	for _, ms := range scores {
		var sb strings.Builder
		fmt.Fprintf(&sb, "  %-22s bid %s ask %s",
			truncate(ms.Book.Label, 22), fmtPrice(ms.Book.BestBid), fmtPrice(ms.Book.BestAsk))

		for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
			if best, ok := ms.BestLevel(side, c.threshold); ok {
				fmt.Fprintf(&sb, " | %s L%d @%s p=%s",
					side.Short(), best.Level, fmtPrice(best.Price), fmtProb(best.Probability))
			} else {
				fmt.Fprintf(&sb, " | %s -", side.Short())
			}
		}
		if n := ms.DegenerateCount(); n > 0 {
			fmt.Fprintf(&sb, " | degenerate:%d", n)
		}
		fmt.Fprintln(c.out, sb.String())
	}
}

// printLadder imprime la tabla completa de un mercado, compras y ventas lado a lado.
func (c *Console) printLadder(ms domain.MarketScore) {
	b := ms.Book
	fmt.Fprintf(c.out, "\n%s  bid %s  ask %s  spread %s  bounds %s\n",
		b.Label, fmtPrice(b.BestBid), fmtPrice(b.BestAsk), fmtPrice(b.Spread()), boundsLabel(b))

	buys, sells := splitSides(ms.Levels)

	table := tablewriter.NewWriter(c.out)
	table.Header("Lvl", "Buy px", "Buy PoT", "Sell px", "Sell PoT")

	rows := max(len(buys), len(sells))
	for i := 0; i < rows; i++ {
		row := []string{fmt.Sprintf("%d", i), "", "", "", ""}
		if i < len(buys) {
			row[1], row[2] = fmtPrice(buys[i].Price), fmtProb(buys[i].Probability)
		}
		if i < len(sells) {
			row[3], row[4] = fmtPrice(sells[i].Price), fmtProb(sells[i].Probability)
		}
		if i == 0 {
			row[0] = "mid"
		}
		table.Append(row[0], row[1], row[2], row[3], row[4])
	}

	table.Render()
}

// PrintMarkets imprime el listado de mercados ordenado por código.
func (c *Console) PrintMarkets(markets map[string]domain.Market) {
	list := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Code == list[j].Code {
			return list[i].ID < list[j].ID
		}
		return list[i].Code < list[j].Code
	})

	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Code", "State", "Mode", "Dec", "Sigma", "Tau")

	for _, m := range list {
		sigma, tau := "-", "-"
		if m.RiskModel != nil {
			sigma = fmt.Sprintf("%.4g", m.RiskModel.Params.Sigma)
			tau = fmt.Sprintf("%.4g", m.RiskModel.Tau)
		}
		table.Append(
			m.ID,
			m.Code,
			strings.TrimPrefix(m.State, "STATE_"),
			strings.TrimPrefix(m.TradingMode, "TRADING_MODE_"),
			fmt.Sprintf("%d", m.DecimalPlaces),
			sigma,
			tau,
		)
	}

	table.Render()
	fmt.Fprintf(c.out, "  %d markets\n", len(list))
}

// PrintHistory resume los niveles registrados de un mercado: por lado y nivel,
// muestras, mínimo, media y máximo de la probabilidad, y ventanas degeneradas.
func (c *Console) PrintHistory(marketID string, levels []domain.LevelScore, cycles int) {
	fmt.Fprintf(c.out, "\n%s  %d levels recorded (%d cycles in db)\n", marketID, len(levels), cycles)
	if len(levels) == 0 {
		return
	}

	type key struct {
		side  domain.Side
		level int
	}
	type agg struct {
		n, nan        int
		min, max, sum float64
	}
	stats := make(map[key]*agg)
	var keys []key
	for _, l := range levels {
		k := key{l.Side, l.Level}
		a, ok := stats[k]
		if !ok {
			a = &agg{min: math.Inf(1), max: math.Inf(-1)}
			stats[k] = a
			keys = append(keys, k)
		}
		if l.Degenerate() {
			a.nan++
			continue
		}
		a.n++
		a.sum += l.Probability
		a.min = math.Min(a.min, l.Probability)
		a.max = math.Max(a.max, l.Probability)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].side == keys[j].side {
			return keys[i].level < keys[j].level
		}
		return keys[i].side < keys[j].side
	})

	table := tablewriter.NewWriter(c.out)
	table.Header("Side", "Lvl", "Samples", "Min PoT", "Mean PoT", "Max PoT", "NaN")
	for _, k := range keys {
		a := stats[k]
		minP, meanP, maxP := "-", "-", "-"
		if a.n > 0 {
			minP, meanP, maxP = fmtProb(a.min), fmtProb(a.sum/float64(a.n)), fmtProb(a.max)
		}
		table.Append(
			k.side.Short(),
			fmt.Sprintf("%d", k.level),
			fmt.Sprintf("%d", a.n),
			minP,
			meanP,
			maxP,
			fmt.Sprintf("%d", a.nan),
		)
	}
	table.Render()
}

// --- helpers ---

func splitSides(levels []domain.LevelScore) (buys, sells []domain.LevelScore) {
	for _, l := range levels {
		if l.Side == domain.SideBuy {
			buys = append(buys, l)
		} else {
			sells = append(sells, l)
		}
	}
	return
}

func boundsLabel(b domain.BookSnapshot) string {
	if !b.HasBounds() {
		return "none"
	}
	return fmt.Sprintf("[%s, %s]", fmtPrice(*b.MinValidPrice), fmtPrice(*b.MaxValidPrice))
}

func fmtPrice(p float64) string {
	return fmt.Sprintf("%.5g", p)
}

func fmtProb(p float64) string {
	switch {
	case math.IsNaN(p):
		return "NaN"
	case p != 0 && p < 0.0001:
		return fmt.Sprintf("%.2e", p)
	default:
		return fmt.Sprintf("%.4f", p)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
