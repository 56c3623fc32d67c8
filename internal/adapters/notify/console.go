package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/foliotrack/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el advice en el modo configurado.
func (c *Console) Notify(_ context.Context, advice domain.Advice) error {
	if len(advice.Result.Positions) == 0 {
		fmt.Fprintf(c.out, "[%s] no edges found in watchlist\n",
			advice.GeneratedAt.Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(advice)
	} else {
		c.printCompact(advice)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(advice domain.Advice) {
	now := advice.GeneratedAt.Format("15:04:05")
	res := advice.Result

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d positions | alloc %.1f%% | $%.2f of $%.2f",
		now, len(res.Positions), res.TotalAllocation*100,
		res.TotalDollarAmount, advice.Bankroll)
	if res.WasScaled {
		fmt.Fprintf(&sb, " | scaled x%.3f", res.ScaleFactor)
	}

	shown := 0
	for _, p := range res.Positions {
		if shown >= 4 {
			break
		}
		fmt.Fprintf(&sb, " | %s %s edge%+.1f%% $%.0f",
			p.Side, compactName(p.Question, 25), p.Edge*100, p.DollarAmount)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa de posiciones recomendadas.
func (c *Console) printFull(advice domain.Advice) {
	now := advice.GeneratedAt.Format("15:04:05")
	res := advice.Result

	fmt.Fprintf(c.out, "\n[%s] portfolio advice — %d positions, bankroll $%.2f\n",
		now, len(res.Positions), advice.Bankroll)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Side", "Edge", "Raw f", "Adj f", "Amount", "Capped")

	for i, p := range res.Positions {
		capped := ""
		if p.WasCapped {
			capped = "yes"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			marketLabel(p),
			string(p.Side),
			fmt.Sprintf("%+.1f%%", p.Edge*100),
			fmt.Sprintf("%.4f", p.RawKellyFraction),
			fmt.Sprintf("%.4f", p.AdjustedFraction),
			fmt.Sprintf("$%.2f", p.DollarAmount),
			capped,
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "  Total: %.1f%% of bankroll ($%.2f)",
		res.TotalAllocation*100, res.TotalDollarAmount)
	if res.WasScaled {
		fmt.Fprintf(c.out, " — scaled by %.3f to respect the portfolio cap", res.ScaleFactor)
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "  Raw f = fracción Kelly sin ajustar | Adj f = tras multiplier y caps")
}

// PrintDeletionReport imprime el resultado de procesar una solicitud de borrado.
func (c *Console) PrintDeletionReport(req domain.DeletionRequest, plan domain.DeletionPlan) {
	fmt.Fprintf(c.out, "\n[%s] deletion request %s — %s\n",
		time.Now().Format("15:04:05"), req.ID, req.Status)
	fmt.Fprintf(c.out, "  user: %s  type: %s\n", req.UserID, req.RequestType)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Step", "Required")
	for _, s := range plan.Steps {
		required := "yes"
		if !s.Required {
			required = "no"
		}
		table.Append(fmt.Sprintf("%d", s.Order), s.Name, required)
	}
	table.Render()

	fmt.Fprintf(c.out, "  attestations revoked: %d  offchain deleted: %v\n",
		req.AttestationsRevoked, req.OffchainDataDeleted)
	if req.CompletedAt != nil {
		fmt.Fprintf(c.out, "  completed at: %s\n", req.CompletedAt.Format(time.RFC3339))
	}
	fmt.Fprintln(c.out)
}

// --- helpers ---

func marketLabel(p domain.PortfolioPosition) string {
	if p.Question != "" {
		return truncate(p.Question, 38)
	}
	if len(p.MarketID) > 14 {
		return p.MarketID[:12] + "..."
	}
	return p.MarketID
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if s == "" {
		return "?"
	}
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
