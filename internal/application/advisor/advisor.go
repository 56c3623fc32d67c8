// Package advisor orquesta el loop de sizing: fetch de mercados, cálculo
// Kelly del portfolio, notificación y persistencia del snapshot.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/foliotrack/internal/domain"
	"github.com/alejandrodnm/foliotrack/internal/ports"
)

// Config contiene la configuración del advisor.
type Config struct {
	Interval           time.Duration
	BankrollUSDC       float64
	FractionMultiplier float64
	MaxPositionSize    float64
	RunOnceMode        bool // un solo ciclo y salir
}

// WatchEntry es un mercado seguido con la estimación del usuario.
type WatchEntry struct {
	ConditionID          string
	EstimatedProbability float64
}

// Advisor es el orquestador del loop de advice.
type Advisor struct {
	cfg       Config
	watchlist []WatchEntry
	markets   ports.MarketProvider
	store     ports.AdviceStore
	notifier  ports.Notifier
	now       func() time.Time
}

// New crea un Advisor con todas las dependencias inyectadas.
func New(
	cfg Config,
	watchlist []WatchEntry,
	markets ports.MarketProvider,
	store ports.AdviceStore,
	notifier ports.Notifier,
) *Advisor {
	return &Advisor{
		cfg:       cfg,
		watchlist: watchlist,
		markets:   markets,
		store:     store,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Run ejecuta el loop de advice hasta que el contexto se cancele.
// Si cfg.RunOnceMode está activo, solo ejecuta un ciclo.
func (a *Advisor) Run(ctx context.Context) error {
	slog.Info("advisor starting",
		"interval", a.cfg.Interval,
		"watchlist", len(a.watchlist),
		"bankroll", a.cfg.BankrollUSDC,
		"once", a.cfg.RunOnceMode,
	)

	if err := a.runCycle(ctx); err != nil {
		slog.Error("advice cycle failed", "err", err)
		if a.cfg.RunOnceMode {
			return err
		}
	}

	if a.cfg.RunOnceMode {
		return nil
	}

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("advisor stopped")
			return nil
		case <-ticker.C:
			if err := a.runCycle(ctx); err != nil {
				slog.Error("advice cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve el advice calculado.
func (a *Advisor) RunOnce(ctx context.Context) (domain.Advice, error) {
	return a.cycle(ctx)
}

// runCycle ejecuta un ciclo completo y notifica/persiste el resultado.
func (a *Advisor) runCycle(ctx context.Context) error {
	start := time.Now()

	advice, err := a.cycle(ctx)
	if err != nil {
		return err
	}

	if err := a.notifier.Notify(ctx, advice); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if a.store != nil {
		if err := a.store.SaveAdvice(ctx, advice); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	slog.Info("advice cycle complete",
		"positions", len(advice.Result.Positions),
		"allocation", fmt.Sprintf("%.1f%%", advice.Result.TotalAllocation*100),
		"scaled", advice.Result.WasScaled,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// cycle hace fetch → join con la watchlist → sizing y devuelve el advice.
func (a *Advisor) cycle(ctx context.Context) (domain.Advice, error) {
	ids := make([]string, 0, len(a.watchlist))
	estimates := make(map[string]float64, len(a.watchlist))
	for _, w := range a.watchlist {
		if w.ConditionID == "" {
			continue
		}
		ids = append(ids, w.ConditionID)
		estimates[w.ConditionID] = w.EstimatedProbability
	}

	markets, err := a.markets.FetchWatchedMarkets(ctx, ids)
	if err != nil {
		return domain.Advice{}, fmt.Errorf("advisor.cycle: fetch markets: %w", err)
	}

	watched := joinWithEstimates(markets, estimates)

	result := domain.CalculatePortfolioKelly(
		watched,
		a.cfg.FractionMultiplier,
		a.cfg.BankrollUSDC,
		a.cfg.MaxPositionSize,
	)

	return domain.Advice{
		GeneratedAt: a.now().UTC(),
		Bankroll:    a.cfg.BankrollUSDC,
		Result:      result,
	}, nil
}

// joinWithEstimates cruza los mercados con las estimaciones del usuario.
// Mercados no tradeables o sin precio válido se descartan.
func joinWithEstimates(markets []domain.Market, estimates map[string]float64) []domain.WatchedMarket {
	out := make([]domain.WatchedMarket, 0, len(markets))
	for _, m := range markets {
		prob, ok := estimates[m.ConditionID]
		if !ok {
			continue
		}
		if !m.Tradeable() || m.YesPrice <= 0 || m.YesPrice >= 1 {
			slog.Debug("skipping non-tradeable market", "condition_id", m.ConditionID)
			continue
		}
		out = append(out, domain.WatchedMarket{
			MarketID:             m.ConditionID,
			Question:             m.Question,
			YesPrice:             m.YesPrice,
			EstimatedProbability: prob,
		})
	}
	return out
}
