package polymarket

// markets.go — Polymarket CLOB API adapter.
//
// FetchWatchedMarkets usa goroutines concurrentes para pedir los mercados de la
// watchlist en paralelo. El rate limiter (token bucket) en doWithRetry controla
// el ritmo automáticamente — las goroutines se "autolimitan" sin necesidad de
// semáforo explícito. Los midpoints se piden en un único POST batch.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/foliotrack/internal/domain"
)

const (
	marketPath    = "/markets/"
	midpointsPath = "/midpoints"
	batchSize     = 20 // máx token_ids por request a /midpoints
)

// FetchWatchedMarkets devuelve los mercados para los condition_ids dados, con
// metadata de Gamma y el midpoint YES actual. Los ids que la API no conoce se
// omiten del resultado (se loguean en debug, no fallan el fetch completo).
func (c *Client) FetchWatchedMarkets(ctx context.Context, conditionIDs []string) ([]domain.Market, error) {
	if len(conditionIDs) == 0 {
		return nil, nil
	}

	raws, err := c.fetchMarkets(ctx, conditionIDs)
	if err != nil {
		return nil, fmt.Errorf("polymarket.FetchWatchedMarkets: %w", err)
	}

	markets := make([]domain.Market, 0, len(raws))
	yesTokens := make(map[string]string, len(raws)) // conditionID → YES token_id
	for _, r := range raws {
		markets = append(markets, mapMarket(r))
		if id := yesTokenID(r); id != "" {
			yesTokens[r.ConditionID] = id
		}
	}

	mids, err := c.fetchMidpoints(ctx, collectValues(yesTokens))
	if err != nil {
		return nil, fmt.Errorf("polymarket.FetchWatchedMarkets: midpoints: %w", err)
	}
	for i := range markets {
		if mid, ok := mids[yesTokens[markets[i].ConditionID]]; ok {
			markets[i].YesPrice = mid
		}
	}

	// Enriquecer con metadata de Gamma (nombres, slugs, fechas)
	enriched, enrichErr := c.enrichWithGamma(ctx, markets)
	if enrichErr != nil {
		// El enriquecimiento es opcional — logueamos pero no fallamos
		slog.Warn("gamma enrichment failed, continuing without names", "err", enrichErr)
	} else {
		markets = enriched
	}

	slog.Info("watched markets fetched", "requested", len(conditionIDs), "found", len(markets))
	return markets, nil
}

// fetchMarkets pide cada mercado al CLOB en paralelo. Los 404 individuales se
// omiten; cualquier otro error aborta el fetch.
func (c *Client) fetchMarkets(ctx context.Context, conditionIDs []string) ([]clobMarket, error) {
	type result struct {
		market clobMarket
		err    error
		found  bool
	}

	resultCh := make(chan result, len(conditionIDs))
	var wg sync.WaitGroup

	for _, id := range conditionIDs {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			var m clobMarket
			url := c.clobBase + marketPath + id
			if err := c.get(ctx, c.clobLimiter, url, &m); err != nil {
				if isNotFound(err) {
					slog.Debug("market not found in CLOB, skipping", "condition_id", id)
					resultCh <- result{}
					return
				}
				resultCh <- result{err: fmt.Errorf("GET %s: %w", marketPath+id, err)}
				return
			}
			resultCh <- result{market: m, found: true}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var markets []clobMarket
	var firstErr error
	for r := range resultCh {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		if r.found {
			markets = append(markets, r.market)
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return markets, nil
}

// fetchMidpoints obtiene los midpoints para los token_ids dados usando el
// endpoint batch, partiendo en batches de batchSize.
func (c *Client) fetchMidpoints(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	result := make(map[string]float64, len(tokenIDs))

	for i := 0; i < len(tokenIDs); i += batchSize {
		end := i + batchSize
		if end > len(tokenIDs) {
			end = len(tokenIDs)
		}
		batch := tokenIDs[i:end]

		body := make([]midpointRequest, len(batch))
		for j, id := range batch {
			body[j] = midpointRequest{TokenID: id}
		}

		var resp midpointsResponse
		if err := c.post(ctx, c.midsLimiter, c.clobBase+midpointsPath, body, &resp); err != nil {
			return nil, fmt.Errorf("POST %s: %w", midpointsPath, err)
		}

		for id, mid := range mapMidpoints(resp) {
			result[id] = mid
		}
	}

	slog.Debug("midpoints fetched", "tokens", len(tokenIDs), "mids", len(result))
	return result, nil
}

// collectValues devuelve los values de un map en un slice.
func collectValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
