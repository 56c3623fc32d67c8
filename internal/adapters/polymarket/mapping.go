package polymarket

import (
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/foliotrack/internal/domain"
)

// mapMarket convierte un clobMarket DTO a domain.Market.
// El YesPrice se rellena después con el midpoint batch.
func mapMarket(r clobMarket) domain.Market {
	return domain.Market{
		ConditionID: r.ConditionID,
		Active:      r.Active,
		Closed:      r.Closed,
	}
}

// yesTokenID devuelve el token_id del lado YES del mercado.
// Si la API no marca outcomes, asume que el primer token es YES.
func yesTokenID(r clobMarket) string {
	for _, t := range r.Tokens {
		if strings.EqualFold(t.Outcome, "yes") {
			return t.TokenID
		}
	}
	if len(r.Tokens) > 0 {
		return r.Tokens[0].TokenID
	}
	return ""
}

// mapMidpoints convierte la respuesta batch (strings) a tokenID→float64.
// Midpoints no parseables o fuera de (0,1) se descartan.
func mapMidpoints(raw midpointsResponse) map[string]float64 {
	result := make(map[string]float64, len(raw))
	for id, s := range raw {
		mid, err := strconv.ParseFloat(s, 64)
		if err != nil || mid <= 0 || mid >= 1 {
			continue
		}
		result[id] = mid
	}
	return result
}

// enrichFromGamma aplica la metadata de Gamma sobre un mercado existente.
func enrichFromGamma(m *domain.Market, gm gammaMarket) {
	m.Question = gm.Question
	m.Slug = gm.Slug

	if gm.EndDateISO != "" {
		// Polymarket usa varios formatos; intentamos los más comunes
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, gm.EndDateISO); err == nil {
				m.EndDate = t.UTC()
				break
			}
		}
	}
}

// isNotFound detecta el error 404 generado por doWithRetry.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "client error 404")
}
