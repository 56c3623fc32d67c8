package domain

import "time"

// Market es un mercado de predicción binario seguido en la watchlist.
// Question, Slug y EndDate se enriquecen desde Gamma; YesPrice es el midpoint
// actual del token YES en el CLOB (0-1).
type Market struct {
	ConditionID string
	Question    string
	Slug        string
	EndDate     time.Time
	YesPrice    float64
	Active      bool
	Closed      bool
}

// Tradeable devuelve true si el mercado sigue abierto y tiene precio utilizable.
func (m Market) Tradeable() bool {
	return m.Active && !m.Closed && m.YesPrice > 0 && m.YesPrice < 1
}

// HoursToResolution devuelve las horas hasta que el mercado se resuelve.
// Devuelve 0 si EndDate no está definido o ya pasó.
func (m Market) HoursToResolution() float64 {
	if m.EndDate.IsZero() {
		return 0
	}
	h := time.Until(m.EndDate).Hours()
	if h < 0 {
		return 0
	}
	return h
}
