package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alejandrodnm/foliotrack/internal/application/advisor"
	"github.com/alejandrodnm/foliotrack/internal/application/gdpr"
	"github.com/alejandrodnm/foliotrack/internal/domain"
	"github.com/alejandrodnm/foliotrack/internal/ports"
	"github.com/go-chi/chi/v5"
)

// Handler agrupa los handlers HTTP del tracker.
type Handler struct {
	advisor *advisor.Advisor
	gdpr    *gdpr.Service
}

// NewHandler crea el Handler con los servicios de aplicación.
func NewHandler(a *advisor.Advisor, g *gdpr.Service) *Handler {
	return &Handler{advisor: a, gdpr: g}
}

// Health responde al healthcheck.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// adviceResponse es el shape JSON del advice.
type adviceResponse struct {
	GeneratedAt       string             `json:"generatedAt"`
	BankrollUSDC      float64            `json:"bankrollUsdc"`
	Positions         []positionResponse `json:"positions"`
	TotalAllocation   float64            `json:"totalAllocation"`
	TotalDollarAmount float64            `json:"totalDollarAmount"`
	WasScaled         bool               `json:"wasScaled"`
	ScaleFactor       float64            `json:"scaleFactor"`
}

type positionResponse struct {
	MarketID         string  `json:"marketId"`
	Question         string  `json:"question,omitempty"`
	Side             string  `json:"side"`
	Edge             float64 `json:"edge"`
	RawKellyFraction float64 `json:"rawKellyFraction"`
	AdjustedFraction float64 `json:"adjustedFraction"`
	DollarAmount     float64 `json:"dollarAmount"`
	WasCapped        bool    `json:"wasCapped"`
}

// GetAdvice ejecuta un ciclo de sizing bajo demanda y devuelve el resultado.
func (h *Handler) GetAdvice(w http.ResponseWriter, r *http.Request) {
	advice, err := h.advisor.RunOnce(r.Context())
	if err != nil {
		slog.Error("advice request failed", "err", err)
		writeError(w, http.StatusBadGateway, "could not compute advice")
		return
	}

	positions := make([]positionResponse, 0, len(advice.Result.Positions))
	for _, p := range advice.Result.Positions {
		positions = append(positions, positionResponse{
			MarketID:         p.MarketID,
			Question:         p.Question,
			Side:             string(p.Side),
			Edge:             p.Edge,
			RawKellyFraction: p.RawKellyFraction,
			AdjustedFraction: p.AdjustedFraction,
			DollarAmount:     p.DollarAmount,
			WasCapped:        p.WasCapped,
		})
	}

	writeJSON(w, http.StatusOK, adviceResponse{
		GeneratedAt:       advice.GeneratedAt.Format("2006-01-02T15:04:05.000Z"),
		BankrollUSDC:      advice.Bankroll,
		Positions:         positions,
		TotalAllocation:   advice.Result.TotalAllocation,
		TotalDollarAmount: advice.Result.TotalDollarAmount,
		WasScaled:         advice.Result.WasScaled,
		ScaleFactor:       advice.Result.ScaleFactor,
	})
}

// createDeletionRequestBody es el body del POST de solicitudes.
type createDeletionRequestBody struct {
	UserID      string `json:"userId"`
	RequestType string `json:"requestType"`
	Reason      string `json:"reason"`
}

// CreateDeletionRequest registra una solicitud de borrado.
// 201 con el DTO; 400 con la lista de errores de validación; 409 si el
// usuario ya tiene una solicitud activa.
func (h *Handler) CreateDeletionRequest(w http.ResponseWriter, r *http.Request) {
	var body createDeletionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := h.gdpr.CreateRequest(r.Context(), domain.DeletionRequestInput{
		UserID:      body.UserID,
		RequestType: domain.DeletionRequestType(body.RequestType),
		Reason:      body.Reason,
	})

	var invalid *gdpr.ErrInvalidRequest
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": invalid.Errors})
	case errors.Is(err, ports.ErrActiveRequestExists):
		writeError(w, http.StatusConflict, domain.ErrActiveRequestReason)
	case err != nil:
		slog.Error("create deletion request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusCreated, domain.FormatDeletionRequest(req))
	}
}

// GetDeletionRequest devuelve una solicitud por id.
func (h *Handler) GetDeletionRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, err := h.gdpr.GetRequest(r.Context(), id)
	if errors.Is(err, ports.ErrRequestNotFound) {
		writeError(w, http.StatusNotFound, "deletion request not found")
		return
	}
	if err != nil {
		slog.Error("get deletion request failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, domain.FormatDeletionRequest(req))
}

// ListDeletionRequests devuelve el historial de solicitudes del usuario.
func (h *Handler) ListDeletionRequests(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	reqs, err := h.gdpr.ListRequests(r.Context(), userID)
	if err != nil {
		slog.Error("list deletion requests failed", "user_id", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	dtos := make([]domain.DeletionRequestDTO, 0, len(reqs))
	for _, req := range reqs {
		dtos = append(dtos, domain.FormatDeletionRequest(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": dtos})
}

// estimateResponse es el shape JSON de la estimación de borrado.
type estimateResponse struct {
	UserID         string         `json:"userId"`
	RequestType    string         `json:"requestType"`
	Steps          []stepResponse `json:"steps"`
	EstimatedItems itemsResponse  `json:"estimatedItems"`
	MinMinutes     int            `json:"minMinutes"`
	MaxMinutes     int            `json:"maxMinutes"`
	Description    string         `json:"description"`
}

type stepResponse struct {
	Name     string `json:"name"`
	Order    int    `json:"order"`
	Required bool   `json:"required"`
}

type itemsResponse struct {
	Forecasts    int `json:"forecasts"`
	Positions    int `json:"positions"`
	Transactions int `json:"transactions"`
	Attestations int `json:"attestations"`
	Wallets      int `json:"wallets"`
}

// GetDeletionEstimate devuelve el plan de borrado y su duración estimada.
// El query param "type" selecciona el tipo; por defecto FULL_ACCOUNT.
func (h *Handler) GetDeletionEstimate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	t := domain.DeletionRequestType(r.URL.Query().Get("type"))
	if t == "" {
		t = domain.DeletionFullAccount
	}
	if len(domain.DeletionSteps(t)) == 0 {
		writeError(w, http.StatusBadRequest, "requestType must be FULL_ACCOUNT, FORECASTS_ONLY, or PII_ONLY")
		return
	}

	plan, estimate, err := h.gdpr.Estimate(r.Context(), userID, t)
	if err != nil {
		slog.Error("deletion estimate failed", "user_id", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	steps := make([]stepResponse, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		steps = append(steps, stepResponse{Name: s.Name, Order: s.Order, Required: s.Required})
	}

	writeJSON(w, http.StatusOK, estimateResponse{
		UserID:      userID,
		RequestType: string(t),
		Steps:       steps,
		EstimatedItems: itemsResponse{
			Forecasts:    plan.EstimatedItems.Forecasts,
			Positions:    plan.EstimatedItems.Positions,
			Transactions: plan.EstimatedItems.Transactions,
			Attestations: plan.EstimatedItems.Attestations,
			Wallets:      plan.EstimatedItems.Wallets,
		},
		MinMinutes:  estimate.MinMinutes,
		MaxMinutes:  estimate.MaxMinutes,
		Description: estimate.Description,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
