/**
 * @description
 * This file contains the HTTP handlers for the benefit-service's API
 * endpoints. Handlers parse incoming requests, call the application service,
 * and translate outcomes into transport responses: rejection kinds map to
 * stable HTTP statuses so clients can branch without parsing message text.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - go.uber.org/zap: Structured logging.
 * - internal/app, internal/domain: Service logic and models.
 */

package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beneficio/benefit-service/internal/app"
	"github.com/beneficio/benefit-service/internal/domain"
)

// BenefitHandlers holds the application service that handlers use.
type BenefitHandlers struct {
	service           *app.Service
	limiter           *app.RedisTransferRateLimiter
	transferRateLimit int
	logger            *zap.Logger
}

// NewBenefitHandlers creates a new instance of BenefitHandlers. The limiter
// may be nil when rate limiting is disabled; the logger may be nil.
func NewBenefitHandlers(service *app.Service, limiter *app.RedisTransferRateLimiter, transferRateLimit int, logger *zap.Logger) *BenefitHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BenefitHandlers{
		service:           service,
		limiter:           limiter,
		transferRateLimit: transferRateLimit,
		logger:            logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type transferResponse struct {
	Status string `json:"status"`
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Amount string `json:"amount"`
}

func (h *BenefitHandlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps an error to its HTTP response. Rejections get their kind in
// the body; anything else is an internal error.
func (h *BenefitHandlers) writeError(w http.ResponseWriter, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		h.logger.Error("request failed", zap.String("component", "api"), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	status := http.StatusBadRequest
	switch kind {
	case domain.RejectionNotFound:
		status = http.StatusNotFound
	case domain.RejectionConcurrencyConflict:
		status = http.StatusConflict
	case domain.RejectionLockTimeout:
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
	}

	h.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: string(kind)})
}

func (h *BenefitHandlers) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "invalid benefit id",
			Kind:  string(domain.RejectionInvalidArgument),
		})
		return uuid.Nil, false
	}
	return id, true
}

// ListBenefitsHandler returns every benefit.
func (h *BenefitHandlers) ListBenefitsHandler(w http.ResponseWriter, r *http.Request) {
	benefits, err := h.service.ListBenefits(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, benefits)
}

// ListActiveBenefitsHandler returns only benefits with the active flag set.
func (h *BenefitHandlers) ListActiveBenefitsHandler(w http.ResponseWriter, r *http.Request) {
	benefits, err := h.service.ListActiveBenefits(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, benefits)
}

// GetBenefitHandler returns a single benefit by id.
func (h *BenefitHandlers) GetBenefitHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	benefit, err := h.service.GetBenefit(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, benefit)
}

// CreateBenefitHandler creates a new benefit.
func (h *BenefitHandlers) CreateBenefitHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBenefitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "invalid request body",
			Kind:  string(domain.RejectionInvalidArgument),
		})
		return
	}

	created, err := h.service.CreateBenefit(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// UpdateBenefitHandler replaces a benefit's mutable fields.
func (h *BenefitHandlers) UpdateBenefitHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateBenefitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "invalid request body",
			Kind:  string(domain.RejectionInvalidArgument),
		})
		return
	}

	updated, err := h.service.UpdateBenefit(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// DeleteBenefitHandler removes a benefit.
func (h *BenefitHandlers) DeleteBenefitHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteBenefit(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransferHandler moves value between two benefits.
func (h *BenefitHandlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	if !h.allowTransfer(w, r) {
		return
	}

	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "invalid request body",
			Kind:  string(domain.RejectionInvalidArgument),
		})
		return
	}

	if err := h.service.Transfer(r.Context(), req.FromID, req.ToID, req.Amount); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, transferResponse{
		Status: "completed",
		FromID: req.FromID.String(),
		ToID:   req.ToID.String(),
		Amount: req.Amount.String(),
	})
}

// allowTransfer consumes one rate limit token for the client. Limiting is
// best-effort: a limiter outage never blocks transfers.
func (h *BenefitHandlers) allowTransfer(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil || h.transferRateLimit <= 0 {
		return true
	}

	subject, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		subject = r.RemoteAddr
	}

	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), subject, h.transferRateLimit, time.Minute)
	if err != nil {
		h.logger.Warn("rate limiter unavailable; allowing transfer",
			zap.String("component", "api"),
			zap.Error(err),
		)
		return true
	}
	if count > h.transferRateLimit {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many transfer requests"})
		return false
	}
	return true
}
