package ar

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// SettlementService is the subset of Service exposed over HTTP.
type SettlementService interface {
	RecordPayment(ctx context.Context, input RecordPaymentInput) (PaymentResult, error)
	GetSettlement(ctx context.Context, invoiceID int64) (Settlement, error)
}

// Handler manages AR endpoints.
type Handler struct {
	logger    *slog.Logger
	service   SettlementService
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service SettlementService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers AR routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices/{id}/payments", h.recordPayment)
	r.Get("/invoices/{id}/settlement", h.showSettlement)
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	PaidAt *time.Time      `json:"paid_at"`
	Method string          `json:"method" validate:"max=32"`
	Note   string          `json:"note" validate:"max=500"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			httpx.RespondError(w, shared.NewValidation(fieldErrs[0].Field(), fieldErrs[0].Tag()))
			return
		}
		httpx.RespondError(w, shared.NewValidation("body", err.Error()))
		return
	}
	input := RecordPaymentInput{
		InvoiceID:      id,
		Amount:         req.Amount,
		Method:         req.Method,
		Note:           req.Note,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	}
	if req.PaidAt != nil {
		input.PaidAt = *req.PaidAt
	}
	result, err := h.service.RecordPayment(r.Context(), input)
	if err != nil {
		h.fail(w, r, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) showSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	settlement, err := h.service.GetSettlement(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get settlement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, settlement)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
