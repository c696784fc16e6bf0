package shifts

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// ShiftService is the subset of the shift engine exposed over HTTP.
type ShiftService interface {
	OpenShift(ctx context.Context, input OpenShiftInput) (Shift, error)
	GetShift(ctx context.Context, id int64) (Shift, error)
	RecordMovement(ctx context.Context, input RecordMovementInput) (Movement, error)
	ListMovements(ctx context.Context, shiftID int64) ([]Movement, error)
	CloseShift(ctx context.Context, input CloseShiftInput) (Shift, error)
	ReconcileShift(ctx context.Context, input ReconcileShiftInput) (Shift, error)
	GetCloseoutReport(ctx context.Context, shiftID int64) (CloseoutReport, error)
	DeleteShift(ctx context.Context, id int64) error
}

// Handler exposes POS shift endpoints as JSON.
type Handler struct {
	service   ShiftService
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service ShiftService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger, validator: validator.New()}
}

type openRequest struct {
	CompanyID    int64           `json:"company_id" validate:"required,gt=0"`
	BranchID     int64           `json:"branch_id" validate:"required,gt=0"`
	UserID       int64           `json:"user_id" validate:"required,gt=0"`
	StartingCash decimal.Decimal `json:"starting_cash"`
}

type movementRequest struct {
	Type            MovementType    `json:"movement_type" validate:"required,oneof=CASH_IN CASH_OUT SALE RETURN"`
	Amount          decimal.Decimal `json:"amount"`
	Notes           string          `json:"notes" validate:"max=500"`
	SalesInvoiceID  *int64          `json:"sales_invoice_id" validate:"omitempty,gt=0"`
	ReturnInvoiceID *int64          `json:"return_invoice_id" validate:"omitempty,gt=0"`
}

type closeRequest struct {
	EndingCash *decimal.Decimal `json:"ending_cash"`
}

type reconcileRequest struct {
	ReconciledBy int64  `json:"reconciled_by" validate:"required,gt=0"`
	Notes        string `json:"notes" validate:"max=1000"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !h.decode(w, r, &req) {
		return
	}
	shift, err := h.service.OpenShift(r.Context(), OpenShiftInput(req))
	if err != nil {
		h.fail(w, r, "open shift", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shift)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	shift, err := h.service.GetShift(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get shift", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req movementRequest
	if !h.decode(w, r, &req) {
		return
	}
	movement, err := h.service.RecordMovement(r.Context(), RecordMovementInput{
		ShiftID:         id,
		Type:            req.Type,
		Amount:          req.Amount,
		Notes:           req.Notes,
		SalesInvoiceID:  req.SalesInvoiceID,
		ReturnInvoiceID: req.ReturnInvoiceID,
	})
	if err != nil {
		h.fail(w, r, "record movement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	movements, err := h.service.ListMovements(r.Context(), id)
	if err != nil {
		h.fail(w, r, "list movements", err)
		return
	}
	if movements == nil {
		movements = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req closeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.EndingCash == nil {
		httpx.RespondError(w, shared.NewValidation("ending_cash", "required"))
		return
	}
	shift, err := h.service.CloseShift(r.Context(), CloseShiftInput{ShiftID: id, EndingCash: *req.EndingCash})
	if err != nil {
		h.fail(w, r, "close shift", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req reconcileRequest
	if !h.decode(w, r, &req) {
		return
	}
	shift, err := h.service.ReconcileShift(r.Context(), ReconcileShiftInput{ShiftID: id, ReconciledBy: req.ReconciledBy, Notes: req.Notes})
	if err != nil {
		h.fail(w, r, "reconcile shift", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) closeout(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.GetCloseoutReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, "closeout report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteShift(r.Context(), id); err != nil {
		h.fail(w, r, "delete shift", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			httpx.RespondError(w, shared.NewValidation(fieldErrs[0].Namespace(), fieldErrs[0].Tag()))
			return false
		}
		httpx.RespondError(w, shared.NewValidation("body", err.Error()))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
