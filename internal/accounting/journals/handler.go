package journals

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// JournalService is the subset of the engine exposed over HTTP.
type JournalService interface {
	CreateBalancedEntry(ctx context.Context, input CreateEntryInput) (JournalEntry, error)
	GetEntry(ctx context.Context, id int64) (JournalEntry, error)
	ApproveEntry(ctx context.Context, input TransitionInput) (JournalEntry, error)
	PostEntry(ctx context.Context, input TransitionInput) (JournalEntry, error)
	VoidEntry(ctx context.Context, input TransitionInput) (JournalEntry, error)
	DeleteEntry(ctx context.Context, id int64) error
}

// Handler exposes journal endpoints as JSON.
type Handler struct {
	service   JournalService
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service JournalService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

type lineRequest struct {
	AccountID    int64           `json:"account_id" validate:"required,gt=0"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	Currency     string          `json:"currency" validate:"omitempty,len=3"`
	FxRate       decimal.Decimal `json:"fx_rate"`
	CostCenterID *int64          `json:"cost_center_id"`
	ProjectID    *int64          `json:"project_id"`
	Memo         string          `json:"memo" validate:"max=500"`
}

type createRequest struct {
	CompanyID int64         `json:"company_id" validate:"required,gt=0"`
	BranchID  int64         `json:"branch_id" validate:"required,gt=0"`
	EntryDate string        `json:"entry_date" validate:"required,datetime=2006-01-02"`
	Period    string        `json:"period" validate:"max=16"`
	RefNo     string        `json:"ref_no" validate:"max=64"`
	CreatedBy int64         `json:"created_by" validate:"required,gt=0"`
	Lines     []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type transitionRequest struct {
	ActorID int64  `json:"actor_id" validate:"required,gt=0"`
	Reason  string `json:"reason" validate:"max=500"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entryDate, _ := time.Parse(time.DateOnly, req.EntryDate)
	input := CreateEntryInput{
		CompanyID: req.CompanyID,
		BranchID:  req.BranchID,
		EntryDate: entryDate,
		Period:    req.Period,
		RefNo:     req.RefNo,
		CreatedBy: req.CreatedBy,
		Lines:     make([]LineInput, len(req.Lines)),
	}
	for i, line := range req.Lines {
		input.Lines[i] = LineInput(line)
	}
	entry, err := h.service.CreateBalancedEntry(r.Context(), input)
	if err != nil {
		h.fail(w, r, "create journal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve journal", h.service.ApproveEntry)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "post journal", h.service.PostEntry)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "void journal", h.service.VoidEntry)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, TransitionInput) (JournalEntry, error)) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := fn(r.Context(), TransitionInput{EntryID: id, ActorID: req.ActorID, Reason: req.Reason})
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		h.fail(w, r, "delete journal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validate(req any) error {
	if err := h.validator.Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			return shared.NewValidation(fieldErrs[0].Namespace(), fieldErrs[0].Tag())
		}
		return shared.NewValidation("body", err.Error())
	}
	return nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
