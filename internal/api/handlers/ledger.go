package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/okuznetsov/balance-service/internal/api/httpx"
	"github.com/okuznetsov/balance-service/internal/api/validate"
	"github.com/okuznetsov/balance-service/internal/apperr"
	"github.com/okuznetsov/balance-service/internal/middleware"
	"github.com/okuznetsov/balance-service/internal/services"
)

type LedgerHandler struct {
	svc *services.LedgerService
	log *slog.Logger
}

func NewLedgerHandler(svc *services.LedgerService, log *slog.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, log: log}
}

type changeBalanceRequest struct {
	UserID *int64           `json:"user_id"`
	Amount *decimal.Decimal `json:"amount"`
}

// ChangeBalance handles POST /api/change-balance. A positive amount is
// a deposit, a negative one a withdrawal; a first deposit may lazily
// create the balance and answers 201.
func (h *LedgerHandler) ChangeBalance(w http.ResponseWriter, r *http.Request) {
	var req changeBalanceRequest
	if err := validate.DecodeData(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if errs := fieldErrors(
		validate.Required("user_id", req.UserID),
		validate.Required("amount", req.Amount),
	); errs != nil {
		httpx.WriteErrors(w, http.StatusBadRequest, errs)
		return
	}
	if err := validate.Amount("amount", *req.Amount); err != nil {
		httpx.WriteError(w, err)
		return
	}

	b, created, err := h.svc.ChangeBalance(r.Context(), *req.UserID, *req.Amount)
	if err != nil {
		h.logFailure(r, "change-balance", err)
		httpx.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.WriteData(w, status, toBalanceResponse(b))
}

type makeTransferRequest struct {
	SourceID *int64           `json:"source_id"`
	TargetID *int64           `json:"target_id"`
	Amount   *decimal.Decimal `json:"amount"`
}

// MakeTransfer handles POST /api/make-transfer and responds with the
// created transaction record.
func (h *LedgerHandler) MakeTransfer(w http.ResponseWriter, r *http.Request) {
	var req makeTransferRequest
	if err := validate.DecodeData(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if errs := fieldErrors(
		validate.Required("source_id", req.SourceID),
		validate.Required("target_id", req.TargetID),
		validate.Required("amount", req.Amount),
	); errs != nil {
		httpx.WriteErrors(w, http.StatusBadRequest, errs)
		return
	}
	if err := validate.Amount("amount", *req.Amount); err != nil {
		httpx.WriteError(w, err)
		return
	}

	t, err := h.svc.Transfer(r.Context(), *req.SourceID, *req.TargetID, *req.Amount)
	if err != nil {
		h.logFailure(r, "make-transfer", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toTransactionResponse(t))
}

func (h *LedgerHandler) logFailure(r *http.Request, op string, err error) {
	var e *apperr.Error
	if errors.As(err, &e) && e.Code != apperr.ConstraintViolation && e.Code != apperr.InternalError {
		h.log.Debug(op+" rejected", "err", err)
		return
	}
	// constraint violations after the engine's own pre-checks are a bug
	h.log.Error(op+" failed", "err", err, "request_id", middleware.RequestIDFrom(r.Context()))
}
