package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okuznetsov/balance-service/internal/api/httpx"
	"github.com/okuznetsov/balance-service/internal/apperr"
	"github.com/okuznetsov/balance-service/internal/repository"
	"github.com/okuznetsov/balance-service/internal/services"
)

type QueryHandler struct {
	svc *services.QueryService
	log *slog.Logger
}

func NewQueryHandler(svc *services.QueryService, log *slog.Logger) *QueryHandler {
	return &QueryHandler{svc: svc, log: log}
}

// GetBalance handles GET /api/get-balance/{user_id} and the
// /currency={code} variant.
func (h *QueryHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.svc.GetBalance(r.Context(), accountID, chi.URLParam(r, "currency"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toBalanceViewResponse(view))
}

// GetTransactions handles GET /api/get-transactions/{user_id} and the
// /sort_by={field} variant, with limit/offset/role query parameters.
func (h *QueryHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	role, ok := roleParam(w, r)
	if !ok {
		return
	}

	limit := intQuery(r, "limit", 0)
	offset := intQuery(r, "offset", 0)

	ts, err := h.svc.GetTransactions(r.Context(), accountID, chi.URLParam(r, "sort_by"), role, limit, offset)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toTransactionResponses(ts))
}

// userIDParam parses the path id. A non-numeric id cannot name any
// account, so it is reported the same way as an unknown one.
func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, apperr.ErrAccountNotFound.OnField("user_id"))
		return 0, false
	}
	return id, true
}

func roleParam(w http.ResponseWriter, r *http.Request) (repository.Role, bool) {
	switch v := r.URL.Query().Get("role"); v {
	case "":
		return repository.RoleAny, true
	case "source":
		return repository.RoleSource, true
	case "target":
		return repository.RoleTarget, true
	default:
		httpx.WriteFieldErrors(w, http.StatusBadRequest, "role", "must be \"source\" or \"target\"")
		return "", false
	}
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
