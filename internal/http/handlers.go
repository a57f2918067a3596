package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"paytrack/internal/core"
	applog "paytrack/internal/log"
	"paytrack/internal/mockapi"
)

// Store is the data source behind the REST handlers.
type Store interface {
	Categories(ctx context.Context, t core.CategoryType) core.CategoryList
	Payments(ctx context.Context, page, size int, f core.PaymentFilters) core.Page[core.Payment]
	Balance(ctx context.Context, dateFrom, dateTo string) core.Balance
	CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
	UpdatePayment(ctx context.Context, id string, p core.Payment) (core.Payment, error)
	DeletePayment(ctx context.Context, id string) error
	Wallets(ctx context.Context) []core.Wallet
	CreateWallet(ctx context.Context, name string) (core.Wallet, error)
	DeleteWallet(ctx context.Context, id string) error
}

type walletRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(map[string]string{"status": "ok", "service": "paytrack-mock"}).Write(w)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	from, to, err := ParseDateRange(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	OK(s.store.Balance(r.Context(), from, to)).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	t := core.CategoryType(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))))
	switch t {
	case core.CategoryTypeAll, core.CategoryTypeExpense, core.CategoryTypeIncome:
	default:
		BadRequestError("type must be expense or income").Write(w)
		return
	}
	OK(s.store.Categories(r.Context(), t)).Write(w)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := ParsePageParams(query)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	filters, err := ParsePaymentFilters(query)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	OK(s.store.Payments(r.Context(), page.Page, page.Size, filters)).Write(w)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var p core.Payment
	if err := DecodeJSONBody(w, r, &p); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	created, err := s.store.CreatePayment(r.Context(), p)
	applog.LogMutation(r.Context(), applog.FromContext(r.Context()), applog.OpCreate,
		applog.NewFields().WithPayment(created.ID, p.Name, p.AmountInCents, p.Category, p.Wallet), err)
	if err != nil {
		storeError(err).Write(w)
		return
	}
	Created(created).Write(w)
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p core.Payment
	if err := DecodeJSONBody(w, r, &p); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if p.ID != "" && p.ID != id {
		UnprocessableEntityError("payment id does not match the path").Write(w)
		return
	}

	updated, err := s.store.UpdatePayment(r.Context(), id, p)
	applog.LogMutation(r.Context(), applog.FromContext(r.Context()), applog.OpUpdate,
		applog.NewFields().WithPayment(id, p.Name, p.AmountInCents, p.Category, p.Wallet), err)
	if err != nil {
		storeError(err).Write(w)
		return
	}
	OK(updated).Write(w)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.store.DeletePayment(r.Context(), id)
	applog.LogMutation(r.Context(), applog.FromContext(r.Context()), applog.OpDelete,
		applog.NewFields().WithPayment(id, "", 0, "", ""), err)
	if err != nil {
		storeError(err).Write(w)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	OK(s.store.Wallets(r.Context())).Write(w)
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	created, err := s.store.CreateWallet(r.Context(), sanitizeInput(req.Name))
	applog.LogMutation(r.Context(), applog.FromContext(r.Context()), applog.OpCreate,
		applog.NewFields().With(applog.FieldWallet, req.Name), err)
	if err != nil {
		storeError(err).Write(w)
		return
	}
	Created(created).Write(w)
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.store.DeleteWallet(r.Context(), id)
	applog.LogMutation(r.Context(), applog.FromContext(r.Context()), applog.OpDelete,
		applog.NewFields().With(applog.FieldWallet, id), err)
	if err != nil {
		storeError(err).Write(w)
		return
	}
	NoContent().Write(w)
}

// storeError maps store failures to responses. Anything that is neither a
// missing record nor a conflict is a validation failure.
func storeError(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, mockapi.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, mockapi.ErrConflict):
		return ConflictError(err.Error())
	default:
		return UnprocessableEntityError(err.Error())
	}
}
