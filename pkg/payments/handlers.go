package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lmnpay/gateway/pkg/clients"
	"github.com/lmnpay/gateway/pkg/httputil"
	"github.com/lmnpay/gateway/pkg/observability"
	"github.com/lmnpay/gateway/pkg/pipeline"
	"github.com/lmnpay/gateway/pkg/plans"
)

// Handlers serves the payment API endpoints behind the gateway pipeline
type Handlers struct {
	provider Provider
	logger   *observability.Logger
}

// NewHandlers creates the payment handlers over a provider
func NewHandlers(provider Provider, logger *observability.Logger) *Handlers {
	return &Handlers{provider: provider, logger: logger}
}

// RegisterRoutes mounts the payment endpoints on the router, each
// guarded by the pipeline with its own policy
func (h *Handlers) RegisterRoutes(router *mux.Router, p *pipeline.Pipeline) {
	router.Handle("/v1/payments", p.Guard(pipeline.Policy{
		Feature:       plans.FeaturePayments,
		RequiredScope: clients.ScopePaymentsInitiate,
	}, http.HandlerFunc(h.InitiatePayment))).Methods(http.MethodPost)

	router.Handle("/v1/payments/{id}", p.Guard(pipeline.Policy{
		RequiredScope: clients.ScopePaymentsRead,
		ResourceOwner: h.chargeOwner,
	}, http.HandlerFunc(h.GetPayment))).Methods(http.MethodGet)

	router.Handle("/v1/payments/{id}/refund", p.Guard(pipeline.Policy{
		Feature:       plans.FeatureRefunds,
		RequiredScope: clients.ScopePaymentsRefund,
		ResourceOwner: h.chargeOwner,
	}, http.HandlerFunc(h.RefundPayment))).Methods(http.MethodPost)

	router.Handle("/v1/transactions", p.Guard(pipeline.Policy{
		RequiredScope: clients.ScopeTransactionsRead,
	}, http.HandlerFunc(h.ListTransactions))).Methods(http.MethodGet)

	router.Handle("/v1/balance", p.Guard(pipeline.Policy{
		RequiredScope: clients.ScopeBalanceRead,
	}, http.HandlerFunc(h.GetBalance))).Methods(http.MethodGet)
}

// chargeOwner resolves which client owns the charge named in the URL.
// Unknown charges resolve to no owner; the handler reports not found
// after the remaining checks pass, so callers cannot probe for IDs they
// do not own.
func (h *Handlers) chargeOwner(r *http.Request) string {
	id := mux.Vars(r)["id"]
	charge, err := h.provider.GetCharge(r.Context(), id)
	if err != nil {
		return ""
	}
	return charge.OwnerID
}

type initiateRequest struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference,omitempty"`
}

// InitiatePayment handles POST /v1/payments
func (h *Handlers) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if req.Amount <= 0 {
		httputil.WriteBadRequest(w, "amount must be positive")
		return
	}
	if len(req.Currency) != 3 {
		httputil.WriteBadRequest(w, "currency must be a 3-letter code")
		return
	}

	identity := pipeline.IdentityFrom(r)
	charge, err := h.provider.CreateCharge(r.Context(), ChargeRequest{
		OwnerID:   identity.ClientID(),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Reference: req.Reference,
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to create charge")
		httputil.WriteErrorResponse(w, http.StatusBadGateway, "provider_error", "payment provider rejected the request")
		return
	}
	httputil.WriteCreated(w, charge)
}

// GetPayment handles GET /v1/payments/{id}
func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	charge, err := h.provider.GetCharge(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrChargeNotFound) {
			httputil.WriteNotFound(w, "charge not found")
			return
		}
		h.logger.WithError(err).Error("Failed to look up charge")
		httputil.WriteErrorResponse(w, http.StatusBadGateway, "provider_error", "payment provider unavailable")
		return
	}
	httputil.WriteSuccess(w, charge)
}

type refundRequest struct {
	Amount int64 `json:"amount,omitempty"` // zero refunds the full charge
}

// RefundPayment handles POST /v1/payments/{id}/refund
func (h *Handlers) RefundPayment(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteBadRequest(w, "invalid request body")
			return
		}
	}

	refund, err := h.provider.RefundCharge(r.Context(), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		if errors.Is(err, ErrChargeNotFound) {
			httputil.WriteNotFound(w, "charge not found")
			return
		}
		h.logger.WithError(err).Error("Failed to refund charge")
		httputil.WriteErrorResponse(w, http.StatusBadGateway, "provider_error", "payment provider unavailable")
		return
	}
	httputil.WriteCreated(w, refund)
}

// ListTransactions handles GET /v1/transactions, returning the calling
// client's own charges
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	identity := pipeline.IdentityFrom(r)
	charges, err := h.provider.ListCharges(r.Context(), identity.ClientID())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list charges")
		httputil.WriteErrorResponse(w, http.StatusBadGateway, "provider_error", "payment provider unavailable")
		return
	}
	if charges == nil {
		charges = []*Charge{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"transactions": charges})
}

// GetBalance handles GET /v1/balance, summing the client's non-refunded
// charges per currency
func (h *Handlers) GetBalance(w http.ResponseWriter, r *http.Request) {
	identity := pipeline.IdentityFrom(r)
	charges, err := h.provider.ListCharges(r.Context(), identity.ClientID())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list charges")
		httputil.WriteErrorResponse(w, http.StatusBadGateway, "provider_error", "payment provider unavailable")
		return
	}
	totals := make(map[string]int64)
	for _, charge := range charges {
		if charge.Status != ChargeRefunded {
			totals[charge.Currency] += charge.Amount
		}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"balances": totals})
}
