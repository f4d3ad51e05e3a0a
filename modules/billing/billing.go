// Package billing exposes the payment HTTP surface: hosted checkout and
// portal redirects plus the provider webhook.
package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wavsocial/wavscan/core"
	"github.com/wavsocial/wavscan/pkg/logger"
	"github.com/wavsocial/wavscan/pkg/session"
	svcbilling "github.com/wavsocial/wavscan/svc/billing"
	"github.com/wavsocial/wavscan/svc/user"
)

// maxWebhookBody bounds provider payloads; real events are a few KB.
const maxWebhookBody = 1 << 20

// Service wires the billing flows to HTTP.
type Service struct {
	provider   svcbilling.Provider
	reconciler *svcbilling.Reconciler
	catalog    *svcbilling.Catalog
	sessions   *session.Manager
	log        *slog.Logger
}

// New creates the billing module.
func New(provider svcbilling.Provider, reconciler *svcbilling.Reconciler, catalog *svcbilling.Catalog, sessions *session.Manager, log *slog.Logger) *Service {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Service{
		provider:   provider,
		reconciler: reconciler,
		catalog:    catalog,
		sessions:   sessions,
		log:        log,
	}
}

// Handle returns the module router, mounted by the caller under /billing.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/webhook", s.webhook)

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.RequireUser)
		r.Post("/checkout", s.checkout)
		r.Get("/portal", s.portal)
	})

	return r
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

func (s *Service) checkout(w http.ResponseWriter, r *http.Request) {
	u, ok := session.UserFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.RespondError(w, err)
		return
	}

	plan := user.Plan(req.Plan)
	if !plan.IsPaid() {
		core.RespondError(w, core.ErrBadRequest.WithMessage("plan must be plus or pro"))
		return
	}

	core.RespondOK(w, map[string]string{
		"url": s.provider.CheckoutURL(u.ID, s.catalog.PriceID(plan)),
	})
}

func (s *Service) portal(w http.ResponseWriter, r *http.Request) {
	u, ok := session.UserFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrUnauthorized)
		return
	}

	if u.StripeCustomerID == "" {
		core.RespondError(w, core.ErrBadRequest.WithMessage("no billing account yet"))
		return
	}

	core.RespondOK(w, map[string]string{
		"url": s.provider.PortalURL(u.StripeCustomerID),
	})
}

// webhook hands the raw body to the reconciler. Only a signature failure is
// rejected; processing errors are logged and acknowledged so the provider
// does not amplify a reconciliation bug into a retry storm.
func (s *Service) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		core.RespondError(w, core.ErrBadRequest.WithMessage("unreadable payload"))
		return
	}

	err = s.reconciler.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, svcbilling.ErrInvalidSignature) {
			core.RespondError(w, core.ErrBadRequest.WithMessage("invalid signature"))
			return
		}
		s.log.Error("webhook processing failed", logger.Error(err), logger.Component("billing"))
	}

	core.RespondOK(w, map[string]bool{"received": true})
}
