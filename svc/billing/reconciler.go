// Package billing keeps the local billing cache on user rows consistent with
// the payment provider. Webhook deliveries may arrive duplicated and out of
// order; every transition is idempotent and last-write-wins per row.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/wavsocial/wavscan/pkg/logger"
	"github.com/wavsocial/wavscan/svc/user"
)

// Reconciler applies verified webhook events onto user rows.
type Reconciler struct {
	provider Provider
	storage  user.Storage
	catalog  *Catalog
	log      *slog.Logger
}

// NewReconciler wires a reconciler.
func NewReconciler(provider Provider, storage user.Storage, catalog *Catalog, log *slog.Logger) *Reconciler {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Reconciler{provider: provider, storage: storage, catalog: catalog, log: log}
}

// Handle verifies the delivery and applies it. ErrInvalidSignature is the
// only error the HTTP handler rejects with 400; any other error is logged
// by the handler and acknowledged so the provider does not retry-storm us.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := r.provider.VerifyAndParse(payload, sigHeader)
	if err != nil {
		return err
	}

	log := r.log.With(logger.EventType(event.Type), slog.String("event_id", event.ID))

	switch event.Type {
	case EventCheckoutCompleted:
		return r.applyCheckout(ctx, event, log)
	case EventSubscriptionCreated:
		return r.applySubscriptionCreated(ctx, event, log)
	case EventSubscriptionUpdated:
		return r.applySubscriptionUpdated(ctx, event, log)
	case EventSubscriptionDeleted:
		return r.applySubscriptionDeleted(ctx, event, log)
	case EventInvoicePaid:
		return r.applyInvoicePaid(ctx, event, log)
	case EventInvoiceFailed:
		return r.applyInvoiceFailed(ctx, event, log)
	case EventInvoiceUncollectible:
		return r.applyInvoiceUncollectible(ctx, event, log)
	default:
		log.Debug("ignoring unhandled webhook event")
		return nil
	}
}

func (r *Reconciler) applyCheckout(ctx context.Context, event *Event, log *slog.Logger) error {
	session, err := event.CheckoutSession()
	if err != nil {
		return err
	}
	if session.Subscription == "" {
		log.Debug("checkout session without subscription, ignoring")
		return nil
	}

	userID, err := uuid.Parse(session.UserID())
	if err != nil {
		return fmt.Errorf("checkout session %q has no usable user reference: %w", event.ID, err)
	}

	plan, err := r.catalog.PlanByPriceID(session.PriceID())
	if err != nil {
		return fmt.Errorf("checkout session %q: %w", event.ID, err)
	}

	if err := r.storage.SetCheckoutCompleted(ctx, userID, plan, session.Customer, session.Subscription); err != nil {
		return fmt.Errorf("apply checkout for user %s: %w", userID, err)
	}

	log.Info("checkout completed",
		logger.UserID(userID.String()),
		logger.SubscriptionID(session.Subscription),
		slog.String("plan", string(plan)),
	)
	return nil
}

// applySubscriptionCreated records the subscription id and provider status
// without granting a paid plan; access is gated on payment, not creation.
func (r *Reconciler) applySubscriptionCreated(ctx context.Context, event *Event, log *slog.Logger) error {
	sub, err := event.Subscription()
	if err != nil {
		return err
	}

	err = r.storage.SetSubscriptionCreated(ctx, sub.Customer, sub.ID, mapProviderStatus(sub.Status))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			log.Warn("subscription created for unknown customer", logger.SubscriptionID(sub.ID))
			return nil
		}
		return fmt.Errorf("record subscription %s: %w", sub.ID, err)
	}

	log.Info("subscription recorded", logger.SubscriptionID(sub.ID))
	return nil
}

func (r *Reconciler) applySubscriptionUpdated(ctx context.Context, event *Event, log *slog.Logger) error {
	sub, err := event.Subscription()
	if err != nil {
		return err
	}

	status := mapProviderStatus(sub.Status)
	plan := user.PlanFree
	if status == user.StatusActive {
		if p, err := r.catalog.PlanByPriceID(sub.PriceID()); err == nil {
			plan = p
		} else {
			return fmt.Errorf("subscription %s: %w", sub.ID, err)
		}
	}

	found, err := r.storage.SetSubscriptionState(ctx, sub.ID, plan, status)
	if err != nil {
		return fmt.Errorf("update subscription %s: %w", sub.ID, err)
	}
	if !found {
		// Update can outrun creation; the next delivery catches up.
		log.Warn("subscription update for unknown subscription", logger.SubscriptionID(sub.ID))
		return nil
	}

	log.Info("subscription updated",
		logger.SubscriptionID(sub.ID),
		slog.String("status", string(status)),
		slog.String("plan", string(plan)),
	)
	return nil
}

func (r *Reconciler) applySubscriptionDeleted(ctx context.Context, event *Event, log *slog.Logger) error {
	sub, err := event.Subscription()
	if err != nil {
		return err
	}

	found, err := r.storage.SetSubscriptionState(ctx, sub.ID, user.PlanFree, user.StatusCanceled)
	if err != nil {
		return fmt.Errorf("delete subscription %s: %w", sub.ID, err)
	}
	if !found {
		log.Debug("subscription delete for unknown subscription", logger.SubscriptionID(sub.ID))
		return nil
	}

	log.Info("subscription canceled", logger.SubscriptionID(sub.ID))
	return nil
}

func (r *Reconciler) applyInvoicePaid(ctx context.Context, event *Event, log *slog.Logger) error {
	inv, err := event.Invoice()
	if err != nil {
		return err
	}
	if inv.Subscription == "" {
		log.Debug("invoice without subscription, ignoring")
		return nil
	}

	// Payment restores the paid plan. The invoice line names the price; if
	// it is absent, keep whatever paid plan the row already carries.
	plan, planErr := r.catalog.PlanByPriceID(inv.PriceID())
	if planErr != nil {
		u, err := r.storage.ByStripeSubscriptionID(ctx, inv.Subscription)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				log.Warn("payment for unknown subscription", logger.SubscriptionID(inv.Subscription))
				return nil
			}
			return fmt.Errorf("look up subscription %s: %w", inv.Subscription, err)
		}
		plan = u.Plan
	}

	found, err := r.storage.SetSubscriptionState(ctx, inv.Subscription, plan, user.StatusActive)
	if err != nil {
		return fmt.Errorf("apply payment for subscription %s: %w", inv.Subscription, err)
	}
	if !found {
		log.Warn("payment for unknown subscription", logger.SubscriptionID(inv.Subscription))
		return nil
	}

	log.Info("payment applied", logger.SubscriptionID(inv.Subscription), slog.String("plan", string(plan)))
	return nil
}

// applyInvoiceFailed marks the row past due but leaves the plan in place:
// the grace period lasts until the provider cancels or the invoice goes
// uncollectible.
func (r *Reconciler) applyInvoiceFailed(ctx context.Context, event *Event, log *slog.Logger) error {
	inv, err := event.Invoice()
	if err != nil {
		return err
	}
	if inv.Subscription == "" {
		return nil
	}

	u, err := r.storage.ByStripeSubscriptionID(ctx, inv.Subscription)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			log.Warn("payment failure for unknown subscription", logger.SubscriptionID(inv.Subscription))
			return nil
		}
		return fmt.Errorf("look up subscription %s: %w", inv.Subscription, err)
	}

	if _, err := r.storage.SetSubscriptionState(ctx, inv.Subscription, u.Plan, user.StatusPastDue); err != nil {
		return fmt.Errorf("mark subscription %s past due: %w", inv.Subscription, err)
	}

	log.Info("payment failed, grace period started", logger.SubscriptionID(inv.Subscription))
	return nil
}

func (r *Reconciler) applyInvoiceUncollectible(ctx context.Context, event *Event, log *slog.Logger) error {
	inv, err := event.Invoice()
	if err != nil {
		return err
	}
	if inv.Subscription == "" {
		return nil
	}

	found, err := r.storage.SetSubscriptionState(ctx, inv.Subscription, user.PlanFree, user.StatusUncollectible)
	if err != nil {
		return fmt.Errorf("mark subscription %s uncollectible: %w", inv.Subscription, err)
	}
	if !found {
		log.Warn("uncollectible invoice for unknown subscription", logger.SubscriptionID(inv.Subscription))
		return nil
	}

	log.Info("subscription uncollectible, downgraded", logger.SubscriptionID(inv.Subscription))
	return nil
}

// mapProviderStatus folds the provider's status vocabulary onto ours.
// Anything that is not clearly active or recoverable counts as canceled.
func mapProviderStatus(s string) user.SubscriptionStatus {
	switch s {
	case "active", "trialing":
		return user.StatusActive
	case "past_due":
		return user.StatusPastDue
	case "canceled", "unpaid", "incomplete_expired":
		return user.StatusCanceled
	default:
		return user.StatusNone
	}
}
