package billing

import (
	"encoding/json"
	"fmt"
)

// Webhook event types the reconciler acts on. Anything else is acknowledged
// and ignored.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaid          = "invoice.payment_succeeded"
	EventInvoiceFailed        = "invoice.payment_failed"
	EventInvoiceUncollectible = "invoice.marked_uncollectible"
)

// Event is a verified webhook delivery. Object holds the raw provider object
// from data.object; callers decode it with the typed accessors.
type Event struct {
	ID     string
	Type   string
	Object json.RawMessage
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func parseEvent(payload []byte) (*Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
	}
	return &Event{ID: env.ID, Type: env.Type, Object: env.Data.Object}, nil
}

// CheckoutSession is the slice of a checkout session object we reconcile on.
// The checkout flow sets metadata.user_id and metadata.price_id when the
// session is created; client_reference_id is the fallback for the user id.
type CheckoutSession struct {
	Mode              string            `json:"mode"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// UserID returns the local user id attached to the session.
func (s CheckoutSession) UserID() string {
	if id, ok := s.Metadata["user_id"]; ok && id != "" {
		return id
	}
	return s.ClientReferenceID
}

// PriceID returns the purchased price attached to the session.
func (s CheckoutSession) PriceID() string {
	return s.Metadata["price_id"]
}

// Subscription is the slice of a provider subscription object we reconcile on.
type Subscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	Items    struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// PriceID returns the first line item's price id, or "".
func (s Subscription) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

// Invoice is the slice of a provider invoice object we reconcile on.
type Invoice struct {
	Subscription string `json:"subscription"`
	Customer     string `json:"customer"`
	Lines        struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"lines"`
}

// PriceID returns the first invoice line's price id, or "".
func (i Invoice) PriceID() string {
	if len(i.Lines.Data) == 0 {
		return ""
	}
	return i.Lines.Data[0].Price.ID
}

// CheckoutSession decodes the event object as a checkout session.
func (e *Event) CheckoutSession() (CheckoutSession, error) {
	var s CheckoutSession
	if err := json.Unmarshal(e.Object, &s); err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: decode checkout session: %w", ErrInvalidPayload, err)
	}
	return s, nil
}

// Subscription decodes the event object as a subscription.
func (e *Event) Subscription() (Subscription, error) {
	var s Subscription
	if err := json.Unmarshal(e.Object, &s); err != nil {
		return Subscription{}, fmt.Errorf("%w: decode subscription: %w", ErrInvalidPayload, err)
	}
	return s, nil
}

// Invoice decodes the event object as an invoice.
func (e *Event) Invoice() (Invoice, error) {
	var i Invoice
	if err := json.Unmarshal(e.Object, &i); err != nil {
		return Invoice{}, fmt.Errorf("%w: decode invoice: %w", ErrInvalidPayload, err)
	}
	return i, nil
}
