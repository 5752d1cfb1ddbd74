package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

var ErrNoEmail = errors.New("stripe customer has no email")

// Client is the payment collaborator: webhook authentication, event mapping
// and customer email lookup.
type Client struct {
	webhookSecret string
	getCustomer   func(id string, params *stripego.CustomerParams) (*stripego.Customer, error)
	logger        *zap.Logger
}

func NewClient(secretKey, webhookSecret string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &client.API{}
	api.Init(secretKey, nil)

	return &Client{
		webhookSecret: webhookSecret,
		getCustomer:   api.Customers.Get,
		logger:        logger,
	}
}

func (c *Client) RetrieveCustomerEmail(ctx context.Context, customerID string) (string, error) {
	params := &stripego.CustomerParams{}
	params.Context = ctx

	cust, err := c.getCustomer(customerID, params)
	if err != nil {
		return "", fmt.Errorf("stripe: failed to get customer %s: %w", customerID, err)
	}
	if cust.Deleted || cust.Email == "" {
		return "", fmt.Errorf("%w: %s", ErrNoEmail, customerID)
	}
	return cust.Email, nil
}

// VerifyAndParseWebhook authenticates the Stripe-Signature header and maps the
// event. Event types the service does not handle yield no events.
func (c *Client) VerifyAndParseWebhook(payload []byte, signature string) ([]entity.LifecycleEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", usecase.ErrInvalidSignature, err)
	}

	c.logger.Info("stripe webhook received",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
	)

	ev, ok, err := c.mapEvent(event)
	if err != nil {
		return nil, &usecase.DomainError{
			Code:    usecase.CodeValidation,
			Message: "malformed " + string(event.Type) + " payload",
			Err:     err,
		}
	}
	if !ok {
		c.logger.Debug("unhandled stripe event type", zap.String("event_type", string(event.Type)))
		return nil, nil
	}
	return []entity.LifecycleEvent{ev}, nil
}

func (c *Client) mapEvent(event stripego.Event) (entity.LifecycleEvent, bool, error) {
	ev := entity.LifecycleEvent{
		TransactionID: event.ID,
		OccurredAt:    time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil {
		return ev, false, nil
	}

	switch string(event.Type) {
	case eventCheckoutCompleted:
		var s stripego.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return ev, false, err
		}
		ev.Kind = entity.EventCheckoutCompleted
		ev.Identity = entity.Identity(sessionEmail(s))
		ev.CustomerID = customerID(s.Customer)
		ev.Product = s.Metadata[metadataProduct]
		ev.Source = s.Metadata[metadataSource]
		ev.ClientID = s.Metadata[metadataClientID]
		amount := s.AmountTotal
		ev.Amount = &amount

	case eventSubscriptionCreated, eventSubscriptionDeleted:
		var sub stripego.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return ev, false, err
		}
		ev.Kind = entity.EventSubscriptionCreated
		if string(event.Type) == eventSubscriptionDeleted {
			ev.Kind = entity.EventSubscriptionCancelled
		}
		ev.CustomerID = customerID(sub.Customer)
		ev.Product = sub.Metadata[metadataProduct]
		ev.ClientID = sub.Metadata[metadataClientID]

	case eventInvoicePaymentSuccess, eventInvoicePaymentFailed:
		var inv stripego.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return ev, false, err
		}
		ev.Identity = entity.Identity(inv.CustomerEmail)
		ev.CustomerID = customerID(inv.Customer)
		if string(event.Type) == eventInvoicePaymentSuccess {
			ev.Kind = entity.EventPaymentSucceeded
			amount := inv.AmountPaid
			ev.Amount = &amount
		} else {
			ev.Kind = entity.EventPaymentFailed
			amount := inv.AmountDue
			ev.Amount = &amount
		}

	default:
		return ev, false, nil
	}
	return ev, true, nil
}

func sessionEmail(s stripego.CheckoutSession) string {
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}

func customerID(c *stripego.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
