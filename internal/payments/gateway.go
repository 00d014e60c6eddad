package payments

import (
	"context"
	"fmt"

	stripelib "github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/thecolognehub/colognehub-backend/pkg/stripe"
)

// Intent is the gateway-neutral view of a payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
}

// Succeeded reports whether the gateway has captured the funds.
func (i Intent) Succeeded() bool {
	return i.Status == string(stripelib.PaymentIntentStatusSucceeded)
}

// Gateway abstracts the payment provider so the settlement logic can be
// exercised without network calls.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}

// StripeGateway adapts the shared Stripe client to the Gateway interface.
type StripeGateway struct {
	client *pkgstripe.Client
}

// NewStripeGateway wraps the configured Stripe client.
func NewStripeGateway(client *pkgstripe.Client) (*StripeGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &StripeGateway{client: client}, nil
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64, metadata map[string]string) (*Intent, error) {
	intent, err := g.client.CreatePaymentIntent(ctx, pkgstripe.IntentParams{
		AmountCents: amountCents,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, err
	}
	return fromStripeIntent(intent), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	intent, err := g.client.RetrievePaymentIntent(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromStripeIntent(intent), nil
}

func fromStripeIntent(intent *stripelib.PaymentIntent) *Intent {
	if intent == nil {
		return nil
	}
	return &Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
		AmountCents:  intent.Amount,
	}
}
