package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/launchkit/launchkit/internal/config"
	"github.com/launchkit/launchkit/internal/model"
)

func TestSolidgateStubFailsLoudly(t *testing.T) {
	p := NewSolidgateProvider(&config.Config{SolidgatePublicKey: "sg_pub"})
	ctx := context.Background()

	if _, err := p.CustomerID(ctx, &model.User{ID: "u1"}); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("CustomerID: %v", err)
	}
	if _, err := p.CreatePaymentIntent(ctx, CreatePaymentIntentParams{}); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("CreatePaymentIntent: %v", err)
	}
	if _, err := p.HandleWebhook(ctx, WebhookRequest{}); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("HandleWebhook: %v", err)
	}
	if err := p.RefundPayment(ctx, "pi_1", 100); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("RefundPayment: %v", err)
	}
}

func TestSolidgateNonNetworkSurface(t *testing.T) {
	p := NewSolidgateProvider(&config.Config{SolidgatePublicKey: "sg_pub"})

	if p.Name() != model.ProviderSolidgate {
		t.Errorf("Name() = %q", p.Name())
	}

	cc := p.ClientConfig()
	if cc.Provider != model.ProviderSolidgate || cc.PublishableKey != "sg_pub" {
		t.Errorf("ClientConfig = %+v", cc)
	}

	user := &model.User{ID: "u1", Metadata: map[string]string{"solidgate_customer_id": "cus_1"}}
	if !p.HasCustomerID(user) {
		t.Error("metadata id must be visible without network access")
	}
	if p.HasCustomerID(&model.User{ID: "u2"}) {
		t.Error("no metadata, no customer id")
	}
}
