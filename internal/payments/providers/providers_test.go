package providers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"mesa-system/internal/database/models"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		provider models.Provider
		caps     []Capability
	}{
		{models.ProviderManual, []Capability{}},
		{models.ProviderCardnet, []Capability{CapabilityLink, CapabilityWebhook, CapabilityStatus}},
		{models.ProviderAzul, []Capability{CapabilityLink, CapabilityWebhook, CapabilityStatus}},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			a, err := r.Get(tt.provider)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if a.Provider() != tt.provider {
				t.Errorf("Provider() = %s", a.Provider())
			}
			if got := Capabilities(a); !reflect.DeepEqual(got, tt.caps) {
				t.Errorf("Capabilities = %v, want %v", got, tt.caps)
			}
		})
	}

	if _, err := r.Get("STRIPE"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestManualHasNoRemoteCapabilities(t *testing.T) {
	m := Manual()
	if _, err := AsLinkCreator(m); !errors.Is(err, ErrUnsupported) {
		t.Errorf("AsLinkCreator err = %v", err)
	}
	if _, err := AsWebhookVerifier(m); !errors.Is(err, ErrUnsupported) {
		t.Errorf("AsWebhookVerifier err = %v", err)
	}
	if _, err := AsStatusFetcher(m); !errors.Is(err, ErrUnsupported) {
		t.Errorf("AsStatusFetcher err = %v", err)
	}
}

func TestScaffoldsReturnNotImplemented(t *testing.T) {
	ctx := context.Background()
	for _, a := range []Adapter{Cardnet(), Azul()} {
		lc, err := AsLinkCreator(a)
		if err != nil {
			t.Fatalf("AsLinkCreator(%s): %v", a.Provider(), err)
		}
		if _, err := lc.CreatePaymentLink(ctx, Config{}, LinkRequest{OrderID: "o1", AmountCents: 100}); !errors.Is(err, ErrNotImplemented) {
			t.Errorf("%s CreatePaymentLink err = %v", a.Provider(), err)
		}
		wv, _ := AsWebhookVerifier(a)
		if _, err := wv.VerifyWebhook(ctx, Config{}, WebhookRequest{Body: []byte("{}")}); !errors.Is(err, ErrNotImplemented) {
			t.Errorf("%s VerifyWebhook err = %v", a.Provider(), err)
		}
		sf, _ := AsStatusFetcher(a)
		if _, err := sf.FetchPaymentStatus(ctx, Config{}, "ext"); !errors.Is(err, ErrNotImplemented) {
			t.Errorf("%s FetchPaymentStatus err = %v", a.Provider(), err)
		}
	}
}

func TestProviderFromSegment(t *testing.T) {
	if p, ok := ProviderFromSegment("CardNet"); !ok || p != models.ProviderCardnet {
		t.Errorf("cardnet -> %s, %v", p, ok)
	}
	if p, ok := ProviderFromSegment("azul"); !ok || p != models.ProviderAzul {
		t.Errorf("azul -> %s, %v", p, ok)
	}
	if _, ok := ProviderFromSegment("paypal"); ok {
		t.Error("unknown segment resolved")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	p := models.ProviderCardnet

	if Classify(p, "link", nil) != nil {
		t.Error("nil must stay nil")
	}
	if err := Classify(p, "link", ErrNotImplemented); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("not implemented lost: %v", err)
	}
	if err := Classify(p, "link", fmt.Errorf("wrap: %w", context.DeadlineExceeded)); !IsUnavailable(err) {
		t.Errorf("deadline should be unavailable: %v", err)
	}
	if err := Classify(p, "status", timeoutErr{}); !IsUnavailable(err) {
		t.Errorf("net timeout should be unavailable: %v", err)
	}

	err := Classify(p, "link", errors.New("card declined"))
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Kind != KindRejected || pe.Retryable() {
		t.Errorf("plain error should be rejected: %v", err)
	}
}

func strPtr(s string) *string { return &s }

func TestMergeEnabled(t *testing.T) {
	integrations := []models.PaymentIntegration{
		{ID: "g-link", Name: "CardNET global", Provider: models.ProviderCardnet, Type: models.IntegrationCardLink, IsEnabled: true},
		{ID: "g-term", Name: "Manual global", Provider: models.ProviderManual, Type: models.IntegrationTerminal, IsEnabled: true},
		{ID: "l-link", Name: "CardNET centro", Provider: models.ProviderCardnet, Type: models.IntegrationCardLink, IsEnabled: true, LocationID: strPtr("centro")},
		{ID: "other", Name: "Other location", Provider: models.ProviderAzul, Type: models.IntegrationTerminal, IsEnabled: true, LocationID: strPtr("norte")},
		{ID: "off", Name: "Disabled", Provider: models.ProviderAzul, Type: models.IntegrationTerminal, IsEnabled: false},
	}

	got := MergeEnabled(integrations, "centro")

	wantLink := []Channel{
		{ID: "l-link", Name: "CardNET centro", Provider: models.ProviderCardnet},
		{ID: "g-link", Name: "CardNET global", Provider: models.ProviderCardnet},
	}
	wantTerminal := []Channel{
		{ID: "g-term", Name: "Manual global", Provider: models.ProviderManual},
	}
	if !reflect.DeepEqual(got.CardLink, wantLink) {
		t.Errorf("CardLink = %+v, want %+v", got.CardLink, wantLink)
	}
	if !reflect.DeepEqual(got.Terminal, wantTerminal) {
		t.Errorf("Terminal = %+v, want %+v", got.Terminal, wantTerminal)
	}

	empty := MergeEnabled(nil, "centro")
	if empty.CardLink == nil || empty.Terminal == nil || len(empty.CardLink)+len(empty.Terminal) != 0 {
		t.Errorf("expected empty non-nil lists, got %+v", empty)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := map[string]any{
		"environment": "sandbox",
		"merchantId":  "m-1",
		"apiKey":      "k",
		"secretKey":   "s",
		"junk":        "dropped",
	}
	cfg, err := ValidateConfig(models.ProviderCardnet, models.IntegrationCardLink, valid)
	if err != nil {
		t.Fatalf("ValidateConfig: %v", err)
	}
	if _, ok := cfg["junk"]; ok {
		t.Error("unknown keys must be dropped")
	}
	if cfg.String("merchantId") != "m-1" {
		t.Errorf("merchantId = %q", cfg.String("merchantId"))
	}

	_, err = ValidateConfig(models.ProviderAzul, models.IntegrationCardLink, map[string]any{"environment": "live"})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
	if len(ce.Fields) != 4 {
		t.Errorf("fields = %v, want environment, merchantId, apiKey, secretKey", ce.Fields)
	}

	if _, err := ValidateConfig(models.ProviderManual, models.IntegrationTerminal, map[string]any{"label": "Caja"}); err != nil {
		t.Errorf("manual terminal: %v", err)
	}
	if _, err := ValidateConfig(models.ProviderManual, models.IntegrationCardLink, map[string]any{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("manual link err = %v, want ErrUnsupported", err)
	}
	if _, err := ValidateConfig(models.ProviderCardnet, models.IntegrationCardLink, map[string]any{
		"environment": "production", "merchantId": "m", "apiKey": "k", "secretKey": "s", "callbackUrl": "not a url",
	}); !errors.As(err, &ce) {
		t.Errorf("bad callback url err = %v", err)
	}
}
