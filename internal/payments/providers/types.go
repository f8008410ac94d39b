// Package providers abstracts payment providers behind small capability
// interfaces. An adapter implements Adapter plus any subset of LinkCreator,
// WebhookVerifier and StatusFetcher; callers ask for a capability with the
// As* helpers and get ErrUnsupported when the provider lacks it.
package providers

import (
	"context"
	"net/http"

	"mesa-system/internal/database/models"
)

// Config is a decrypted integration configuration document.
type Config map[string]any

// String returns the string value stored under key, or "".
func (c Config) String(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

type LinkRequest struct {
	TenantID      string
	LocationID    string
	OrderID       string
	AmountCents   int64
	Currency      string
	CustomerLabel string
}

type LinkResult struct {
	ExternalID string
	URL        string
	Raw        map[string]any
}

// WebhookRequest carries the untouched request body; signatures are computed
// over these exact bytes.
type WebhookRequest struct {
	Header http.Header
	Body   []byte
}

const EventPaymentSucceeded = "payment.success"

type WebhookEvent struct {
	Type       string
	ExternalID string
	Raw        map[string]any
}

// IsPaymentSuccess reports whether the event settles a payment.
func (e *WebhookEvent) IsPaymentSuccess() bool {
	return e != nil && e.Type == EventPaymentSucceeded && e.ExternalID != ""
}

type WebhookResult struct {
	OK    bool
	Event *WebhookEvent
}

type StatusResult struct {
	Status models.PaymentStatus
	Raw    map[string]any
}

type Adapter interface {
	Provider() models.Provider
}

type LinkCreator interface {
	Adapter
	CreatePaymentLink(ctx context.Context, cfg Config, req LinkRequest) (LinkResult, error)
}

type WebhookVerifier interface {
	Adapter
	VerifyWebhook(ctx context.Context, cfg Config, req WebhookRequest) (WebhookResult, error)
}

type StatusFetcher interface {
	Adapter
	FetchPaymentStatus(ctx context.Context, cfg Config, externalID string) (StatusResult, error)
}

type Capability string

const (
	CapabilityLink    Capability = "link"
	CapabilityWebhook Capability = "webhook"
	CapabilityStatus  Capability = "status"
)

// Capabilities lists what an adapter can do, in a stable order.
func Capabilities(a Adapter) []Capability {
	caps := []Capability{}
	if _, ok := a.(LinkCreator); ok {
		caps = append(caps, CapabilityLink)
	}
	if _, ok := a.(WebhookVerifier); ok {
		caps = append(caps, CapabilityWebhook)
	}
	if _, ok := a.(StatusFetcher); ok {
		caps = append(caps, CapabilityStatus)
	}
	return caps
}

func AsLinkCreator(a Adapter) (LinkCreator, error) {
	if lc, ok := a.(LinkCreator); ok {
		return lc, nil
	}
	return nil, unsupported(a, CapabilityLink)
}

func AsWebhookVerifier(a Adapter) (WebhookVerifier, error) {
	if wv, ok := a.(WebhookVerifier); ok {
		return wv, nil
	}
	return nil, unsupported(a, CapabilityWebhook)
}

func AsStatusFetcher(a Adapter) (StatusFetcher, error) {
	if sf, ok := a.(StatusFetcher); ok {
		return sf, nil
	}
	return nil, unsupported(a, CapabilityStatus)
}
