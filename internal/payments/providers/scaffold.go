package providers

import (
	"context"

	"mesa-system/internal/database/models"
)

// scaffoldAdapter declares every capability of a card network whose API is
// not wired yet. Each call fails with ErrNotImplemented.
type scaffoldAdapter struct {
	provider models.Provider
}

// Cardnet returns the CardNET adapter.
func Cardnet() Adapter { return scaffoldAdapter{provider: models.ProviderCardnet} }

// Azul returns the AZUL adapter.
func Azul() Adapter { return scaffoldAdapter{provider: models.ProviderAzul} }

func (s scaffoldAdapter) Provider() models.Provider { return s.provider }

func (s scaffoldAdapter) CreatePaymentLink(context.Context, Config, LinkRequest) (LinkResult, error) {
	return LinkResult{}, ErrNotImplemented
}

func (s scaffoldAdapter) VerifyWebhook(context.Context, Config, WebhookRequest) (WebhookResult, error) {
	return WebhookResult{}, ErrNotImplemented
}

func (s scaffoldAdapter) FetchPaymentStatus(context.Context, Config, string) (StatusResult, error) {
	return StatusResult{}, ErrNotImplemented
}
