package providers

import "mesa-system/internal/database/models"

// manualAdapter is terminal capture only: no links, webhooks or polling.
type manualAdapter struct{}

func Manual() Adapter { return manualAdapter{} }

func (manualAdapter) Provider() models.Provider { return models.ProviderManual }
