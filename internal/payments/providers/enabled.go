package providers

import "mesa-system/internal/database/models"

type Channel struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Provider models.Provider `json:"provider"`
}

type EnabledChannels struct {
	CardLink []Channel `json:"card_link"`
	Terminal []Channel `json:"terminal"`
}

// MergeEnabled computes the channels a location can offer. Location specific
// integrations come first; tenant-wide ones follow unless already present.
// Duplicates are detected by integration id, not provider.
func MergeEnabled(integrations []models.PaymentIntegration, locationID string) EnabledChannels {
	var global, local []models.PaymentIntegration
	for _, i := range integrations {
		if !i.IsEnabled {
			continue
		}
		switch {
		case i.LocationID == nil:
			global = append(global, i)
		case *i.LocationID == locationID:
			local = append(local, i)
		}
	}

	byType := func(t models.IntegrationType) []Channel {
		out := []Channel{}
		seen := map[string]bool{}
		for _, group := range [][]models.PaymentIntegration{local, global} {
			for _, i := range group {
				if i.Type != t || seen[i.ID] {
					continue
				}
				seen[i.ID] = true
				out = append(out, Channel{ID: i.ID, Name: i.Name, Provider: i.Provider})
			}
		}
		return out
	}

	return EnabledChannels{
		CardLink: byType(models.IntegrationCardLink),
		Terminal: byType(models.IntegrationTerminal),
	}
}
