package notify

import (
	"strings"

	"mesa-system/config"
)

// SendersFromConfig enables each sender whose settings are complete.
func SendersFromConfig(cfg config.NotifyConfig) []Sender {
	var senders []Sender
	if key, to := strings.TrimSpace(cfg.ResendAPIKey), strings.TrimSpace(cfg.NotificationEmail); key != "" && to != "" {
		senders = append(senders, &ResendSender{APIKey: key, From: strings.TrimSpace(cfg.ResendFromEmail), To: to})
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioWhatsAppFrom != "" && cfg.NotificationWAto != "" {
		senders = append(senders, &TwilioWhatsAppSender{
			AccountSID: strings.TrimSpace(cfg.TwilioAccountSID),
			AuthToken:  strings.TrimSpace(cfg.TwilioAuthToken),
			From:       cfg.TwilioWhatsAppFrom,
			To:         cfg.NotificationWAto,
		})
	}
	return senders
}
