package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

const (
	resendEndpoint = "https://api.resend.com/emails"
	twilioBaseURL  = "https://api.twilio.com/2010-04-01"
)

type ResendSender struct {
	APIKey   string
	From     string
	To       string
	Endpoint string
	Client   *http.Client
}

func (s *ResendSender) Name() string { return "resend" }

func (s *ResendSender) Send(ctx context.Context, summary OrderSummary) error {
	body, err := json.Marshal(map[string]any{
		"from":    s.From,
		"to":      s.To,
		"subject": summary.EmailSubject(),
		"text":    summary.EmailText(),
	})
	if err != nil {
		return err
	}

	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = resendEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	return do(s.Client, req)
}

type TwilioWhatsAppSender struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
	BaseURL    string
	Client     *http.Client
}

func (s *TwilioWhatsAppSender) Name() string { return "twilio-whatsapp" }

func (s *TwilioWhatsAppSender) Send(ctx context.Context, summary OrderSummary) error {
	form := url.Values{}
	form.Set("To", whatsAppAddress(s.To))
	form.Set("From", whatsAppAddress(s.From))
	form.Set("Body", summary.WhatsAppText())

	base := s.BaseURL
	if base == "" {
		base = twilioBaseURL
	}
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", base, url.PathEscape(s.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.AccountSID, s.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(s.Client, req)
}

// whatsAppAddress turns "+1 (809) 555-0100" into "whatsapp:+18095550100".
func whatsAppAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "whatsapp:") {
		return raw
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
	return "whatsapp:+" + digits
}

func do(client *http.Client, req *http.Request) error {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s responded %d: %s", req.URL.Host, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
