package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"mesa-system/internal/database/models"

	"github.com/go-playground/validator/v10"
)

// TerminalConfig is the configuration of manual and network terminals.
type TerminalConfig struct {
	Label string `json:"label,omitempty"`
}

// LinkConfig is the configuration of hosted checkout / QR link integrations.
type LinkConfig struct {
	Environment   string `json:"environment" validate:"required,oneof=sandbox production"`
	MerchantID    string `json:"merchantId" validate:"required"`
	APIKey        string `json:"apiKey" validate:"required"`
	SecretKey     string `json:"secretKey" validate:"required"`
	CallbackURL   string `json:"callbackUrl,omitempty" validate:"omitempty,url"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
}

type ConfigError struct {
	Fields []string
}

func (e *ConfigError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid configuration"
	}
	return "invalid configuration: " + strings.Join(e.Fields, "; ")
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func configSchema(p models.Provider, t models.IntegrationType) (any, error) {
	switch p {
	case models.ProviderManual:
		if t != models.IntegrationTerminal {
			return nil, fmt.Errorf("%w: %s supports only %s", ErrUnsupported, p, models.IntegrationTerminal)
		}
		return &TerminalConfig{}, nil
	case models.ProviderCardnet, models.ProviderAzul:
		switch t {
		case models.IntegrationCardLink:
			return &LinkConfig{}, nil
		case models.IntegrationTerminal:
			return &TerminalConfig{}, nil
		}
		return nil, fmt.Errorf("unknown integration type %q", t)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p)
}

// ValidateConfig checks cfg against the schema of (provider, type) and returns
// the normalized document: unknown keys are dropped.
func ValidateConfig(p models.Provider, t models.IntegrationType, cfg map[string]any) (Config, error) {
	schema, err := configSchema(p, t)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := json.Unmarshal(raw, schema); err != nil {
		return nil, &ConfigError{Fields: []string{err.Error()}}
	}

	if err := configValidator.Struct(schema); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fieldMessage(fe))
			}
			return nil, &ConfigError{Fields: fields}
		}
		return nil, err
	}

	normalized, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	out := Config{}
	if err := json.Unmarshal(normalized, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "url":
		return fe.Field() + " must be a valid URL"
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
