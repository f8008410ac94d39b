package vault

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const MaskedPlaceholder = "••••••"

// SecretFields lists the configuration keys that never leave the vault in clear.
var SecretFields = []string{"apiKey", "secretKey", "webhookSecret"}

func IsSecretField(key string) bool {
	for _, f := range SecretFields {
		if f == key {
			return true
		}
	}
	return false
}

// Mask returns a display copy of config with every secret field replaced.
func Mask(config map[string]any) map[string]any {
	out := make(map[string]any, len(config))
	for k, v := range config {
		if IsSecretField(k) {
			out[k] = MaskedPlaceholder
			continue
		}
		out[k] = v
	}
	return out
}

// SecretUpdate is the edit intent for one secret field: keep the stored value
// or replace it. The zero value keeps.
type SecretUpdate struct {
	replace bool
	value   string
}

func Keep() SecretUpdate { return SecretUpdate{} }

func Replace(value string) SecretUpdate { return SecretUpdate{replace: true, value: value} }

func (u SecretUpdate) IsReplace() bool { return u.replace }

func (u SecretUpdate) Value() string { return u.value }

// UnmarshalJSON maps null to Keep and a string to Replace.
func (u *SecretUpdate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*u = Keep()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("secret update must be a string or null: %w", err)
	}
	*u = Replace(s)
	return nil
}

// Merge builds the configuration to store on edit. Non-secret fields come from
// incoming, secret fields from current unless a Replace is given for them.
// Secret keys present in incoming are ignored; only updates may change them.
func Merge(current, incoming map[string]any, updates map[string]SecretUpdate) map[string]any {
	out := make(map[string]any, len(current)+len(incoming))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range incoming {
		if IsSecretField(k) {
			continue
		}
		out[k] = v
	}
	for k, u := range updates {
		if !IsSecretField(k) || !u.IsReplace() {
			continue
		}
		if u.Value() == "" {
			delete(out, k)
			continue
		}
		out[k] = u.Value()
	}
	return out
}
