package vault

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewFromHex(testKey)
	if err != nil {
		t.Fatalf("NewFromHex: %v", err)
	}
	return v
}

func TestNewFromHexRejectsBadKeys(t *testing.T) {
	tests := map[string]string{
		"empty":    "",
		"short":    "abcd",
		"not hex":  strings.Repeat("zz", 32),
		"too long": testKey + "00",
		"16 bytes": testKey[:32],
	}
	for name, key := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewFromHex(key); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("NewFromHex(%q) err = %v, want ErrInvalidKey", key, err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	v := newTestVault(t)
	docs := []map[string]any{
		{},
		{"label": "Caja 1"},
		{"environment": "sandbox", "merchantId": "m-1", "apiKey": "k", "secretKey": "s", "nested": map[string]any{"a": []any{1.0, "b", true}}},
	}

	for _, doc := range docs {
		token, err := v.Encrypt(doc)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		got, err := v.DecryptMap(token)
		if err != nil {
			t.Fatalf("DecryptMap: %v", err)
		}
		if !reflect.DeepEqual(got, doc) {
			t.Errorf("round trip = %#v, want %#v", got, doc)
		}
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	v := newTestVault(t)
	a, _ := v.Encrypt(map[string]string{"apiKey": "same"})
	b, _ := v.Encrypt(map[string]string{"apiKey": "same"})
	if a == b {
		t.Fatal("two encryptions of the same document produced identical tokens")
	}
}

func TestDecryptFailsClosedOnTamper(t *testing.T) {
	v := newTestVault(t)
	token, err := v.Encrypt(map[string]string{"secretKey": "s3cr3t"})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(token)

	for i := 0; i < len(raw); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), raw...)
			tampered[i] ^= 1 << bit
			var out map[string]any
			err := v.Decrypt(base64.StdEncoding.EncodeToString(tampered), &out)
			if !errors.Is(err, ErrDecrypt) {
				t.Fatalf("byte %d bit %d: err = %v, want ErrDecrypt", i, bit, err)
			}
			if out != nil {
				t.Fatalf("byte %d bit %d: partial plaintext leaked: %v", i, bit, out)
			}
		}
	}
}

func TestDecryptRejectsTruncatedAndGarbage(t *testing.T) {
	v := newTestVault(t)
	token, _ := v.Encrypt(map[string]string{"a": "b"})
	raw, _ := base64.StdEncoding.DecodeString(token)

	inputs := []string{
		"",
		"not base64 !!",
		base64.StdEncoding.EncodeToString(raw[:nonceSize+tagSize]),
	}
	for _, in := range inputs {
		var out map[string]any
		if err := v.Decrypt(in, &out); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Decrypt(%q) err = %v, want ErrInvalidToken", in, err)
		}
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	v := newTestVault(t)
	token, _ := v.Encrypt(map[string]string{"a": "b"})

	other, err := NewFromHex(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("NewFromHex: %v", err)
	}
	if _, err := other.DecryptMap(token); !errors.Is(err, ErrDecrypt) {
		t.Errorf("err = %v, want ErrDecrypt", err)
	}
}

func TestGenerateKey(t *testing.T) {
	k, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if _, err := NewFromHex(k); err != nil {
		t.Errorf("generated key rejected: %v", err)
	}
}

func TestMask(t *testing.T) {
	in := map[string]any{"merchantId": "m-1", "apiKey": "k", "secretKey": "s", "environment": "sandbox"}
	got := Mask(in)
	if got["apiKey"] != MaskedPlaceholder || got["secretKey"] != MaskedPlaceholder {
		t.Errorf("secrets not masked: %v", got)
	}
	if got["merchantId"] != "m-1" || got["environment"] != "sandbox" {
		t.Errorf("non-secret fields changed: %v", got)
	}
	if _, ok := got["webhookSecret"]; ok {
		t.Errorf("absent secret must not be invented: %v", got)
	}
	if in["apiKey"] != "k" {
		t.Error("Mask mutated its input")
	}
}

func TestMergeKeepsUnchangedSecrets(t *testing.T) {
	current := map[string]any{"merchantId": "m-1", "apiKey": "old-key", "secretKey": "old-secret", "webhookSecret": "wh"}
	incoming := map[string]any{"merchantId": "m-2", "apiKey": MaskedPlaceholder, "secretKey": MaskedPlaceholder}
	updates := map[string]SecretUpdate{
		"apiKey":        Keep(),
		"secretKey":     Replace("new-secret"),
		"webhookSecret": Replace(""),
	}

	got := Merge(current, incoming, updates)
	want := map[string]any{"merchantId": "m-2", "apiKey": "old-key", "secretKey": "new-secret"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}
}

func TestSecretUpdateJSON(t *testing.T) {
	var payload struct {
		APIKey    SecretUpdate `json:"apiKey"`
		SecretKey SecretUpdate `json:"secretKey"`
		Missing   SecretUpdate `json:"webhookSecret"`
	}
	if err := json.Unmarshal([]byte(`{"apiKey": null, "secretKey": "fresh"}`), &payload); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if payload.APIKey.IsReplace() || payload.Missing.IsReplace() {
		t.Error("null and absent must keep")
	}
	if !payload.SecretKey.IsReplace() || payload.SecretKey.Value() != "fresh" {
		t.Errorf("secretKey = %+v, want Replace(fresh)", payload.SecretKey)
	}
	if err := json.Unmarshal([]byte(`{"apiKey": 42}`), &payload); err == nil {
		t.Error("expected error for non-string secret update")
	}
}
