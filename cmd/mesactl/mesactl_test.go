package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mesa-system/config"
	"mesa-system/internal/database/dbtest"
	"mesa-system/internal/tenant"
	"mesa-system/internal/utils"
	"mesa-system/internal/vault"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestKeygen(t *testing.T) {
	out, err := run(t, "keygen")
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if _, err := vault.NewFromHex(strings.TrimSpace(out)); err != nil {
		t.Errorf("generated key rejected: %v", err)
	}
}

func TestTokenCommand(t *testing.T) {
	const secret = "mesactl-test-secret"
	out, err := run(t, "token", "--tenant", "t-1", "--actor", "u-1", "--role", "OWNER", "--jwt-secret", secret, "--ttl", "5m")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	issuer, err := utils.NewTokenIssuer(secret, time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	claims, err := issuer.ParseToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	want := tenant.Context{TenantID: "t-1", ActorID: "u-1", Role: tenant.RoleOwner}
	if got := claims.TenantContext(); got != want {
		t.Errorf("claims = %+v, want %+v", got, want)
	}

	if _, err := run(t, "token", "--tenant", "t-1", "--jwt-secret", secret); err == nil {
		t.Error("expected an error without --actor")
	}
}

func TestLoadIntegrationFileYAML(t *testing.T) {
	path := writeFile(t, "azul.yaml", `
name: Azul QR
provider: AZUL
type: CARD_LINK
is_enabled: false
config:
  environment: sandbox
  merchantId: "39038540035"
secrets:
  apiKey: key-1
  secretKey: null
  webhookSecret: ""
`)
	in, err := loadIntegrationFile(path)
	if err != nil {
		t.Fatalf("loadIntegrationFile: %v", err)
	}
	if in.Provider != "AZUL" || in.Type != "CARD_LINK" || in.Name != "Azul QR" {
		t.Errorf("input = %+v", in)
	}
	if in.IsEnabled == nil || *in.IsEnabled {
		t.Errorf("is_enabled = %v, want false", in.IsEnabled)
	}
	if in.Config["merchantId"] != "39038540035" {
		t.Errorf("config keys must keep their case: %v", in.Config)
	}
	if u := in.Secrets["apiKey"]; !u.IsReplace() || u.Value() != "key-1" {
		t.Errorf("apiKey = %+v", u)
	}
	if in.Secrets["secretKey"].IsReplace() {
		t.Error("null secret must keep the stored value")
	}
	if u := in.Secrets["webhookSecret"]; !u.IsReplace() || u.Value() != "" {
		t.Errorf("empty secret must clear: %+v", u)
	}
}

func TestLoadIntegrationFileJSON(t *testing.T) {
	path := writeFile(t, "cardnet.json", `{"name":"Caja","provider":"CARDNET","type":"TERMINAL","location_id":"loc-1","config":{"terminalId":"T1"}}`)
	in, err := loadIntegrationFile(path)
	if err != nil {
		t.Fatalf("loadIntegrationFile: %v", err)
	}
	if in.LocationID == nil || *in.LocationID != "loc-1" || in.Config["terminalId"] != "T1" {
		t.Errorf("input = %+v", in)
	}

	bad := writeFile(t, "bad.yaml", "name: only a name\n")
	if _, err := loadIntegrationFile(bad); err == nil {
		t.Error("expected error when provider and type are missing")
	}
}

func TestOwnerContext(t *testing.T) {
	db := dbtest.Open(t)
	fx := dbtest.Seed(t, db, "ctl")

	tc, err := ownerContext(context.Background(), db, fx.Tenant.ID)
	if err != nil {
		t.Fatalf("ownerContext: %v", err)
	}
	if tc.ActorID != fx.Staff.ID || !tc.IsAdmin() {
		t.Errorf("context = %+v", tc)
	}
	if _, err := ownerContext(context.Background(), db, "missing"); err == nil {
		t.Error("expected error for a tenant without admins")
	}
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := openRedis(config.RedisConfig{Host: mr.Host(), Port: mr.Port()}, zap.NewNop())
	if rc == nil {
		t.Fatal("openRedis returned nil for a live server")
	}
	defer rc.Close()
	if err := rc.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Errorf("k = %q", got)
	}

	addr := mr.Addr()
	mr.Close()
	host, port, _ := strings.Cut(addr, ":")
	if rc := openRedis(config.RedisConfig{Host: host, Port: port}, zap.NewNop()); rc != nil {
		rc.Close()
		t.Error("openRedis returned a client for a dead server")
	}
}
