// internal/config/loader_test.go
//
// Unit-tests for the layered loader and secret references.
//
// Run: go test ./internal/config -v

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
http:
  listen_addr: "127.0.0.1:8080"
  metrics_addr: "127.0.0.1:9090"
database:
  dsn: "docschema@tcp(127.0.0.1:3306)/docschema?parseTime=true"
  password: "vault:secret/docschema#db_password"
schema:
  dir: schemas
`

func writeRoot(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(envRoot, root)
	return root
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	root := writeRoot(t, sampleYAML)
	t.Setenv("DOCSCHEMA_HTTP__LISTEN_ADDR", "0.0.0.0:8181")
	t.Setenv("DOCSCHEMA_SCHEMA__REJECT_UNKNOWN_FIELDS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.ListenAddr != "0.0.0.0:8181" {
		t.Fatalf("listen_addr = %q, env override ignored", cfg.HTTP.ListenAddr)
	}
	if !cfg.Schema.RejectUnknownFields {
		t.Fatalf("reject_unknown_fields not applied from env")
	}
	if cfg.Schema.Dir != filepath.Join(root, "schemas") {
		t.Fatalf("schema dir = %q, want rooted path", cfg.Schema.Dir)
	}
	if cfg.Database.MaxOpen != 15 || cfg.Database.MaxIdle != 5 || cfg.Log.Level != "info" {
		t.Fatalf("defaults not applied: %+v %+v", cfg.Database, cfg.Log)
	}
	if cfg.Paths.Root != root || Get() != cfg {
		t.Fatalf("root/current not recorded")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	writeRoot(t, `
http:
  listen_addr: "not an address"
database:
  dsn: "docschema@tcp(127.0.0.1:3306)/docschema"
`)
	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for listen_addr")
	}
}

func TestLoad_MissingDSN(t *testing.T) {
	writeRoot(t, `
http:
  listen_addr: "127.0.0.1:8080"
`)
	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for missing dsn")
	}
}

func TestParseSecretRef(t *testing.T) {
	path, key, err := ParseSecretRef("vault:secret/docschema#db_password")
	if err != nil || path != "secret/docschema" || key != "db_password" {
		t.Fatalf("ParseSecretRef = %q, %q, %v", path, key, err)
	}
	for _, bad := range []string{"vault:secret/docschema", "vault:#k", "vault:secret#k", "plain"} {
		if _, _, err := ParseSecretRef(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestResolveSecrets(t *testing.T) {
	cfg := &Config{Database: Database{Password: "vault:secret/docschema#db_password"}}
	if !cfg.HasSecretRefs() {
		t.Fatalf("HasSecretRefs = false")
	}

	var gotPath, gotKey string
	err := cfg.ResolveSecrets(context.Background(), func(_ context.Context, p, k string, _ time.Duration) (string, error) {
		gotPath, gotKey = p, k
		return "s3cret", nil
	})
	if err != nil {
		t.Fatalf("ResolveSecrets: %v", err)
	}
	if cfg.Database.Password != "s3cret" || gotPath != "secret/docschema" || gotKey != "db_password" {
		t.Fatalf("resolved %q via %s#%s", cfg.Database.Password, gotPath, gotKey)
	}
	if cfg.HasSecretRefs() {
		t.Fatalf("reference still present after resolve")
	}

	failing := &Config{Database: Database{Password: "vault:secret/x#k"}}
	boom := errors.New("sealed")
	err = failing.ResolveSecrets(context.Background(), func(context.Context, string, string, time.Duration) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped lookup error", err)
	}
}
