// internal/vault/vault_test.go
//
// Unit-tests for GetKV using an in-memory KV backend.

package vault

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memKV struct {
	data  map[string]map[string]any // mount/path → secret data
	calls int
}

func (m *memKV) Get(_ context.Context, mount, path string) (map[string]any, error) {
	m.calls++
	d, ok := m.data[mount+"/"+path]
	if !ok {
		return nil, errors.New("secret not found")
	}
	return d, nil
}

func TestGetKV(t *testing.T) {
	kv := &memKV{data: map[string]map[string]any{
		"secret/docschema": {"db_password": "s3cret", "port": 3306},
	}}
	c := NewWithKV(kv)
	ctx := context.Background()

	got, err := c.GetKV(ctx, "secret/docschema", "db_password", time.Minute)
	if err != nil || got != "s3cret" {
		t.Fatalf("GetKV = %q, %v", got, err)
	}
	if _, err := c.GetKV(ctx, "secret/docschema", "db_password", time.Minute); err != nil {
		t.Fatalf("cached GetKV: %v", err)
	}
	if kv.calls != 1 {
		t.Fatalf("backend calls = %d, want 1 (cache hit)", kv.calls)
	}

	if _, err := c.GetKV(ctx, "secret/docschema", "missing", 0); err == nil {
		t.Fatalf("expected missing-key error")
	}
	if _, err := c.GetKV(ctx, "secret/docschema", "port", 0); err == nil {
		t.Fatalf("expected non-string error")
	}
	if _, err := c.GetKV(ctx, "nomount", "k", 0); err == nil {
		t.Fatalf("expected mount error")
	}
	if _, err := c.GetKV(ctx, "", "k", 0); err == nil {
		t.Fatalf("expected empty-path error")
	}
}
