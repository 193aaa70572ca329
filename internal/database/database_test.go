package database

import (
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestBuildDSN(t *testing.T) {
	got, err := BuildDSN("docschema@tcp(db:3306)/docschema", "s3cret")
	if err != nil {
		t.Fatalf("BuildDSN: %v", err)
	}

	cfg, err := mysql.ParseDSN(got)
	if err != nil {
		t.Fatalf("reparse %q: %v", got, err)
	}
	if cfg.User != "docschema" || cfg.Passwd != "s3cret" || cfg.Addr != "db:3306" || cfg.DBName != "docschema" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !cfg.ParseTime {
		t.Fatalf("parseTime not forced")
	}
}

func TestBuildDSN_KeepsPasswordWhenEmpty(t *testing.T) {
	got, err := BuildDSN("u:inline@tcp(db:3306)/x", "")
	if err != nil {
		t.Fatalf("BuildDSN: %v", err)
	}
	cfg, _ := mysql.ParseDSN(got)
	if cfg.Passwd != "inline" {
		t.Fatalf("password = %q, want inline", cfg.Passwd)
	}
}

func TestBuildDSN_Invalid(t *testing.T) {
	if _, err := BuildDSN("u@tcp(db:3306)", ""); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	got := Options{MaxOpenConns: 40}.withDefaults()
	if got.MaxOpenConns != 40 || got.MaxIdleConns != DefaultOptions.MaxIdleConns || got.ConnMaxLifetime != DefaultOptions.ConnMaxLifetime {
		t.Fatalf("withDefaults = %+v", got)
	}
}
