package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pathwayhr/pathway/internal/model"
)

const validConfig = `
server:
  listen: ":9090"
store:
  backend: postgres
  postgres:
    host: db.internal
    user: pathway
    password: secret
    name: pathway
limits:
  process_create:
    limit: 5
    window: "30m"
roles:
  - slug: applicant
    allowed_process_types: ["recruitment"]
  - slug: reviewer
    allowed_process_types: []
    permissions: ["view_all", "view_internal"]
tokens:
  - token: tok-admin
    user_id: u-admin
    role: admin
  - token: tok-applicant
    user_id: u-applicant
    role: applicant
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pathway.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Listen != ":9090" {
		t.Errorf("Listen = %q, want :9090", cfg.Server.Listen)
	}
	if cfg.Store.Backend != "postgres" {
		t.Errorf("Backend = %q, want postgres", cfg.Store.Backend)
	}
	if cfg.Store.Postgres.Port != 5432 {
		t.Errorf("Port = %d, want defaulted 5432", cfg.Store.Postgres.Port)
	}
	if len(cfg.Roles) != 2 {
		t.Fatalf("len(Roles) = %d, want 2", len(cfg.Roles))
	}
	if cfg.Roles[1].Permissions[0] != "view_all" {
		t.Errorf("reviewer permissions = %v", cfg.Roles[1].Permissions)
	}
	if len(cfg.Tokens) != 2 {
		t.Errorf("len(Tokens) = %d, want 2", len(cfg.Tokens))
	}

	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Validate() on valid config returned %v", errs)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Server.Listen != ":8080" {
		t.Errorf("default listen = %q", cfg.Server.Listen)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("default backend = %q", cfg.Store.Backend)
	}
	lc, ok := cfg.Limits["process_create"]
	if !ok {
		t.Fatal("default config has no process_create limit")
	}
	if lc.Limit != 10 || lc.Window != "1h" {
		t.Errorf("default process_create = %+v, want 10/1h", lc)
	}
}

func TestLimitRules(t *testing.T) {
	cfg := Default()
	cfg.Limits["stage_submit"] = LimitConfig{Limit: 3, Window: "90s"}

	rules, err := cfg.LimitRules()
	if err != nil {
		t.Fatalf("LimitRules() error: %v", err)
	}
	if rules["stage_submit"].Window != 90*time.Second {
		t.Errorf("stage_submit window = %v, want 90s", rules["stage_submit"].Window)
	}
	if rules["process_create"].Limit != 10 {
		t.Errorf("process_create limit = %d, want 10", rules["process_create"].Limit)
	}

	cfg.Limits["bad"] = LimitConfig{Limit: 1, Window: "soon"}
	if _, err := cfg.LimitRules(); err == nil {
		t.Error("expected error for unparseable window")
	}
}

func TestPostgresDSN(t *testing.T) {
	pg := PostgresConfig{Host: "h", Port: 5433, User: "u", Password: "p", Name: "db", SSLMode: "require"}
	dsn := pg.DSN()
	for _, part := range []string{"host=h", "port=5433", "user=u", "dbname=db", "sslmode=require"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN missing %q: %s", part, dsn)
		}
	}
}

func TestValidateErrors(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "redis"
	cfg.Limits["create"] = LimitConfig{Limit: -1, Window: "later"}
	cfg.Roles = []model.Role{
		{Slug: "a"},
		{Slug: ""},
		{Slug: "a"},
	}
	cfg.Tokens = []TokenConfig{
		{Token: "", UserID: "u1"},
		{Token: "dup", UserID: "u2"},
		{Token: "dup", UserID: "u3"},
	}

	errs := Validate(cfg)
	wantFields := []string{
		"store.backend",
		"limits.create.limit",
		"limits.create.window",
		"roles[1].slug",
		"roles[2].slug",
		"tokens[0].token",
		"tokens[2].token",
	}
	for _, field := range wantFields {
		found := false
		for _, e := range errs {
			if e.Field == field {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Validate() missing error for %s, got %v", field, errs)
		}
	}
}

func TestValidatePostgresRequiredFields(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "postgres"

	errs := Validate(cfg)
	for _, field := range []string{"store.postgres.host", "store.postgres.user", "store.postgres.name"} {
		found := false
		for _, e := range errs {
			if e.Field == field {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Validate() missing error for %s", field)
		}
	}
}

func TestLoadDefaultFallsBackToBuiltin(t *testing.T) {
	orig, _ := os.Getwd()
	defer os.Chdir(orig)
	os.Chdir(t.TempDir())

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error: %v", err)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("fallback backend = %q, want file", cfg.Store.Backend)
	}
}
