package sitearchive

import (
	"path/filepath"
	"testing"
)

func TestLoadConfig_MappingIndex(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, p, `
content_path: /srv/site
listen_addr: 0.0.0.0:8080
debug: true
index:
  backend: SQLite
  path: /srv/site/sitemap.db
archive:
  path: /srv/site/files.zip
  handles: 4
overrides_path: /srv/site/overrides
`)
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ContentPath != "/srv/site" || cfg.ListenAddr != "0.0.0.0:8080" || !cfg.Debug {
		t.Fatalf("unexpected top-level config: %+v", cfg)
	}
	if cfg.Index.Backend != BackendSQLite || cfg.Index.Path != "/srv/site/sitemap.db" {
		t.Fatalf("unexpected index config: %+v", cfg.Index)
	}
	if cfg.Archive.Path != "/srv/site/files.zip" || cfg.Archive.Handles != 4 {
		t.Fatalf("unexpected archive config: %+v", cfg.Archive)
	}
	if cfg.OverridesPath != "/srv/site/overrides" {
		t.Fatalf("unexpected overrides path: %q", cfg.OverridesPath)
	}
}

func TestLoadConfig_ScalarIndex(t *testing.T) {
	dir := t.TempDir()

	p := filepath.Join(dir, "doc.yaml")
	writeFile(t, p, "index: content/sitemap.cbor.zst\n")
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Index.Path != "content/sitemap.cbor.zst" || cfg.Index.Backend != "" {
		t.Fatalf("unexpected index config: %+v", cfg.Index)
	}

	p = filepath.Join(dir, "db.yaml")
	writeFile(t, p, "index: content/sitemap.db\n")
	cfg, err = LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Index.Backend != BackendSQLite {
		t.Fatalf("expected sqlite backend for .db path, got %+v", cfg.Index)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config")
	}

	cases := map[string]string{
		"unknown-backend.yaml": "index:\n  backend: redis\n",
		"sequence-index.yaml":  "index:\n  - a\n  - b\n",
		"bad-yaml.yaml":        "index: [unterminated\n",
	}
	for name, body := range cases {
		p := filepath.Join(dir, name)
		writeFile(t, p, body)
		if _, err := LoadConfig(p); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
