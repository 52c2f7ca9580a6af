package sitearchive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_ServesEndToEnd(t *testing.T) {
	dir := newContentDir(t,
		map[string]SourceEntry{
			"/old":      {Status: 301, Location: "/new", Filename: "old.html"},
			"/new":      {Status: 200, ContentType: "text/html", Filename: "new.html"},
			"/a/b.html": {Status: 200, ContentType: "text/html", Filename: "b.html"},
			"/orphan":   {Status: 200, Filename: "orphan.html"},
		},
		zipMember{name: "files/old.html", body: "<p>old</p>"},
		zipMember{name: "files/new.html", body: "<p>new</p>"},
		zipMember{name: "files/b.html", body: "<p>archived b</p>"},
	)
	writeFile(t, filepath.Join(dir, "overrides", "a", "b.html"), "<p>override b</p>")

	site, err := Open(SiteConfig{ContentPath: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer site.Close()

	srv := httptest.NewServer(site.Handler())
	defer srv.Close()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	cases := []struct {
		path     string
		status   int
		body     string
		location string
		ctype    string
	}{
		{"/old", 301, "<p>old</p>", "/new", ""},
		{"/new", 200, "<p>new</p>", "", "text/html"},
		{"/a/b.html", 200, "<p>override b</p>", "", "text/html; charset=utf-8"},
		{"/missing", 404, string(notFoundPage), "", "text/html; charset=utf-8"},
		{"/orphan", 404, string(memberMissingPage), "", "text/html; charset=utf-8"},
	}
	for _, c := range cases {
		res, err := client.Get(srv.URL + c.path)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()
		if res.StatusCode != c.status || string(body) != c.body {
			t.Fatalf("%s: expected %d %q, got %d %q", c.path, c.status, c.body, res.StatusCode, string(body))
		}
		if got := res.Header.Get("Location"); got != c.location {
			t.Fatalf("%s: expected Location %q, got %q", c.path, c.location, got)
		}
		if got := res.Header.Get("Content-Type"); got != c.ctype {
			t.Fatalf("%s: expected Content-Type %q, got %q", c.path, c.ctype, got)
		}
	}
}

func TestOpen_SQLiteBackend(t *testing.T) {
	entries := map[string]SourceEntry{
		"/old": {Status: 301, Location: "/new", Filename: "old.html"},
	}
	dir := newContentDir(t, entries, zipMember{name: "files/old.html", body: "<p>old</p>"})

	idx, err := LoadSitemapFile(filepath.Join(dir, "sitemap.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := ExportSitemapDB(context.Background(), idx, filepath.Join(dir, "sitemap.db")); err != nil {
		t.Fatal(err)
	}
	// Prove the database, not the document, answers.
	if err := os.Remove(filepath.Join(dir, "sitemap.json")); err != nil {
		t.Fatal(err)
	}

	site, err := Open(SiteConfig{ContentPath: dir, IndexBackend: BackendSQLite})
	if err != nil {
		t.Fatal(err)
	}
	defer site.Close()

	resp := site.Resolver().Resolve(context.Background(), Request{Path: "/old"})
	if resp.Status != 301 || string(resp.Body) != "<p>old</p>" || resp.Header.Get("Location") != "/new" {
		t.Fatalf("unexpected response %d %q %v", resp.Status, string(resp.Body), resp.Header)
	}
}

func TestOpen_FailsWithoutArchiveOrSitemap(t *testing.T) {
	dir := newContentDir(t, map[string]SourceEntry{"/": {Status: 200, Filename: "index.html"}})

	if err := os.Remove(filepath.Join(dir, "files.zip")); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(SiteConfig{ContentPath: dir}); err == nil {
		t.Fatalf("expected error without archive")
	}

	writeZip(t, filepath.Join(dir, "files.zip"))
	writeFile(t, filepath.Join(dir, "sitemap.json"), `{"/": {"status": 200}}`)
	if _, err := Open(SiteConfig{ContentPath: dir}); err == nil {
		t.Fatalf("expected error for malformed sitemap")
	}

	if err := os.Remove(filepath.Join(dir, "sitemap.json")); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(SiteConfig{ContentPath: dir}); err == nil {
		t.Fatalf("expected error without sitemap")
	}
	if _, err := Open(SiteConfig{ContentPath: dir, IndexBackend: BackendSQLite}); err == nil {
		t.Fatalf("expected error without sitemap.db")
	}
}

func TestSiteConfig_WithDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sitemap.jsonc"), "{}")

	cfg, err := SiteConfig{ContentPath: dir}.withDefaults()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ArchivePath != filepath.Join(dir, "files.zip") ||
		cfg.OverridesPath != filepath.Join(dir, "overrides") ||
		cfg.IndexPath != filepath.Join(dir, "sitemap.jsonc") ||
		cfg.IndexBackend != BackendMemory ||
		cfg.ArchiveHandles != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	cfg, err = SiteConfig{ContentPath: dir, IndexPath: "/srv/site/paths.DB"}.withDefaults()
	if err != nil || cfg.IndexBackend != BackendSQLite {
		t.Fatalf("expected sqlite backend inferred from .db path, got %+v err=%v", cfg, err)
	}

	if _, err := (SiteConfig{ContentPath: dir, IndexBackend: "redis"}).withDefaults(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
