package sitearchive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

type zipMember struct {
	name string
	body string
	zstd bool
}

func writeZip(t *testing.T, path string, members ...zipMember) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	w.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	for _, m := range members {
		hdr := &zip.FileHeader{Name: m.name, Method: zip.Deflate}
		if m.zstd {
			hdr.Method = zstd.ZipMethodWinZip
		}
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(m.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeSitemapJSON(t *testing.T, path string, entries map[string]SourceEntry) {
	t.Helper()
	b, err := json.Marshal(entries)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
}

// newContentDir lays out files.zip, sitemap.json and overrides/ in a temp dir.
func newContentDir(t *testing.T, entries map[string]SourceEntry, members ...zipMember) string {
	t.Helper()
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "files.zip"), members...)
	writeSitemapJSON(t, filepath.Join(dir, "sitemap.json"), entries)
	if err := os.MkdirAll(filepath.Join(dir, "overrides"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func writeFile(t *testing.T, path string, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
