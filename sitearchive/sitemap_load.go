package sitearchive

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/tidwall/jsonc"
)

var sitemapCandidates = []string{
	"sitemap.json",
	"sitemap.jsonc",
	"sitemap.cbor",
	"sitemap.json.zst",
	"sitemap.json.lz4",
	"sitemap.cbor.zst",
	"sitemap.cbor.lz4",
}

// DefaultSitemapPath returns the first sitemap document found in contentRoot.
func DefaultSitemapPath(contentRoot string) (string, error) {
	for _, name := range sitemapCandidates {
		p := filepath.Join(contentRoot, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("no sitemap document in %s (tried %s)", contentRoot, strings.Join(sitemapCandidates, ", "))
}

// LoadSitemapFile builds a SiteIndex from a sitemap document. The decoder is
// chosen from the file name: .json, .jsonc or .cbor, optionally followed by
// .zst or .lz4.
func LoadSitemapFile(path string) (*SiteIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, 64*1024)
	name := strings.ToLower(filepath.Base(path))
	switch filepath.Ext(name) {
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open zstd sitemap %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
		name = strings.TrimSuffix(name, ".zst")
	case ".lz4":
		r = lz4.NewReader(r)
		name = strings.TrimSuffix(name, ".lz4")
	}

	b := NewSiteIndexBuilder()
	switch filepath.Ext(name) {
	case ".json":
		err = decodeJSONSitemap(r, b)
	case ".jsonc":
		err = decodeJSONCSitemap(r, b)
	case ".cbor":
		err = decodeCBORSitemap(r, b)
	default:
		return nil, fmt.Errorf("unsupported sitemap format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("load sitemap %s: %w", path, err)
	}
	return b.Build(), nil
}

// decodeJSONSitemap walks a top-level object token by token so that strings
// are interned in document order and a repeated key overwrites the earlier
// one. Input must be valid UTF-8; encoding/json would substitute U+FFFD and
// fold distinct keys together.
func decodeJSONSitemap(r io.Reader, b *SiteIndexBuilder) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if !utf8.Valid(src) {
		return fmt.Errorf("sitemap is not valid UTF-8")
	}
	dec := json.NewDecoder(bytes.NewReader(src))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("sitemap must be a JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		url, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var e SourceEntry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("url %q: %w", url, err)
		}
		if err := b.Insert(url, e); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("trailing data after sitemap object")
	}
	return nil
}

func decodeJSONCSitemap(r io.Reader, b *SiteIndexBuilder) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return decodeJSONSitemap(bytes.NewReader(jsonc.ToJSON(src)), b)
}

// CBOR maps carry no useful order, so keys are inserted sorted to keep id
// assignment deterministic.
func decodeCBORSitemap(r io.Reader, b *SiteIndexBuilder) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	// Unmarshal rejects trailing bytes after the map.
	var m map[string]SourceEntry
	if err := cbor.Unmarshal(src, &m); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("sitemap must be a CBOR map")
	}
	urls := make([]string, 0, len(m))
	for url := range m {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	for _, url := range urls {
		if err := b.Insert(url, m[url]); err != nil {
			return err
		}
	}
	return nil
}
