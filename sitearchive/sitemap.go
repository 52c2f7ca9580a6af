package sitearchive

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidEntry = errors.New("invalid sitemap entry")

// SourceEntry is one sitemap record as it appears in a source document.
type SourceEntry struct {
	Status      int    `json:"status" cbor:"status"`
	Location    string `json:"location,omitempty" cbor:"location,omitempty"`
	ContentType string `json:"contentType,omitempty" cbor:"contentType,omitempty"`
	Filename    string `json:"filename" cbor:"filename"`
}

func (e SourceEntry) validate() error {
	if e.Status < 100 || e.Status > 599 {
		return fmt.Errorf("%w: status %d out of range", ErrInvalidEntry, e.Status)
	}
	if strings.TrimSpace(e.Filename) == "" {
		return fmt.Errorf("%w: missing filename", ErrInvalidEntry)
	}
	return nil
}

// SiteEntry is the resolved view of an indexed URL. Empty Location or
// ContentType means the header is not sent.
type SiteEntry struct {
	Status      int
	Location    string
	ContentType string
	Filename    string
}

// Sitemap answers exact-match URL lookups. Implementations must be safe for
// concurrent use.
type Sitemap interface {
	Lookup(ctx context.Context, url string) (SiteEntry, bool, error)
	Close() error
}

type siteRecord struct {
	status      uint16
	location    StringID
	contentType StringID
	filename    StringID
}

type SiteIndexBuilder struct {
	strings *StringTableBuilder
	entries map[string]siteRecord
}

func NewSiteIndexBuilder() *SiteIndexBuilder {
	return &SiteIndexBuilder{
		strings: NewStringTableBuilder(),
		entries: make(map[string]siteRecord),
	}
}

// Insert adds url to the index, replacing any earlier entry for the same url.
func (b *SiteIndexBuilder) Insert(url string, e SourceEntry) error {
	if err := e.validate(); err != nil {
		return fmt.Errorf("url %q: %w", url, err)
	}
	rec := siteRecord{status: uint16(e.Status)}
	var err error
	if e.Location != "" {
		if rec.location, err = b.strings.Intern(e.Location); err != nil {
			return err
		}
	}
	if e.ContentType != "" {
		if rec.contentType, err = b.strings.Intern(e.ContentType); err != nil {
			return err
		}
	}
	if rec.filename, err = b.strings.Intern(e.Filename); err != nil {
		return err
	}
	b.entries[url] = rec
	return nil
}

func (b *SiteIndexBuilder) Build() *SiteIndex {
	idx := &SiteIndex{
		strings: b.strings.Build(),
		entries: b.entries,
	}
	b.entries = nil
	return idx
}

// SiteIndex is the in-process Sitemap. It is immutable once built.
type SiteIndex struct {
	strings *StringTable
	entries map[string]siteRecord
}

var _ Sitemap = (*SiteIndex)(nil)

func (s *SiteIndex) Lookup(_ context.Context, url string) (SiteEntry, bool, error) {
	rec, ok := s.entries[url]
	if !ok {
		return SiteEntry{}, false, nil
	}
	return s.expand(rec), true, nil
}

func (s *SiteIndex) expand(rec siteRecord) SiteEntry {
	e := SiteEntry{
		Status:   int(rec.status),
		Filename: s.strings.Resolve(rec.filename),
	}
	if rec.location != 0 {
		e.Location = s.strings.Resolve(rec.location)
	}
	if rec.contentType != 0 {
		e.ContentType = s.strings.Resolve(rec.contentType)
	}
	return e
}

// Range calls fn for every entry in unspecified order until fn returns false.
func (s *SiteIndex) Range(fn func(url string, e SiteEntry) bool) {
	for url, rec := range s.entries {
		if !fn(url, s.expand(rec)) {
			return
		}
	}
}

func (s *SiteIndex) Len() int {
	return len(s.entries)
}

// Strings reports how many distinct strings back the index.
func (s *SiteIndex) Strings() int {
	return s.strings.Len()
}

func (s *SiteIndex) Close() error {
	return nil
}
