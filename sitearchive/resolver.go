package sitearchive

import (
	"context"
	"errors"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
)

// MemberPrefix is prepended to a sitemap filename to form its archive member name.
const MemberPrefix = "files/"

// Request is what the resolver needs from an incoming request: the path as
// sent (still percent-encoded) and the raw query string.
type Request struct {
	Path     string
	RawQuery string
}

// Key is the sitemap key for the request. The query is appended verbatim
// and only when non-empty.
func (r Request) Key() string {
	if r.RawQuery == "" {
		return r.Path
	}
	return r.Path + "?" + r.RawQuery
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte

	// Source says which branch produced the response, for access logs.
	Source string
}

func newResponse(status int, body []byte, contentType string, location string) *Response {
	h := make(http.Header, 3)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	if location != "" {
		h.Set("Location", location)
	}
	return &Response{Status: status, Header: h, Body: body}
}

// Resolver turns a request into a complete response: override file first,
// then sitemap entry plus archive member, else a fallback page. It never
// returns an error; every failure becomes a response.
type Resolver struct {
	// Overrides is the root of the override tree. Empty disables overrides.
	Overrides string
	Sitemap   Sitemap
	Archive   Extractor
	Debug     bool
}

func (r *Resolver) debugf(format string, args ...any) {
	if r == nil || !r.Debug {
		return
	}
	log.Printf(format, args...)
}

func (r *Resolver) Resolve(ctx context.Context, req Request) *Response {
	if resp := r.resolveOverride(req); resp != nil {
		return resp
	}

	key := req.Key()
	entry, ok, err := r.Sitemap.Lookup(ctx, key)
	if err != nil {
		log.Printf("sitemap lookup failed url=%q err=%v", key, err)
		return sourced(internalErrorResponse(), "lookup-error")
	}
	if !ok {
		r.debugf("no sitemap entry url=%q", key)
		return sourced(notFoundResponse(), "not-found")
	}

	member := MemberPrefix + entry.Filename
	body, err := r.Archive.Extract(ctx, member)
	if errors.Is(err, ErrMemberNotFound) {
		log.Printf("sitemap entry has no archive member url=%q member=%q", key, member)
		return sourced(memberMissingResponse(), "member-missing")
	}
	if err != nil {
		log.Printf("extract failed url=%q member=%q err=%v", key, member, err)
		return sourced(internalErrorResponse(), "extract-error")
	}

	return sourced(newResponse(entry.Status, body, entry.ContentType, entry.Location), "archive")
}

// resolveOverride returns nil when no override file exists for the request
// path. The query string plays no part here.
func (r *Resolver) resolveOverride(req Request) *Response {
	if r.Overrides == "" {
		return nil
	}
	fsPath, ok := r.overridePath(req.Path)
	if !ok {
		return nil
	}
	info, err := os.Stat(fsPath)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	body, err := os.ReadFile(fsPath)
	if err != nil {
		log.Printf("override read failed path=%q err=%v", fsPath, err)
		return sourced(internalErrorResponse(), "override-error")
	}
	return sourced(newResponse(http.StatusOK, body, mime.TypeByExtension(filepath.Ext(fsPath)), ""), "override")
}

// overridePath maps a URL path onto the override tree. Cleaning against a
// rooted path keeps ".." segments from leaving the tree.
func (r *Resolver) overridePath(escaped string) (string, bool) {
	p, err := url.PathUnescape(escaped)
	if err != nil {
		return "", false
	}
	clean := path.Clean("/" + p)
	if clean == "/" {
		return "", false
	}
	return filepath.Join(r.Overrides, filepath.FromSlash(clean)), true
}

func sourced(resp *Response, source string) *Response {
	resp.Source = source
	return resp
}
