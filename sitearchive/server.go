package sitearchive

import (
	"log"
	"net/http"
	"time"
)

// Handler adapts a Resolver to net/http. Only GET and HEAD are served.
type Handler struct {
	Resolver *Resolver
	Debug    bool
}

func (h *Handler) debugf(format string, args ...any) {
	if h == nil || !h.Debug {
		return
	}
	log.Printf(format, args...)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	req := Request{Path: r.URL.EscapedPath(), RawQuery: r.URL.RawQuery}
	resp := h.Resolver.Resolve(r.Context(), req)

	header := w.Header()
	for k, v := range resp.Header {
		header[k] = v
	}
	if _, ok := resp.Header["Content-Type"]; !ok {
		// Keep net/http from sniffing a type the sitemap chose not to send.
		header["Content-Type"] = nil
	}
	w.WriteHeader(resp.Status)
	if r.Method != http.MethodHead {
		if _, err := w.Write(resp.Body); err != nil {
			h.debugf("write body failed url=%q err=%v", req.Key(), err)
		}
	}
	h.debugf("serve method=%s url=%q status=%d bytes=%d source=%s elapsed=%s", r.Method, req.Key(), resp.Status, len(resp.Body), resp.Source, time.Since(start))
}
