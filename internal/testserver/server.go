// Package testserver fakes the upstreams imgprobe talks to: the marketplace
// product pages, the catalog REST API, the token data store and the
// manufacturer product feeds. All of them are served from one
// httptest.Server so a test can point every base URL at it.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

// Default credentials accepted by the fake upstreams
const (
	ServiceKey = "test-service-key"
	APIKey     = "test-api-key"
	Token      = "test-bearer-token"
)

// Request is a recorded inbound request
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
}

// Server is a fake of every upstream
type Server struct {
	server       *httptest.Server
	requestCount int32

	mu             sync.RWMutex
	requests       []Request
	errorResponses map[string]int
	pages          map[string]string
	catalog        map[string]string
	tokenBody      string
	rollup         map[string]string
	threads        map[string]string
}

// New starts a fake upstream server. Callers must Close it.
func New() *Server {
	s := &Server{
		errorResponses: make(map[string]int),
		pages:          make(map[string]string),
		catalog:        make(map[string]string),
		rollup:         make(map[string]string),
		threads:        make(map[string]string),
	}
	s.SetTokens(Token)

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/", s.handleTokenStore)
	mux.HandleFunc("/v2/", s.handleCatalog)
	mux.HandleFunc("/v1/", s.handleCatalog)
	mux.HandleFunc("/cic/browse/v2", s.handleRollup)
	mux.HandleFunc("/product_feed/threads/v3/", s.handleThreads)
	mux.HandleFunc("/", s.handlePage)

	s.server = httptest.NewServer(s.record(mux))
	return s
}

// URL returns the base URL of the server
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down
func (s *Server) Close() {
	s.server.Close()
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.requestCount, 1)
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
		})
		code, failing := s.errorResponses[r.URL.Path]
		s.mu.Unlock()

		if failing {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(code)
			fmt.Fprintf(w, "<html><head><title>Error %d</title></head><body>blocked</body></html>", code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetError makes every request to path answer with the given status
func (s *Server) SetError(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorResponses[path] = code
}

// SetPage serves html at /{slug}
func (s *Server) SetPage(slug, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages["/"+strings.TrimPrefix(slug, "/")] = html
}

// SetCatalog serves body for a catalog path such as
// /v2/catalog/products/abc or /v2/catalog/search?query=x&pageSize=1.
// Query strings must match exactly when given.
func (s *Server) SetCatalog(pathAndQuery, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[pathAndQuery] = body
}

// SetTokens makes the token store return one record per token
func (s *Server) SetTokens(tokens ...string) {
	rows := make([]map[string]string, 0, len(tokens))
	for _, t := range tokens {
		rows = append(rows, map[string]string{"access_token": t})
	}
	data, _ := json.Marshal(rows)
	s.SetTokenBody(string(data))
}

// SetTokenBody makes the token store return a raw body
func (s *Server) SetTokenBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenBody = body
}

// SetRollup serves body for a rollup feed search on style
func (s *Server) SetRollup(style, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollup[style] = body
}

// SetThreads serves body for a threads feed search on style
func (s *Server) SetThreads(style, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[style] = body
}

// Requests returns a copy of all recorded requests
func (s *Server) Requests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request, or the zero Request
func (s *Server) LastRequest() Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// RequestCount returns the number of requests served
func (s *Server) RequestCount() int {
	return int(atomic.LoadInt32(&s.requestCount))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	html, ok := s.pages[r.URL.Path]
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "<html><head><title>Page Not Found</title></head></html>")
		return
	}
	fmt.Fprint(w, html)
}

func (s *Server) handleTokenStore(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") != ServiceKey || r.Header.Get("Authorization") != "Bearer "+ServiceKey {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid API key"}`)
		return
	}
	if r.URL.Query().Get("limit") != "1" || r.URL.Query().Get("select") == "" {
		writeJSON(w, http.StatusBadRequest, `{"message":"bad query"}`)
		return
	}

	s.mu.RLock()
	body := s.tokenBody
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+Token || r.Header.Get("x-api-key") != APIKey {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Unauthorized"}`)
		return
	}

	s.mu.RLock()
	body, ok := s.catalog[r.URL.Path+"?"+r.URL.RawQuery]
	if !ok {
		body, ok = s.catalog[r.URL.Path]
	}
	s.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, `{"message":"Not Found"}`)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

var searchTermsPattern = regexp.MustCompile(`searchTerms=([^&]+)`)

func (s *Server) handleRollup(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	if !strings.HasPrefix(endpoint, "/product_feed/rollup_threads/v2") {
		writeJSON(w, http.StatusBadRequest, `{"errors":[{"code":"INVALID_ENDPOINT"}]}`)
		return
	}
	style := ""
	if m := searchTermsPattern.FindStringSubmatch(endpoint); m != nil {
		style, _ = url.QueryUnescape(m[1])
	}

	s.mu.RLock()
	body, ok := s.rollup[style]
	s.mu.RUnlock()
	if !ok {
		body = `{"data":{"products":{"objects":[]}}}`
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	style := r.URL.Query().Get("search")

	s.mu.RLock()
	body, ok := s.threads[style]
	s.mu.RUnlock()
	if !ok {
		body = `{"objects":[]}`
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprint(w, body)
}
