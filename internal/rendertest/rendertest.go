// Package rendertest provides an in-process fake of the Render REST API for
// tests. Deploy status progressions are scripted per deploy so pollers can
// be driven through any lifecycle.
package rendertest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"renderdeploy/internal/render"

	"github.com/go-chi/chi/v5"
)

// APIKey is the bearer token the fake accepts
const APIKey = "rnd_testkey0123456789"

// Request is a recorded call against the fake
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type override struct {
	status int
	body   string
}

// Server is a fake Render API backed by httptest.
type Server struct {
	srv *httptest.Server

	mu        sync.Mutex
	services  map[string]render.Service  // by name
	deploys   map[string][]render.Deploy // by service id, newest first
	scripts   map[string][]render.DeployStatus
	onTrigger []render.DeployStatus
	overrides map[string]override
	requests  []Request
	nextID    int
}

// NewServer starts a fake API and stops it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		services:  make(map[string]render.Service),
		deploys:   make(map[string][]render.Deploy),
		scripts:   make(map[string][]render.DeployStatus),
		overrides: make(map[string]override),
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the API root to pass to render.WithBaseURL.
func (s *Server) URL() string {
	return s.srv.URL + "/v1"
}

// AddService registers a service that can be looked up by name.
func (s *Server) AddService(svc render.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.Name] = svc
}

// AddDeploy records an existing deploy, making it the latest for the service.
func (s *Server) AddDeploy(serviceID string, d render.Deploy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deploys[serviceID] = append([]render.Deploy{d}, s.deploys[serviceID]...)
}

// ScriptStatuses sets the statuses returned by successive fetches of a
// deploy. The last status repeats once the script is exhausted.
func (s *Server) ScriptStatuses(deployID string, statuses ...render.DeployStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[deployID] = statuses
}

// OnTrigger sets the status script for deploys created by later triggers.
// The first status is returned by the trigger call itself.
func (s *Server) OnTrigger(statuses ...render.DeployStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTrigger = statuses
}

// Override makes method+path answer with a fixed status and raw body.
func (s *Server) Override(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = override{status: status, body: body}
}

// Requests returns every request seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests matched method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.authenticate)
	r.Use(s.applyOverrides)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/services", s.handleListServices)
		r.Post("/services/{serviceID}/deploys", s.handleTrigger)
		r.Get("/services/{serviceID}/deploys", s.handleListDeploys)
		r.Get("/services/{serviceID}/deploys/{deployID}", s.handleGetDeploy)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+APIKey {
			writeRaw(w, http.StatusUnauthorized, `{"message":"unauthorized"}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) applyOverrides(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		o, ok := s.overrides[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			writeRaw(w, o.status, o.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	s.mu.Lock()
	svc, ok := s.services[name]
	s.mu.Unlock()

	items := []map[string]any{}
	if ok {
		items = append(items, map[string]any{"cursor": "cursor-" + svc.ID, "service": svc})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceID")

	var body struct {
		CommitID   string `json:"commitId"`
		ClearCache string `json:"clearCache"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeRaw(w, http.StatusBadRequest, `{"message":"invalid body"}`)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasServiceLocked(serviceID) {
		writeRaw(w, http.StatusNotFound, `{"message":"service not found"}`)
		return
	}

	s.nextID++
	commitID := body.CommitID
	if commitID == "" {
		commitID = "0000000000000000000000000000000000000000"
	}
	now := time.Date(2024, 10, 14, 2, 17, 35, 0, time.UTC)
	d := render.Deploy{
		ID:        "dep-" + strconv.Itoa(s.nextID),
		Commit:    render.CommitInfo{ID: commitID, Message: "test commit", CreatedAt: now},
		Status:    render.StatusCreated,
		Trigger:   "api",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(s.onTrigger) > 0 {
		d.Status = s.onTrigger[0]
		s.scripts[d.ID] = append([]render.DeployStatus(nil), s.onTrigger[1:]...)
	}
	s.deploys[serviceID] = append([]render.Deploy{d}, s.deploys[serviceID]...)

	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleListDeploys(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceID")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	deploys := s.deploys[serviceID]
	s.mu.Unlock()

	items := []map[string]any{}
	for i, d := range deploys {
		if i >= limit {
			break
		}
		items = append(items, map[string]any{"cursor": "cursor-" + d.ID, "deploy": d})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetDeploy(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceID")
	deployID := chi.URLParam(r, "deployID")

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, d := range s.deploys[serviceID] {
		if d.ID == deployID {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeRaw(w, http.StatusNotFound, fmt.Sprintf(`{"message":"deploy %s not found"}`, deployID))
		return
	}

	d := s.deploys[serviceID][idx]
	if script := s.scripts[deployID]; len(script) > 0 {
		d.Status = script[0]
		if len(script) > 1 {
			s.scripts[deployID] = script[1:]
		}
	}
	d.UpdatedAt = d.UpdatedAt.Add(time.Second)
	if d.Status.IsTerminal() && d.FinishedAt == nil {
		finished := d.UpdatedAt
		d.FinishedAt = &finished
	}
	s.deploys[serviceID][idx] = d

	writeJSON(w, http.StatusOK, d)
}

func (s *Server) hasServiceLocked(serviceID string) bool {
	for _, svc := range s.services {
		if svc.ID == serviceID {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
