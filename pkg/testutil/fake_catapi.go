package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	jsonpool "github.com/ajitpratap0/nebula-catapi/pkg/json"
)

// fakeAPIPrefix mirrors the version segment of the real base URL
const fakeAPIPrefix = "/v1"

// RecordedRequest is a request captured by FakeCatAPI
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
}

// FakeHandler computes a response from the request query
type FakeHandler func(query url.Values) (status int, body string)

// FakeCatAPI is an httptest server standing in for The Cat API. Paths are
// registered without the /v1 prefix; unregistered paths answer 404.
type FakeCatAPI struct {
	server   *httptest.Server
	mu       sync.Mutex
	routes   map[string]FakeHandler
	requests []RecordedRequest
}

// NewFakeCatAPI starts a fake server that is closed when the test ends
func NewFakeCatAPI(t *testing.T) *FakeCatAPI {
	t.Helper()

	f := &FakeCatAPI{routes: make(map[string]FakeHandler)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL to configure the connector with
func (f *FakeCatAPI) URL() string {
	return f.server.URL + fakeAPIPrefix
}

// Handle answers path with a fixed status and body
func (f *FakeCatAPI) Handle(path string, status int, body string) {
	f.HandleFunc(path, func(url.Values) (int, string) { return status, body })
}

// HandleJSON answers path with 200 and v encoded as JSON
func (f *FakeCatAPI) HandleJSON(path string, v interface{}) {
	data, err := jsonpool.Marshal(v)
	if err != nil {
		panic(err)
	}
	f.Handle(path, http.StatusOK, string(data))
}

// HandleFunc answers path with a computed response
func (f *FakeCatAPI) HandleFunc(path string, h FakeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = h
}

// Requests returns a copy of the captured requests
func (f *FakeCatAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// LastRequest returns the most recent request, or a zero value
func (f *FakeCatAPI) LastRequest() RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.requests) == 0 {
		return RecordedRequest{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *FakeCatAPI) serveHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, fakeAPIPrefix)

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method: r.Method,
		Path:   path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	})
	h, ok := f.routes[path]
	f.mu.Unlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	status, body := h(r.URL.Query())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
