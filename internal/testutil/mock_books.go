// Package testutil provides testing utilities for the Books API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockVolume defines how the mock answers a lookup for one ISBN.
type MockVolume struct {
	// Description is served as volumeInfo.description.
	Description string
	// OmitDescription drops the description field entirely.
	OmitDescription bool
	// RawDescription, when set, is written verbatim as the description value.
	RawDescription string
	// NotFound returns a response with no items.
	NotFound bool
	// StatusCode overrides the response status (e.g. 429, 500).
	StatusCode int
	// Headers are added to the response.
	Headers map[string]string
	// Delay is applied before responding.
	Delay time.Duration
}

// MockBooks is a configurable stand-in for the Google Books volumes endpoint.
type MockBooks struct {
	server  *httptest.Server
	mu      sync.RWMutex
	volumes map[string]MockVolume

	requestCount  int
	lastUserAgent string
	lastAPIKey    string
	queries       []string
	inFlight      int
	peakInFlight  int
}

// NewMockBooks creates and starts a mock Books API server.
func NewMockBooks() *MockBooks {
	mock := &MockBooks{
		volumes: make(map[string]MockVolume),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the base URL to configure the client with.
func (m *MockBooks) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockBooks) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockBooks) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.lastUserAgent = ""
	m.lastAPIKey = ""
	m.queries = nil
	m.peakInFlight = 0
}

// SetVolume configures the response for isbn.
func (m *MockBooks) SetVolume(isbn string, v MockVolume) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumes[isbn] = v
}

// SetDescription is shorthand for a volume with the given description.
func (m *MockBooks) SetDescription(isbn, description string) {
	m.SetVolume(isbn, MockVolume{Description: description})
}

// RequestCount returns the number of requests served.
func (m *MockBooks) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PeakInFlight returns the highest number of concurrent requests observed.
func (m *MockBooks) PeakInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peakInFlight
}

// LastUserAgent returns the User-Agent of the most recent request.
func (m *MockBooks) LastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUserAgent
}

// LastAPIKey returns the key query parameter of the most recent request.
func (m *MockBooks) LastAPIKey() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAPIKey
}

// Queries returns every q parameter received, in arrival order.
func (m *MockBooks) Queries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.queries...)
}

func (m *MockBooks) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	m.mu.Lock()
	m.requestCount++
	m.lastUserAgent = r.Header.Get("User-Agent")
	m.lastAPIKey = r.URL.Query().Get("key")
	m.queries = append(m.queries, q)
	m.inFlight++
	if m.inFlight > m.peakInFlight {
		m.peakInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if !strings.HasSuffix(r.URL.Path, "/volumes") {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	if !strings.HasPrefix(q, "isbn:") {
		writeError(w, http.StatusBadRequest, "Missing query.")
		return
	}
	isbn := strings.TrimPrefix(q, "isbn:")

	m.mu.RLock()
	v, ok := m.volumes[isbn]
	m.mu.RUnlock()

	if v.Delay > 0 {
		time.Sleep(v.Delay)
	}
	for key, value := range v.Headers {
		w.Header().Set(key, value)
	}

	if v.StatusCode >= 400 {
		writeError(w, v.StatusCode, http.StatusText(v.StatusCode))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if !ok || v.NotFound {
		fmt.Fprint(w, `{"kind": "books#volumes", "totalItems": 0}`)
		return
	}

	var description string
	switch {
	case v.OmitDescription:
	case v.RawDescription != "":
		description = fmt.Sprintf(`, "description": %s`, v.RawDescription)
	default:
		encoded, _ := json.Marshal(v.Description)
		description = fmt.Sprintf(`, "description": %s`, encoded)
	}

	fmt.Fprintf(w, `{"kind": "books#volumes", "totalItems": 1, "items": [{"id": "vol-%s", "volumeInfo": {"title": "Title %s"%s}}]}`,
		isbn, isbn, description)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
	w.Write(body)
}

// Words returns a description of exactly n words.
func Words(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}
