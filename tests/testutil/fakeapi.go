package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// FakeAPI is an in-process stand-in for the LNemail REST API. Fields are
// guarded by mu; use the setters from tests running concurrently with
// requests.
type FakeAPI struct {
	Server *httptest.Server

	mu sync.Mutex

	// Token is the only bearer token accepted. Empty accepts any token.
	Token string

	// Account is served from GET /account.
	Account any

	// Emails is served from GET /emails as a bare array.
	Emails []map[string]any

	// Details overrides GET /emails/{id}. Missing ids fall back to the
	// matching entry in Emails; ids in FailDetail return 500.
	Details    map[string]map[string]any
	FailDetail map[string]bool

	// ListStatus forces GET /emails to fail with the given status.
	ListStatus int

	SendStatus   int
	SendResponse map[string]any
	Sent         []map[string]string

	DeleteStatus   int
	DeleteResponse any
	Deleted        [][]string

	Health   any
	Payments map[string]map[string]any

	calls map[string]int
}

// NewFakeAPI starts a fake API server that is closed when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		Account: map[string]any{
			"email_address": "alice@lnemail.net",
			"expires_at":    time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		},
		Details:    map[string]map[string]any{},
		FailDetail: map[string]bool{},
		Health: map[string]any{
			"status": "ok", "version": "1.2.3", "timestamp": "2026-01-01T00:00:00Z",
		},
		Payments: map[string]map[string]any{},
		calls:    map[string]int{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the API root.
func (f *FakeAPI) URL() string { return f.Server.URL }

// Update runs fn with the lock held.
func (f *FakeAPI) Update(fn func(f *FakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// Calls returns how many times "METHOD /path" was requested.
func (f *FakeAPI) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// DeletedBatches returns a copy of the recorded delete requests.
func (f *FakeAPI) DeletedBatches() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.Deleted))
	copy(out, f.Deleted)
	return out
}

// SentEmails returns a copy of the recorded send requests.
func (f *FakeAPI) SentEmails() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]string, len(f.Sent))
	copy(out, f.Sent)
	return out
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[r.Method+" "+r.URL.Path]++

	if r.URL.Path != "/health" && f.Token != "" &&
		r.Header.Get("Authorization") != "Bearer "+f.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "invalid token"})
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/account":
		writeJSON(w, http.StatusOK, f.Account)

	case r.Method == http.MethodGet && r.URL.Path == "/emails":
		if f.ListStatus != 0 {
			writeJSON(w, f.ListStatus, map[string]any{"detail": "list failed"})
			return
		}
		writeJSON(w, http.StatusOK, f.Emails)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/emails/"):
		id := strings.TrimPrefix(r.URL.Path, "/emails/")
		if f.FailDetail[id] {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "boom"})
			return
		}
		if d, ok := f.Details[id]; ok {
			writeJSON(w, http.StatusOK, d)
			return
		}
		for _, e := range f.Emails {
			if idString(e["id"]) == id {
				writeJSON(w, http.StatusOK, e)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "not found"})

	case r.Method == http.MethodPost && r.URL.Path == "/email/send":
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.Sent = append(f.Sent, req)
		if f.SendStatus != 0 {
			writeJSON(w, f.SendStatus, map[string]any{"detail": "send failed"})
			return
		}
		resp := f.SendResponse
		if resp == nil {
			resp = map[string]any{"message": "queued"}
		}
		writeJSON(w, http.StatusOK, resp)

	case r.Method == http.MethodDelete && r.URL.Path == "/emails":
		var req struct {
			EmailIDs []string `json:"email_ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.Deleted = append(f.Deleted, req.EmailIDs)
		if f.DeleteStatus != 0 {
			writeJSON(w, f.DeleteStatus, map[string]any{"detail": "delete failed"})
			return
		}
		if f.DeleteResponse != nil {
			writeJSON(w, http.StatusOK, f.DeleteResponse)
			return
		}
		remaining := f.Emails[:0:0]
		drop := map[string]bool{}
		for _, id := range req.EmailIDs {
			drop[id] = true
		}
		for _, e := range f.Emails {
			if !drop[idString(e["id"])] {
				remaining = append(remaining, e)
			}
		}
		f.Emails = remaining
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	case r.Method == http.MethodGet && r.URL.Path == "/health":
		writeJSON(w, http.StatusOK, f.Health)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/payment/"):
		hash := strings.TrimPrefix(r.URL.Path, "/payment/")
		if p, ok := f.Payments[hash]; ok {
			writeJSON(w, http.StatusOK, p)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"payment_hash": hash, "status": "pending", "paid": false})

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "not found")
	}
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
