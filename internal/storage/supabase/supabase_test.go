package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"newsdigest/internal/storage"
	"newsdigest/internal/types"
)

// fakePostgREST serves the subset of PostgREST used by the store.
type fakePostgREST struct {
	mu      sync.Mutex
	rows    map[string]row
	inserts int
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/rest/v1/ai_news_articles" {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("apikey") != "service-key" {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"401","message":"bad key"}`))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		filter := strings.TrimSuffix(strings.TrimPrefix(r.URL.Query().Get("url"), "in.("), ")")
		out := []row{}
		for _, id := range strings.Split(filter, ",") {
			if existing, ok := f.rows[strings.Trim(id, `"`)]; ok {
				out = append(out, existing)
			}
		}
		json.NewEncoder(w).Encode(out)
	case http.MethodPost:
		var rows []row
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":"400","message":"bad body"}`))
			return
		}
		for _, rw := range rows {
			if _, ok := f.rows[rw.URL]; ok {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"code":"23505","message":"duplicate key"}`))
				return
			}
		}
		for _, rw := range rows {
			f.rows[rw.URL] = rw
		}
		f.inserts++
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStorage(t *testing.T, key string) (*SupabaseStorage, *fakePostgREST) {
	t.Helper()

	fake := &fakePostgREST{rows: map[string]row{
		"https://example.com/old": {URL: "https://example.com/old", Title: "Old"},
	}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	s, err := New(server.URL, key, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, fake
}

func TestExistsBatch(t *testing.T) {
	s, _ := newTestStorage(t, "service-key")

	found, err := s.ExistsBatch(context.Background(), []string{"https://example.com/old", "https://example.com/new"})
	if err != nil {
		t.Fatalf("ExistsBatch() error = %v", err)
	}
	if _, ok := found["https://example.com/old"]; !ok || len(found) != 1 {
		t.Fatalf("found = %v, want only old", found)
	}
}

func TestInsertBatchSkipsExisting(t *testing.T) {
	s, fake := newTestStorage(t, "service-key")

	n, err := s.InsertBatch(context.Background(), []types.ProcessedRecord{
		{ID: "https://example.com/old", Title: "Overwrite attempt"},
		{ID: "https://example.com/new", Title: "New", Summary: "s"},
	})
	if err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted = %d, want 1", n)
	}
	if fake.rows["https://example.com/old"].Title != "Old" {
		t.Fatal("existing row was overwritten")
	}
	if fake.rows["https://example.com/new"].Summary != "s" {
		t.Fatalf("new row = %+v", fake.rows["https://example.com/new"])
	}

	n, err = s.InsertBatch(context.Background(), []types.ProcessedRecord{{ID: "https://example.com/new"}})
	if err != nil || n != 0 {
		t.Fatalf("repeat InsertBatch() = %d, %v; want 0, nil", n, err)
	}
	if fake.inserts != 1 {
		t.Fatalf("insert requests = %d, want 1", fake.inserts)
	}
}

func TestRejectedKeySurfacesError(t *testing.T) {
	s, _ := newTestStorage(t, "wrong-key")

	if _, err := s.ExistsBatch(context.Background(), []string{"https://example.com/old"}); err == nil {
		t.Fatal("expected error for rejected key")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New("", "key", ""); !errors.Is(err, storage.ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
	if _, err := New("https://project.supabase.co", "", ""); !errors.Is(err, storage.ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}
