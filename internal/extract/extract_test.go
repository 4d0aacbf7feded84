package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<html><head><title>Launch</title></head><body>
<article><h1>New model launched</h1>
<p>The company released a new model today with a much larger context window and lower prices for developers.</p>
<p>The release is available in the API and in the consumer app starting this week, according to the announcement.</p>
<p>Early benchmarks suggest improvements on coding and reasoning tasks compared to the previous generation.</p>
</article></body></html>`

const metaOnlyHTML = `<html><head><meta name="description" content="Short description of the story"></head><body></body></html>`

func TestTextReadable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	text, err := New(2000, 5*time.Second).Text(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !strings.Contains(text, "larger context window") {
		t.Fatalf("Text() = %q", text)
	}
}

func TestTextTruncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	text, err := New(10, 5*time.Second).Text(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if len([]rune(text)) != 10 {
		t.Fatalf("len = %d, want 10", len([]rune(text)))
	}
}

func TestTextMetaFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(metaOnlyHTML))
	}))
	defer server.Close()

	text, err := New(2000, 5*time.Second).Text(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text != "Short description of the story" {
		t.Fatalf("Text() = %q", text)
	}
}

func TestTextErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := New(100, 5*time.Second)
	for _, u := range []string{"", "not a url", server.URL} {
		if _, err := e.Text(context.Background(), u); err == nil {
			t.Errorf("Text(%q) expected error", u)
		}
	}
}

func TestTextCachedFetchesOnce(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	e := New(2000, 5*time.Second).WithCache(time.Minute)
	for i := 0; i < 3; i++ {
		if _, err := e.Text(context.Background(), server.URL); err != nil {
			t.Fatalf("Text() error = %v", err)
		}
	}
	if hits != 1 {
		t.Fatalf("server hits = %d, want 1", hits)
	}
}
