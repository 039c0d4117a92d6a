package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"JobCopilot/internal/domain"
)

func sampleEvent() domain.SearchCompleted {
	return domain.SearchCompleted{
		Timestamp:    time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		Listings:     12,
		TotalResults: 370,
		TopScore:     94,
		Filters:      domain.SearchFilters{Title: "Go Engineer", Location: "Berlin"},
	}
}

func TestNotifierPostsDigest(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier("token123", "42", srv.URL+"/")
	if err := n.PublishSearchCompleted(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("PublishSearchCompleted error: %v", err)
	}
	if gotPath != "/bottoken123/sendMessage" || gotChat != "42" {
		t.Fatalf("unexpected request path=%q chat=%q", gotPath, gotChat)
	}
	for _, want := range []string{"Title: Go Engineer", "Location: Berlin", "Listings: 12 of about 370", "Best match: 94%"} {
		if !strings.Contains(gotText, want) {
			t.Fatalf("digest missing %q:\n%s", want, gotText)
		}
	}
}

func TestNotifierErrors(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "42", "").PublishSearchCompleted(context.Background(), sampleEvent()); err == nil {
		t.Fatal("expected misconfiguration error")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if err := NewNotifier("bad", "42", srv.URL).PublishSearchCompleted(context.Background(), sampleEvent()); err == nil {
		t.Fatal("expected status error")
	}
}

func TestDigestWithoutListings(t *testing.T) {
	t.Parallel()

	d := Digest(domain.SearchCompleted{Timestamp: time.Unix(0, 0)})
	if strings.Contains(d, "Best match") || strings.Contains(d, "Title:") {
		t.Fatalf("unexpected digest %q", d)
	}
}
