package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/infrastructure/egress"
	"JobCopilot/internal/source"
)

const boardPage = `
<html><body>
  <p class="results-total">Showing 1-2 of 1,240 jobs</p>
  <div class="job">
    <a class="job-link" href="/jobs/42"><h2 class="job-title">Backend Engineer</h2></a>
    <span class="job-company">Acme</span>
    <span class="job-location">Berlin</span>
    <p class="job-description">Go services and PostgreSQL.</p>
    <span class="job-salary">90000 - 110000</span>
    <time class="job-date" datetime="2025-03-01T09:00:00Z">1 Mar 2025</time>
    <ul class="job-requirements"><li>Go</li><li> SQL </li><li></li></ul>
    <span class="job-tag">backend</span><span class="job-tag">go</span>
  </div>
  <div class="job">
    <a class="job-link" href="https://other.example/apply/7"><h2 class="job-title">Data Engineer</h2></a>
    <span class="job-date">Posted 8 Nov 2024</span>
  </div>
  <div class="job"><span class="job-company">No title here</span></div>
</body></html>`

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	remote := true
	u, err := buildPageURL("https://jobs.example.org/search?src=feed", source.Request{
		Filters: domain.SearchFilters{Title: "Go Developer", Location: "Berlin", Remote: &remote},
		Page:    3,
		PerPage: 25,
	})
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	q := parsed.Query()
	if q.Get("q") != "Go Developer" || q.Get("l") != "Remote" {
		t.Fatalf("unexpected search params: %s", parsed.RawQuery)
	}
	if q.Get("page") != "3" || q.Get("limit") != "25" || q.Get("src") != "feed" {
		t.Fatalf("unexpected paging params: %s", parsed.RawQuery)
	}

	u, err = buildPageURL("https://jobs.example.org/search", source.Request{})
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}
	if !strings.HasSuffix(u, "?page=1") {
		t.Fatalf("expected default page only, got %s", u)
	}

	if _, err := buildPageURL("not a url", source.Request{}); err == nil {
		t.Fatal("expected error for url without host")
	}
}

func TestParseItem(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(boardPage))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	base, _ := url.Parse("https://jobs.example.org/search?page=1")
	now := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	items := doc.Find(".job")
	listing, ok := parseItem(items.First(), DefaultSelectors(), base, now)
	if !ok {
		t.Fatal("expected first item to parse")
	}
	if listing.Title != "Backend Engineer" || listing.Company != "Acme" || listing.Location != "Berlin" {
		t.Fatalf("unexpected listing: %+v", listing)
	}
	if listing.URL != "https://jobs.example.org/jobs/42" {
		t.Fatalf("unexpected url: %s", listing.URL)
	}
	if !listing.DatePosted.Equal(time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", listing.DatePosted)
	}
	if len(listing.Requirements) != 2 || listing.Requirements[1] != "SQL" {
		t.Fatalf("unexpected requirements: %v", listing.Requirements)
	}
	if len(listing.Tags) != 2 || listing.Salary != "90000 - 110000" {
		t.Fatalf("unexpected tags or salary: %v %q", listing.Tags, listing.Salary)
	}

	second, ok := parseItem(items.Eq(1), DefaultSelectors(), base, now)
	if !ok {
		t.Fatal("expected second item to parse")
	}
	if second.URL != "https://other.example/apply/7" {
		t.Fatalf("absolute link changed: %s", second.URL)
	}
	if second.DatePosted.Format("2006-01-02") != "2024-11-08" {
		t.Fatalf("unexpected date: %v", second.DatePosted)
	}

	if _, ok := parseItem(items.Eq(2), DefaultSelectors(), base, now); ok {
		t.Fatal("item without title should be skipped")
	}
}

func TestHTMLBoardFetchPage(t *testing.T) {
	t.Parallel()

	var gotQuery atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		_, _ = w.Write([]byte(boardPage))
	}))
	defer server.Close()

	board := NewHTMLBoard("acme-board", server.URL+"/search", Selectors{}, server.Client(), nil, nil)
	page, err := board.FetchPage(context.Background(), source.Request{
		Filters: domain.SearchFilters{Title: "engineer"},
		Page:    1,
		PerPage: 20,
	})
	if err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}

	if len(page.Listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(page.Listings))
	}
	if page.TotalResults != 1240 {
		t.Fatalf("expected total 1240, got %d", page.TotalResults)
	}
	if page.Listings[0].Platform != "acme-board" || page.Listings[0].ID == "" {
		t.Fatalf("unexpected listing: %+v", page.Listings[0])
	}
	if q, _ := gotQuery.Load().(string); !strings.Contains(q, "q=engineer") {
		t.Fatalf("expected title in query, got %s", q)
	}
}

func TestHTMLBoardTotalFallsBackToCount(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<div class="job"><h2 class="job-title">Only one</h2></div>`))
	}))
	defer server.Close()

	page, err := NewHTMLBoard("b", server.URL, Selectors{}, server.Client(), nil, nil).FetchPage(context.Background(), source.Request{})
	if err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}
	if page.TotalResults != 1 {
		t.Fatalf("expected total 1, got %d", page.TotalResults)
	}
}

func TestHTMLBoardFailuresAreUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "captcha", http.StatusForbidden)
	}))
	defer server.Close()

	board := NewHTMLBoard("blocked", server.URL, Selectors{}, server.Client(), nil, nil)
	if _, err := board.FetchPage(context.Background(), source.Request{}); !errors.Is(err, source.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on 403, got %v", err)
	}

	bad := NewHTMLBoard("bad", "::", Selectors{}, nil, nil, nil)
	if _, err := bad.FetchPage(context.Background(), source.Request{}); !errors.Is(err, source.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on bad url, got %v", err)
	}
}

func TestHTMLBoardRoutesThroughProxy(t *testing.T) {
	t.Parallel()

	var proxiedHost atomic.Value
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxiedHost.Store(r.URL.Host)
		_, _ = w.Write([]byte(boardPage))
	}))
	defer proxy.Close()

	proxyAddr := strings.TrimPrefix(proxy.URL, "http://")
	pool := egress.NewPool(egress.PolicyHash, []string{proxyAddr}, 1)
	board := NewHTMLBoard("proxied", "http://jobs.example.test/search", Selectors{}, proxy.Client(), pool, nil)

	page, err := board.FetchPage(context.Background(), source.Request{UseIntermediary: true})
	if err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}
	if len(page.Listings) != 2 {
		t.Fatalf("expected listings through proxy, got %d", len(page.Listings))
	}
	if host, _ := proxiedHost.Load().(string); host != "jobs.example.test" {
		t.Fatalf("expected proxied request for jobs.example.test, got %q", host)
	}
}
