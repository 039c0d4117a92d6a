package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/infrastructure/egress"
	"JobCopilot/internal/source"
)

var (
	dateExpr   = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)
	digitsExpr = regexp.MustCompile(`\d[\d,]*`)
)

// Selectors locate listing fields on a results page. Field selectors are relative to Item;
// Total is relative to the document.
type Selectors struct {
	Item        string
	Title       string
	Company     string
	Location    string
	Description string
	Salary      string
	Link        string
	Date        string
	Requirement string
	Tag         string
	Total       string
}

// DefaultSelectors match the markup of the reference job-board template.
func DefaultSelectors() Selectors {
	return Selectors{
		Item:        ".job",
		Title:       ".job-title",
		Company:     ".job-company",
		Location:    ".job-location",
		Description: ".job-description",
		Salary:      ".job-salary",
		Link:        "a.job-link",
		Date:        ".job-date",
		Requirement: ".job-requirements li",
		Tag:         ".job-tag",
		Total:       ".results-total",
	}
}

// HTMLBoard scrapes a configurable job-board results page.
type HTMLBoard struct {
	name      string
	baseURL   string
	selectors Selectors
	client    *http.Client
	pool      *egress.Pool
	logger    *slog.Logger
	now       func() time.Time
}

var _ source.Source = (*HTMLBoard)(nil)

// NewHTMLBoard wires an HTTP client; a nil client gets a 20s timeout. Empty selectors fall back to defaults.
func NewHTMLBoard(name, baseURL string, selectors Selectors, client *http.Client, pool *egress.Pool, logger *slog.Logger) *HTMLBoard {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLBoard{
		name:      name,
		baseURL:   baseURL,
		selectors: withDefaults(selectors),
		client:    client,
		pool:      pool,
		logger:    logger,
		now:       time.Now,
	}
}

// Name identifies the adapter inside the registry.
func (b *HTMLBoard) Name() string {
	return b.name
}

// FetchPage requests one results page and extracts its listings.
func (b *HTMLBoard) FetchPage(ctx context.Context, req source.Request) (source.Page, error) {
	pageURL, err := buildPageURL(b.baseURL, req)
	if err != nil {
		return source.Page{}, source.Unavailable(b.name, err)
	}

	client, err := b.clientFor(req)
	if err != nil {
		return source.Page{}, source.Unavailable(b.name, err)
	}

	b.debug("fetch page", "url", pageURL)
	doc, err := fetchDocument(ctx, client, pageURL)
	if err != nil {
		return source.Page{}, source.Unavailable(b.name, err)
	}

	listings := b.extractListings(doc, pageURL)
	total := parseTotal(doc, b.selectors.Total)
	if total < 0 {
		total = len(listings)
	}
	b.debug("page parsed", "listings", len(listings), "total", total)

	return source.Page{Listings: listings, TotalResults: total}, nil
}

func (b *HTMLBoard) clientFor(req source.Request) (*http.Client, error) {
	if !req.UseIntermediary || b.pool.Len() == 0 {
		return b.client, nil
	}

	key := ""
	if parsed, err := url.Parse(b.baseURL); err == nil {
		key = parsed.Hostname()
	}
	proxyURL, err := b.pool.ProxyURL(key)
	if err != nil {
		return nil, err
	}
	b.debug("using proxy", "proxy", proxyURL.Host)

	base, ok := b.client.Transport.(*http.Transport)
	if !ok || base == nil {
		base = http.DefaultTransport.(*http.Transport)
	}
	transport := base.Clone()
	transport.Proxy = http.ProxyURL(proxyURL)

	clone := *b.client
	clone.Transport = transport
	return &clone, nil
}

func fetchDocument(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "JobCopilot/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("board returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (b *HTMLBoard) extractListings(doc *goquery.Document, pageURL string) []domain.Listing {
	base, _ := url.Parse(pageURL)
	now := b.now()

	var collected []domain.Listing
	doc.Find(b.selectors.Item).Each(func(_ int, item *goquery.Selection) {
		listing, ok := parseItem(item, b.selectors, base, now)
		if !ok {
			return
		}
		listing.Platform = b.name
		collected = append(collected, listing)
	})
	return collected
}

// parseItem reads one listing. Items without a title are skipped.
func parseItem(item *goquery.Selection, sel Selectors, base *url.URL, now time.Time) (domain.Listing, bool) {
	title := text(item, sel.Title)
	if title == "" {
		return domain.Listing{}, false
	}

	href := ""
	if link := item.Find(sel.Link).First(); link.Length() > 0 {
		href, _ = link.Attr("href")
	}
	if href != "" && base != nil {
		if ref, err := url.Parse(href); err == nil {
			href = base.ResolveReference(ref).String()
		}
	}

	return domain.Listing{
		ID:           uuid.NewString(),
		Title:        title,
		Company:      text(item, sel.Company),
		Location:     text(item, sel.Location),
		Description:  text(item, sel.Description),
		Salary:       text(item, sel.Salary),
		URL:          href,
		DatePosted:   parseDate(item.Find(sel.Date).First(), now),
		Requirements: texts(item, sel.Requirement),
		Tags:         texts(item, sel.Tag),
		Status:       domain.StatusNew,
	}, true
}

func parseDate(node *goquery.Selection, now time.Time) time.Time {
	if node.Length() == 0 {
		return now.UTC()
	}
	if attr, ok := node.Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(attr)); err == nil {
			return parsed.UTC()
		}
	}
	raw := strings.TrimSpace(node.Text())
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed
	}
	if match := dateExpr.FindString(raw); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			return parsed
		}
	}
	return now.UTC()
}

// parseTotal reads the last number in the total element ("Showing 1-20 of 1,240").
// It returns -1 when the page carries no usable total.
func parseTotal(doc *goquery.Document, selector string) int {
	if selector == "" {
		return -1
	}
	matches := digitsExpr.FindAllString(doc.Find(selector).First().Text(), -1)
	if len(matches) == 0 {
		return -1
	}
	total, err := strconv.Atoi(strings.ReplaceAll(matches[len(matches)-1], ",", ""))
	if err != nil {
		return -1
	}
	return total
}

func buildPageURL(base string, req source.Request) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid board url %s: %w", base, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid board url %s: missing scheme or host", base)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}

	query := parsed.Query()
	if req.Filters.Title != "" {
		query.Set("q", req.Filters.Title)
	}
	location := req.Filters.Location
	if req.Filters.IsRemote() {
		location = "Remote"
	}
	if location != "" {
		query.Set("l", location)
	}
	query.Set("page", strconv.Itoa(page))
	if req.PerPage > 0 {
		query.Set("limit", strconv.Itoa(req.PerPage))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func text(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(item.Find(selector).First().Text())
}

func texts(item *goquery.Selection, selector string) []string {
	if selector == "" {
		return nil
	}
	var out []string
	item.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.Text()); v != "" {
			out = append(out, v)
		}
	})
	return out
}

func withDefaults(s Selectors) Selectors {
	d := DefaultSelectors()
	if s.Item == "" {
		s.Item = d.Item
	}
	if s.Title == "" {
		s.Title = d.Title
	}
	if s.Company == "" {
		s.Company = d.Company
	}
	if s.Location == "" {
		s.Location = d.Location
	}
	if s.Description == "" {
		s.Description = d.Description
	}
	if s.Salary == "" {
		s.Salary = d.Salary
	}
	if s.Link == "" {
		s.Link = d.Link
	}
	if s.Date == "" {
		s.Date = d.Date
	}
	if s.Requirement == "" {
		s.Requirement = d.Requirement
	}
	if s.Tag == "" {
		s.Tag = d.Tag
	}
	if s.Total == "" {
		s.Total = d.Total
	}
	return s
}

func (b *HTMLBoard) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, append([]any{"source", b.name}, args...)...)
	}
}
