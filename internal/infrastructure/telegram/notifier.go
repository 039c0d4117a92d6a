// Package telegram posts search digests to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends search digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.EventPublisher = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty apiBase uses the public bot API.
func NewNotifier(botToken, chatID, apiBase string) *Notifier {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  strings.TrimRight(apiBase, "/"),
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// PublishSearchCompleted posts a Markdown digest of the search.
func (n *Notifier) PublishSearchCompleted(ctx context.Context, event domain.SearchCompleted) error {
	return n.send(ctx, Digest(event))
}

// Digest renders the message body for a completed search.
func Digest(event domain.SearchCompleted) string {
	var b strings.Builder
	b.WriteString("*Job search finished*\n")
	if event.Filters.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", event.Filters.Title)
	}
	if event.Filters.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", event.Filters.Location)
	}
	fmt.Fprintf(&b, "Listings: %d of about %d\n", event.Listings, event.TotalResults)
	if event.Listings > 0 {
		fmt.Fprintf(&b, "Best match: %d%%\n", event.TopScore)
	}
	b.WriteString(event.Timestamp.UTC().Format(time.RFC1123))
	return b.String()
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
