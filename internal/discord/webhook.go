package discord

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	colorRed    = 15158332 // 0xE74C3C
	colorGreen  = 5763719  // 0x57F287
	colorYellow = 16776960 // 0xFFFF00

	defaultWebhookTimeout = 10 * time.Second
	maxRetries            = 3

	// Discord rejects embed field values longer than this
	maxFieldValue = 1024
)

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField represents a field in a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// ExportSummary is what one export run did
type ExportSummary struct {
	RunID      string
	Streamers  int
	Exported   int
	Duplicates int
	Skipped    []string // match ids rejected as malformed
	Failed     int
	Runtime    time.Duration
	Cancelled  bool
}

// NewExportSummaryPayload creates the end-of-run notification
func NewExportSummaryPayload(s ExportSummary) WebhookPayload {
	title := "✅ Export Finished"
	color := colorGreen
	switch {
	case s.Failed > 0:
		title, color = "❌ Export Finished With Errors", colorRed
	case s.Cancelled:
		title, color = "⏹ Export Cancelled", colorYellow
	case len(s.Skipped) > 0:
		color = colorYellow
	}

	fields := []EmbedField{
		{Name: "Streamers", Value: formatNumber(s.Streamers), Inline: true},
		{Name: "Matches Exported", Value: formatNumber(s.Exported), Inline: true},
		{Name: "Duplicates", Value: formatNumber(s.Duplicates), Inline: true},
		{Name: "Failed", Value: formatNumber(s.Failed), Inline: true},
		{Name: "Runtime", Value: formatDuration(s.Runtime), Inline: true},
	}
	if len(s.Skipped) > 0 {
		fields = append(fields, EmbedField{
			Name:  fmt.Sprintf("Skipped (%d malformed)", len(s.Skipped)),
			Value: truncate(strings.Join(s.Skipped, ", "), maxFieldValue),
		})
	}

	return WebhookPayload{
		Embeds: []Embed{
			{
				Title:     title,
				Color:     color,
				Fields:    fields,
				Footer:    &EmbedFooter{Text: "Run " + s.RunID},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			},
		},
	}
}

// WebhookClient sends notifications to Discord webhooks
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

// NewWebhookClient creates a new WebhookClient
func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// SendExportSummary posts the end-of-run summary
func (c *WebhookClient) SendExportSummary(ctx context.Context, s ExportSummary) error {
	return c.sendPayload(ctx, NewExportSummaryPayload(s))
}

// sendPayload sends a webhook payload with retry on rate limiting
func (c *WebhookClient) sendPayload(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		// Discord returns 204 No Content
		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := time.Second
			if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				waitDuration = time.Duration(seconds) * time.Second
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook request failed after %d retries", maxRetries)
}

// formatNumber formats a number with commas (e.g., 47832 -> "47,832")
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	if n < 1000 {
		return s
	}

	var result bytes.Buffer
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}

// formatDuration formats a duration as "Xm Ys", or "Xh Ym" past an hour
func formatDuration(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
