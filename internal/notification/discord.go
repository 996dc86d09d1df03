package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opsledger/opsledger/internal/config"
)

// DiscordSink sends Discord webhook notifications with rich embeds
type DiscordSink struct {
	webhookURL string
	username   string
	client     *http.Client
}

// NewDiscord creates a Discord webhook sink.
func NewDiscord(cfg config.DiscordConfig) *DiscordSink {
	return &DiscordSink{
		webhookURL: cfg.WebhookURL,
		username:   cfg.Username,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordSink) Name() string {
	return "discord"
}

func (d *DiscordSink) Send(ctx context.Context, e Event) error {
	// Build Discord embed
	fields := make([]map[string]interface{}, 0, len(e.Fields)+1)
	fields = append(fields, map[string]interface{}{
		"name":   "Status",
		"value":  string(e.Status),
		"inline": true,
	})
	for _, f := range e.Fields {
		fields = append(fields, map[string]interface{}{
			"name":   f.Name,
			"value":  f.Value,
			"inline": f.Inline,
		})
	}

	embed := map[string]interface{}{
		"title":       e.Title(),
		"description": e.Body(),
		"color":       e.Color(),
		"timestamp":   e.Timestamp.UTC().Format(time.RFC3339),
		"fields":      fields,
		"author":      map[string]interface{}{"name": e.Author},
	}
	if e.URL != "" {
		embed["url"] = e.URL
	}

	payload := map[string]interface{}{
		"username": d.username,
		"embeds":   []interface{}{embed},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Discord webhook returned status %d", resp.StatusCode)
	}

	return nil
}
