package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opsledger/opsledger/internal/config"
)

// AppriseSink relays notifications through an Apprise API server, which
// fans them out to whatever services the server is configured with. Adding
// a downstream service never requires touching call sites here.
type AppriseSink struct {
	url    string
	tag    string
	client *http.Client
}

// NewApprise creates an Apprise relay sink.
func NewApprise(cfg config.AppriseConfig) *AppriseSink {
	return &AppriseSink{
		url:    strings.TrimRight(cfg.URL, "/"),
		tag:    cfg.Tag,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *AppriseSink) Name() string {
	return "apprise"
}

func (a *AppriseSink) Send(ctx context.Context, e Event) error {
	// Apprise message type maps from outcome severity
	msgType := "success"
	switch e.Status {
	case StatusFailed:
		msgType = "failure"
	case StatusPartial:
		msgType = "warning"
	}

	body := e.Body()
	for _, f := range e.Fields {
		body += fmt.Sprintf("\n%s: %s", f.Name, f.Value)
	}

	payload := map[string]interface{}{
		"title": e.Title(),
		"body":  body,
		"type":  msgType,
		"tag":   a.tag,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url+"/notify", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Apprise notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Apprise API returned status %d", resp.StatusCode)
	}

	return nil
}
