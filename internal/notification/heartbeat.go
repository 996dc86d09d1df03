package notification

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HeartbeatSink pings an Uptime-Kuma push monitor. It is not part of the
// regular fan-out: the health pass calls it directly, only when the pass
// did not fail, at most once per run. The absence of the heartbeat is the
// alert signal, detected by the external monitor, not by this system.
type HeartbeatSink struct {
	pushURL string
	client  *http.Client
}

// NewHeartbeat creates a push-monitor heartbeat sink.
func NewHeartbeat(pushURL string) *HeartbeatSink {
	return &HeartbeatSink{
		pushURL: pushURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HeartbeatSink) Name() string {
	return "heartbeat"
}

// Send pings the push monitor. The event's detail is used as the status
// message and the elapsed pass duration, when present as a "ping" field,
// is forwarded in milliseconds.
func (h *HeartbeatSink) Send(ctx context.Context, e Event) error {
	return h.Ping(ctx, e.Detail, 0)
}

// Ping sends the dead-man's-switch signal with an optional duration.
func (h *HeartbeatSink) Ping(ctx context.Context, msg string, elapsed time.Duration) error {
	u, err := url.Parse(h.pushURL)
	if err != nil {
		return fmt.Errorf("invalid heartbeat URL: %w", err)
	}

	q := u.Query()
	q.Set("status", "up")
	if msg == "" {
		msg = "OK"
	}
	q.Set("msg", msg)
	if elapsed > 0 {
		q.Set("ping", strconv.FormatInt(elapsed.Milliseconds(), 10))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send heartbeat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("heartbeat endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
