package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/opsledger/internal/config"
)

func testEvent() Event {
	return Event{
		Category:  CategoryBackup,
		Subject:   "gitea",
		Operation: "Backup",
		Status:    StatusFailed,
		Detail:    "tar exited 2",
		Fields: []Field{
			{Name: "Host", Value: "host1", Inline: true},
		},
		Timestamp: time.Date(2026, 8, 29, 3, 15, 0, 0, time.UTC),
		Author:    "opsledger",
	}
}

func TestDiscordSend(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewDiscord(config.DiscordConfig{WebhookURL: srv.URL, Username: "ops"})
	require.NoError(t, sink.Send(context.Background(), testEvent()))

	assert.Equal(t, "ops", got["username"])
	embeds := got["embeds"].([]interface{})
	require.Len(t, embeds, 1)
	embed := embeds[0].(map[string]interface{})
	assert.Equal(t, "gitea Backup", embed["title"])
	assert.Equal(t, "Failed — tar exited 2", embed["description"])
	assert.EqualValues(t, 0xFF0000, embed["color"])
	assert.Equal(t, "2026-08-29T03:15:00Z", embed["timestamp"])

	fields := embed["fields"].([]interface{})
	require.Len(t, fields, 2)
	first := fields[0].(map[string]interface{})
	assert.Equal(t, "Status", first["name"])
	assert.Equal(t, "failed", first["value"])
}

func TestDiscordSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sink := NewDiscord(config.DiscordConfig{WebhookURL: srv.URL})
	assert.Error(t, sink.Send(context.Background(), testEvent()))
}

func TestAppriseSend(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notify", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewApprise(config.AppriseConfig{URL: srv.URL, Tag: "homelab"})
	require.NoError(t, sink.Send(context.Background(), testEvent()))

	assert.Equal(t, "gitea Backup", got["title"])
	assert.Equal(t, "failure", got["type"])
	assert.Equal(t, "homelab", got["tag"])
	assert.Contains(t, got["body"], "Failed — tar exited 2")
	assert.Contains(t, got["body"], "Host: host1")
}

func TestAppriseMessageType(t *testing.T) {
	var types []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		types = append(types, payload["type"].(string))
	}))
	defer srv.Close()

	sink := NewApprise(config.AppriseConfig{URL: srv.URL, Tag: "all"})
	for _, status := range []Status{StatusSuccessful, StatusPartial, StatusFailed} {
		e := testEvent()
		e.Status = status
		require.NoError(t, sink.Send(context.Background(), e))
	}
	assert.Equal(t, []string{"success", "warning", "failure"}, types)
}

func TestHeartbeatPing(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
	}))
	defer srv.Close()

	hb := NewHeartbeat(srv.URL + "/api/push/abc123")
	require.NoError(t, hb.Ping(context.Background(), "OK", 1500*time.Millisecond))

	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/push/abc123", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "up", q.Get("status"))
	assert.Equal(t, "OK", q.Get("msg"))
	assert.Equal(t, "1500", q.Get("ping"))
}

func TestHeartbeatPingDefaults(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
	}))
	defer srv.Close()

	hb := NewHeartbeat(srv.URL)
	require.NoError(t, hb.Ping(context.Background(), "", 0))

	q := got.URL.Query()
	assert.Equal(t, "OK", q.Get("msg"))
	assert.Empty(t, q.Get("ping"))
}

func TestHeartbeatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	hb := NewHeartbeat(srv.URL)
	assert.Error(t, hb.Ping(context.Background(), "OK", 0))
}
