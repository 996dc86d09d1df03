package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/opsledger/opsledger/internal/ledger"
)

const (
	defaultLimit = 20
	maxLimit     = 500

	// Matches the operational convention of alerting on backups older
	// than 9 days.
	defaultStaleHours = 216
)

// HandleGetBackups returns recent backup rows, optionally filtered by host
func HandleGetBackups(q *ledger.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := q.RecentBackups(r.Context(), r.URL.Query().Get("host"), limitParam(r))
		respond(w, rows, err)
	}
}

// HandleGetStaleBackups returns backup groups with no recent successful run
func HandleGetStaleBackups(q *ledger.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hours := defaultStaleHours
		if v := r.URL.Query().Get("hours"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				hours = n
			}
		}
		rows, err := q.StaleBackups(r.Context(), time.Duration(hours)*time.Hour)
		respond(w, rows, err)
	}
}

// HandleGetUnhealthy returns the latest non-ok health check per host+check
func HandleGetUnhealthy(q *ledger.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := q.LatestUnhealthy(r.Context())
		respond(w, rows, err)
	}
}

// HandleGetUpdates returns recent version-history rows
func HandleGetUpdates(q *ledger.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := q.RecentUpdates(r.Context(), limitParam(r))
		respond(w, rows, err)
	}
}

// HandleGetMaintenance returns recent maintenance rows
func HandleGetMaintenance(q *ledger.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := q.RecentMaintenance(r.Context(), limitParam(r))
		respond(w, rows, err)
	}
}

// HandleGetRestores returns recent restore rows
func HandleGetRestores(q *ledger.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := q.RecentRestores(r.Context(), limitParam(r))
		respond(w, rows, err)
	}
}

// HandleGetDockerSizes returns recent container size snapshots
func HandleGetDockerSizes(q *ledger.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := q.RecentDockerSizes(r.Context(), limitParam(r))
		respond(w, rows, err)
	}
}

// HandleGetRuns returns recent playbook run rows
func HandleGetRuns(q *ledger.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := q.RecentRuns(r.Context(), limitParam(r))
		respond(w, rows, err)
	}
}

// HandleGetCounts returns row counts for every ledger table
func HandleGetCounts(q *ledger.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := q.TableCounts(r.Context())
		respond(w, rows, err)
	}
}

func limitParam(r *http.Request) int {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func respond(w http.ResponseWriter, data interface{}, err error) {
	if err != nil {
		http.Error(w, "Query failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
