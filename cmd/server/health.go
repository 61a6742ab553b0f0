package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"coursehub/internal/platform/redis"
)

// healthz reports liveness of the process and its backing stores. A missing
// dependency is reported as "disabled" rather than failing the check.
func healthz(db *sql.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := map[string]string{}

		switch {
		case db == nil:
			checks["postgres"] = "disabled"
		case db.PingContext(ctx) != nil:
			checks["postgres"] = "down"
			status = http.StatusServiceUnavailable
		default:
			checks["postgres"] = "ok"
		}

		switch {
		case redisClient == nil:
			checks["redis"] = "disabled"
		case redisClient.Health(ctx) != nil:
			// The cache degrades gracefully, so redis being down does not
			// make the service unhealthy.
			checks["redis"] = "down"
		default:
			checks["redis"] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(checks)
	}
}
