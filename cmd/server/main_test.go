package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moonshotcommons/cross-guess-game/internal/database"
	"github.com/moonshotcommons/cross-guess-game/internal/handler/health"
	"github.com/moonshotcommons/cross-guess-game/internal/relay"
)

func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:1",
		DialTimeout:  10 * time.Millisecond,
		ReadTimeout:  10 * time.Millisecond,
		WriteTimeout: 10 * time.Millisecond,
		MaxRetries:   0,
	})
}

func TestHealthChecks(t *testing.T) {
	// Real SQLite in-memory DB, no mocks needed.
	db, err := database.Open(context.Background(), database.Memory)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := relay.New(deadRedis(), "crossguess:events", logger)

	tests := []struct {
		name       string
		checks     map[string]health.Checker
		wantStatus int
		wantSQLite string
		wantRedis  string
	}{
		{
			name:       "sqlite ok without redis",
			checks:     map[string]health.Checker{"sqlite": dbChecker{db}},
			wantStatus: http.StatusOK,
			wantSQLite: "ok",
		},
		{
			name: "sqlite ok redis down",
			checks: map[string]health.Checker{
				"sqlite": dbChecker{db},
				"redis":  health.CheckerFunc(pub.Ping),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantSQLite: "ok",
			wantRedis:  "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(logger, tt.checks).Routes()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]struct{ Status string }
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding: %v", err)
			}
			if got := body["sqlite"].Status; got != tt.wantSQLite {
				t.Errorf("sqlite = %q, want %q", got, tt.wantSQLite)
			}
			if got := body["redis"].Status; got != tt.wantRedis {
				t.Errorf("redis = %q, want %q", got, tt.wantRedis)
			}
		})
	}
}
