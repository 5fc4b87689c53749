package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"tomatoService/internal/auth"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxDBAttempts = 10
	dbRetryDelay  = 2 * time.Second
)

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, errorMsg, message string) {
	writeJSON(w, statusCode, auth.ErrorResponse{Error: errorMsg, Message: message})
}

// connectToDB retries until Postgres answers, maxDBAttempts run out or ctx
// is cancelled. It returns nil when no connection was made.
func connectToDB(ctx context.Context, dsn string) *pgxpool.Pool {
	for attempt := 1; ; attempt++ {
		pool, err := openDB(ctx, dsn)
		if err == nil {
			log.Printf("✅ Connected to Postgres")
			return pool
		}
		log.Printf("Postgres is not yet ready (attempt %d/%d): %v", attempt, maxDBAttempts, err)

		if attempt >= maxDBAttempts {
			return nil
		}

		select {
		case <-ctx.Done():
			log.Printf("Stopped waiting for Postgres: %v", ctx.Err())
			return nil
		case <-time.After(dbRetryDelay):
		}
	}
}

func openDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbRetryDelay)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
