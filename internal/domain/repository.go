package domain

import (
	"context"
	"time"
)

// ModelClient defines the interface for interacting with the model service
type ModelClient interface {
	// Ping performs a lightweight reachability check.
	Ping(ctx context.Context) error
	// Generate submits one prompt and returns the service reply.
	Generate(ctx context.Context, req ModelRequest) (*ModelReply, error)
}

// CacheRepository defines the interface for caching finished records
type CacheRepository interface {
	Get(ctx context.Context, key string) (ProductRecord, error)
	Set(ctx context.Context, key string, value ProductRecord, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// DiagnosticsStore persists one diagnostic record per model attempt
type DiagnosticsStore interface {
	Save(ctx context.Context, record DiagnosticRecord) (string, error)
}
