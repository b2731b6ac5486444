// Package kv provides the physical key-value backends the storage adapter
// fans out to. Each backend stores opaque string values tagged with the
// recency timestamp used for conflict resolution; a zero UpdatedAt marks a
// legacy record written before timestamps existed.
package kv

import (
	"context"
	"time"
)

// Record is one physical key's stored value plus its recency stamp.
type Record struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Timestamped reports whether the record carries a usable recency stamp.
func (r Record) Timestamped() bool {
	return !r.UpdatedAt.IsZero()
}

// Backend is a single physical key-value store.
type Backend interface {
	// Name identifies the backend in logs, metrics, and write-failure reports.
	Name() string
	// Get returns the record for key, with found=false when the key is absent.
	Get(ctx context.Context, key string) (Record, bool, error)
	// Set stores the record for key, overwriting any previous value.
	Set(ctx context.Context, key string, rec Record) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
