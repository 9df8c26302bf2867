// Package correlativo provides domain contracts for sequential document numbering.
// Implementations live in infrastructure layer.
package correlativo

import (
	"context"
	"time"
)

// Generator issues per-tenant sequential document numbers.
// This is the domain contract - implementations live in infrastructure layer.
//
// Implementations increment the counter row inside the caller's transaction
// under a row-level exclusive lock: two concurrent callers for the same
// (tenant, type, prefix) never receive the same number. A rolled-back caller
// may burn a number; no two persisted documents ever share one.
type Generator interface {
	// Next generates the next document number for the tenant in context.
	// Pattern: PREFIX-YEAR-NNNNN (e.g. FAC-2026-00001).
	Next(ctx context.Context, cfg Config, period time.Time) (string, error)

	// SetNext sets the counter for the period's year so the next issued
	// number is value (for migration purposes).
	SetNext(ctx context.Context, cfg Config, period time.Time, value int64) error
}
