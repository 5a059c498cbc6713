package port

import "context"

// Repository mirrors live state into optional persistence backends.
// The in-memory store stays the source of truth; write failures are logged
// by callers and never fatal.
type Repository interface {
	UpsertLatestPrice(ctx context.Context, symbol string, price float64, ts int64) error
	InsertSnapshot(ctx context.Context, ts int64, payload string) error
	Close() error
}
