// Package kvstore persists the CLI's string values under fixed keys.
package kvstore

import "context"

// KV is a flat string store. Get reports ok=false for missing keys.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
