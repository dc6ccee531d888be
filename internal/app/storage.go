package app

import (
	"context"
	"encoding/json"
	"fmt"
)

// Storage abstracts the origin-scoped key/value store everything is persisted
// in (in-memory, SQLite, Redis, Postgres). Values are whole JSON blobs.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Keys under which collections are persisted. They match the browser app so
// exported localStorage dumps can be imported as-is.
const (
	SessionKey  = "studysphere.user.v1"
	UsersKey    = "studysphere.users.v1"
	AttemptsKey = "studysphere.quiz_attempts.v1"
	PassagesKey = "studysphere.passages.v1"
)

// errCorrupt marks a stored blob that exists but does not decode.
type errCorrupt struct {
	key string
	err error
}

func (e *errCorrupt) Error() string { return fmt.Sprintf("corrupt value at %s: %v", e.key, e.err) }
func (e *errCorrupt) Unwrap() error { return e.err }

// loadJSON decodes key into dst. It reports false when the key is absent.
func loadJSON(ctx context.Context, storage Storage, key string, dst any) (bool, error) {
	raw, ok, err := storage.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, &errCorrupt{key: key, err: err}
	}
	return true, nil
}

func saveJSON(ctx context.Context, storage Storage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := storage.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
