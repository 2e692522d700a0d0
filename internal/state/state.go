// Package state persists what the service must remember across restarts:
// the upstream session artifact and the global block window.
package state

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"profilegate/internal/config"
	"profilegate/internal/governor"
	"profilegate/internal/upstream"
)

// Store is a persistence backend for sessions and the global block.
type Store interface {
	upstream.SessionStore
	governor.BlockStore
	Close() error
}

// Open builds the backend named by cfg.State.Backend.
func Open(cfg config.Config) (Store, error) {
	var sealer *Sealer
	if cfg.State.SealKey != "" {
		s, err := NewSealer(cfg.State.SealKey)
		if err != nil {
			return nil, err
		}
		sealer = s
	}

	switch cfg.State.Backend {
	case "redis":
		client, err := NewRedisClient(cfg.State.Redis.Addr, cfg.State.Redis.Password, cfg.State.Redis.DB)
		if err != nil {
			return nil, err
		}
		log.Printf("state: using redis at %s (prefix %q)", cfg.State.Redis.Addr, cfg.State.Redis.Prefix)
		return NewRedisStore(client, cfg.State.Redis.Prefix, cfg.Upstream.SessionMaxAge.Std(), sealer), nil
	case "file", "":
		log.Printf("state: using files under %s", cfg.State.Dir)
		fs, err := NewFileStore(cfg.State.Dir, sealer)
		if err != nil {
			return nil, err
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("state: unknown backend %q", cfg.State.Backend)
	}
}

type sessionRecord struct {
	Identity  string    `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
	Blob      []byte    `json:"blob"`
	Sealed    bool      `json:"sealed,omitempty"`
}

type blockRecord struct {
	GlobalBlockUntil time.Time `json:"global_block_until"`
}

func encodeSession(s *upstream.Session, sealer *Sealer) ([]byte, error) {
	rec := sessionRecord{Identity: s.Identity, CreatedAt: s.CreatedAt, Blob: s.Blob}
	if sealer != nil {
		sealed, err := sealer.Seal(s.Identity, s.Blob)
		if err != nil {
			return nil, fmt.Errorf("state: seal session: %w", err)
		}
		rec.Blob, rec.Sealed = sealed, true
	}
	return json.Marshal(rec)
}

func decodeSession(identity string, data []byte, sealer *Sealer) (*upstream.Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("state: decode session: %w", err)
	}
	if rec.Identity != identity {
		return nil, fmt.Errorf("state: session belongs to %q, not %q", rec.Identity, identity)
	}
	blob := rec.Blob
	if rec.Sealed {
		if sealer == nil {
			return nil, fmt.Errorf("%w: no seal key configured", ErrSealed)
		}
		plain, err := sealer.Open(identity, rec.Blob)
		if err != nil {
			return nil, err
		}
		blob = plain
	}
	return &upstream.Session{Identity: rec.Identity, CreatedAt: rec.CreatedAt, Blob: blob}, nil
}
