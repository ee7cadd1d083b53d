package scan

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable indicates the session store dependency is not configured.
var ErrStoreUnavailable = errors.New("scan: session store unavailable")

// Store persists session snapshots in Redis keyed by an opaque session id
// supplied by the caller. Writes are last-write-wins: operations on one
// session id are expected to arrive serialized from a single terminal, and
// no compare-and-set guards concurrent writers.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s *Store) key(id string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "scan:session:"
	}
	return prefix + id
}

func (s *Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return 12 * time.Hour
	}
	return s.TTL
}

// Get loads the session snapshot for the id. A missing key yields a fresh
// empty session.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	if s == nil || s.Client == nil {
		return Session{}, ErrStoreUnavailable
	}
	data, err := s.Client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, nil
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Set stores the session snapshot, refreshing its TTL.
func (s *Store) Set(ctx context.Context, id string, sess Session) error {
	if s == nil || s.Client == nil {
		return ErrStoreUnavailable
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.key(id), data, s.ttl()).Err()
}
