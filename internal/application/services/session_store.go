package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/pharmacie-web/backend/internal/domain/providers"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultSessionTTL is how long an idle session is kept
const DefaultSessionTTL = 30 * time.Minute

type sessionEntry[T any] struct {
	value      T
	lastAccess time.Time
}

// sessionStore keeps live engines by session id. When a cache is set, every
// save writes a JSON snapshot so that a session evicted from memory (or owned
// by another instance) can be restored on lookup.
type sessionStore[T any] struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry[T]

	kind     string
	ttl      time.Duration
	cache    providers.CacheProvider
	snapshot func(T) any
	restore  func(data []byte) (T, error)
	onChange func(ctx context.Context, delta int64)
	now      func() time.Time
}

func newSessionStore[T any](kind string, ttl time.Duration, cache providers.CacheProvider, snapshot func(T) any, restore func([]byte) (T, error)) *sessionStore[T] {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &sessionStore[T]{
		entries:  make(map[string]*sessionEntry[T]),
		kind:     kind,
		ttl:      ttl,
		cache:    cache,
		snapshot: snapshot,
		restore:  restore,
		onChange: func(context.Context, int64) {},
		now:      time.Now,
	}
}

func (s *sessionStore[T]) key(id string) string {
	return s.kind + ":session:" + id
}

// get returns the live value of id, restoring it from the cache snapshot when
// it is not in memory.
func (s *sessionStore[T]) get(ctx context.Context, id string) (T, error) {
	s.mu.Lock()
	if entry, ok := s.entries[id]; ok {
		entry.lastAccess = s.now()
		s.mu.Unlock()
		return entry.value, nil
	}
	s.mu.Unlock()

	var zero T
	notFound := apperrors.NewNotFoundError(s.kind + " session " + id + " not found")
	if s.cache == nil {
		return zero, notFound
	}

	data, err := s.cache.Get(ctx, s.key(id))
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("session_id", id).Str("kind", s.kind).Msg("Failed to read session snapshot")
		}
		return zero, notFound
	}
	value, err := s.restore(data)
	if err != nil {
		log.Warn().Err(err).Str("session_id", id).Str("kind", s.kind).Msg("Discarding unreadable session snapshot")
		return zero, notFound
	}

	s.mu.Lock()
	// another request may have restored it meanwhile
	if entry, ok := s.entries[id]; ok {
		entry.lastAccess = s.now()
		s.mu.Unlock()
		return entry.value, nil
	}
	s.entries[id] = &sessionEntry[T]{value: value, lastAccess: s.now()}
	s.mu.Unlock()

	s.onChange(ctx, 1)
	log.Debug().Str("session_id", id).Str("kind", s.kind).Msg("Session restored from snapshot")
	return value, nil
}

// put registers a new session and saves its first snapshot
func (s *sessionStore[T]) put(ctx context.Context, id string, value T) {
	s.mu.Lock()
	_, existed := s.entries[id]
	s.entries[id] = &sessionEntry[T]{value: value, lastAccess: s.now()}
	s.mu.Unlock()

	if !existed {
		s.onChange(ctx, 1)
	}
	s.save(ctx, id, value)
}

// save writes the snapshot of value. Cache failures are logged; the session
// keeps working from memory.
func (s *sessionStore[T]) save(ctx context.Context, id string, value T) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(s.snapshot(value))
	if err != nil {
		log.Error().Err(err).Str("session_id", id).Str("kind", s.kind).Msg("Failed to encode session snapshot")
		return
	}
	if err := s.cache.Set(ctx, s.key(id), data, s.ttl); err != nil {
		log.Warn().Err(err).Str("session_id", id).Str("kind", s.kind).Msg("Failed to write session snapshot")
	}
}

// remove drops id from memory and from the cache
func (s *sessionStore[T]) remove(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if ok {
		s.onChange(ctx, -1)
	}

	if s.cache != nil {
		if !ok {
			_, err := s.cache.Get(ctx, s.key(id))
			ok = err == nil
		}
		if err := s.cache.Delete(ctx, s.key(id)); err != nil {
			log.Warn().Err(err).Str("session_id", id).Str("kind", s.kind).Msg("Failed to delete session snapshot")
		}
	}
	if !ok {
		return apperrors.NewNotFoundError(s.kind + " session " + id + " not found")
	}
	return nil
}

// sweep evicts the sessions idle for longer than the ttl and returns how many
// were removed. Snapshots are left to expire in the cache on their own.
func (s *sessionStore[T]) sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	evicted := 0
	for id, entry := range s.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(s.entries, id)
			evicted++
		}
	}
	s.mu.Unlock()

	if evicted > 0 {
		s.onChange(ctx, -int64(evicted))
		log.Debug().Int("evicted", evicted).Str("kind", s.kind).Msg("Evicted idle sessions")
	}
	return evicted
}

func (s *sessionStore[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// startJanitor sweeps every interval until ctx is done
func (s *sessionStore[T]) startJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}
