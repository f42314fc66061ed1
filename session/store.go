package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// ErrNoRecord is returned by [Store.Load] when nothing is persisted.
var ErrNoRecord = errors.New("no session record")

// ErrExpiredRecord is returned by [Store.Load] when the persisted session
// deadline has passed.
var ErrExpiredRecord = errors.New("expired session record")

// ErrBackendUnavailable wraps backend I/O failures.
var ErrBackendUnavailable = errors.New("session backend unavailable")

// DefaultKey is the record key used when none is configured.
const DefaultKey = "auth_session"

// Backend is raw single-key persistence. Get returns [ErrNoRecord] when the
// key is absent.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Store keeps the serialized shadow copy of the current session. It only
// validates expiry and record shape; business rules stay with the caller.
//
// Save and Clear never fail from the caller's point of view: the store is
// a best-effort cache, so backend errors are logged and dropped. A failed
// Save leaves the persisted copy behind the in-memory session.
type Store struct {
	backend Backend
	key     string
	now     func() time.Time
	logger  *slog.Logger
}

// Option customizes a [Store].
type Option func(*Store)

// WithKey overrides the record key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for swallowed backend errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore wraps backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		key:     DefaultKey,
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the record key.
func (s *Store) Key() string {
	return s.key
}

// Load returns the persisted session when it is present, well formed and
// not expired. In every other case it returns a nil session, removes the
// record, and reports why through the error ([ErrNoRecord],
// [ErrCorruptRecord], [ErrExpiredRecord] or [ErrBackendUnavailable]).
func (s *Store) Load(ctx context.Context) (*Session, error) {
	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return nil, ErrNoRecord
		}
		s.logger.Warn("session load failed", "key", s.key, "error", err)
		s.Clear(ctx)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		s.logger.Warn("discarding corrupt session record", "key", s.key, "error", err)
		s.Clear(ctx)
		return nil, err
	}

	if sess.ExpiresAt <= s.now().UnixMilli() {
		s.logger.Debug("discarding expired session record", "key", s.key)
		s.Clear(ctx)
		return nil, ErrExpiredRecord
	}

	return sess, nil
}

// Save overwrites the persisted record with sess.
func (s *Store) Save(ctx context.Context, sess *Session) {
	data, err := Encode(sess)
	if err != nil {
		s.logger.Warn("session encode failed", "key", s.key, "error", err)
		return
	}

	ttl := time.Duration(0)
	if sess.ExpiresAt > 0 {
		ttl = time.UnixMilli(sess.ExpiresAt).Sub(s.now())
		if ttl <= 0 {
			ttl = time.Millisecond
		}
	}

	if err := s.backend.Set(ctx, s.key, data, ttl); err != nil {
		s.logger.Warn("session save failed", "key", s.key, "error", err)
	}
}

// Clear removes the persisted record.
func (s *Store) Clear(ctx context.Context) {
	if err := s.backend.Delete(ctx, s.key); err != nil {
		s.logger.Warn("session clear failed", "key", s.key, "error", err)
	}
}
