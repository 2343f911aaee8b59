// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AizuGit/cdn/store"
	"github.com/AizuGit/cdn/store/inmem"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage keys. Shared with the browser distribution of the SDK, so renaming
// them would orphan existing identities.
const (
	anonymousIDKey  = "aizu_anonymous_id"
	sessionIDKey    = "aizu_session_id"
	sessionTouchKey = "aizu_session_ts"
)

// DefaultSessionTimeout is the sliding inactivity window after which a new
// session id is minted.
const DefaultSessionTimeout = 30 * time.Minute

// Store owns the anonymous-id and session-id lifecycle for one pipeline
// instance. The anonymous id is minted once and persists across sessions;
// the session id expires after SessionTimeout of inactivity. All methods are
// safe for concurrent use and never fail: storage errors degrade to
// in-memory identity for that call.
type Store struct {
	kv      store.KV
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	anonymous string
	session   string
	lastSeen  time.Time
}

func New(kv store.KV, timeout time.Duration, logger *zap.Logger) *Store {
	if kv == nil {
		kv = inmem.NewInMem()
	}
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:      kv,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// AnonymousID returns the current anonymous id, minting and persisting one on
// first access.
func (s *Store) AnonymousID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.anonymous == "" {
		s.anonymous = s.load(anonymousIDKey)
	}
	if s.anonymous == "" {
		s.anonymous = newID("a")
		s.persist(anonymousIDKey, s.anonymous)
	}
	return s.anonymous
}

// ResetAnonymousID mints a fresh anonymous id, persists it and returns it.
// Used for logout, opt-out and privacy-erasure flows.
func (s *Store) ResetAnonymousID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.anonymous = newID("a")
	s.persist(anonymousIDKey, s.anonymous)
	return s.anonymous
}

// SessionID returns the current session id, minting a new one if the session
// expired. Every call counts as activity and slides the expiry window.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.session == "" {
		s.session = s.load(sessionIDKey)
		s.lastSeen = s.loadTouch()
	}
	if s.session == "" || now.Sub(s.lastSeen) > s.timeout {
		s.session = newID("s")
		s.persist(sessionIDKey, s.session)
	}
	s.touch(now)
	return s.session
}

// ResetSession forces a new session id regardless of expiry state.
func (s *Store) ResetSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = newID("s")
	s.persist(sessionIDKey, s.session)
	s.touch(s.now())
	return s.session
}

func (s *Store) touch(now time.Time) {
	s.lastSeen = now
	s.persist(sessionTouchKey, strconv.FormatInt(now.UnixMilli(), 10))
}

// loadTouch reads the persisted last-activity instant. An absent or
// unparseable value reads as the zero time, which always counts as expired.
func (s *Store) loadTouch() time.Time {
	raw := s.load(sessionTouchKey)
	if raw == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (s *Store) load(key string) string {
	value, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			s.logger.Debug("identity storage read failed, continuing in memory",
				zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return value
}

func (s *Store) persist(key, value string) {
	if err := s.kv.Set(key, value); err != nil {
		s.logger.Debug("identity storage write failed, continuing in memory",
			zap.String("key", key), zap.Error(err))
	}
}

func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
