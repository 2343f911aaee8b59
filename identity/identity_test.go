// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/AizuGit/cdn/store/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	anonymousIDFormat = regexp.MustCompile(`^a_[0-9a-f]{32}$`)
	sessionIDFormat   = regexp.MustCompile(`^s_[0-9a-f]{32}$`)
)

type mockKV struct {
	mock.Mock
}

func (m *mockKV) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *mockKV) Set(key, value string) error {
	return m.Called(key, value).Error(0)
}

func (m *mockKV) Remove(key string) error {
	return m.Called(key).Error(0)
}

func TestIDFormats(t *testing.T) {
	assert := assert.New(t)
	s := New(nil, 0, nil)

	assert.Regexp(anonymousIDFormat, s.AnonymousID())
	assert.Regexp(sessionIDFormat, s.SessionID())
}

func TestAnonymousIDStable(t *testing.T) {
	assert := assert.New(t)
	s := New(nil, 0, nil)

	first := s.AnonymousID()
	assert.Equal(first, s.AnonymousID())
}

func TestAnonymousIDPersistsAcrossInstances(t *testing.T) {
	assert := assert.New(t)
	kv := inmem.NewInMem()

	first := New(kv, 0, nil).AnonymousID()
	second := New(kv, 0, nil).AnonymousID()
	assert.Equal(first, second)
}

func TestResetAnonymousID(t *testing.T) {
	assert := assert.New(t)
	s := New(nil, 0, nil)

	before := s.AnonymousID()
	after := s.ResetAnonymousID()
	assert.Regexp(anonymousIDFormat, after)
	assert.NotEqual(before, after)
	assert.Equal(after, s.AnonymousID())
}

func TestSessionSlidingExpiry(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
	)

	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	s := New(nil, 30*time.Minute, nil)
	s.now = func() time.Time { return now }

	first := s.SessionID()
	require.Regexp(sessionIDFormat, first)

	// activity within the window keeps the session and slides the expiry
	now = now.Add(20 * time.Minute)
	assert.Equal(first, s.SessionID())
	now = now.Add(20 * time.Minute)
	assert.Equal(first, s.SessionID())

	// silence past the window mints a new session
	now = now.Add(31 * time.Minute)
	second := s.SessionID()
	assert.Regexp(sessionIDFormat, second)
	assert.NotEqual(first, second)
}

func TestSessionExpiryPersisted(t *testing.T) {
	assert := assert.New(t)
	kv := inmem.NewInMem()
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	s := New(kv, 30*time.Minute, nil)
	s.now = func() time.Time { return now }
	first := s.SessionID()

	// a fresh instance over the same storage sees a live session
	s = New(kv, 30*time.Minute, nil)
	s.now = func() time.Time { return now.Add(10 * time.Minute) }
	assert.Equal(first, s.SessionID())

	// and an expired one after the window
	s = New(kv, 30*time.Minute, nil)
	s.now = func() time.Time { return now.Add(time.Hour) }
	assert.NotEqual(first, s.SessionID())
}

func TestResetSession(t *testing.T) {
	assert := assert.New(t)
	s := New(nil, 0, nil)

	before := s.SessionID()
	after := s.ResetSession()
	assert.Regexp(sessionIDFormat, after)
	assert.NotEqual(before, after)
	assert.Equal(after, s.SessionID())
}

func TestStorageFailuresDegradeToMemory(t *testing.T) {
	assert := assert.New(t)

	kv := new(mockKV)
	kv.On("Get", mock.Anything).Return("", errors.New("storage unavailable"))
	kv.On("Set", mock.Anything, mock.Anything).Return(errors.New("storage unavailable"))

	s := New(kv, 0, nil)

	anonymous := s.AnonymousID()
	assert.Regexp(anonymousIDFormat, anonymous)
	assert.Equal(anonymous, s.AnonymousID())

	session := s.SessionID()
	assert.Regexp(sessionIDFormat, session)
	assert.Equal(session, s.SessionID())
}
