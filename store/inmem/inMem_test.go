// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package inmem

import (
	"errors"
	"testing"

	"github.com/AizuGit/cdn/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMem(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
	)

	kv := NewInMem()

	_, err := kv.Get("aizu_anonymous_id")
	assert.True(errors.Is(err, store.ErrKeyNotFound))

	require.NoError(kv.Set("aizu_anonymous_id", "a_123"))
	value, err := kv.Get("aizu_anonymous_id")
	require.NoError(err)
	assert.Equal("a_123", value)

	require.NoError(kv.Set("aizu_anonymous_id", "a_456"))
	value, err = kv.Get("aizu_anonymous_id")
	require.NoError(err)
	assert.Equal("a_456", value)

	require.NoError(kv.Remove("aizu_anonymous_id"))
	_, err = kv.Get("aizu_anonymous_id")
	assert.True(errors.Is(err, store.ErrKeyNotFound))

	// removing an absent key is a no-op
	assert.NoError(kv.Remove("missing"))
}
