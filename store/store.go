// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import "errors"

// ErrKeyNotFound is returned by Get when no value exists for the key. Since
// implementations may wrap it, check with errors.Is().
var ErrKeyNotFound = errors.New("no value found for key")

// KV is the persistence capability injected into the pipeline. Implementations
// must be safe for concurrent use. The pipeline treats every KV failure as
// non-fatal and degrades to in-memory state for that call.
type KV interface {
	// Get returns the stored value for key, or ErrKeyNotFound.
	Get(key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes the value under key. Removing an absent key is a no-op.
	Remove(key string) error
}
