// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package aizu

import (
	"sync"
	"time"
)

// pageviewDedup tracks the last accepted pageview instant per URL. A repeat
// pageview for the same URL inside the window is suppressed and does not move
// the window; only accepted pageviews are recorded.
type pageviewDedup struct {
	window time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

func newPageviewDedup(window time.Duration) *pageviewDedup {
	return &pageviewDedup{
		window: window,
		seen:   map[string]time.Time{},
	}
}

func (d *pageviewDedup) accept(url string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen[url]; ok && now.Sub(last) < d.window {
		return false
	}
	if len(d.seen) >= 4096 {
		d.sweep(now)
	}
	d.seen[url] = now
	return true
}

// sweep drops expired entries so a long-lived instance visiting many URLs
// does not grow without bound. Called with the lock held.
func (d *pageviewDedup) sweep(now time.Time) {
	for url, last := range d.seen {
		if now.Sub(last) >= d.window {
			delete(d.seen, url)
		}
	}
}
