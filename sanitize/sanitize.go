// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package sanitize

import (
	"sort"

	"github.com/AizuGit/cdn/model"
)

// Bounds applied to every payload before it enters the pipeline. Sanitization
// is total: any JSON-serializable input yields a bounded output, never an
// error. Analytics is best-effort, so oversized input is trimmed silently.
const (
	// MaxProperties caps the number of caller-supplied keys per event.
	MaxProperties = 100

	// MaxStringLength caps every string value at this many characters,
	// recursively.
	MaxStringLength = 1000

	// MaxURLLength caps URL-valued fields, in characters.
	MaxURLLength = 2048
)

// urlKeys are property names whose string values carry URLs and get the wider
// MaxURLLength cap.
var urlKeys = map[string]bool{
	"href":         true,
	"url":          true,
	"$current_url": true,
}

type config struct {
	aliases map[string]string
}

type Option func(*config)

// WithAliases normalizes legacy property names to their canonical form. A
// legacy key is renamed only when the canonical key is absent; when both are
// supplied the canonical key wins and the legacy key is dropped.
func WithAliases(aliases map[string]string) Option {
	return func(c *config) {
		c.aliases = aliases
	}
}

// Properties bounds raw caller-supplied properties and merges in the
// event-type-specific required keys. Required keys do not count against the
// MaxProperties cap and always take precedence. The cap keeps keys in sorted
// order so the surviving set is deterministic.
func Properties(raw model.Properties, required model.Properties, opts ...Option) model.Properties {
	var c config
	for _, o := range opts {
		o(&c)
	}

	work := make(model.Properties, len(raw))
	for key, value := range raw {
		work[key] = value
	}
	for legacy, canonical := range c.aliases {
		value, ok := work[legacy]
		if !ok {
			continue
		}
		if _, exists := work[canonical]; !exists {
			work[canonical] = value
		}
		delete(work, legacy)
	}

	keys := make([]string, 0, len(work))
	for key := range work {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) > MaxProperties {
		keys = keys[:MaxProperties]
	}

	out := make(model.Properties, len(keys)+len(required))
	for _, key := range keys {
		out[key] = truncateValue(key, work[key])
	}
	for key, value := range required {
		out[key] = truncateValue(key, value)
	}
	return out
}

// URL caps a URL string at MaxURLLength characters.
func URL(s string) string {
	return truncate(s, MaxURLLength)
}

// truncate caps s at limit characters, cutting on a rune boundary so the
// result stays valid UTF-8.
func truncate(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

func truncateValue(key string, value any) any {
	switch v := value.(type) {
	case string:
		limit := MaxStringLength
		if urlKeys[key] {
			limit = MaxURLLength
		}
		return truncate(v, limit)
	case model.Properties:
		return truncateMap(map[string]any(v))
	case map[string]any:
		return truncateMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = truncateValue("", item)
		}
		return out
	default:
		return value
	}
}

func truncateMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = truncateValue(key, value)
	}
	return out
}
