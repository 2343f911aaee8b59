// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package aizu

import (
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/AizuGit/cdn/delivery"
	"github.com/AizuGit/cdn/store"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// Configuration errors. A malformed key or URL is a programmer error, so New
// fails fast instead of degrading silently. The messages are part of the
// public contract.
var (
	ErrAPIKeyRequired = errors.New("API key is required.")
	ErrInvalidAPIKey  = errors.New("Invalid API key format.")
	ErrAPIURLRequired = errors.New("API URL is required.")
	ErrInvalidAPIURL  = errors.New("Invalid API URL format.")
)

// Publishable keys look like pk_<token>. Secret server-side keys are never
// accepted here.
var apiKeyFormat = regexp.MustCompile(`^pk_[A-Za-z0-9_]+$`)

const (
	DefaultBatchSize      = 20
	DefaultFlushInterval  = time.Second
	DefaultSessionTimeout = 30 * time.Minute

	// pageviewDedupWindow suppresses repeat pageviews for the same URL.
	pageviewDedupWindow = 3 * time.Second
)

// Config configures a pipeline instance. APIKey and APIURL are required;
// everything else has defaults.
type Config struct {
	// APIKey is the publishable key, pk_ prefixed.
	APIKey string

	// APIURL is the absolute base URL of the collection endpoint.
	APIURL string

	// AutoTrackPageviews and AutoTrackClicks mirror the browser
	// distribution's configuration surface. This package performs no
	// auto-instrumentation; the values are validated and exposed through
	// Settings-style config plumbing only.
	// AutoTrackPageviews (Optional). Defaults to true.
	AutoTrackPageviews *bool
	AutoTrackClicks    bool

	// Debug enables debug-level log emission. Without it (and with no
	// Logger supplied) the pipeline is silent.
	Debug bool

	// SessionTimeout is the sliding session inactivity window.
	// (Optional). Defaults to 30 minutes.
	SessionTimeout time.Duration

	// BatchSize is the queue length that triggers an immediate flush.
	// (Optional). Defaults to 20.
	BatchSize int

	// FlushInterval is the periodic flush cadence.
	// (Optional). Defaults to 1 second.
	FlushInterval time.Duration

	// EnableBatching turns the queue on. When false every tracking call
	// delivers a single-event request immediately.
	// (Optional). Defaults to true.
	EnableBatching *bool

	// HTTPClient refers to the client used for all network calls.
	// (Optional). Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger to be used by the pipeline.
	// (Optional). Defaults to a debug logger when Debug is set, a no op
	// logger otherwise.
	Logger *zap.Logger

	// Storage is the persistence capability backing identity.
	// (Optional). Defaults to in-memory storage.
	Storage store.KV

	// OnOutcome, when set, observes the terminal outcome of every batch.
	// Delivery failures are otherwise visible only in debug logs.
	OnOutcome func(outcome delivery.Outcome, events int)

	// Measures counts delivery outcomes.
	// (Optional). No metrics are emitted when nil.
	Measures *delivery.Measures

	// retry knobs passed through to the delivery engine; zero values take
	// the delivery defaults.
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// now is the clock source, replaceable in tests.
	now func() time.Time
}

func validateConfig(config *Config) error {
	if config.APIKey == "" {
		return ErrAPIKeyRequired
	}
	if !apiKeyFormat.MatchString(config.APIKey) {
		return ErrInvalidAPIKey
	}
	if config.APIURL == "" {
		return ErrAPIURLRequired
	}
	if u, err := url.Parse(config.APIURL); err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidAPIURL
	}
	if config.SessionTimeout <= 0 {
		config.SessionTimeout = DefaultSessionTimeout
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Logger == nil {
		if config.Debug {
			config.Logger = debugLogger()
		} else {
			config.Logger = zap.NewNop()
		}
	}
	if config.now == nil {
		config.now = time.Now
	}
	return nil
}

func debugLogger() *zap.Logger {
	sc := sallust.Config{Level: "DEBUG"}
	logger, err := sc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// defaultTrue resolves the tri-state optional booleans.
func defaultTrue(b *bool) bool {
	return b == nil || *b
}
