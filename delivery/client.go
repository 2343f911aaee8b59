// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AizuGit/cdn/model"
	"github.com/cenkalti/backoff/v4"
	"github.com/xmidt-org/bascule/acquire"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

var (
	ErrAddressEmpty        = errors.New("events endpoint address is required")
	ErrAPIKeyEmpty         = errors.New("API key is required")
	ErrAuthAcquirerFailure = errors.New("failed acquiring auth header")

	// errClientRejection covers HTTP 4xx: the request itself is bad and a
	// retry can never fix it.
	errClientRejection = errors.New("endpoint rejected the request as invalid")

	// errServerFailure covers HTTP 5xx; retryable alongside network failures.
	errServerFailure = errors.New("endpoint responded with a server error")

	errNewRequestFailure  = errors.New("failed creating an HTTP request")
	errDoRequestFailure   = errors.New("http client failed while sending request")
	errReadingBodyFailure = errors.New("failed while reading http response body")
	errJSONMarshal        = errors.New("failed marshaling events as JSON payload")
)

const (
	eventsAPIPath    = "/v1/events"
	errWrappedFmt    = "%w: %s"
	errStatusCodeFmt = "%w: received status %v"
)

const (
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 250 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
)

// Config contains config data for the client that will be used to deliver
// event batches to the collection endpoint.
type Config struct {
	// Address is the collection endpoint base URL (i.e. https://in.aizu.io).
	Address string

	// APIKey is the publishable key sent as the bearer credential.
	APIKey string

	// HTTPClient refers to the client that will be used to send requests.
	// (Optional) Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger to be used by the client.
	// (Optional). By default a no op logger will be used.
	Logger *zap.Logger

	// MaxRetries caps retries of a retryable failure. The total attempt
	// count is MaxRetries + 1.
	// (Optional). Defaults to 3. Set to a negative value for no retries.
	MaxRetries int

	// InitialInterval and MaxInterval shape the exponential backoff curve
	// between attempts. Exact delays are jittered and non-normative.
	// (Optional). Default to 250ms and 10s.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Measures counts terminal outcomes.
	// (Optional). No metrics are emitted when nil.
	Measures *Measures
}

// Client delivers event batches over HTTP, classifying failures into
// retryable and terminal and retrying with exponential backoff. It reports a
// terminal Outcome per batch and never re-queues a dropped one.
type Client struct {
	client          *http.Client
	auth            acquire.Acquirer
	eventsURL       string
	logger          *zap.Logger
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	measures        *Measures
}

// ack is the endpoint's response body on success.
type ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func New(config Config) (*Client, error) {
	err := validateConfig(&config)
	if err != nil {
		return nil, err
	}

	auth, err := acquire.NewFixedAuthAcquirer("Bearer " + config.APIKey)
	if err != nil {
		return nil, err
	}

	return &Client{
		client:          config.HTTPClient,
		auth:            auth,
		eventsURL:       config.Address + eventsAPIPath,
		logger:          config.Logger,
		maxRetries:      uint64(config.MaxRetries),
		initialInterval: config.InitialInterval,
		maxInterval:     config.MaxInterval,
		measures:        config.Measures,
	}, nil
}

// Send delivers the events as a JSON array body and returns the terminal
// outcome. An empty batch is a no-op reported as success.
func (c *Client) Send(ctx context.Context, events []model.Event) Outcome {
	if len(events) == 0 {
		return SuccessOutcome
	}
	body, err := json.Marshal(events)
	if err != nil {
		return c.dropUnserializable(len(events), err)
	}
	return c.deliver(ctx, body, len(events))
}

// SendOne delivers a single event as a JSON object body. Used when batching
// is disabled.
func (c *Client) SendOne(ctx context.Context, event model.Event) Outcome {
	body, err := json.Marshal(event)
	if err != nil {
		return c.dropUnserializable(1, err)
	}
	return c.deliver(ctx, body, 1)
}

func (c *Client) dropUnserializable(count int, err error) Outcome {
	c.logger.Error("dropping events that could not be serialized",
		zap.Int("events", count),
		zap.Error(fmt.Errorf(errWrappedFmt, errJSONMarshal, err.Error())))
	c.measures.add(ExhaustedOutcome)
	return ExhaustedOutcome
}

func (c *Client) deliver(ctx context.Context, body []byte, count int) Outcome {
	attempt := 0
	operation := func() error {
		attempt++
		err := c.post(ctx, body)
		if err == nil {
			c.logger.Debug("batch delivered",
				zap.Int("attempt", attempt), zap.Int("events", count))
			return nil
		}
		if isTerminal(err) {
			c.logger.Debug("terminal delivery failure",
				zap.Int("attempt", attempt), zap.Int("events", count), zap.Error(err))
			return backoff.Permanent(err)
		}
		c.logger.Debug("transient delivery failure",
			zap.Int("attempt", attempt), zap.Int("events", count), zap.Error(err))
		return err
	}

	curve := backoff.NewExponentialBackOff()
	curve.InitialInterval = c.initialInterval
	curve.MaxInterval = c.maxInterval
	curve.MaxElapsedTime = 0 // retries are bounded by count, not wall time

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(curve, c.maxRetries), ctx))

	outcome := SuccessOutcome
	if err != nil {
		outcome = ExhaustedOutcome
		c.logger.Debug("dropping batch",
			zap.Int("attempts", attempt), zap.Int("events", count),
			zap.String("outcome", outcome.String()), zap.Error(err))
	}
	c.measures.add(outcome)
	return outcome
}

// post performs one delivery attempt. The returned error classifies the
// failure: errors satisfying isTerminal stop the retry loop.
func (c *Client) post(ctx context.Context, body []byte) error {
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.eventsURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf(errWrappedFmt, errNewRequestFailure, err.Error())
	}
	if err := acquire.AddAuth(r, c.auth); err != nil {
		return fmt.Errorf(errWrappedFmt, ErrAuthAcquirerFailure, err.Error())
	}
	r.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(r)
	if err != nil {
		return fmt.Errorf(errWrappedFmt, errDoRequestFailure, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf(errWrappedFmt, errReadingBodyFailure, err.Error())
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var a ack
		if err := json.Unmarshal(respBody, &a); err == nil && a.Message != "" {
			c.logger.Debug("endpoint acknowledged delivery", zap.String("message", a.Message))
		}
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf(errStatusCodeFmt, errClientRejection, resp.StatusCode)
	default:
		return fmt.Errorf(errStatusCodeFmt, errServerFailure, resp.StatusCode)
	}
}

// isTerminal reports whether a failed attempt can never succeed on retry.
func isTerminal(err error) bool {
	return errors.Is(err, errClientRejection) ||
		errors.Is(err, errNewRequestFailure) ||
		errors.Is(err, ErrAuthAcquirerFailure)
}

func validateConfig(config *Config) error {
	if config.Address == "" {
		return ErrAddressEmpty
	}
	if config.APIKey == "" {
		return ErrAPIKeyEmpty
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Logger == nil {
		config.Logger = sallust.Default()
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	} else if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = DefaultInitialInterval
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = DefaultMaxInterval
	}
	return nil
}
