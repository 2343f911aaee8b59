// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package aizu

import (
	"context"
	"sync"
	"time"

	"github.com/AizuGit/cdn/delivery"
	"github.com/AizuGit/cdn/identity"
	"github.com/AizuGit/cdn/model"
	"github.com/AizuGit/cdn/queue"
	"github.com/AizuGit/cdn/sanitize"
	"go.uber.org/zap"
)

// identifyAliases maps legacy identify property names to their canonical
// keys.
var identifyAliases = map[string]string{
	"email": model.EmailKey,
	"name":  model.FullNameKey,
}

// Client is the public pipeline surface. Tracking calls sanitize the payload,
// snapshot identity, and enqueue; delivery failures never propagate back to
// the caller. Each Client owns its own queue, flush ticker and identity
// state; instances share nothing.
type Client struct {
	config   Config
	logger   *zap.Logger
	identity *identity.Store
	queue    *queue.Queue
	delivery *delivery.Client
	dedup    *pageviewDedup
	batching bool
	now      func() time.Time

	settingsOnce sync.Once
	settingsMu   sync.Mutex
	settings     map[string]any

	singles   sync.WaitGroup
	closeOnce sync.Once
}

// New validates the configuration eagerly and assembles the pipeline. When
// batching is enabled the flush ticker starts immediately; call Close on
// teardown to release it.
func New(config Config) (*Client, error) {
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	d, err := delivery.New(delivery.Config{
		Address:         config.APIURL,
		APIKey:          config.APIKey,
		HTTPClient:      config.HTTPClient,
		Logger:          config.Logger,
		MaxRetries:      config.MaxRetries,
		InitialInterval: config.InitialInterval,
		MaxInterval:     config.MaxInterval,
		Measures:        config.Measures,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:   config,
		logger:   config.Logger,
		identity: identity.New(config.Storage, config.SessionTimeout, config.Logger),
		delivery: d,
		dedup:    newPageviewDedup(pageviewDedupWindow),
		batching: defaultTrue(config.EnableBatching),
		now:      config.now,
	}

	q, err := queue.New(queue.Config{
		BatchSize:     config.BatchSize,
		FlushInterval: config.FlushInterval,
		Logger:        config.Logger,
	}, queue.SenderFunc(c.deliverBatch))
	if err != nil {
		return nil, err
	}
	c.queue = q

	if c.batching {
		if err := q.Start(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Init fetches remote feature settings. It is idempotent: only the first call
// performs the request, and its failure is fully swallowed so event tracking
// keeps working without settings.
func (c *Client) Init(ctx context.Context) {
	c.settingsOnce.Do(func() {
		c.fetchSettings(ctx)
	})
}

// Pageview captures a pageview for the URL in properties["href"]. A repeat
// pageview for the same URL within 3 seconds of the prior accepted one is
// suppressed entirely.
func (c *Client) Pageview(properties model.Properties) {
	href := sanitize.URL(stringProperty(properties, "href"))
	if !c.dedup.accept(href, c.now()) {
		c.logger.Debug("suppressing duplicate pageview", zap.String("href", href))
		return
	}
	c.capture(model.TypePageview, href, properties, nil)
}

// Track captures a custom event.
func (c *Client) Track(eventName string, properties model.Properties) {
	c.capture(model.TypeCustom, "", properties, model.Properties{model.EventNameKey: eventName})
}

// Identify associates the current anonymous id with a known user. The legacy
// email and name property names are normalized to $email and $full_name.
func (c *Client) Identify(userID string, properties model.Properties) {
	c.capture(model.TypeIdentify, "", properties,
		model.Properties{model.UserIDKey: userID},
		sanitize.WithAliases(identifyAliases))
}

// GroupIdentify associates the current identity with a group.
func (c *Client) GroupIdentify(groupID string, properties model.Properties) {
	c.capture(model.TypeGroupIdentify, "", properties,
		model.Properties{model.GroupIDKey: groupID})
}

// TrackBatch delivers pre-built events immediately, bypassing the queue.
// Events are sanitized and stamped with identity where missing, then sent in
// consecutive order-preserving sub-batches of at most model.MaxBatchSize.
// TrackBatch returns once every sub-batch reached a terminal outcome.
func (c *Client) TrackBatch(ctx context.Context, events []model.Event) {
	if len(events) == 0 {
		return
	}
	stamped := make([]model.Event, len(events))
	for i, ev := range events {
		if ev.APIKey == "" {
			ev.APIKey = c.config.APIKey
		}
		if ev.AnonymousID == "" {
			ev.AnonymousID = c.identity.AnonymousID()
		}
		if ev.SessionID == "" {
			ev.SessionID = c.identity.SessionID()
		}
		if ev.Timestamp == 0 {
			ev.Timestamp = c.now().UnixMilli()
		}
		ev.Href = sanitize.URL(ev.Href)
		ev.Properties = sanitize.Properties(ev.Properties, nil)
		stamped[i] = ev
	}
	for _, batch := range model.Split(stamped, model.MaxBatchSize) {
		c.deliverBatch(ctx, batch)
	}
}

// Flush drains the queue and returns once every drained sub-batch reached a
// terminal outcome. Flushing an empty queue performs no network call.
func (c *Client) Flush(ctx context.Context) {
	c.queue.Flush(ctx)
}

// BatchSize returns the number of events currently queued.
func (c *Client) BatchSize() int {
	return c.queue.Size()
}

// SessionID returns the current session id, minting a new one if the session
// expired. Counts as session activity.
func (c *Client) SessionID() string { return c.identity.SessionID() }

// ResetSession forces a new session id.
func (c *Client) ResetSession() string { return c.identity.ResetSession() }

// AnonymousID returns the persistent anonymous id.
func (c *Client) AnonymousID() string { return c.identity.AnonymousID() }

// ResetAnonymousID mints a new anonymous id, for logout and opt-out flows.
func (c *Client) ResetAnonymousID() string { return c.identity.ResetAnonymousID() }

// Settings returns the remote settings fetched by Init, or nil.
func (c *Client) Settings() map[string]any {
	c.settingsMu.Lock()
	defer c.settingsMu.Unlock()
	return c.settings
}

// Close stops the flush ticker, delivers whatever is still queued or in
// flight, and waits for completion. Close is idempotent; calls after the
// first are no-ops.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.batching {
			if err = c.queue.Stop(); err != nil {
				return
			}
			c.queue.Flush(context.Background())
		}
		c.singles.Wait()
	})
	return err
}

// capture runs the pre-enqueue pipeline: sanitize, snapshot identity, stamp
// the clock. Events are immutable from here on.
func (c *Client) capture(t model.EventType, href string, properties model.Properties, required model.Properties, opts ...sanitize.Option) {
	if href == "" {
		href = sanitize.URL(stringProperty(properties, "href"))
	}
	event := model.Event{
		Type:        t,
		APIKey:      c.config.APIKey,
		Href:        href,
		AnonymousID: c.identity.AnonymousID(),
		SessionID:   c.identity.SessionID(),
		Properties:  sanitize.Properties(properties, required, opts...),
		Timestamp:   c.now().UnixMilli(),
	}

	if c.batching {
		c.queue.Enqueue(event)
		return
	}

	// unbatched mode delivers a single-object body per event, off the
	// caller's goroutine
	c.singles.Add(1)
	go func() {
		defer c.singles.Done()
		c.report(c.delivery.SendOne(context.Background(), event), 1)
	}()
}

func (c *Client) deliverBatch(ctx context.Context, events []model.Event) {
	c.report(c.delivery.Send(ctx, events), len(events))
}

func (c *Client) report(outcome delivery.Outcome, events int) {
	if c.config.OnOutcome != nil {
		c.config.OnOutcome(outcome, events)
	}
}

func stringProperty(properties model.Properties, key string) string {
	if properties == nil {
		return ""
	}
	s, _ := properties[key].(string)
	return s
}
