// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package aizu

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const settingsAPIPath = "/v1/settings"

// fetchSettings performs the best-effort settings read. Every failure mode is
// swallowed after a debug log line; settings are an enhancement, never a
// precondition for tracking.
func (c *Client) fetchSettings(ctx context.Context) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.APIURL+settingsAPIPath, nil)
	if err != nil {
		c.logger.Debug("failed creating settings request", zap.Error(err))
		return
	}
	r.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.config.HTTPClient.Do(r)
	if err != nil {
		c.logger.Debug("settings fetch failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Debug("failed reading settings response", zap.Error(err))
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("settings endpoint responded with a non-success status code",
			zap.Int("code", resp.StatusCode))
		return
	}

	var settings map[string]any
	if err := json.Unmarshal(body, &settings); err != nil {
		c.logger.Debug("failed unmarshaling settings payload", zap.Error(err))
		return
	}

	c.settingsMu.Lock()
	c.settings = settings
	c.settingsMu.Unlock()
	c.logger.Debug("remote settings loaded", zap.Int("keys", len(settings)))
}
