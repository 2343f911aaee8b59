// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package aizu is the client-resident Aizu analytics pipeline. It accepts
pageviews, custom events and identity associations, sanitizes and batches
them, and delivers them to the collection endpoint with bounded retries.

Tracking is best-effort by design: once a call passes input validation it
never fails. Network errors are classified, retried with exponential backoff,
and on exhaustion the batch is dropped and the outcome reported through debug
logs, metrics and the optional OnOutcome callback. Delivery is at-least-once;
exactly-once is explicitly not guaranteed.

	client, err := aizu.New(aizu.Config{
		APIKey: "pk_live_abc123",
		APIURL: "https://in.aizu.io",
	})
	if err != nil {
		// malformed key or URL: a programmer error
	}
	defer client.Close()

	client.Init(ctx)
	client.Pageview(model.Properties{"href": "https://example.com/pricing"})
	client.Track("signup_clicked", model.Properties{"plan": "pro"})
	client.Identify("user-42", model.Properties{"email": "ada@example.com"})
	client.Flush(ctx)
*/
package aizu
