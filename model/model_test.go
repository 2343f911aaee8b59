// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	type testCase struct {
		Description   string
		Count         int
		Max           int
		ExpectedSizes []int
	}

	tcs := []testCase{
		{
			Description: "Empty input",
			Count:       0,
			Max:         1000,
		},
		{
			Description:   "Under the cap",
			Count:         999,
			Max:           1000,
			ExpectedSizes: []int{999},
		},
		{
			Description:   "Exactly the cap",
			Count:         1000,
			Max:           1000,
			ExpectedSizes: []int{1000},
		},
		{
			Description:   "One over the cap",
			Count:         1001,
			Max:           1000,
			ExpectedSizes: []int{1000, 1},
		},
		{
			Description:   "Multiple full batches",
			Count:         9,
			Max:           3,
			ExpectedSizes: []int{3, 3, 3},
		},
		{
			Description: "Non-positive max",
			Count:       5,
			Max:         0,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			events := make([]Event, tc.Count)
			for i := range events {
				events[i].Properties = Properties{EventNameKey: fmt.Sprintf("e%d", i)}
			}

			batches := Split(events, tc.Max)
			assert.Len(batches, len(tc.ExpectedSizes))

			// relative order must hold across sub-batches
			seen := 0
			for i, batch := range batches {
				assert.Len(batch, tc.ExpectedSizes[i])
				for _, ev := range batch {
					assert.Equal(fmt.Sprintf("e%d", seen), ev.Properties[EventNameKey])
					seen++
				}
			}
		})
	}
}

func TestEventWireShape(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
	)

	ev := Event{
		Type:        TypeCustom,
		APIKey:      "pk_live_1234",
		Href:        "https://example.com/pricing",
		AnonymousID: "a_abc",
		SessionID:   "s_def",
		Properties:  Properties{EventNameKey: "signup_clicked"},
		Timestamp:   1700000000000,
	}

	data, err := json.Marshal(ev)
	require.NoError(err)

	var decoded map[string]any
	require.NoError(json.Unmarshal(data, &decoded))
	assert.Equal("custom", decoded["type"])
	assert.Equal("pk_live_1234", decoded["api_key"])
	assert.Equal("a_abc", decoded["anonymous_id"])
	assert.Equal("s_def", decoded["session_id"])
	assert.EqualValues(1700000000000, decoded["timestamp"])

	// href is omitted when the event carries no URL
	data, err = json.Marshal(Event{Type: TypeIdentify})
	require.NoError(err)
	assert.NotContains(string(data), "href")
}
