// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package delivery

// Outcome is the terminal result of a Send operation. Delivery never raises
// past the facade; callers observe failures only through outcomes, logs and
// metrics.
type Outcome int64

const (
	UnknownOutcome Outcome = iota

	// SuccessOutcome means the endpoint acknowledged the batch.
	SuccessOutcome

	// ExhaustedOutcome means the batch was dropped, either after a terminal
	// rejection or after running out of retries.
	ExhaustedOutcome
)

func (o Outcome) String() string {
	switch o {
	case SuccessOutcome:
		return "success"
	case ExhaustedOutcome:
		return "exhausted"
	}
	return "unknown"
}
