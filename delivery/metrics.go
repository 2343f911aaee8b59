// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	DeliveryCounter = "aizu_deliveries_total"
)

// Labels
const (
	OutcomeLabel = "outcome"
)

// ProvideMetrics returns the Metrics relevant to this package
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: DeliveryCounter,
				Help: "Counter for batch deliveries and their terminal outcomes.",
			},
			OutcomeLabel,
		),
	)
}

type Measures struct {
	fx.In
	Deliveries *prometheus.CounterVec `name:"aizu_deliveries_total"`
}

// add is nil-safe so the client works without metrics wired.
func (m *Measures) add(outcome Outcome) {
	if m == nil || m.Deliveries == nil {
		return
	}
	m.Deliveries.With(prometheus.Labels{OutcomeLabel: outcome.String()}).Add(1)
}
