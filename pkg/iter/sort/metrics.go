// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package sort

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ordkv/ordkv/pkg/meter"
)

const (
	formSync  = "sync"
	formAsync = "async"
)

var noopMetrics = NewMetrics(meter.NoopProvider{})

// Metrics records the activity of merge operators. One Metrics can be shared by many operators.
type Metrics struct {
	clock         clock.Clock
	openedSources meter.Counter
	emitted       meter.Counter
	sourceErrors  meter.Counter
	activeSlots   meter.Gauge
	stepLatency   meter.Histogram
}

// NewMetrics registers the merge instruments on p. Every instrument carries a "form"
// label, sync or async.
func NewMetrics(p meter.Provider) *Metrics {
	return &Metrics{
		clock:         clock.New(),
		openedSources: p.Counter("opened_sources", "form"),
		emitted:       p.Counter("emitted_total", "form"),
		sourceErrors:  p.Counter("source_errors_total", "form"),
		activeSlots:   p.Gauge("active_slots", "form"),
		stepLatency:   p.Histogram("step_latency", meter.LatencyBuckets, "form"),
	}
}

// WithClock replaces the clock used to time steps.
func (m *Metrics) WithClock(c clock.Clock) *Metrics {
	cp := *m
	cp.clock = c
	return &cp
}

func (m *Metrics) now() time.Time {
	return m.clock.Now()
}

func (m *Metrics) observeStep(form string, start time.Time) {
	m.stepLatency.Observe(m.clock.Since(start).Seconds(), form)
}
