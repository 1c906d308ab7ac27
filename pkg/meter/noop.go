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

package meter

// NoopProvider discards every measurement. It is the default when no Provider is configured.
type NoopProvider struct{}

var _ Provider = NoopProvider{}

// Counter returns a counter that does nothing.
func (NoopProvider) Counter(string, ...string) Counter { return noopInstrument{} }

// Gauge returns a gauge that does nothing.
func (NoopProvider) Gauge(string, ...string) Gauge { return noopInstrument{} }

// Histogram returns a histogram that does nothing.
func (NoopProvider) Histogram(string, Buckets, ...string) Histogram { return noopInstrument{} }

type noopInstrument struct{}

func (noopInstrument) Delete(...string) bool      { return false }
func (noopInstrument) Inc(float64, ...string)     {}
func (noopInstrument) Set(float64, ...string)     {}
func (noopInstrument) Add(float64, ...string)     {}
func (noopInstrument) Observe(float64, ...string) {}
