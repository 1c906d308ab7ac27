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
	"context"

	"github.com/ordkv/ordkv/pkg/iter"
	"github.com/ordkv/ordkv/pkg/logger"
)

const unbounded = int64(-1)

// SelectorKind chooses the strategy picking the next slot.
type SelectorKind int

const (
	// LinearSelection scans every slot on each step. It is the default and fits the usual
	// small fan-in of index lookups.
	LinearSelection SelectorKind = iota
	// HeapSelection keeps ready slots in a binary heap, for large fan-in.
	HeapSelection
)

// String returns the name of the selection strategy.
func (k SelectorKind) String() string {
	if k == HeapSelection {
		return "heap"
	}
	return "linear"
}

type options struct {
	err      error
	l        *logger.Logger
	metrics  *Metrics
	limit    int64
	selector SelectorKind
	hint     iter.Hint
}

func defaultOptions() options {
	return options{
		limit:    unbounded,
		selector: LinearSelection,
		hint:     iter.HintAll,
	}
}

// Option configures a merge operator.
type Option func(*options)

// WithLimit caps the number of emitted results. A negative n makes the constructor fail with ErrNegativeLimit.
func WithLimit(n int) Option {
	return func(o *options) {
		if n < 0 {
			o.err = ErrNegativeLimit
			return
		}
		o.limit = int64(n)
	}
}

// WithLogger sets the logger of the operator. By default it is derived from the logger
// carried by the context passed to Open, or MERGE when there is none.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.l = l
	}
}

// WithMetrics records the operator's activity in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSelector picks the selection strategy.
func WithSelector(kind SelectorKind) Option {
	return func(o *options) {
		o.selector = kind
	}
}

// WithHint tells the async sources how much the caller intends to read.
// HintHead is widened to HintIterator when opening sources because a merge reads ahead on every source.
func WithHint(h iter.Hint) Option {
	return func(o *options) {
		o.hint = h
	}
}

func (o *options) validate() error {
	if o.err != nil {
		return o.err
	}
	if o.metrics == nil {
		o.metrics = noopMetrics
	}
	return nil
}

func (o *options) logger(ctx context.Context) *logger.Logger {
	if o.l != nil {
		return o.l
	}
	return logger.Fetch(ctx, "merge")
}

// sourceHint is the hint used to open every source.
func (o *options) sourceHint() iter.Hint {
	if o.hint == iter.HintHead {
		return iter.HintIterator
	}
	return o.hint
}
