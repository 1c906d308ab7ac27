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

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ordkv/ordkv/pkg/iter"
)

var _ iter.AsyncSource[int] = (*AsyncMerge[int, int, int])(nil)

// AsyncMerge merges async sources sorted by the same key.
// Every source has one fetch in flight at a time, fetches of different sources run concurrently.
type AsyncMerge[S, K, R any] struct {
	definition[S, K, R]
	sources []iter.AsyncSource[S]
}

// NewAsync returns an AsyncMerge over sources. The arguments are those of New.
func NewAsync[S, K, R any](sources []iter.AsyncSource[S], keyFn func(S) K, resultFn func(S) R, compare Compare[K], opts ...Option) (*AsyncMerge[S, K, R], error) {
	d, err := newDefinition[S, K, R](sources, keyFn, resultFn, compare, opts)
	if err != nil {
		return nil, err
	}
	return &AsyncMerge[S, K, R]{
		definition: d,
		sources:    append([]iter.AsyncSource[S](nil), sources...),
	}, nil
}

// Take returns an AsyncMerge emitting at most n results. The receiver is returned as is when it
// already emits no more than n results.
func (m *AsyncMerge[S, K, R]) Take(n int) (*AsyncMerge[S, K, R], error) {
	keep, err := m.covers(n)
	if err != nil {
		return nil, err
	}
	if keep {
		return m, nil
	}
	cp := *m
	cp.opts.limit = int64(n)
	return &cp, nil
}

// SelectAsync returns an AsyncMerge projecting every result of m with fn.
func SelectAsync[S, K, R, O any](m *AsyncMerge[S, K, R], fn func(R) O) (*AsyncMerge[S, K, O], error) {
	d, err := project(m.definition, fn)
	if err != nil {
		return nil, err
	}
	return &AsyncMerge[S, K, O]{definition: d, sources: m.sources}, nil
}

// Open opens every source in order, then starts the first fetch of all of them.
// A failing open closes the cursors opened so far and returns the combined error.
// Fetch failures are reported by Next.
//
// Fetches run under a context derived from ctx, cancelling ctx stops the run.
func (m *AsyncMerge[S, K, R]) Open(ctx context.Context) (iter.AsyncCursor[R], error) {
	if m.opts.limit == 0 || len(m.sources) == 0 {
		return emptyAsyncCursor[R]{}, nil
	}
	it := &asyncMergeIterator[S, K, R]{
		core:     newCore(len(m.sources), m.keyFn, m.compare, closeAsyncCursor[S], formAsync, m.opts.logger(ctx), &m.opts),
		fetcher:  newFetcher[S](ctx, len(m.sources)),
		resultFn: m.resultFn,
	}
	hint := m.opts.sourceHint()
	for i, src := range m.sources {
		cur, err := iter.OpenAsync(it.fetcher.context(), src, hint)
		if err != nil {
			return nil, multierr.Append(errors.Wrapf(err, "open source %d", i), it.shutdown(stateFailed))
		}
		it.core.attach(cur)
	}
	if e := it.core.l.Debug(); e.Enabled() {
		e.Int("sources", len(m.sources)).Int64("limit", m.opts.limit).
			Stringer("selector", m.opts.selector).Stringer("hint", hint).Msg("merge opened")
	}
	for i := range it.core.slots {
		it.issue(i)
	}
	return it, nil
}

func closeAsyncCursor[S any](c iter.AsyncCursor[S]) error {
	return c.Close()
}

type asyncMergeIterator[S, K, R any] struct {
	err      error
	core     *core[S, K, iter.AsyncCursor[S]]
	fetcher  *fetcher[S]
	resultFn func(S) R
}

func (it *asyncMergeIterator[S, K, R]) Next(ctx context.Context) (R, bool, error) {
	var zero R
	c := it.core
	if c.state != stateActive {
		return zero, false, it.err
	}
	defer c.metrics.observeStep(formAsync, c.metrics.now())
	if err := ctx.Err(); err != nil {
		return zero, false, it.fail(err)
	}
	if c.exhausted() {
		return zero, false, it.complete()
	}
	for it.fetcher.inflight > 0 {
		r, err := it.fetcher.await(ctx)
		if err != nil {
			return zero, false, it.fail(err)
		}
		if err = it.settle(r); err != nil {
			return zero, false, it.fail(err)
		}
	}
	i, v, advance := c.pick()
	if i < 0 {
		return zero, false, it.complete()
	}
	out := it.resultFn(v)
	if advance {
		it.issue(i)
	}
	c.emitted()
	return out, true, nil
}

func (it *asyncMergeIterator[S, K, R]) issue(i int) {
	it.fetcher.issue(i, it.core.slots[i].handle)
}

// settle applies the outcome of a fetch to its slot.
func (it *asyncMergeIterator[S, K, R]) settle(r fetchResult[S]) error {
	c := it.core
	if r.err != nil {
		return c.sourceFailed(r.index, r.err)
	}
	if !r.ok {
		return c.drop(r.index)
	}
	c.ready(r.index, r.val)
	return nil
}

func (it *asyncMergeIterator[S, K, R]) fail(err error) error {
	it.err = multierr.Append(err, it.shutdown(stateFailed))
	return it.err
}

func (it *asyncMergeIterator[S, K, R]) complete() error {
	it.err = it.shutdown(stateCompleted)
	return it.err
}

// shutdown waits for the fetches in flight before closing the cursors.
func (it *asyncMergeIterator[S, K, R]) shutdown(final state) error {
	if it.core.state != stateActive {
		return nil
	}
	it.fetcher.stop()
	return it.core.teardown(final)
}

// Close stops the fetches in flight and releases every source still open.
// It is a no-op once the run is over.
func (it *asyncMergeIterator[S, K, R]) Close() error {
	return it.shutdown(stateDisposed)
}

type emptyAsyncCursor[T any] struct{}

func (emptyAsyncCursor[T]) Next(context.Context) (T, bool, error) {
	var zero T
	return zero, false, nil
}

func (emptyAsyncCursor[T]) Close() error {
	return nil
}
