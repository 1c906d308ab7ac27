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

var _ iter.Source[int] = (*Merge[int, int, int])(nil)

// Merge merges blocking sources sorted by the same key. A Merge is a description, every Open
// starts an independent run over fresh cursors, so it can be opened many times and shared.
type Merge[S, K, R any] struct {
	definition[S, K, R]
	sources []iter.Source[S]
}

// New returns a Merge over sources. keyFn extracts the sort key of an element and resultFn projects
// it into the emitted value. A nil compare selects the natural order of K.
func New[S, K, R any](sources []iter.Source[S], keyFn func(S) K, resultFn func(S) R, compare Compare[K], opts ...Option) (*Merge[S, K, R], error) {
	d, err := newDefinition[S, K, R](sources, keyFn, resultFn, compare, opts)
	if err != nil {
		return nil, err
	}
	return &Merge[S, K, R]{
		definition: d,
		sources:    append([]iter.Source[S](nil), sources...),
	}, nil
}

// Take returns a Merge emitting at most n results. The receiver is returned as is when it
// already emits no more than n results.
func (m *Merge[S, K, R]) Take(n int) (*Merge[S, K, R], error) {
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

// Select returns a Merge projecting every result of m with fn.
// fn runs once per emitted result, at the time it is emitted.
func Select[S, K, R, O any](m *Merge[S, K, R], fn func(R) O) (*Merge[S, K, O], error) {
	d, err := project(m.definition, fn)
	if err != nil {
		return nil, err
	}
	return &Merge[S, K, O]{definition: d, sources: m.sources}, nil
}

// Open starts a run that is never cancelled.
func (m *Merge[S, K, R]) Open() (iter.Cursor[R], error) {
	return m.OpenContext(context.Background())
}

// OpenContext opens every source in order and fetches the first element of each.
// If any of them fails, the cursors opened so far are closed and the combined error is returned.
// ctx is checked before each step of the returned cursor.
func (m *Merge[S, K, R]) OpenContext(ctx context.Context) (iter.Cursor[R], error) {
	if m.opts.limit == 0 || len(m.sources) == 0 {
		return iter.Slice[R]().Open()
	}
	c := newCore(len(m.sources), m.keyFn, m.compare, closeCursor[S], formSync, m.opts.logger(ctx), &m.opts)
	for i, src := range m.sources {
		cur, err := src.Open()
		if err != nil {
			return nil, multierr.Append(errors.Wrapf(err, "open source %d", i), c.teardown(stateFailed))
		}
		c.attach(cur)
	}
	if e := c.l.Debug(); e.Enabled() {
		e.Int("sources", len(m.sources)).Int64("limit", m.opts.limit).
			Stringer("selector", m.opts.selector).Msg("merge opened")
	}
	it := &mergeIterator[S, K, R]{ctx: ctx, core: c, resultFn: m.resultFn}
	if err := it.fill(); err != nil {
		return nil, multierr.Append(err, c.teardown(stateFailed))
	}
	return it, nil
}

func closeCursor[S any](c iter.Cursor[S]) error {
	return c.Close()
}

type mergeIterator[S, K, R any] struct {
	ctx      context.Context
	err      error
	core     *core[S, K, iter.Cursor[S]]
	resultFn func(S) R
	cur      R
}

func (it *mergeIterator[S, K, R]) Next() bool {
	c := it.core
	if c.state != stateActive {
		return false
	}
	defer c.metrics.observeStep(formSync, c.metrics.now())
	if err := it.ctx.Err(); err != nil {
		it.fail(err)
		return false
	}
	if c.exhausted() {
		it.err = c.teardown(stateCompleted)
		return false
	}
	if err := it.fill(); err != nil {
		it.fail(err)
		return false
	}
	i, v, _ := c.pick()
	if i < 0 {
		it.err = c.teardown(stateCompleted)
		return false
	}
	it.cur = it.resultFn(v)
	c.emitted()
	return true
}

// fill fetches the next element of every slot whose previous one was emitted.
func (it *mergeIterator[S, K, R]) fill() error {
	c := it.core
	for i := 0; i < c.Len(); i++ {
		if !c.needsFetch(i) {
			continue
		}
		cur := c.slots[i].handle
		if cur.Next() {
			c.ready(i, cur.Val())
			continue
		}
		if err := cur.Err(); err != nil {
			return c.sourceFailed(i, err)
		}
		if err := c.drop(i); err != nil {
			return err
		}
	}
	return nil
}

func (it *mergeIterator[S, K, R]) fail(err error) {
	it.err = multierr.Append(err, it.core.teardown(stateFailed))
	var zero R
	it.cur = zero
}

func (it *mergeIterator[S, K, R]) Val() R {
	return it.cur
}

func (it *mergeIterator[S, K, R]) Err() error {
	return it.err
}

// Close releases every source still open. It is a no-op once the run is over.
func (it *mergeIterator[S, K, R]) Close() error {
	return it.core.teardown(stateDisposed)
}
