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

package sort_test

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"time"

	"github.com/ordkv/ordkv/pkg/iter"
)

type entry struct {
	key int
	src int
}

func entryKey(e entry) int {
	return e.key
}

// trackedSource replays items and fails with err once they are consumed.
// It counts the cursors it opened and closed.
type trackedSource[T any] struct {
	openErr  error
	err      error
	closeErr error
	items    []T
	opens    atomic.Int32
	closes   atomic.Int32
}

func newTrackedSource[T any](items ...T) *trackedSource[T] {
	return &trackedSource[T]{items: items}
}

func (s *trackedSource[T]) Open() (iter.Cursor[T], error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opens.Add(1)
	return &trackedCursor[T]{src: s, index: -1}, nil
}

type trackedCursor[T any] struct {
	src   *trackedSource[T]
	index int
}

func (c *trackedCursor[T]) Next() bool {
	if c.index < len(c.src.items) {
		c.index++
	}
	return c.index < len(c.src.items)
}

func (c *trackedCursor[T]) Val() T {
	return c.src.items[c.index]
}

func (c *trackedCursor[T]) Err() error {
	if c.index >= len(c.src.items) {
		return c.src.err
	}
	return nil
}

func (c *trackedCursor[T]) Close() error {
	c.src.closes.Add(1)
	return c.src.closeErr
}

// delayedSource serves a trackedSource under the async protocol,
// sleeping a random time below maxDelay before every element.
type delayedSource[T any] struct {
	*trackedSource[T]
	hint     atomic.Int32
	maxDelay time.Duration
}

func newDelayedSource[T any](maxDelay time.Duration, items ...T) *delayedSource[T] {
	return &delayedSource[T]{trackedSource: newTrackedSource(items...), maxDelay: maxDelay}
}

func (s *delayedSource[T]) Open(ctx context.Context) (iter.AsyncCursor[T], error) {
	return s.OpenWithHint(ctx, iter.HintAll)
}

func (s *delayedSource[T]) OpenWithHint(_ context.Context, hint iter.Hint) (iter.AsyncCursor[T], error) {
	s.hint.Store(int32(hint))
	c, err := s.trackedSource.Open()
	if err != nil {
		return nil, err
	}
	return &delayedCursor[T]{c: c, maxDelay: s.maxDelay}, nil
}

type delayedCursor[T any] struct {
	c        iter.Cursor[T]
	maxDelay time.Duration
}

func (d *delayedCursor[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if d.maxDelay > 0 {
		t := time.NewTimer(rand.N(d.maxDelay))
		defer t.Stop()
		select {
		case <-ctx.Done():
			return zero, false, ctx.Err()
		case <-t.C:
		}
	}
	if d.c.Next() {
		return d.c.Val(), true, nil
	}
	return zero, false, d.c.Err()
}

func (d *delayedCursor[T]) Close() error {
	return d.c.Close()
}

// sortedRuns returns n sorted runs of random keys, and all the keys in order.
func sortedRuns(n, size, maxKey int) ([][]int, []int) {
	runs := make([][]int, n)
	var all []int
	for i := range runs {
		l := rand.IntN(size + 1)
		for j := 0; j < l; j++ {
			runs[i] = append(runs[i], rand.IntN(maxKey))
		}
		slices.Sort(runs[i])
		all = append(all, runs[i]...)
	}
	slices.Sort(all)
	return runs, all
}

func identity[T any](v T) T {
	return v
}
