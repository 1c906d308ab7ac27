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

package iter

import (
	"context"

	"go.uber.org/multierr"
)

// AsyncCursor is the context aware form of the protocol.
// Next may block until data is ready and must return promptly with ctx.Err() once ctx is done.
// It returns ok == false with a nil error when the sequence is exhausted.
// Close must be safe to call after a failure. An AsyncCursor is not safe for concurrent use,
// but successive calls may come from different goroutines.
type AsyncCursor[T any] interface {
	Next(ctx context.Context) (val T, ok bool, err error)
	Close() error
}

// AsyncSource opens cursors over a sequence.
type AsyncSource[T any] interface {
	Open(ctx context.Context) (AsyncCursor[T], error)
}

// AsyncSourceFunc adapts a function to AsyncSource.
type AsyncSourceFunc[T any] func(ctx context.Context) (AsyncCursor[T], error)

// Open calls f.
func (f AsyncSourceFunc[T]) Open(ctx context.Context) (AsyncCursor[T], error) {
	return f(ctx)
}

// Hint tells a source how much of the sequence the caller expects to read,
// so that it can pick a batch size.
type Hint int

const (
	// HintAll means the caller reads the whole sequence.
	HintAll Hint = iota
	// HintIterator means the caller reads an unknown, usually large, part of the sequence.
	HintIterator
	// HintHead means the caller only wants the first element or so.
	HintHead
)

// String returns the name of the hint.
func (h Hint) String() string {
	switch h {
	case HintAll:
		return "all"
	case HintIterator:
		return "iterator"
	case HintHead:
		return "head"
	default:
		return "unknown"
	}
}

// HintedAsyncSource is implemented by sources that can size their fetches.
type HintedAsyncSource[T any] interface {
	AsyncSource[T]
	OpenWithHint(ctx context.Context, hint Hint) (AsyncCursor[T], error)
}

// OpenAsync opens src with hint when src supports hints.
func OpenAsync[T any](ctx context.Context, src AsyncSource[T], hint Hint) (AsyncCursor[T], error) {
	if hs, ok := src.(HintedAsyncSource[T]); ok {
		return hs.OpenWithHint(ctx, hint)
	}
	return src.Open(ctx)
}

// Async runs a blocking Source under the async protocol.
// Cancellation is checked before every fetch, a fetch already blocked inside the
// wrapped cursor is not interrupted.
func Async[T any](src Source[T]) AsyncSource[T] {
	return AsyncSourceFunc[T](func(ctx context.Context) (AsyncCursor[T], error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := src.Open()
		if err != nil {
			return nil, err
		}
		return &blockingCursor[T]{c: c}, nil
	})
}

type blockingCursor[T any] struct {
	c Cursor[T]
}

func (b *blockingCursor[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if b.c.Next() {
		return b.c.Val(), true, nil
	}
	return zero, false, b.c.Err()
}

func (b *blockingCursor[T]) Close() error {
	return b.c.Close()
}

// DrainAsync opens src, collects every element and closes the cursor.
func DrainAsync[T any](ctx context.Context, src AsyncSource[T]) ([]T, error) {
	c, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	return DrainAsyncCursor(ctx, c)
}

// DrainAsyncCursor collects the remaining elements of c, then closes it.
func DrainAsyncCursor[T any](ctx context.Context, c AsyncCursor[T]) (result []T, err error) {
	defer func() {
		err = multierr.Append(err, c.Close())
	}()
	for {
		v, ok, nextErr := c.Next(ctx)
		if nextErr != nil {
			return result, nextErr
		}
		if !ok {
			return result, nil
		}
		result = append(result, v)
	}
}
