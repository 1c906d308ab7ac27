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

// Package iter defines the lazy sequence protocol shared by storage readers and query operators.
//
// A Source is a re-openable description of a sequence, every Open returns a fresh Cursor.
// A Cursor is pulled one element at a time and must be closed exactly once.
package iter

import (
	"go.uber.org/multierr"
)

//go:generate mockgen -destination=./iter_mock.go -package=iter . Cursor,AsyncCursor

// An Iterator is a stream of items of some type.
type Iterator[T any] interface {
	// Next checks whether if the iteration has more elements and
	// returns the next one if exists.
	Next() (T, bool)
}

// Cursor is the blocking form of the protocol.
// Next blocks the calling goroutine until an element is available or the sequence ends.
// Once Next returned false, Err reports why (nil on exhaustion) and Close is the only legal call left.
// Close must be safe to call after a failure. A Cursor is not safe for concurrent use.
type Cursor[T any] interface {
	Next() bool
	Val() T
	Err() error
	Close() error
}

// Source opens cursors over a sequence.
type Source[T any] interface {
	Open() (Cursor[T], error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func() (Cursor[T], error)

// Open calls f.
func (f SourceFunc[T]) Open() (Cursor[T], error) {
	return f()
}

// FromSlice creates a new iterator which returns all items from the slice starting at index 0 until
// all items are consumed.
func FromSlice[T any](slice []T) Iterator[T] {
	return &sliceIterator[T]{slice: slice}
}

type sliceIterator[T any] struct {
	slice []T
}

func (iter *sliceIterator[T]) Next() (T, bool) {
	if len(iter.slice) == 0 {
		var zero T
		return zero, false
	}
	item := iter.slice[0]
	iter.slice = iter.slice[1:]
	return item, true
}

// Map returns a new iterator which applies a function to all items from the input iterator which
// are subsequently returned.
//
// The mapping function should not mutate the state outside its scope.
func Map[T any, O any](from Iterator[T], mapFunc func(T) O) Iterator[O] {
	return &mapIterator[T, O]{from: from, mapFunc: mapFunc}
}

type mapIterator[T any, O any] struct {
	from    Iterator[T]
	mapFunc func(T) O
}

func (iter *mapIterator[T, O]) Next() (O, bool) {
	item, ok := iter.from.Next()
	if !ok {
		var zero O
		return zero, false
	}
	return iter.mapFunc(item), true
}

// Empty returns an iterator that never returns anything.
func Empty[T any]() Iterator[T] {
	return emptyIterator[T]{}
}

type emptyIterator[T any] struct{}

func (emptyIterator[T]) Next() (T, bool) {
	var zero T
	return zero, false
}

// Slice returns a Source whose cursors walk items from the start on every Open.
func Slice[T any](items ...T) Source[T] {
	return FromIterator(func() Iterator[T] {
		return FromSlice(items)
	})
}

// FromIterator returns a Source opening a cursor over a new Iterator built by newIter.
func FromIterator[T any](newIter func() Iterator[T]) Source[T] {
	return SourceFunc[T](func() (Cursor[T], error) {
		return &iteratorCursor[T]{it: newIter()}, nil
	})
}

type iteratorCursor[T any] struct {
	it  Iterator[T]
	cur T
}

func (c *iteratorCursor[T]) Next() bool {
	if c.it == nil {
		return false
	}
	v, ok := c.it.Next()
	if !ok {
		c.it = nil
		var zero T
		c.cur = zero
		return false
	}
	c.cur = v
	return true
}

func (c *iteratorCursor[T]) Val() T {
	return c.cur
}

func (c *iteratorCursor[T]) Err() error {
	return nil
}

func (c *iteratorCursor[T]) Close() error {
	c.it = nil
	return nil
}

// Drain opens src, collects every element and closes the cursor.
func Drain[T any](src Source[T]) ([]T, error) {
	c, err := src.Open()
	if err != nil {
		return nil, err
	}
	return DrainCursor(c)
}

// DrainCursor collects the remaining elements of c, then closes it.
// Errors from iteration and Close are combined.
func DrainCursor[T any](c Cursor[T]) (result []T, err error) {
	defer func() {
		err = multierr.Append(err, c.Close())
	}()
	for c.Next() {
		result = append(result, c.Val())
	}
	return result, c.Err()
}
