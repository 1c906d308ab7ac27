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
	"github.com/ordkv/ordkv/pkg/run"
)

// fetchResult is the outcome of one Next call on a slot's cursor.
type fetchResult[S any] struct {
	err   error
	val   S
	index int
	ok    bool
}

// fetcher runs cursor fetches in the background and collects their results.
// At most one fetch per slot is in flight, so sends on results never block.
type fetcher[S any] struct {
	closer   *run.Closer
	results  chan fetchResult[S]
	inflight int
}

func newFetcher[S any](ctx context.Context, slots int) *fetcher[S] {
	return &fetcher[S]{
		closer:  run.NewCloser(ctx, 0),
		results: make(chan fetchResult[S], slots),
	}
}

// context is handed to the sources, it is cancelled by stop.
func (f *fetcher[S]) context() context.Context {
	return f.closer.Context()
}

// issue starts fetching the next element of cur.
func (f *fetcher[S]) issue(index int, cur iter.AsyncCursor[S]) {
	f.inflight++
	results := f.results
	if !f.closer.Go(func(ctx context.Context) {
		v, ok, err := cur.Next(ctx)
		results <- fetchResult[S]{index: index, val: v, ok: ok, err: err}
	}) {
		results <- fetchResult[S]{index: index, err: ErrClosed}
	}
}

// await blocks until a fetch settles or ctx is done.
func (f *fetcher[S]) await(ctx context.Context) (fetchResult[S], error) {
	select {
	case <-ctx.Done():
		return fetchResult[S]{}, ctx.Err()
	case r := <-f.results:
		f.inflight--
		return r, nil
	}
}

// stop cancels the fetches in flight, waits for them and discards their results.
func (f *fetcher[S]) stop() {
	f.closer.CloseThenWait()
	for ; f.inflight > 0; f.inflight-- {
		<-f.results
	}
}
