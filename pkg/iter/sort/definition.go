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

import "github.com/pkg/errors"

// definition is the part of a merge shared by both forms: how elements are keyed, compared
// and projected, and the options they run with.
type definition[S, K, R any] struct {
	keyFn    func(S) K
	resultFn func(S) R
	compare  Compare[K]
	opts     options
}

func newDefinition[S, K, R any, T any](sources []T, keyFn func(S) K, resultFn func(S) R, compare Compare[K], opts []Option) (definition[S, K, R], error) {
	d := definition[S, K, R]{keyFn: keyFn, resultFn: resultFn, compare: compare, opts: defaultOptions()}
	for _, opt := range opts {
		opt(&d.opts)
	}
	if err := d.opts.validate(); err != nil {
		return d, err
	}
	if keyFn == nil {
		return d, ErrNilKeyFunc
	}
	if resultFn == nil {
		return d, ErrNilResultFunc
	}
	for i, src := range sources {
		if any(src) == nil {
			return d, errors.Wrapf(ErrNilSource, "source %d", i)
		}
	}
	if d.compare == nil {
		var err error
		if d.compare, err = NaturalOrder[K](); err != nil {
			return d, err
		}
	}
	return d, nil
}

// Limit returns the result cap, or -1 when the merge is unbounded.
func (d definition[S, K, R]) Limit() int {
	return int(d.opts.limit)
}

// covers reports whether a cap of n leaves the definition unchanged.
func (d definition[S, K, R]) covers(n int) (bool, error) {
	if n < 0 {
		return false, ErrNegativeLimit
	}
	return d.opts.limit >= 0 && d.opts.limit <= int64(n), nil
}

func project[S, K, R, O any](d definition[S, K, R], fn func(R) O) (definition[S, K, O], error) {
	if fn == nil {
		return definition[S, K, O]{}, ErrNilResultFunc
	}
	resultFn := d.resultFn
	return definition[S, K, O]{
		keyFn: d.keyFn,
		resultFn: func(s S) O {
			return fn(resultFn(s))
		},
		compare: d.compare,
		opts:    d.opts,
	}, nil
}
