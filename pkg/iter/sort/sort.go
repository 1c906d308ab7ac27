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

// Package sort merges several sorted sequences into one sorted lazy sequence.
//
// Merge pulls from blocking iter.Source values, AsyncMerge from iter.AsyncSource values and keeps
// one fetch in flight per source. Both share the same slot bookkeeping and Selector, so the
// ordering contract is identical: emitted keys never decrease under the comparator, and equal
// keys come out in source order, lowest source index first.
//
// The inputs must already be sorted by the comparator used for merging, this is not verified.
package sort

import (
	"bytes"
	"cmp"
	"reflect"

	"github.com/pkg/errors"
)

var (
	// ErrNegativeLimit is returned when a negative result count is requested.
	ErrNegativeLimit = errors.New("merge: limit cannot be less than zero")
	// ErrNilKeyFunc is returned when no key extraction function is given.
	ErrNilKeyFunc = errors.New("merge: key function is required")
	// ErrNilResultFunc is returned when no projection function is given.
	ErrNilResultFunc = errors.New("merge: result function is required")
	// ErrNilSource is returned when one of the sources is nil.
	ErrNilSource = errors.New("merge: source is nil")
	// ErrNoNaturalOrder is returned when no comparator is given and the key type has no natural ordering.
	ErrNoNaturalOrder = errors.New("merge: key type has no natural ordering, a comparator is required")
	// ErrClosed is returned by fetches issued after the merge was torn down.
	ErrClosed = errors.New("merge: closed")
)

// Comparable is an interface that allows sorting of items by their encoded form.
type Comparable interface {
	SortedField() []byte
}

// Compare returns a negative number when a < b, zero when a == b and a positive number when a > b.
type Compare[K any] func(a, b K) int

// Reverse returns a comparator ordering keys the other way round,
// for merging sources sorted in descending order.
func Reverse[K any](c Compare[K]) Compare[K] {
	return func(a, b K) int {
		return c(b, a)
	}
}

// Ordered returns the natural comparator of an ordered type.
func Ordered[K cmp.Ordered]() Compare[K] {
	return cmp.Compare[K]
}

var (
	comparableType = reflect.TypeOf((*Comparable)(nil)).Elem()
	bytesType      = reflect.TypeOf([]byte(nil))
)

// NaturalOrder returns the default comparator of K.
// Supported are the ordered kinds (integers, floats and strings, named or not),
// byte slices compared lexicographically and Comparable keys compared by SortedField.
func NaturalOrder[K any]() (Compare[K], error) {
	var zero K
	switch any(zero).(type) {
	case int:
		return orderedAs[K, int](), nil
	case int64:
		return orderedAs[K, int64](), nil
	case uint64:
		return orderedAs[K, uint64](), nil
	case string:
		return orderedAs[K, string](), nil
	case float64:
		return orderedAs[K, float64](), nil
	case []byte:
		return func(a, b K) int {
			return bytes.Compare(any(a).([]byte), any(b).([]byte))
		}, nil
	}
	t := reflect.TypeOf((*K)(nil)).Elem()
	if t.Implements(comparableType) {
		return func(a, b K) int {
			return compareComparable(any(a), any(b))
		}, nil
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b K) int {
			return cmp.Compare(reflect.ValueOf(a).Int(), reflect.ValueOf(b).Int())
		}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(a, b K) int {
			return cmp.Compare(reflect.ValueOf(a).Uint(), reflect.ValueOf(b).Uint())
		}, nil
	case reflect.Float32, reflect.Float64:
		return func(a, b K) int {
			return cmp.Compare(reflect.ValueOf(a).Float(), reflect.ValueOf(b).Float())
		}, nil
	case reflect.String:
		return func(a, b K) int {
			return cmp.Compare(reflect.ValueOf(a).String(), reflect.ValueOf(b).String())
		}, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return func(a, b K) int {
				return bytes.Compare(reflect.ValueOf(a).Convert(bytesType).Bytes(), reflect.ValueOf(b).Convert(bytesType).Bytes())
			}, nil
		}
	}
	return nil, errors.Wrapf(ErrNoNaturalOrder, "key type %s", t)
}

func orderedAs[K any, T cmp.Ordered]() Compare[K] {
	return func(a, b K) int {
		return cmp.Compare(any(a).(T), any(b).(T))
	}
}

// compareComparable orders nil keys first, typed nil pointers included.
func compareComparable(a, b any) int {
	na, nb := isNil(a), isNil(b)
	switch {
	case na && nb:
		return 0
	case na:
		return -1
	case nb:
		return 1
	}
	return bytes.Compare(a.(Comparable).SortedField(), b.(Comparable).SortedField())
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
