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
	"github.com/emirpasic/gods/trees/binaryheap"
)

// Slots is the view a Selector has of the merge state.
// Every active slot holds a key when Select is called.
type Slots[K any] interface {
	Len() int
	Active(i int) bool
	Key(i int) K
}

// Selector decides which slot holds the next output.
type Selector[K any] interface {
	// Ready tells the selector that slot i holds a new key.
	Ready(slots Slots[K], i int)
	// Select returns the winning slot, or -1 when no slot is active.
	// The winner's key is consumed, Ready is called again once the slot holds its next key.
	Select(slots Slots[K]) int
}

func newSelector[K any](kind SelectorKind, compare Compare[K]) Selector[K] {
	if kind == HeapSelection {
		return newHeapSelector(compare)
	}
	return &linearSelector[K]{compare: compare}
}

// linearSelector picks the strictly smallest key, scanning slots in index order so that
// the lowest index wins ties.
type linearSelector[K any] struct {
	compare Compare[K]
}

func (s *linearSelector[K]) Ready(Slots[K], int) {}

func (s *linearSelector[K]) Select(slots Slots[K]) int {
	index := -1
	var minKey K
	for i, n := 0, slots.Len(); i < n; i++ {
		if !slots.Active(i) {
			continue
		}
		k := slots.Key(i)
		if index == -1 || s.compare(k, minKey) < 0 {
			minKey = k
			index = i
		}
	}
	return index
}

type heapEntry[K any] struct {
	key   K
	index int
}

// heapSelector orders ready slots by (key, slot index).
type heapSelector[K any] struct {
	h *binaryheap.Heap
}

func newHeapSelector[K any](compare Compare[K]) *heapSelector[K] {
	return &heapSelector[K]{
		h: binaryheap.NewWith(func(a, b interface{}) int {
			ea, eb := a.(heapEntry[K]), b.(heapEntry[K])
			if c := compare(ea.key, eb.key); c != 0 {
				return c
			}
			return ea.index - eb.index
		}),
	}
}

func (s *heapSelector[K]) Ready(slots Slots[K], i int) {
	s.h.Push(heapEntry[K]{key: slots.Key(i), index: i})
}

func (s *heapSelector[K]) Select(slots Slots[K]) int {
	for {
		v, ok := s.h.Pop()
		if !ok {
			return -1
		}
		e := v.(heapEntry[K])
		if slots.Active(e.index) {
			return e.index
		}
	}
}
