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
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ordkv/ordkv/pkg/logger"
)

type state int

const (
	stateActive state = iota
	stateCompleted
	stateFailed
	stateDisposed
)

func (s state) String() string {
	switch s {
	case stateActive:
		return "active"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	default:
		return "disposed"
	}
}

// slot is the bookkeeping of one source. H is the cursor handle the slot owns.
// An inactive slot holds no handle.
type slot[S, K, H any] struct {
	handle     H
	val        S
	key        K
	active     bool
	hasCurrent bool
}

// core holds the state shared by the sync and async drivers: the slots, the output budget
// and the selection strategy. It is driven by a single goroutine at a time.
type core[S, K, H any] struct {
	keyFn    func(S) K
	release  func(H) error
	selector Selector[K]
	l        *logger.Logger
	metrics  *Metrics
	form     string
	slots    []slot[S, K, H]
	// remaining is the output budget, unbounded when negative.
	remaining int64
	state     state
}

func newCore[S, K, H any](n int, keyFn func(S) K, compare Compare[K], release func(H) error,
	form string, l *logger.Logger, o *options,
) *core[S, K, H] {
	return &core[S, K, H]{
		keyFn:     keyFn,
		release:   release,
		selector:  newSelector(o.selector, compare),
		l:         l,
		metrics:   o.metrics,
		form:      form,
		slots:     make([]slot[S, K, H], 0, n),
		remaining: o.limit,
	}
}

func (c *core[S, K, H]) Len() int {
	return len(c.slots)
}

func (c *core[S, K, H]) Active(i int) bool {
	return c.slots[i].active
}

func (c *core[S, K, H]) Key(i int) K {
	return c.slots[i].key
}

// attach appends an active slot owning h.
func (c *core[S, K, H]) attach(h H) int {
	c.slots = append(c.slots, slot[S, K, H]{handle: h, active: true})
	c.metrics.openedSources.Inc(1, c.form)
	c.metrics.activeSlots.Add(1, c.form)
	return len(c.slots) - 1
}

// needsFetch reports whether slot i must be fetched before the next selection.
func (c *core[S, K, H]) needsFetch(i int) bool {
	s := &c.slots[i]
	return s.active && !s.hasCurrent
}

// exhausted reports whether the output budget is spent.
func (c *core[S, K, H]) exhausted() bool {
	return c.remaining == 0
}

// ready caches v and its key in slot i.
func (c *core[S, K, H]) ready(i int, v S) {
	s := &c.slots[i]
	s.val = v
	s.key = c.keyFn(v)
	s.hasCurrent = true
	c.selector.Ready(c, i)
}

// drop releases the handle of an exhausted source right away.
func (c *core[S, K, H]) drop(i int) error {
	s := &c.slots[i]
	h := s.handle
	*s = slot[S, K, H]{}
	c.metrics.activeSlots.Add(-1, c.form)
	if e := c.l.Debug(); e.Enabled() {
		e.Int("slot", i).Msg("source exhausted")
	}
	if err := c.release(h); err != nil {
		return errors.Wrapf(err, "close source %d", i)
	}
	return nil
}

// sourceFailed records a fetch error of slot i and returns it with the slot index attached.
func (c *core[S, K, H]) sourceFailed(i int, err error) error {
	c.metrics.sourceErrors.Inc(1, c.form)
	return errors.Wrapf(err, "fetch source %d", i)
}

// pick selects the slot holding the next output and consumes its element.
// It reports whether the slot must be advanced, which is the case unless
// the element is the last one the budget allows.
func (c *core[S, K, H]) pick() (index int, v S, advance bool) {
	index = c.selector.Select(c)
	if index < 0 {
		return index, v, false
	}
	s := &c.slots[index]
	v = s.val
	advance = c.remaining < 0 || c.remaining > 1
	if advance {
		var zeroS S
		var zeroK K
		s.val, s.key, s.hasCurrent = zeroS, zeroK, false
	}
	return index, v, advance
}

// emitted charges one element to the budget.
func (c *core[S, K, H]) emitted() {
	if c.remaining > 0 {
		c.remaining--
	}
	c.metrics.emitted.Inc(1, c.form)
}

// teardown releases every handle still owned by a slot, in slot order, and
// combines all release failures. The core keeps no slot and no budget afterwards.
func (c *core[S, K, H]) teardown(final state) error {
	if c.state != stateActive {
		return nil
	}
	c.state = final
	var err error
	released := 0
	for i := range c.slots {
		s := &c.slots[i]
		if !s.active {
			continue
		}
		h := s.handle
		*s = slot[S, K, H]{}
		released++
		if e := c.release(h); e != nil {
			err = multierr.Append(err, errors.Wrapf(e, "close source %d", i))
		}
	}
	c.metrics.activeSlots.Add(-float64(released), c.form)
	c.slots = nil
	c.remaining = 0
	if err != nil {
		c.l.Warn().Err(err).Stringer("state", final).Msg("failed to close sources")
	} else if e := c.l.Debug(); e.Enabled() {
		e.Stringer("state", final).Int("released", released).Msg("merge torn down")
	}
	return err
}
