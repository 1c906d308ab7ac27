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
	"strconv"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/gleak"
	"github.com/pkg/errors"
	"go.uber.org/mock/gomock"

	"github.com/ordkv/ordkv/pkg/iter"
	"github.com/ordkv/ordkv/pkg/iter/sort"
	"github.com/ordkv/ordkv/pkg/test/flags"
)

var _ = ginkgo.Describe("AsyncMerge", func() {
	var (
		goods []gleak.Goroutine
		ctx   context.Context
	)
	ginkgo.BeforeEach(func() {
		goods = gleak.Goroutines()
		ctx = context.Background()
	})
	ginkgo.AfterEach(func() {
		gomega.Eventually(gleak.Goroutines, flags.EventuallyTimeout).ShouldNot(gleak.HaveLeaked(goods))
	})

	asyncSources := func(sources ...*delayedSource[int]) []iter.AsyncSource[int] {
		result := make([]iter.AsyncSource[int], len(sources))
		for i, s := range sources {
			result[i] = s
		}
		return result
	}

	expectClosedOnce := func(sources ...*delayedSource[int]) {
		for _, s := range sources {
			gomega.Expect(s.opens.Load()).To(gomega.Equal(int32(1)))
			gomega.Expect(s.closes.Load()).To(gomega.Equal(int32(1)))
		}
	}

	ginkgo.DescribeTable("keeps the order whatever the fetch latencies",
		func(kind sort.SelectorKind) {
			runs, all := sortedRuns(8, 30, 20)
			sources := make([]*delayedSource[int], len(runs))
			for i, r := range runs {
				sources[i] = newDelayedSource(2*time.Millisecond, r...)
			}
			m, err := sort.NewAsync(asyncSources(sources...), identity[int], identity[int], nil, sort.WithSelector(kind))
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			got, err := iter.DrainAsync[int](ctx, m)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(cmp.Diff(all, got)).To(gomega.BeEmpty())
			expectClosedOnce(sources...)
		},
		ginkgo.Entry("linear selection", sort.LinearSelection),
		ginkgo.Entry("heap selection", sort.HeapSelection),
	)

	ginkgo.It("breaks ties by source index whatever the fetch latencies", func() {
		var sources []iter.AsyncSource[entry]
		for src := 0; src < 4; src++ {
			sources = append(sources, newDelayedSource(time.Millisecond, entry{1, src}, entry{1, src}, entry{3, src}))
		}
		want := []entry{
			{1, 0}, {1, 0}, {1, 1}, {1, 1}, {1, 2}, {1, 2}, {1, 3}, {1, 3},
			{3, 0}, {3, 1}, {3, 2}, {3, 3},
		}
		m, err := sort.NewAsync(sources, entryKey, identity[entry], nil)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		for i := 0; i < 5; i++ {
			got, err := iter.DrainAsync[entry](ctx, m)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(got).To(gomega.Equal(want))
		}
	})

	ginkgo.It("caps the output and releases every source", func() {
		odd := newDelayedSource(time.Millisecond, 1, 3, 5)
		even := newDelayedSource(time.Millisecond, 2, 4, 6)
		m, err := sort.NewAsync(asyncSources(odd, even), identity[int], identity[int], nil, sort.WithLimit(10))
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		capped, err := m.Take(2)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(capped.Limit()).To(gomega.Equal(2))
		again, err := capped.Take(4)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(again).To(gomega.BeIdenticalTo(capped))
		got, err := iter.DrainAsync[int](ctx, capped)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(got).To(gomega.Equal([]int{1, 2}))
		expectClosedOnce(odd, even)
	})

	ginkgo.It("keeps the cap of the merge it selects from", func() {
		odd := newDelayedSource(time.Millisecond, 1, 3, 5)
		even := newDelayedSource(time.Millisecond, 2, 4, 6)
		m, err := sort.NewAsync(asyncSources(odd, even), identity[int], identity[int], nil, sort.WithLimit(3))
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		named, err := sort.SelectAsync(m, strconv.Itoa)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(named.Limit()).To(gomega.Equal(3))
		got, err := iter.DrainAsync[string](ctx, named)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(got).To(gomega.Equal([]string{"1", "2", "3"}))
		expectClosedOnce(odd, even)
	})

	ginkgo.It("does not open any source under a zero cap", func() {
		s := newDelayedSource[int](0, 1)
		m, err := sort.NewAsync(asyncSources(s), identity[int], identity[int], nil, sort.WithLimit(0))
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		got, err := iter.DrainAsync[int](ctx, m)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(got).To(gomega.BeEmpty())
		gomega.Expect(s.opens.Load()).To(gomega.BeZero())
	})

	ginkgo.It("merges blocking sources", func() {
		m, err := sort.NewAsync([]iter.AsyncSource[int]{
			iter.Async(iter.Slice(1, 4)),
			iter.Async(iter.Slice(2, 3)),
		}, identity[int], identity[int], nil)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		got, err := iter.DrainAsync[int](ctx, m)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(got).To(gomega.Equal([]int{1, 2, 3, 4}))
	})

	ginkgo.It("projects each emitted element exactly once", func() {
		var calls int
		m, err := sort.NewAsync(asyncSources(
			newDelayedSource(time.Millisecond, 1, 3, 5),
			newDelayedSource(time.Millisecond, 2, 4, 6),
		), identity[int], identity[int], nil)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		squared, err := sort.SelectAsync(m, func(v int) int {
			calls++
			return v * v
		})
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		squared, err = squared.Take(3)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		got, err := iter.DrainAsync[int](ctx, squared)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(got).To(gomega.Equal([]int{1, 4, 9}))
		gomega.Expect(calls).To(gomega.Equal(3))
	})

	ginkgo.DescribeTable("opens sources with a hint",
		func(requested, want iter.Hint) {
			s := newDelayedSource[int](0, 1)
			m, err := sort.NewAsync(asyncSources(s), identity[int], identity[int], nil, sort.WithHint(requested))
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			_, err = iter.DrainAsync[int](ctx, m)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(iter.Hint(s.hint.Load())).To(gomega.Equal(want))
		},
		ginkgo.Entry("all", iter.HintAll, iter.HintAll),
		ginkgo.Entry("iterator", iter.HintIterator, iter.HintIterator),
		ginkgo.Entry("head is widened", iter.HintHead, iter.HintIterator),
	)

	ginkgo.Context("failures", func() {
		var ctrl *gomock.Controller
		ginkgo.BeforeEach(func() {
			ctrl = gomock.NewController(ginkgo.GinkgoT())
		})

		ginkgo.It("closes all four sources once when the third fails", func() {
			errBoom := errors.New("boom")
			sources := make([]iter.AsyncSource[int], 4)
			for i := range sources {
				c := iter.NewMockAsyncCursor[int](ctrl)
				if i == 2 {
					c.EXPECT().Next(gomock.Any()).Return(0, false, errBoom).Times(1)
				} else {
					c.EXPECT().Next(gomock.Any()).Return(i, true, nil).Times(1)
				}
				c.EXPECT().Close().Return(nil).Times(1)
				sources[i] = iter.AsyncSourceFunc[int](func(context.Context) (iter.AsyncCursor[int], error) {
					return c, nil
				})
			}
			m, err := sort.NewAsync(sources, identity[int], identity[int], nil)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			cur, err := m.Open(ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			_, ok, err := cur.Next(ctx)
			gomega.Expect(ok).To(gomega.BeFalse())
			gomega.Expect(err).To(gomega.MatchError(errBoom))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("source 2"))
			_, ok, err = cur.Next(ctx)
			gomega.Expect(ok).To(gomega.BeFalse())
			gomega.Expect(err).To(gomega.MatchError(errBoom))
			gomega.Expect(cur.Close()).To(gomega.Succeed())
		})

		ginkgo.It("closes all four sources once when the third fails after one element", func() {
			errBoom := errors.New("boom")
			cursors := make([]*iter.MockAsyncCursor[int], 4)
			sources := make([]iter.AsyncSource[int], 4)
			for i := range cursors {
				c := iter.NewMockAsyncCursor[int](ctrl)
				cursors[i] = c
				sources[i] = iter.AsyncSourceFunc[int](func(context.Context) (iter.AsyncCursor[int], error) {
					return c, nil
				})
			}
			gomock.InOrder(
				cursors[0].EXPECT().Next(gomock.Any()).Return(1, true, nil),
				cursors[0].EXPECT().Next(gomock.Any()).Return(0, false, nil),
				cursors[0].EXPECT().Close().Return(nil),
			)
			gomock.InOrder(
				cursors[1].EXPECT().Next(gomock.Any()).Return(5, true, nil),
				cursors[1].EXPECT().Close().Return(nil),
			)
			gomock.InOrder(
				cursors[2].EXPECT().Next(gomock.Any()).Return(2, true, nil),
				cursors[2].EXPECT().Next(gomock.Any()).Return(0, false, errBoom),
				cursors[2].EXPECT().Close().Return(nil),
			)
			gomock.InOrder(
				cursors[3].EXPECT().Next(gomock.Any()).Return(9, true, nil),
				cursors[3].EXPECT().Close().Return(nil),
			)
			m, err := sort.NewAsync(sources, identity[int], identity[int], nil)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			got, err := iter.DrainAsync[int](ctx, m)
			gomega.Expect(got).To(gomega.Equal([]int{1, 2}))
			gomega.Expect(err).To(gomega.MatchError(errBoom))
		})

		ginkgo.It("closes the opened sources when one cannot be opened", func() {
			errOpen := errors.New("cannot open")
			ok := newDelayedSource[int](0, 1)
			broken := newDelayedSource[int](0)
			broken.openErr = errOpen
			m, err := sort.NewAsync(asyncSources(ok, broken), identity[int], identity[int], nil)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			_, err = m.Open(ctx)
			gomega.Expect(err).To(gomega.MatchError(errOpen))
			expectClosedOnce(ok)
		})
	})

	ginkgo.Context("cancellation", func() {
		var stuck []*delayedSource[int]
		ginkgo.BeforeEach(func() {
			stuck = []*delayedSource[int]{
				newDelayedSource(time.Hour, 1),
				newDelayedSource(time.Hour, 2),
				newDelayedSource(time.Hour, 3),
			}
		})

		ginkgo.It("tears down when the caller gives up waiting", func() {
			m, err := sort.NewAsync(asyncSources(stuck...), identity[int], identity[int], nil)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			cur, err := m.Open(ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			_, ok, err := cur.Next(waitCtx)
			gomega.Expect(ok).To(gomega.BeFalse())
			gomega.Expect(err).To(gomega.MatchError(context.DeadlineExceeded))
			expectClosedOnce(stuck...)
			gomega.Expect(cur.Close()).To(gomega.Succeed())
			expectClosedOnce(stuck...)
		})

		ginkgo.It("fails the run when the open context is cancelled", func() {
			m, err := sort.NewAsync(asyncSources(stuck...), identity[int], identity[int], nil)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			openCtx, cancel := context.WithCancel(ctx)
			cur, err := m.Open(openCtx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			cancel()
			_, ok, err := cur.Next(ctx)
			gomega.Expect(ok).To(gomega.BeFalse())
			gomega.Expect(err).To(gomega.MatchError(context.Canceled))
			expectClosedOnce(stuck...)
		})

		ginkgo.It("stops the fetches in flight on close", func() {
			m, err := sort.NewAsync(asyncSources(stuck...), identity[int], identity[int], nil)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			cur, err := m.Open(ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(cur.Close()).To(gomega.Succeed())
			expectClosedOnce(stuck...)
			_, ok, err := cur.Next(ctx)
			gomega.Expect(ok).To(gomega.BeFalse())
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(cur.Close()).To(gomega.Succeed())
		})
	})
})
