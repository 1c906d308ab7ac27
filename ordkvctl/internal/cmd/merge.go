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

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/ordkv/ordkv/ordkvctl/internal/source"
	"github.com/ordkv/ordkv/pkg/compress/zstd"
	"github.com/ordkv/ordkv/pkg/iter"
	"github.com/ordkv/ordkv/pkg/iter/sort"
	"github.com/ordkv/ordkv/pkg/logger"
	"github.com/ordkv/ordkv/pkg/meter"
	"github.com/ordkv/ordkv/pkg/meter/prom"
	"github.com/ordkv/ordkv/pkg/signal"
)

type mergeFlags struct {
	output    string
	delimiter string
	limit     int
	keyField  int
	numeric   bool
	async     bool
	heap      bool
	desc      bool
	digest    bool
	stats     bool
	metrics   bool
}

func newMergeCmd() *cobra.Command {
	f := &mergeFlags{}
	cmd := &cobra.Command{
		Use:   "merge [flags] FILE...",
		Short: "Merge files sorted by the same key into one sorted stream",
		Long: `Merge reads every FILE, "-" being the standard input, and writes their lines in key order.
Files ending in .zst are ZSTD compressed. Equal keys keep the order of the files on the command line.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, args)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&f.limit, "limit", -1, "the maximum number of lines to write, -1 writes all of them")
	flags.IntVar(&f.keyField, "key-field", 0, "the 1-based field holding the key, 0 keys by the whole line")
	flags.StringVar(&f.delimiter, "delimiter", "\t", "the field delimiter")
	flags.BoolVar(&f.numeric, "numeric", false, "compare keys as integers")
	flags.BoolVar(&f.desc, "desc", false, "the files are sorted in descending order")
	flags.BoolVar(&f.async, "async", false, "read the files concurrently")
	flags.BoolVar(&f.heap, "heap", false, "pick the next line with a heap, for many files")
	flags.StringVarP(&f.output, "output", "o", "", "the output file, .zst files are ZSTD compressed (default stdout)")
	flags.BoolVar(&f.digest, "digest", false, "print the xxhash64 digest of the output")
	flags.BoolVar(&f.stats, "stats", false, "print the number of merged lines")
	flags.BoolVar(&f.metrics, "metrics", false, "print the merge metrics in the Prometheus text format")
	return cmd
}

func (f *mergeFlags) run(cmd *cobra.Command, files []string) (err error) {
	l := logger.GetLogger("ordkvctl")
	out, closeOut, err := f.openOutput(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, closeOut())
	}()
	w := &lineWriter{w: bufio.NewWriter(out)}
	if f.digest {
		w.digest = xxhash.New()
	}

	selector := sort.LinearSelection
	if f.heap {
		selector = sort.HeapSelection
	}
	reg := prometheus.NewRegistry()
	scope := meter.NewHierarchicalScope("ordkv", "_").SubScope("merge").
		ConstLabels(meter.LabelPairs{"selector": selector.String()})
	metrics := sort.NewMetrics(prom.NewProvider(scope, reg))
	opts := []sort.Option{sort.WithMetrics(metrics), sort.WithHint(f.hint()), sort.WithSelector(selector)}
	parser := source.Parser{KeyField: f.keyField, Delimiter: f.delimiter, Numeric: f.numeric}
	sources := make([]iter.Source[source.Record], len(files))
	for i, name := range files {
		sources[i] = source.NewFile(name, parser, cmd.InOrStdin())
	}

	ctx, cancel := context.WithCancel(l.WithContext(cmd.Context()))
	defer cancel()
	start := time.Now()
	var g run.Group
	g.Add(func() error {
		if f.numeric {
			return mergeFiles(ctx, f, sources, source.NumKey, sort.Ordered[int64](), opts, w.write)
		}
		return mergeFiles(ctx, f, sources, source.TextKey, sort.Ordered[string](), opts, w.write)
	}, func(error) {
		cancel()
	})
	h := signal.NewHandler()
	g.Add(h.Execute, h.Interrupt)
	if err = g.Run(); err != nil {
		return err
	}
	if err = w.w.Flush(); err != nil {
		return err
	}
	elapsed := time.Since(start)
	l.Info().Int64("lines", w.lines).Dur("elapsed", elapsed).Msg("merge finished")

	report := cmd.ErrOrStderr()
	if f.digest {
		fmt.Fprintf(report, "digest: %016x\n", w.digest.Sum64())
	}
	if f.stats {
		fmt.Fprintf(report, "merged %s lines (%s) from %d files in %s\n",
			humanize.Comma(w.lines), humanize.Bytes(uint64(w.bytes)), len(files), elapsed.Round(time.Millisecond))
	}
	if f.metrics {
		return writeMetrics(report, reg)
	}
	return nil
}

func (f *mergeFlags) hint() iter.Hint {
	switch {
	case f.limit < 0:
		return iter.HintAll
	case f.limit <= 1:
		return iter.HintHead
	default:
		return iter.HintIterator
	}
}

func (f *mergeFlags) openOutput(stdout io.Writer) (io.Writer, func() error, error) {
	if f.output == "" || f.output == "-" {
		return stdout, func() error { return nil }, nil
	}
	file, err := os.Create(f.output)
	if err != nil {
		return nil, nil, err
	}
	zw, err := zstd.WrapWriter(f.output, file)
	if err != nil {
		return nil, nil, multierr.Append(err, file.Close())
	}
	return zw, func() error {
		return multierr.Append(zw.Close(), file.Close())
	}, nil
}

func mergeFiles[K any](ctx context.Context, f *mergeFlags, sources []iter.Source[source.Record],
	key func(source.Record) K, compare sort.Compare[K], opts []sort.Option, emit func(string) error,
) error {
	if f.desc {
		compare = sort.Reverse(compare)
	}
	if f.async {
		asyncSources := make([]iter.AsyncSource[source.Record], len(sources))
		for i, s := range sources {
			asyncSources[i] = iter.Async(s)
		}
		m, err := sort.NewAsync(asyncSources, key, source.Line, compare, opts...)
		if err != nil {
			return err
		}
		if f.limit != -1 {
			if m, err = m.Take(f.limit); err != nil {
				return err
			}
		}
		cur, err := m.Open(ctx)
		if err != nil {
			return err
		}
		return writeAsync(ctx, cur, emit)
	}
	m, err := sort.New(sources, key, source.Line, compare, opts...)
	if err != nil {
		return err
	}
	if f.limit != -1 {
		if m, err = m.Take(f.limit); err != nil {
			return err
		}
	}
	cur, err := m.OpenContext(ctx)
	if err != nil {
		return err
	}
	return write(cur, emit)
}

func write(cur iter.Cursor[string], emit func(string) error) (err error) {
	defer func() {
		err = multierr.Append(err, cur.Close())
	}()
	for cur.Next() {
		if err = emit(cur.Val()); err != nil {
			return err
		}
	}
	return cur.Err()
}

func writeAsync(ctx context.Context, cur iter.AsyncCursor[string], emit func(string) error) (err error) {
	defer func() {
		err = multierr.Append(err, cur.Close())
	}()
	for {
		line, ok, nextErr := cur.Next(ctx)
		if nextErr != nil || !ok {
			return nextErr
		}
		if err = emit(line); err != nil {
			return err
		}
	}
}

type lineWriter struct {
	w      *bufio.Writer
	digest *xxhash.Digest
	lines  int64
	bytes  int64
}

func (lw *lineWriter) write(line string) error {
	if _, err := lw.w.WriteString(line); err != nil {
		return err
	}
	if err := lw.w.WriteByte('\n'); err != nil {
		return err
	}
	if lw.digest != nil {
		_, _ = lw.digest.WriteString(line)
		_, _ = lw.digest.Write([]byte{'\n'})
	}
	lw.lines++
	lw.bytes += int64(len(line)) + 1
	return nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err = enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
