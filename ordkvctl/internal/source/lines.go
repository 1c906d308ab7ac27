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

// Package source reads sorted line oriented files as merge sources.
package source

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ordkv/ordkv/pkg/compress/zstd"
	"github.com/ordkv/ordkv/pkg/iter"
)

// Stdin is the file name read from the standard input.
const Stdin = "-"

const maxLineSize = 16 << 20

// ErrMissingField is returned when a line has fewer fields than the key field.
var ErrMissingField = errors.New("key field is missing")

// Record is one line of a file and its key.
type Record struct {
	Line string
	Text string
	Num  int64
}

// TextKey returns the textual key of r.
func TextKey(r Record) string {
	return r.Text
}

// NumKey returns the numeric key of r.
func NumKey(r Record) int64 {
	return r.Num
}

// Line returns the raw line of r.
func Line(r Record) string {
	return r.Line
}

// Parser extracts keys from lines.
type Parser struct {
	// Delimiter splits a line into fields.
	Delimiter string
	// KeyField is the 1-based index of the key field, 0 takes the whole line.
	KeyField int
	// Numeric parses keys as base 10 integers.
	Numeric bool
}

// Parse returns the record of line.
func (p Parser) Parse(line string) (Record, error) {
	r := Record{Line: line, Text: line}
	if p.KeyField > 0 {
		fields := strings.Split(line, p.delimiter())
		if len(fields) < p.KeyField {
			return r, errors.Wrapf(ErrMissingField, "field %d of %d", p.KeyField, len(fields))
		}
		r.Text = fields[p.KeyField-1]
	}
	if p.Numeric {
		n, err := strconv.ParseInt(strings.TrimSpace(r.Text), 10, 64)
		if err != nil {
			return r, errors.Wrap(err, "numeric key")
		}
		r.Num = n
	}
	return r, nil
}

func (p Parser) delimiter() string {
	if p.Delimiter == "" {
		return "\t"
	}
	return p.Delimiter
}

// File is a source reading the records of a file, or of stdin when Name is "-".
// ZSTD files are decompressed on the fly.
type File struct {
	stdin  io.Reader
	Name   string
	Parser Parser
}

var _ iter.Source[Record] = (*File)(nil)

// NewFile returns the source of the named file. stdin is read when name is "-".
func NewFile(name string, p Parser, stdin io.Reader) *File {
	return &File{Name: name, Parser: p, stdin: stdin}
}

// Open opens the file and returns a cursor over its records.
func (f *File) Open() (iter.Cursor[Record], error) {
	var (
		r    io.Reader
		file *os.File
	)
	if f.Name == Stdin {
		r = f.stdin
	} else {
		var err error
		if file, err = os.Open(f.Name); err != nil {
			return nil, err
		}
		r = file
	}
	dr, decoder, err := zstd.WrapReader(f.Name, r)
	if err != nil {
		if file != nil {
			err = multierr.Append(err, file.Close())
		}
		return nil, err
	}
	s := bufio.NewScanner(dr)
	s.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &fileCursor{name: f.Name, parser: f.Parser, scanner: s, decoder: decoder, file: file}, nil
}

type fileCursor struct {
	err     error
	decoder io.Closer
	file    *os.File
	scanner *bufio.Scanner
	name    string
	cur     Record
	parser  Parser
	line    int
}

func (c *fileCursor) Next() bool {
	if c.err != nil || c.scanner == nil {
		return false
	}
	if !c.scanner.Scan() {
		c.err = c.scanner.Err()
		c.scanner = nil
		return false
	}
	c.line++
	r, err := c.parser.Parse(c.scanner.Text())
	if err != nil {
		c.err = errors.Wrapf(err, "%s:%d", c.name, c.line)
		return false
	}
	c.cur = r
	return true
}

func (c *fileCursor) Val() Record {
	return c.cur
}

func (c *fileCursor) Err() error {
	return c.err
}

func (c *fileCursor) Close() error {
	err := c.decoder.Close()
	if c.file != nil {
		err = multierr.Append(err, c.file.Close())
	}
	return err
}
