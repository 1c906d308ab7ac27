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

// Package zstd reads and writes ZSTD compressed streams, selected by file name.
package zstd

import (
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Ext is the file name suffix of ZSTD compressed files.
const Ext = ".zst"

// DefaultLevel is the compression level used by NewWriter when none is given.
const DefaultLevel = 3

// IsCompressed reports whether name denotes a ZSTD compressed file.
func IsCompressed(name string) bool {
	return strings.HasSuffix(name, Ext)
}

type reader struct {
	*zstd.Decoder
}

func (r reader) Close() error {
	r.Decoder.Close()
	return nil
}

// NewReader decompresses r. Closing the returned reader releases the decoder, not r.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ZSTD reader")
	}
	return reader{Decoder: d}, nil
}

// NewWriter compresses into w at the given zstd level. Close flushes the
// last frame but does not close w.
func NewWriter(w io.Writer, compressionLevel int) (io.WriteCloser, error) {
	if compressionLevel <= 0 {
		compressionLevel = DefaultLevel
	}
	e, err := zstd.NewWriter(w,
		zstd.WithEncoderCRC(false), // Disable CRC for performance reasons.
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ZSTD writer")
	}
	return e, nil
}

// WrapReader decompresses r when name is a ZSTD file, otherwise it returns r untouched.
// The returned closer releases the decoder, the caller still owns r.
func WrapReader(name string, r io.Reader) (io.Reader, io.Closer, error) {
	if !IsCompressed(name) {
		return r, io.NopCloser(nil), nil
	}
	d, err := NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return d, d, nil
}

// WrapWriter compresses into w when name is a ZSTD file. The returned writer must be
// closed to flush it, the caller still owns w.
func WrapWriter(name string, w io.Writer) (io.WriteCloser, error) {
	if !IsCompressed(name) {
		return nopWriteCloser{Writer: w}, nil
	}
	return NewWriter(w, DefaultLevel)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
