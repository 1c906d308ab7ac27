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

// Package signal implements a handler to listen to system signals.
package signal

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"
)

// ErrSignal is returned when a termination signal is received.
var ErrSignal = errors.New("signal received")

// Handler is an actor of an oklog/run group: Execute returns once a termination
// signal arrives, Interrupt makes it return early.
type Handler struct {
	signal chan os.Signal
	cancel chan struct{}
	once   sync.Once
}

// NewHandler starts listening to sigs, or to the usual termination signals when none is given.
func NewHandler(sigs ...os.Signal) *Handler {
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM}
	}
	h := &Handler{
		signal: make(chan os.Signal, 1),
		cancel: make(chan struct{}),
	}
	signal.Notify(h.signal, sigs...)
	return h
}

// Execute blocks until a signal is received or the handler is interrupted.
func (h *Handler) Execute() error {
	select {
	case sig := <-h.signal:
		return errors.Wrap(ErrSignal, sig.String())
	case <-h.cancel:
		return nil
	}
}

// Interrupt stops listening and releases Execute.
func (h *Handler) Interrupt(error) {
	h.once.Do(func() {
		signal.Stop(h.signal)
		close(h.cancel)
	})
}
