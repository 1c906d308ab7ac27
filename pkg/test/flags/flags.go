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

// Package flags holds the timeouts shared by asynchronous tests.
package flags

import "time"

var (
	// EventuallyTimeout is the default timeout of gomega.Eventually in tests.
	EventuallyTimeout = 10 * time.Second
	// ConsistentlyTimeout is the default duration of gomega.Consistently in tests.
	ConsistentlyTimeout = 500 * time.Millisecond
	// LogLevel is the logging level used by test suites.
	LogLevel = "warn"
)
