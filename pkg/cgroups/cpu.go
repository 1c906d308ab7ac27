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

// Package cgroups aligns the number of Go processors with the CPU quota of the container.
package cgroups

import (
	"os"
	"runtime"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ordkv/ordkv/pkg/logger"
)

// CPUs returns the number of CPUs.
func CPUs() int {
	return runtime.GOMAXPROCS(-1)
}

// SetMaxProcs sets GOMAXPROCS from the cgroup CPU quota, capped by the number of CPUs,
// unless the GOMAXPROCS environment variable is set. It returns the resulting value.
func SetMaxProcs(l *logger.Logger) int {
	if maxProcs, exists := os.LookupEnv("GOMAXPROCS"); exists {
		l.Debug().Str("GOMAXPROCS", maxProcs).Msg("honoring GOMAXPROCS as set in environment")
		return CPUs()
	}
	_, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		l.Debug().Msgf(format, args...)
	}))
	if err != nil {
		l.Warn().Err(err).Msg("failed to set GOMAXPROCS")
	}
	gomaxprocs := CPUs()
	if gomaxprocs <= 0 {
		gomaxprocs = 1
	}
	if numCPU := runtime.NumCPU(); gomaxprocs > numCPU {
		gomaxprocs = numCPU
	}
	runtime.GOMAXPROCS(gomaxprocs)
	return gomaxprocs
}
