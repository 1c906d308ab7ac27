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

// Package version can be used to implement embedding versioning details from
// git branches and tags into the binary importing this package.
package version

import (
	"fmt"
	"io"
	"strings"
)

// build is to be populated at build time using -ldflags -X.
var build string

// Build shows the raw build label.
func Build() string {
	return build
}

// Show writes the tool's version information to w.
func Show(w io.Writer, name string) error {
	_, err := fmt.Fprintln(w, name+" "+Parse())
	return err
}

// Parse returns the version parsed from the build label.
func Parse() string {
	return parse(build)
}

// parse reads labels of the form <tag>-<commits since tag>-g<hash>-<branch>.
func parse(label string) string {
	v := strings.SplitN(label, "-", 4)
	if len(v) != 4 || len(v[2]) < 2 {
		return "v0.0.0-unofficial"
	}
	tag := v[0]
	if !strings.HasPrefix(strings.ToLower(tag), "v") {
		tag = "v" + tag
	}
	commits, hash, branch := v[1], strings.TrimPrefix(v[2], "g"), v[3]
	switch {
	case commits != "0":
		return fmt.Sprintf("%s-%s (%s, +%s)", tag, branch, hash, commits)
	case branch != "main" && branch != "master":
		return fmt.Sprintf("%s-%s", tag, branch)
	default:
		return tag
	}
}
