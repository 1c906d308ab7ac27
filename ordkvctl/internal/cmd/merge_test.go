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

package cmd_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"github.com/zenizh/go-capturer"

	"github.com/ordkv/ordkv/ordkvctl/internal/cmd"
	"github.com/ordkv/ordkv/pkg/compress/zstd"
)

var _ = Describe("Merge", func() {
	var (
		dir     string
		rootCmd *cobra.Command
		stderr  *bytes.Buffer
	)

	writeFile := func(name, content string) string {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		Expect(err).NotTo(HaveOccurred())
		w, err := zstd.WrapWriter(name, f)
		Expect(err).NotTo(HaveOccurred())
		_, err = io.WriteString(w, content)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Close()).To(Succeed())
		Expect(f.Close()).To(Succeed())
		return path
	}

	execute := func(args ...string) string {
		rootCmd.SetArgs(args)
		return capturer.CaptureStdout(func() {
			err := rootCmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		rootCmd = cmd.NewRoot()
		stderr = &bytes.Buffer{}
		rootCmd.SetErr(stderr)
	})

	It("merges sorted files", func() {
		a := writeFile("a.txt", "apple\ncherry\n")
		b := writeFile("b.txt", "banana\ndate\n")
		out := execute("merge", a, b)
		Expect(out).To(Equal("apple\nbanana\ncherry\ndate\n"))
	})

	It("keys by a numeric field and keeps the file order of equal keys", func() {
		a := writeFile("a.csv", "a,1\nc,10\n")
		b := writeFile("b.csv.zst", "b,1\nd,2\n")
		out := execute("merge", "--key-field", "2", "--delimiter", ",", "--numeric", a, b)
		Expect(out).To(Equal("a,1\nb,1\nd,2\nc,10\n"))
	})

	It("merges descending files with a cap", func() {
		a := writeFile("a.txt", "9\n5\n1\n")
		b := writeFile("b.txt", "8\n7\n")
		out := execute("merge", "--numeric", "--desc", "--limit", "3", "--heap", "--metrics", a, b)
		Expect(out).To(Equal("9\n8\n7\n"))
		Expect(stderr.String()).To(ContainSubstring(`ordkv_merge_emitted_total{form="sync",selector="heap"} 3`))
	})

	It("writes the same digest in both forms", func() {
		a := writeFile("a.txt", "1\n3\n5\n")
		b := writeFile("b.txt", "2\n4\n6\n")
		out := execute("merge", "--digest", "--stats", a, b)
		Expect(out).To(Equal("1\n2\n3\n4\n5\n6\n"))
		Expect(stderr.String()).To(ContainSubstring("merged 6 lines"))
		digest := digestLine(stderr.String())
		Expect(digest).NotTo(BeEmpty())

		stderr.Reset()
		Expect(execute("merge", "--digest", "--async", a, b)).To(Equal(out))
		Expect(digestLine(stderr.String())).To(Equal(digest))
	})

	It("writes a compressed output file", func() {
		a := writeFile("a.txt", "x\nz\n")
		b := writeFile("b.txt", "y\n")
		output := filepath.Join(dir, "out.txt.zst")
		Expect(execute("merge", "-o", output, "--metrics", a, b)).To(BeEmpty())
		Expect(stderr.String()).To(ContainSubstring(`ordkv_merge_emitted_total{form="sync",selector="linear"} 3`))

		f, err := os.Open(output)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		r, closer, err := zstd.WrapReader(output, f)
		Expect(err).NotTo(HaveOccurred())
		defer closer.Close()
		content, err := io.ReadAll(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("x\ny\nz\n"))
	})

	It("reads the standard input", func() {
		a := writeFile("a.txt", "b\n")
		rootCmd.SetIn(strings.NewReader("a\nc\n"))
		Expect(execute("merge", a, "-")).To(Equal("a\nb\nc\n"))
	})

	It("reads flags from the environment", func() {
		Expect(os.Setenv("ORDKV_LIMIT", "1")).To(Succeed())
		DeferCleanup(os.Unsetenv, "ORDKV_LIMIT")
		a := writeFile("a.txt", "1\n2\n")
		Expect(execute("merge", a)).To(Equal("1\n"))
	})

	It("fails on a line without key", func() {
		a := writeFile("a.txt", "1\tx\n2\n")
		rootCmd.SetArgs([]string{"merge", "--key-field", "2", a})
		Expect(rootCmd.Execute()).To(MatchError(ContainSubstring("a.txt:2")))
	})

	It("rejects a negative limit", func() {
		a := writeFile("a.txt", "1\n")
		rootCmd.SetArgs([]string{"merge", "--limit", "-2", a})
		Expect(rootCmd.Execute()).To(MatchError(ContainSubstring("limit cannot be less than zero")))
	})
})

var _ = Describe("Version", func() {
	It("prints the version", func() {
		rootCmd := cmd.NewRoot()
		rootCmd.SetArgs([]string{"version"})
		out := capturer.CaptureStdout(func() {
			Expect(rootCmd.Execute()).To(Succeed())
		})
		Expect(out).To(HavePrefix("ordkvctl v"))
	})
})

func digestLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "digest: ") {
			return line
		}
	}
	return ""
}
