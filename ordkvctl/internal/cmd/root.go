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

// Package cmd is an internal package defining cli commands for ordkvctl.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ordkv/ordkv/pkg/cgroups"
	"github.com/ordkv/ordkv/pkg/config"
	"github.com/ordkv/ordkv/pkg/logger"
	"github.com/ordkv/ordkv/pkg/version"
)

const configName = "ordkvctl"

// NewRoot returns the root command.
func NewRoot() *cobra.Command {
	logging := logger.Logging{}
	cmd := &cobra.Command{
		Use:               "ordkvctl",
		DisableAutoGenTag: true,
		Version:           version.Build(),
		Short:             "ordkvctl merges sorted files into one sorted stream",
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(configName, cmd.Flags()); err != nil {
				return err
			}
			if err := logger.InitWithWriter(logging, cmd.ErrOrStderr()); err != nil {
				return err
			}
			cgroups.SetMaxProcs(logger.GetLogger("ordkvctl"))
			return nil
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&logging.Env, "log-env", "prod", "the logging format, dev prints human readable lines")
	flags.StringVar(&logging.Level, "log-level", "warn", "the root level of logging")
	flags.StringSliceVar(&logging.Modules, "log-modules", nil, "the specific module")
	flags.StringSliceVar(&logging.Levels, "log-levels", nil, "the level logging of logging")
	cmd.AddCommand(newMergeCmd(), newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of ordkvctl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return version.Show(cmd.OutOrStdout(), "ordkvctl")
		},
	}
}
