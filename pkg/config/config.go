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

// Package config loads command configuration from an optional yaml file, environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix is the prefix of every environment variable bound to a flag.
const EnvPrefix = "ORDKV"

// Load applies configuration to the flags of fs that were not set on the command line.
// Sources by priority: flags, ORDKV_* environment variables, then <name>.yaml in the working directory.
func Load(name string, fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return err
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return BindFlags(fs, v, EnvPrefix)
}

// BindFlags bind each flag to its associated viper configuration (config file and environment variable).
func BindFlags(fs *pflag.FlagSet, v *viper.Viper, envPrefix string) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them.
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			err = multierr.Append(err, v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)))
		}
		if !f.Changed && v.IsSet(f.Name) {
			err = multierr.Append(err, fs.Set(f.Name, flagValue(v.Get(f.Name))))
		}
	})
	return err
}

// flagValue renders a viper value the way pflag expects it, lists become comma separated.
func flagValue(val interface{}) string {
	switch vv := val.(type) {
	case []interface{}:
		parts := make([]string, len(vv))
		for i := range vv {
			parts[i] = fmt.Sprintf("%v", vv[i])
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(vv, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}
