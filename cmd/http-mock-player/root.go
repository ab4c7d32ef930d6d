// Copyright (c) 2015-2024 Marin Atanasov Nikolov <dnaeon@gmail.com>
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer
//    in this position and unchanged.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
//
// THIS SOFTWARE IS PROVIDED BY THE AUTHOR(S) ``AS IS'' AND ANY EXPRESS OR
// IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES
// OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE DISCLAIMED.
// IN NO EVENT SHALL THE AUTHOR(S) BE LIABLE FOR ANY DIRECT, INDIRECT,
// INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT
// NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
// DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
// THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
// (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE OF
// THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// config mirrors the settings a Player needs to start: its two
// addresses plus where its cassette lives. Record is set by the record
// and play subcommands from their <name> argument, replacing any value
// read from the config file.
type config struct {
	BaseAddress   string `mapstructure:"baseAddress"`
	RemoteAddress string `mapstructure:"remoteAddress"`
	Cassette      string `mapstructure:"cassette"`
	Record        string `mapstructure:"record"`
	LogLevel      string `mapstructure:"logLevel"`
}

var (
	cfgFile string
	v       = viper.New()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "http-mock-player",
		Short: "Record/replay HTTP proxy for deterministic tests against a remote dependency",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml/json/toml); its values apply where the matching flag is not given")
	root.PersistentFlags().String("base-address", "http://localhost:8080/", "local address the player listens on")
	root.PersistentFlags().String("remote-address", "", "upstream address the player proxies to")
	root.PersistentFlags().String("cassette", "cassette.json", "path to the cassette file")
	root.PersistentFlags().String("log-level", "info", "zerolog level: debug, info, warn, error")

	v.BindPFlag("baseAddress", root.PersistentFlags().Lookup("base-address"))
	v.BindPFlag("remoteAddress", root.PersistentFlags().Lookup("remote-address"))
	v.BindPFlag("cassette", root.PersistentFlags().Lookup("cassette"))
	v.BindPFlag("logLevel", root.PersistentFlags().Lookup("log-level"))
	v.SetEnvPrefix("HTTP_MOCK_PLAYER")
	v.AutomaticEnv()

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
			// A missing --config is a usage error the caller should see;
			// an absent default config is not, so only explicit paths abort.
			if err := v.ReadInConfig(); err != nil {
				cobra.CheckErr(err)
			}
		}
	})

	root.AddCommand(newRecordCmd())
	root.AddCommand(newPlayCmd())

	return root
}

func loadConfig() (config, error) {
	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(parsed).
		With().
		Timestamp().
		Logger()
}
