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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/jointrine/http-mock-player/pkg/cassette"
	"github.com/jointrine/http-mock-player/pkg/player"
)

// newPlayerFromConfig builds and starts a Player per cfg, ready for
// Play or Record to be called on it.
func newPlayerFromConfig(cfg config, logger zerolog.Logger) (*player.Player, error) {
	if cfg.RemoteAddress == "" {
		return nil, fmt.Errorf("remote-address is required")
	}

	p, err := player.New(cfg.BaseAddress, cfg.RemoteAddress, player.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("configuring player: %w", err)
	}

	c, err := cassette.New(cfg.Cassette)
	if err != nil {
		return nil, fmt.Errorf("loading cassette %s: %w", cfg.Cassette, err)
	}
	p.Load(c)

	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("starting player: %w", err)
	}

	return p, nil
}

// runUntilSignal blocks until SIGINT/SIGTERM, then drives the Player
// through Close so any in-flight request finishes and, if recording,
// the record is saved before the process exits.
func runUntilSignal(p *player.Player, logger zerolog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	return p.Close()
}
