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

package player

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jointrine/http-mock-player/pkg/cassette"
	"github.com/jointrine/http-mock-player/pkg/mockhttp"
)

// Player owns the listener, the state machine and the proxy loop that
// dispatches every accepted request according to the current mode. A
// single mutex, statelock, guards both state transitions and the entire
// per-request dispatch body, so a control call can never interleave with
// an in-flight request.
type Player struct {
	statelock sync.Mutex

	baseAddress string
	listenAddr  string
	upstream    mockhttp.Upstream

	state    State
	cassette *cassette.Cassette
	current  *cassette.Record

	listener net.Listener
	server   *http.Server
	client   *http.Client

	logger zerolog.Logger
}

// New configures a Player listening on baseAddress and proxying to
// remoteAddress. Both are required; either being empty is an
// InvalidArgument error. The listener is configured but not started.
func New(baseAddress, remoteAddress string, opts ...Option) (*Player, error) {
	if strings.TrimSpace(baseAddress) == "" {
		return nil, newError(InvalidArgument, "baseAddress is required")
	}
	if strings.TrimSpace(remoteAddress) == "" {
		return nil, newError(InvalidArgument, "remoteAddress is required")
	}

	if !strings.HasSuffix(baseAddress, "/") {
		baseAddress += "/"
	}

	base, err := url.Parse(baseAddress)
	if err != nil {
		return nil, wrapError(InvalidArgument, "baseAddress is not a valid URL", err)
	}

	upstream, err := mockhttp.NewUpstream(remoteAddress)
	if err != nil {
		return nil, wrapError(InvalidArgument, "remoteAddress is not a valid URL", err)
	}

	p := &Player{
		baseAddress: baseAddress,
		listenAddr:  base.Host,
		upstream:    upstream,
		state:       Off,
		client:      defaultHTTPClient(),
		logger:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Load sets the Cassette the Player reads from and writes to. It may be
// called in any state; the new reference takes effect on the next
// Play/Record call.
func (p *Player) Load(c *cassette.Cassette) {
	p.statelock.Lock()
	defer p.statelock.Unlock()
	p.cassette = c
}

// State returns the Player's current state.
func (p *Player) State() State {
	p.statelock.Lock()
	defer p.statelock.Unlock()
	return p.state
}

// Start binds the listener and launches the proxy loop in the
// background. State must be Off; transitions to Idle.
func (p *Player) Start() error {
	p.statelock.Lock()
	defer p.statelock.Unlock()

	if p.state != Off {
		return newError(InvalidState, fmt.Sprintf("Start requires state Off, got %s", p.state))
	}

	listener, err := net.Listen("tcp", p.listenAddr)
	if err != nil {
		return wrapError(IoFailure, "binding listener on "+p.listenAddr, err)
	}

	// A new *http.Server each Start: once Shutdown has been called on one,
	// net/http forbids reusing it for a later Serve.
	p.server = &http.Server{Handler: http.HandlerFunc(p.handle)}
	p.listener = listener
	p.state = Idle

	go func() {
		if err := p.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			p.logger.Error().Err(err).Msg("player: listener serve failed")
		}
	}()

	p.logger.Info().Str("state", p.state.String()).Str("addr", p.listenAddr).Msg("player: started")
	return nil
}

// Play resolves the named Record from the loaded Cassette and begins
// replaying it. State must be Idle and a Cassette must be loaded.
func (p *Player) Play(name string) error {
	p.statelock.Lock()
	defer p.statelock.Unlock()

	if p.state != Idle {
		return newError(InvalidState, fmt.Sprintf("Play requires state Idle, got %s", p.state))
	}
	if p.cassette == nil {
		return newError(CassetteNotLoaded, "Play requires a loaded cassette")
	}

	record := p.cassette.Find(name)
	if record == nil {
		return newError(RecordNotFound, fmt.Sprintf("no record named %q", name))
	}

	p.current = record
	p.state = Playing
	p.logger.Info().Str("state", p.state.String()).Str("record", name).Msg("player: playing")
	return nil
}

// Record creates a fresh, empty Record named name and begins appending
// to it. State must be Idle and a Cassette must be loaded.
func (p *Player) Record(name string) error {
	p.statelock.Lock()
	defer p.statelock.Unlock()

	if p.state != Idle {
		return newError(InvalidState, fmt.Sprintf("Record requires state Idle, got %s", p.state))
	}
	if p.cassette == nil {
		return newError(CassetteNotLoaded, "Record requires a loaded cassette")
	}

	p.current = cassette.NewRecord(name)
	p.state = Recording
	p.logger.Info().Str("state", p.state.String()).Str("record", name).Msg("player: recording")
	return nil
}

// Stop ends Playing or Recording and returns to Idle, saving the
// current Record to the Cassette first if it was Recording. State must
// not be Off.
func (p *Player) Stop() error {
	p.statelock.Lock()
	defer p.statelock.Unlock()
	return p.stopLocked()
}

// stopLocked performs the Stop cleanup; callers must hold statelock.
func (p *Player) stopLocked() error {
	if p.state == Off {
		return newError(InvalidState, "Stop requires a state other than Off")
	}

	var err error
	if p.current != nil {
		p.current.Rewind()
		if p.state == Recording {
			if saveErr := p.cassette.Save(p.current); saveErr != nil {
				err = wrapError(IoFailure, "saving record "+p.current.Name, saveErr)
			}
		}
		p.current = nil
	}

	p.state = Idle
	p.logger.Info().Str("state", p.state.String()).Msg("player: stopped")
	return err
}

// Close is idempotent on Off. From any other state it performs the same
// cleanup as Stop (including the save if Recording) and then shuts down
// the listener, transitioning to Off.
//
// The statelock is released before Shutdown is called: Shutdown waits
// for in-flight handlers to return, and a handler's dispatch body itself
// needs statelock to complete, so holding the lock across Shutdown would
// deadlock against any request that was already in flight.
func (p *Player) Close() error {
	p.statelock.Lock()

	if p.state == Off {
		p.statelock.Unlock()
		return nil
	}

	stopErr := p.stopLocked()
	p.state = Off

	listener := p.listener
	server := p.server
	p.listener = nil
	p.statelock.Unlock()

	if listener != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("player: listener shutdown did not complete cleanly")
		}
	}

	p.logger.Info().Str("state", p.state.String()).Msg("player: closed")
	return stopErr
}
