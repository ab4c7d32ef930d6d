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
	"errors"
	"fmt"
	"net/http"

	"github.com/jointrine/http-mock-player/pkg/cassette"
	"github.com/jointrine/http-mock-player/pkg/mockhttp"
)

// handle is the single entry point for every accepted request. The
// entire dispatch body runs under statelock: the suspension points
// inside it (body reads, the outbound call while recording) are
// intentional, so that the Record cursor and the Player's state always
// advance atomically with the request/response they describe.
func (p *Player) handle(w http.ResponseWriter, r *http.Request) {
	p.statelock.Lock()
	defer p.statelock.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error().Interface("panic", rec).Msg("player: recovered panic in dispatch")
			p.writePlayerError(w, r, p.exceptionKindForState(), fmt.Errorf("panic: %v", rec))
		}
	}()

	switch p.state {
	case Playing:
		if err := p.dispatchPlay(w, r); err != nil {
			p.writePlayerError(w, r, playExceptionKind, err)
		}
	case Recording:
		if err := p.dispatchRecord(w, r); err != nil {
			p.writePlayerError(w, r, recordExceptionKind, err)
		}
	default:
		// Idle, or a request that slipped in around a Close: the Player
		// is not in operation.
		p.writePlayerError(w, r, exceptionKind, errors.New("player is not in operation"))
	}
}

// exceptionKindForState maps a panic recovered mid-dispatch to the same
// state-dependent response code a returned error would have produced.
func (p *Player) exceptionKindForState() responseErrorKind {
	switch p.state {
	case Playing:
		return playExceptionKind
	case Recording:
		return recordExceptionKind
	default:
		return exceptionKind
	}
}

// dispatchPlay implements the Playing branch of the proxy loop: pop the
// next Exchange, compare the live request against the recorded one, and
// either replay the recorded response or report a mismatch.
func (p *Player) dispatchPlay(w http.ResponseWriter, r *http.Request) error {
	liveReq, err := mockhttp.FromHTTPRequest(r, p.upstream)
	if err != nil {
		return fmt.Errorf("reading live request: %w", err)
	}

	exchange, err := p.current.Read()
	if err != nil {
		if errors.Is(err, cassette.ErrEndOfRecord) {
			return fmt.Errorf("record %q: %w", p.current.Name, err)
		}
		return err
	}

	if !exchange.Request.Equal(liveReq) {
		p.logger.Debug().Str("path", r.URL.RequestURI()).Msg("player: replay mismatch")
		return p.writeMismatch(w, r)
	}

	p.logger.Debug().Str("path", r.URL.RequestURI()).Msg("player: replay match")
	return exchange.Response.WriteTo(w)
}

// dispatchRecord implements the Recording branch of the proxy loop:
// forward the live request to the upstream, capture whatever response
// comes back, append the Exchange, and relay the response to the
// original caller.
func (p *Player) dispatchRecord(w http.ResponseWriter, r *http.Request) error {
	liveReq, err := mockhttp.FromHTTPRequest(r, p.upstream)
	if err != nil {
		return fmt.Errorf("reading live request: %w", err)
	}

	outboundReq, err := liveReq.ToHTTPRequest()
	if err != nil {
		return fmt.Errorf("reconstructing outbound request: %w", err)
	}
	outboundReq = outboundReq.WithContext(r.Context())

	// net/http never returns both a non-nil error and a non-nil
	// response, unlike platforms with a WebException-style exception
	// carrying a partial response: there is no fallback response object
	// to recover on error. An error here is always a transport-level
	// failure (dial, DNS, TLS) and aborts the recording; any response
	// object, regardless of status code, is captured as the exchange.
	resp, err := p.client.Do(outboundReq)
	if err != nil {
		return wrapError(IoFailure, "upstream request failed", err)
	}

	mockResp, err := mockhttp.FromHTTPResponse(resp)
	if err != nil {
		return fmt.Errorf("reading upstream response: %w", err)
	}

	p.current.Write(mockhttp.Exchange{Request: *liveReq, Response: *mockResp})
	p.logger.Debug().Str("path", r.URL.RequestURI()).Int("status", mockResp.StatusCode).Msg("player: recorded exchange")

	return mockResp.WriteTo(w)
}

// writeMismatch synthesizes the 454 RequestNotFound response for a
// replay request that did not match the recorded one.
func (p *Player) writeMismatch(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(requestNotFound.statusCode())
	_, err := fmt.Fprintf(w, "Player request mismatch: %s", r.URL.RequestURI())
	return err
}

// writePlayerError synthesizes a Player-error response: a free-form
// diagnostic naming the request path+query and, where applicable, the
// underlying failure.
func (p *Player) writePlayerError(w http.ResponseWriter, r *http.Request, kind responseErrorKind, cause error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(kind.statusCode())
	if cause != nil {
		fmt.Fprintf(w, "%s: %s: %v", kind, r.URL.RequestURI(), cause)
	} else {
		fmt.Fprintf(w, "%s: %s", kind, r.URL.RequestURI())
	}
}

func (k responseErrorKind) String() string {
	switch k {
	case requestNotFound:
		return "RequestNotFound"
	case exceptionKind:
		return "Exception"
	case playExceptionKind:
		return "PlayException"
	case recordExceptionKind:
		return "RecordException"
	default:
		return "Exception"
	}
}
