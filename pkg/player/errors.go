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

import "fmt"

// ErrorKind classifies a control-API failure.
type ErrorKind int

const (
	// InvalidArgument means a required constructor argument was empty or
	// not a valid URL.
	InvalidArgument ErrorKind = iota

	// InvalidState means a control operation was attempted from a
	// disallowed state.
	InvalidState

	// CassetteNotLoaded means Play or Record was called with no
	// Cassette loaded.
	CassetteNotLoaded

	// RecordNotFound means Play(name) was called and the Cassette has
	// no Record with that name.
	RecordNotFound

	// IoFailure means an I/O operation failed: a Cassette write, binding
	// the listener, or the upstream request while recording. Upstream
	// transport failures have no kind of their own; they carry IoFailure.
	IoFailure
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case InvalidState:
		return "InvalidState"
	case CassetteNotLoaded:
		return "CassetteNotLoaded"
	case RecordNotFound:
		return "RecordNotFound"
	case IoFailure:
		return "IoFailure"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by the Player's control API.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("player: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("player: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// responseErrorKind selects the HTTP status code (see statusCode) a
// Player-error response is sent back to the test client with.
type responseErrorKind int

const (
	requestNotFound responseErrorKind = iota
	exceptionKind
	playExceptionKind
	recordExceptionKind
)

func (k responseErrorKind) statusCode() int {
	switch k {
	case requestNotFound:
		return 454
	case exceptionKind:
		return 550
	case playExceptionKind:
		return 551
	case recordExceptionKind:
		return 552
	default:
		return 550
	}
}
