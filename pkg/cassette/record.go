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

// Package cassette implements the on-disk persistence format and the
// named, cursor-bearing sequences of Exchanges (Records) that make up a
// Cassette.
package cassette

import (
	"errors"

	"github.com/jointrine/http-mock-player/pkg/mockhttp"
)

// ErrEndOfRecord indicates a Read past the last Exchange in a Record.
var ErrEndOfRecord = errors.New("cassette: end of record")

// Record is an ordered sequence of Exchanges addressed by name within a
// Cassette, with a read cursor. It has no awareness of HTTP or JSON: it
// is a cursor over opaque Exchange values.
type Record struct {
	Name      string
	Exchanges []mockhttp.Exchange
	index     int
}

// NewRecord creates an empty, freshly-cursored Record with the given
// name, the form used when starting a new recording.
func NewRecord(name string) *Record {
	return &Record{Name: name}
}

// newRecordFromExchanges builds a Record already carrying the given
// Exchanges, as returned by Cassette.Find for replay.
func newRecordFromExchanges(name string, exchanges []mockhttp.Exchange) *Record {
	// Copy so that independent Find calls never share backing storage.
	cp := make([]mockhttp.Exchange, len(exchanges))
	copy(cp, exchanges)
	return &Record{Name: name, Exchanges: cp}
}

// Length returns the number of Exchanges in the Record.
func (r *Record) Length() int {
	return len(r.Exchanges)
}

// Read returns the Exchange at the cursor and advances it. It fails
// with ErrEndOfRecord if the cursor is already at or past the end.
func (r *Record) Read() (mockhttp.Exchange, error) {
	if r.index >= len(r.Exchanges) {
		return mockhttp.Exchange{}, ErrEndOfRecord
	}
	e := r.Exchanges[r.index]
	r.index++
	return e, nil
}

// Write appends an Exchange to the tail of the Record. It is used only
// while recording.
func (r *Record) Write(e mockhttp.Exchange) {
	r.Exchanges = append(r.Exchanges, e)
}

// Rewind resets the read cursor to the start of the Record.
func (r *Record) Rewind() {
	r.index = 0
}
