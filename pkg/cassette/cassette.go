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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jointrine/http-mock-player/pkg/mockhttp"
)

// Cassette is a file path plus an ordered collection of named Records.
// Record names are unique; the on-disk representation is a single JSON
// object keyed by record name whose values are arrays of Exchange
// objects.
type Cassette struct {
	mu   sync.Mutex
	path string
	data map[string][]mockhttp.Exchange
	// order lists the records read from the file in name order, then
	// those first added by Save in the order they were saved, so that
	// repeated loads of a cassette produce a stable Names() listing.
	order []string
}

// New points a Cassette at path. If the file exists it is read eagerly
// and its Records are cached; if it does not exist the in-memory
// collection starts empty and the file is created on first Save.
func New(path string) (*Cassette, error) {
	c := &Cassette{
		path: path,
		data: make(map[string][]mockhttp.Exchange),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("cassette: reading %s: %w", path, err)
	}

	if len(raw) == 0 {
		return c, nil
	}

	if err := json.Unmarshal(raw, &c.data); err != nil {
		return nil, fmt.Errorf("cassette: parsing %s: %w", path, err)
	}
	for name := range c.data {
		c.order = append(c.order, name)
	}
	sort.Strings(c.order)

	return c, nil
}

// Contains reports whether the Cassette has a Record with the given
// name.
func (c *Cassette) Contains(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[name]
	return ok
}

// Find returns a Record initialized with the named entry's Exchanges
// and cursor 0, or nil if no such Record exists. Each call returns an
// independent Record instance, so replaying twice from the same
// Cassette never shares a cursor.
func (c *Cassette) Find(name string) *Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	exchanges, ok := c.data[name]
	if !ok {
		return nil
	}
	return newRecordFromExchanges(name, exchanges)
}

// Save upserts record by name into the Cassette and atomically
// rewrites the backing file: the new content is written to a temporary
// sibling file and then renamed into place, so a crash mid-write never
// leaves a truncated cassette on disk.
func (c *Cassette) Save(record *Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.data[record.Name]; !ok {
		c.order = append(c.order, record.Name)
	}
	exchanges := record.Exchanges
	if exchanges == nil {
		// An empty record is still written as an array, not null.
		exchanges = []mockhttp.Exchange{}
	}
	c.data[record.Name] = exchanges

	payload, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("cassette: encoding %s: %w", c.path, err)
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cassette: creating directory for %s: %w", c.path, err)
		}
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(c.path), uuid.NewString()))
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("cassette: writing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cassette: renaming %s to %s: %w", tmp, c.path, err)
	}

	return nil
}

// Names returns the names of every Record currently held by the
// Cassette: those read from the file in name order, followed by those
// first added by Save, in the order they were saved.
func (c *Cassette) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Path returns the file path backing the Cassette.
func (c *Cassette) Path() string {
	return c.path
}
