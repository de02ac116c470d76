/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

// Package apps parses the private data of installed applications into chat
// message records and turns the resulting per-app CSV files into timeline
// events.
//
// Every supported application is a Module in a Registry. A Module pairs an
// ArtifactParser, which reads the app's data directory, with a Details
// function, which condenses one row of the app's CSV into the details column
// of an AppActivity event.
package apps

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ArtifactParser reads one application's data directory.
type ArtifactParser interface {
	Parse(ctx context.Context, dataRoot string) (*Result, error)
}

// Result is the outcome of a successful parse. Parsers of messaging apps fill
// Records. The generic parser fills Findings, which then replace the records
// file of the app.
type Result struct {
	Records  []ChatMessageRecord
	Findings []Finding
	Report   ParseReport
}

// Count returns the number of rows the result writes.
func (r *Result) Count() int {
	if r.Findings != nil {
		return len(r.Findings)
	}
	return len(r.Records)
}

// DetailsFunc builds the details string of an AppActivity event from a
// header-keyed CSV row.
type DetailsFunc func(row map[string]string) string

// Module describes a supported application.
type Module struct {
	ID      string
	Name    string
	Parser  ArtifactParser
	Details DetailsFunc
}

// Registry maps application ids to modules.
type Registry struct {
	mu       sync.RWMutex
	modules  map[string]Module
	fallback ArtifactParser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: map[string]Module{}}
}

// DefaultRegistry holds all modules of this package.
var DefaultRegistry = NewRegistry()

// Register adds a module. Registering an id twice is an error.
func (r *Registry) Register(m Module) error {
	if m.ID == "" {
		return errors.New("module needs an id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[m.ID]; ok {
		return errors.Errorf("module %s already registered", m.ID)
	}
	r.modules[m.ID] = m
	return nil
}

// Lookup returns the module registered for id.
func (r *Registry) Lookup(id string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[id]
	return m, ok
}

// SetFallback sets the parser used for apps without a module.
func (r *Registry) SetFallback(p ArtifactParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = p
}

// Resolve returns the module registered for id or, if a fallback parser is
// set, a generic module for id.
func (r *Registry) Resolve(id string) (Module, bool) {
	if m, ok := r.Lookup(id); ok {
		return m, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.fallback == nil {
		return Module{}, false
	}
	return Module{ID: id, Name: GenericName, Parser: r.fallback, Details: GenericDetails}, true
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.modules))
	for id := range r.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func mustRegister(m Module) {
	if err := DefaultRegistry.Register(m); err != nil {
		panic(err)
	}
}
