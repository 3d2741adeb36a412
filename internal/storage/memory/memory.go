// Package memory is an in-process storage engine. It backs the "memory"
// engine setting and lets tests inject storage failures.
package memory

import (
	"context"
	"sync"

	"github.com/sakif/snippetbase/internal/storage"
)

var _ storage.Engine = (*Engine)(nil)

// Engine stores values in a map. The Fail* fields, when set, are returned
// from the matching operation instead of touching the map.
type Engine struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes int

	FailGet error
	FailPut error
}

func New() *Engine {
	return &Engine{data: make(map[string][]byte)}
}

func (e *Engine) Get(_ context.Context, key string) ([]byte, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailGet != nil {
		return nil, false, e.FailGet
	}
	v, ok := e.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (e *Engine) Put(_ context.Context, key string, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailPut != nil {
		return e.FailPut
	}
	e.data[key] = append([]byte(nil), value...)
	e.writes++
	return nil
}

func (e *Engine) SchemaVersion(context.Context) (int, error) { return 1, nil }

func (e *Engine) Close() error { return nil }

// Writes returns how many successful Puts the engine has seen.
func (e *Engine) Writes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes
}

// Raw returns the stored bytes for key without going through a Store.
func (e *Engine) Raw(key string) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.data[key]
	return v, ok
}
