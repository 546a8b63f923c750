/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Store for testing
package mock

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/suparena/recoveryregistry/datastore"
	"github.com/suparena/recoveryregistry/errors"
	"github.com/suparena/recoveryregistry/keyspace"
)

// DataStore is an in-memory datastore.Store. Transactions are serialized and
// buffered; a transaction's writes are applied only when it succeeds.
type DataStore struct {
	mu    sync.RWMutex
	keys  map[keyspace.SlotName]datastore.SlotRef
	slots map[datastore.SlotRef][]byte

	newRef      func() datastore.SlotRef
	commitError error
	failWriteAt int
	writeError  error
	commits     int
}

// New creates a new mock DataStore
func New() *DataStore {
	return &DataStore{
		keys:   make(map[keyspace.SlotName]datastore.SlotRef),
		slots:  make(map[datastore.SlotRef][]byte),
		newRef: datastore.NewSlotRef,
	}
}

// WithRefFunc sets a custom slot reference allocator
func (m *DataStore) WithRefFunc(f func() datastore.SlotRef) *DataStore {
	m.newRef = f
	return m
}

// WithCommitError makes every Update fail at commit time with err
func (m *DataStore) WithCommitError(err error) *DataStore {
	m.commitError = err
	return m
}

// WithWriteError makes the n-th Write (1-based) of each transaction return err
func (m *DataStore) WithWriteError(n int, err error) *DataStore {
	m.failWriteAt = n
	m.writeError = err
	return m
}

// Update implements datastore.Store.
func (m *DataStore) Update(ctx context.Context, fn func(tx datastore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &txn{
		store: m,
		keys:  make(map[keyspace.SlotName]datastore.SlotRef),
		slots: make(map[datastore.SlotRef][]byte),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if m.commitError != nil {
		return m.commitError
	}
	for name, ref := range tx.keys {
		m.keys[name] = ref
	}
	for ref, value := range tx.slots {
		m.slots[ref] = value
	}
	m.commits++
	return nil
}

// View implements datastore.Store.
func (m *DataStore) View(ctx context.Context, fn func(r datastore.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&txn{store: m, readOnly: true})
}

// NamedKeys implements datastore.Store.
func (m *DataStore) NamedKeys(ctx context.Context) ([]datastore.NamedKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]datastore.NamedKey, 0, len(m.keys))
	for name, ref := range m.keys {
		out = append(out, datastore.NamedKey{Name: name, Ref: ref})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Helper methods for testing

// SetSlot registers name and stores value under a fresh slot, bypassing transactions
func (m *DataStore) SetSlot(name keyspace.SlotName, value []byte) datastore.SlotRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.keys[name]
	if !ok {
		ref = m.newRef()
		m.keys[name] = ref
	}
	m.slots[ref] = bytes.Clone(value)
	return ref
}

// Slot returns the committed value registered under name
func (m *DataStore) Slot(name keyspace.SlotName) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.keys[name]
	if !ok {
		return nil, false
	}
	v, ok := m.slots[ref]
	return bytes.Clone(v), ok
}

// Count returns the number of committed named keys
func (m *DataStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// Commits returns the number of successful Update calls
func (m *DataStore) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}

// Clear removes all data
func (m *DataStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = make(map[keyspace.SlotName]datastore.SlotRef)
	m.slots = make(map[datastore.SlotRef][]byte)
}

// txn overlays buffered writes on the committed maps. The caller holds the store lock.
type txn struct {
	store    *DataStore
	readOnly bool
	keys     map[keyspace.SlotName]datastore.SlotRef
	slots    map[datastore.SlotRef][]byte
	writes   int
}

func (t *txn) GetKey(ctx context.Context, name keyspace.SlotName) (datastore.SlotRef, bool, error) {
	if ref, ok := t.keys[name]; ok {
		return ref, true, nil
	}
	ref, ok := t.store.keys[name]
	return ref, ok, nil
}

func (t *txn) Read(ctx context.Context, ref datastore.SlotRef) ([]byte, bool, error) {
	if v, ok := t.slots[ref]; ok {
		return bytes.Clone(v), true, nil
	}
	v, ok := t.store.slots[ref]
	return bytes.Clone(v), ok, nil
}

func (t *txn) NewSlot(ctx context.Context) (datastore.SlotRef, error) {
	if t.readOnly {
		return "", errors.NewValidationError("tx", "read-only transaction")
	}
	ref := t.store.newRef()
	t.slots[ref] = nil
	return ref, nil
}

func (t *txn) PutKey(ctx context.Context, name keyspace.SlotName, ref datastore.SlotRef) error {
	if t.readOnly {
		return errors.NewValidationError("tx", "read-only transaction")
	}
	t.keys[name] = ref
	return nil
}

func (t *txn) Write(ctx context.Context, ref datastore.SlotRef, value []byte) error {
	if t.readOnly {
		return errors.NewValidationError("tx", "read-only transaction")
	}
	t.writes++
	if t.store.failWriteAt > 0 && t.writes == t.store.failWriteAt {
		return t.store.writeError
	}
	if _, ok := t.slots[ref]; !ok {
		if _, ok := t.store.slots[ref]; !ok {
			return errors.NewNotFoundError("slot", string(ref))
		}
	}
	t.slots[ref] = bytes.Clone(value)
	return nil
}
