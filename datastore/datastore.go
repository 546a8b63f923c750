/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/google/uuid"
	"github.com/suparena/recoveryregistry/keyspace"
)

// SlotRef is an opaque handle to one storage slot.
type SlotRef string

// NewSlotRef allocates a fresh slot reference.
func NewSlotRef() SlotRef {
	return SlotRef("uref-" + uuid.NewString())
}

// NamedKey is a name to slot mapping.
type NamedKey struct {
	Name keyspace.SlotName
	Ref  SlotRef
}

// Reader is the read side of a transaction.
type Reader interface {
	// GetKey returns the slot registered under name.
	GetKey(ctx context.Context, name keyspace.SlotName) (SlotRef, bool, error)

	// Read returns the bytes held by ref. ok is false when the slot does not
	// exist; an existing slot that was never written returns empty bytes.
	Read(ctx context.Context, ref SlotRef) (value []byte, ok bool, err error)
}

// Tx is a read-write transaction.
type Tx interface {
	Reader

	// NewSlot allocates a slot holding an empty value.
	NewSlot(ctx context.Context) (SlotRef, error)

	// PutKey registers name -> ref.
	PutKey(ctx context.Context, name keyspace.SlotName, ref SlotRef) error

	// Write replaces the bytes held by ref.
	Write(ctx context.Context, ref SlotRef, value []byte) error
}

// Store is a key/value store with all-or-nothing commit per call.
type Store interface {
	// Update runs fn in a read-write transaction. Writes become visible only
	// if fn returns nil and the commit succeeds; otherwise nothing is kept.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(r Reader) error) error

	// NamedKeys lists every registered name, for inspection tooling.
	NamedKeys(ctx context.Context) ([]NamedKey, error)
}
