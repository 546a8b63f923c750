/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recoveryregistry

import (
	"context"
	"fmt"

	"github.com/suparena/recoveryregistry/datastore"
	"github.com/suparena/recoveryregistry/keyspace"
)

// resolveOrCreate returns the slot registered under name, allocating and
// registering an empty slot on first use. Within one transaction repeated
// calls return the same slot.
func resolveOrCreate(ctx context.Context, tx datastore.Tx, name keyspace.SlotName) (datastore.SlotRef, error) {
	ref, ok, err := tx.GetKey(ctx, name)
	if err != nil {
		return "", fmt.Errorf("get key %s: %w", name, err)
	}
	if ok {
		return ref, nil
	}
	ref, err = tx.NewSlot(ctx)
	if err != nil {
		return "", fmt.Errorf("new slot for %s: %w", name, err)
	}
	if err := tx.PutKey(ctx, name, ref); err != nil {
		return "", fmt.Errorf("put key %s: %w", name, err)
	}
	return ref, nil
}

// readSlot returns the bytes stored under name. ok is false when the name is
// not registered or its slot is missing. It never creates anything.
func readSlot(ctx context.Context, r datastore.Reader, name keyspace.SlotName) ([]byte, bool, error) {
	ref, ok, err := r.GetKey(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("get key %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}
	value, ok, err := r.Read(ctx, ref)
	if err != nil {
		return nil, false, fmt.Errorf("read slot %s: %w", name, err)
	}
	return value, ok, nil
}
