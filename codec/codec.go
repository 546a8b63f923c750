/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/suparena/recoveryregistry/errors"
	"github.com/suparena/recoveryregistry/keyspace"
	"github.com/suparena/recoveryregistry/storagemodels"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(fmt.Sprintf("codec: cbor enc mode: %v", err))
	}
	if decMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic(fmt.Sprintf("codec: cbor dec mode: %v", err))
	}
}

// DecodeFunc decodes a slot's bytes. ok is false for an empty slot.
type DecodeFunc func(b []byte) (value any, ok bool, err error)

var decoders = map[keyspace.Field]DecodeFunc{
	keyspace.FieldGuardians: func(b []byte) (any, bool, error) {
		return DecodeGuardians(b)
	},
	keyspace.FieldThreshold: func(b []byte) (any, bool, error) {
		return DecodeThreshold(b)
	},
	keyspace.FieldInitialized: func(b []byte) (any, bool, error) {
		return DecodeFlag(b)
	},
}

// Decode decodes b as a value of field.
func Decode(field keyspace.Field, b []byte) (any, bool, error) {
	fn, ok := decoders[field]
	if !ok {
		return nil, false, fmt.Errorf("codec: no decoder for field %s", field)
	}
	return fn(b)
}

// EncodeGuardians encodes the guardian list as an array of tagged key bytes, preserving order.
func EncodeGuardians(guardians []storagemodels.PublicKey) ([]byte, error) {
	raw := make([][]byte, len(guardians))
	for i, g := range guardians {
		if g.IsZero() {
			return nil, fmt.Errorf("encode guardians: unset key at index %d", i)
		}
		raw[i] = g.Bytes()
	}
	b, err := encMode.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode guardians: %w", err)
	}
	return b, nil
}

// DecodeGuardians is the inverse of EncodeGuardians.
func DecodeGuardians(b []byte) ([]storagemodels.PublicKey, bool, error) {
	if len(b) == 0 {
		return nil, false, nil
	}
	var raw [][]byte
	if err := decMode.Unmarshal(b, &raw); err != nil {
		return nil, false, corrupt(keyspace.FieldGuardians, err)
	}
	guardians := make([]storagemodels.PublicKey, len(raw))
	for i, r := range raw {
		key, err := storagemodels.PublicKeyFromBytes(r)
		if err != nil {
			return nil, false, corrupt(keyspace.FieldGuardians, err)
		}
		guardians[i] = key
	}
	return guardians, true, nil
}

// EncodeThreshold encodes the threshold as a CBOR unsigned integer.
func EncodeThreshold(threshold uint32) ([]byte, error) {
	b, err := encMode.Marshal(threshold)
	if err != nil {
		return nil, fmt.Errorf("encode threshold: %w", err)
	}
	return b, nil
}

// DecodeThreshold is the inverse of EncodeThreshold.
func DecodeThreshold(b []byte) (uint32, bool, error) {
	if len(b) == 0 {
		return 0, false, nil
	}
	var threshold uint32
	if err := decMode.Unmarshal(b, &threshold); err != nil {
		return 0, false, corrupt(keyspace.FieldThreshold, err)
	}
	return threshold, true, nil
}

// EncodeFlag encodes the initialized flag.
func EncodeFlag(v bool) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode flag: %w", err)
	}
	return b, nil
}

// DecodeFlag is the inverse of EncodeFlag.
func DecodeFlag(b []byte) (bool, bool, error) {
	if len(b) == 0 {
		return false, false, nil
	}
	var v bool
	if err := decMode.Unmarshal(b, &v); err != nil {
		return false, false, corrupt(keyspace.FieldInitialized, err)
	}
	return v, true, nil
}

func corrupt(field keyspace.Field, cause error) error {
	return fmt.Errorf("%w: %s: %v", errors.ErrCorruptSlot, field, cause)
}
