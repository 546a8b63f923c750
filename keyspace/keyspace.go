/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package keyspace

import (
	"fmt"
	"strings"

	"github.com/suparena/recoveryregistry/storagemodels"
)

// Field names one of the three slots that make up a guardian record.
type Field uint8

const (
	FieldGuardians Field = iota + 1
	FieldThreshold
	FieldInitialized
)

// Slot name prefixes. None is a prefix of another.
const (
	GuardiansPrefix   = "guardians_"
	ThresholdPrefix   = "threshold_"
	InitializedPrefix = "initialized_"
)

var prefixes = map[Field]string{
	FieldGuardians:   GuardiansPrefix,
	FieldThreshold:   ThresholdPrefix,
	FieldInitialized: InitializedPrefix,
}

// Fields lists every record field in write order.
var Fields = []Field{FieldGuardians, FieldThreshold, FieldInitialized}

func (f Field) String() string {
	switch f {
	case FieldGuardians:
		return "guardians"
	case FieldThreshold:
		return "threshold"
	case FieldInitialized:
		return "initialized"
	default:
		return fmt.Sprintf("Field(%d)", uint8(f))
	}
}

// Prefix returns the slot name prefix of the field.
func (f Field) Prefix() string {
	return prefixes[f]
}

// SlotName is the storage location name of one field of one account.
type SlotName string

// Locate returns the slot name of field for account. It is injective: the
// account part is fixed-width hex and the prefixes are prefix-free.
// Locate panics on a Field outside the declared set.
func Locate(field Field, account storagemodels.AccountHash) SlotName {
	prefix, ok := prefixes[field]
	if !ok {
		panic(fmt.Sprintf("keyspace: unknown field %d", uint8(field)))
	}
	return SlotName(prefix + account.String())
}

// Record returns the slot names of every field of account, in Fields order.
func Record(account storagemodels.AccountHash) []SlotName {
	names := make([]SlotName, 0, len(Fields))
	for _, f := range Fields {
		names = append(names, Locate(f, account))
	}
	return names
}

// Parse is the inverse of Locate.
func Parse(name SlotName) (Field, storagemodels.AccountHash, error) {
	s := string(name)
	for _, f := range Fields {
		rest, ok := strings.CutPrefix(s, prefixes[f])
		if !ok {
			continue
		}
		account, err := storagemodels.ParseAccountHash(rest)
		if err != nil {
			return 0, storagemodels.AccountHash{}, fmt.Errorf("slot name %q: %w", s, err)
		}
		// Reject the formatted account form so that Parse stays the exact inverse.
		if account.String() != rest {
			return 0, storagemodels.AccountHash{}, fmt.Errorf("slot name %q: account part is not canonical", s)
		}
		return f, account, nil
	}
	return 0, storagemodels.AccountHash{}, fmt.Errorf("slot name %q has no known prefix", s)
}
