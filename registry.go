/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recoveryregistry

import (
	"context"
	"fmt"

	"github.com/suparena/recoveryregistry/codec"
	"github.com/suparena/recoveryregistry/datastore"
	"github.com/suparena/recoveryregistry/errors"
	"github.com/suparena/recoveryregistry/keyspace"
	"github.com/suparena/recoveryregistry/storagemodels"
)

// MinGuardians is the smallest guardian set an account may register.
const MinGuardians = 2

// GuardianRegistry records, per account, a guardian set and an approval threshold.
// A record is written once and never changed afterwards.
type GuardianRegistry struct {
	store datastore.Store
}

// New returns a registry backed by store.
func New(store datastore.Store) *GuardianRegistry {
	return &GuardianRegistry{store: store}
}

// Initialize validates and commits the guardian record of account.
//
// Checks run in this order and the first failure is returned:
//   - fewer than MinGuardians guardians: InvalidGuardianSetup
//   - threshold of zero or above the guardian count: InvalidThreshold
//   - an unset guardian key or a guardian listed twice: InvalidGuardianSetup
//   - account already initialized: AlreadyInitialized
//
// The guardians, threshold and initialized flag are written in one transaction.
func (r *GuardianRegistry) Initialize(ctx context.Context, account storagemodels.AccountHash, guardians []storagemodels.PublicKey, threshold uint32) error {
	if len(guardians) < MinGuardians {
		return errors.NewGuardianError(errors.CodeInvalidGuardianSetup, account.String(),
			fmt.Sprintf("need at least %d guardians, got %d", MinGuardians, len(guardians)))
	}
	if threshold == 0 || uint64(threshold) > uint64(len(guardians)) {
		return errors.NewGuardianError(errors.CodeInvalidThreshold, account.String(),
			fmt.Sprintf("threshold %d outside [1, %d]", threshold, len(guardians)))
	}
	for i, g := range guardians {
		if g.IsZero() {
			return errors.NewGuardianError(errors.CodeInvalidGuardianSetup, account.String(),
				fmt.Sprintf("invalid guardian key at index %d", i))
		}
		for _, seen := range guardians[:i] {
			if seen.Equal(g) {
				return errors.NewGuardianError(errors.CodeInvalidGuardianSetup, account.String(),
					fmt.Sprintf("duplicate guardian %s at index %d", g, i))
			}
		}
	}

	guardiansValue, err := codec.EncodeGuardians(guardians)
	if err != nil {
		return err
	}
	thresholdValue, err := codec.EncodeThreshold(threshold)
	if err != nil {
		return err
	}
	flagValue, err := codec.EncodeFlag(true)
	if err != nil {
		return err
	}

	return r.store.Update(ctx, func(tx datastore.Tx) error {
		initRef, err := resolveOrCreate(ctx, tx, keyspace.Locate(keyspace.FieldInitialized, account))
		if err != nil {
			return err
		}
		raw, _, err := tx.Read(ctx, initRef)
		if err != nil {
			return fmt.Errorf("read initialized flag: %w", err)
		}
		initialized, _, err := codec.DecodeFlag(raw)
		if err != nil {
			return err
		}
		if initialized {
			return errors.NewGuardianError(errors.CodeAlreadyInitialized, account.String(), "")
		}

		guardiansRef, err := resolveOrCreate(ctx, tx, keyspace.Locate(keyspace.FieldGuardians, account))
		if err != nil {
			return err
		}
		if err := tx.Write(ctx, guardiansRef, guardiansValue); err != nil {
			return fmt.Errorf("write guardians: %w", err)
		}

		thresholdRef, err := resolveOrCreate(ctx, tx, keyspace.Locate(keyspace.FieldThreshold, account))
		if err != nil {
			return err
		}
		if err := tx.Write(ctx, thresholdRef, thresholdValue); err != nil {
			return fmt.Errorf("write threshold: %w", err)
		}

		if err := tx.Write(ctx, initRef, flagValue); err != nil {
			return fmt.Errorf("write initialized flag: %w", err)
		}
		return nil
	})
}

// GetGuardians returns the guardians of account in registration order.
// It fails with AccountNotFound when the account has no record.
func (r *GuardianRegistry) GetGuardians(ctx context.Context, account storagemodels.AccountHash) ([]storagemodels.PublicKey, error) {
	var guardians []storagemodels.PublicKey
	err := r.store.View(ctx, func(rd datastore.Reader) error {
		raw, _, err := readSlot(ctx, rd, keyspace.Locate(keyspace.FieldGuardians, account))
		if err != nil {
			return err
		}
		list, ok, err := codec.DecodeGuardians(raw)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewGuardianError(errors.CodeAccountNotFound, account.String(), "no guardians stored")
		}
		guardians = list
		return nil
	})
	return guardians, err
}

// GetThreshold returns the approval threshold of account.
// It fails with AccountNotFound when the account has no record.
func (r *GuardianRegistry) GetThreshold(ctx context.Context, account storagemodels.AccountHash) (uint32, error) {
	var threshold uint32
	err := r.store.View(ctx, func(rd datastore.Reader) error {
		raw, _, err := readSlot(ctx, rd, keyspace.Locate(keyspace.FieldThreshold, account))
		if err != nil {
			return err
		}
		v, ok, err := codec.DecodeThreshold(raw)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewGuardianError(errors.CodeAccountNotFound, account.String(), "no threshold stored")
		}
		threshold = v
		return nil
	})
	return threshold, err
}

// The queries below answer pre-flight checks from callers that may not know
// whether the account is set up: a missing record is a negative answer, not
// a fault. GetGuardians and GetThreshold above report it as AccountNotFound.

// IsGuardian reports whether key is one of account's guardians.
func (r *GuardianRegistry) IsGuardian(ctx context.Context, account storagemodels.AccountHash, key storagemodels.PublicKey) (bool, error) {
	var member bool
	err := r.store.View(ctx, func(rd datastore.Reader) error {
		raw, _, err := readSlot(ctx, rd, keyspace.Locate(keyspace.FieldGuardians, account))
		if err != nil {
			return err
		}
		list, ok, err := codec.DecodeGuardians(raw)
		if err != nil || !ok {
			return err
		}
		member = storagemodels.ContainsKey(list, key)
		return nil
	})
	return member, err
}

// HasGuardians reports whether account has a committed guardian record.
func (r *GuardianRegistry) HasGuardians(ctx context.Context, account storagemodels.AccountHash) (bool, error) {
	var initialized bool
	err := r.store.View(ctx, func(rd datastore.Reader) error {
		raw, _, err := readSlot(ctx, rd, keyspace.Locate(keyspace.FieldInitialized, account))
		if err != nil {
			return err
		}
		initialized, _, err = codec.DecodeFlag(raw)
		return err
	})
	return initialized, err
}

// Call is the deployment entry. It has no contract-level state to set up.
func (r *GuardianRegistry) Call(context.Context) error {
	return nil
}
