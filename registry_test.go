/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recoveryregistry_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/suparena/recoveryregistry"
	"github.com/suparena/recoveryregistry/datastore"
	"github.com/suparena/recoveryregistry/datastore/ddb"
	"github.com/suparena/recoveryregistry/datastore/ddb/ddbtest"
	"github.com/suparena/recoveryregistry/datastore/mock"
	"github.com/suparena/recoveryregistry/datastore/sqlite"
	"github.com/suparena/recoveryregistry/errors"
	"github.com/suparena/recoveryregistry/keyspace"
	"github.com/suparena/recoveryregistry/storagemodels"
)

func testKey(t *testing.T, seed byte) storagemodels.PublicKey {
	t.Helper()
	priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	key, err := storagemodels.NewPublicKey(storagemodels.AlgorithmEd25519, priv.Public().(ed25519.PublicKey))
	require.NoError(t, err)
	return key
}

func testAccount(seed byte) storagemodels.AccountHash {
	var a storagemodels.AccountHash
	for i := range a {
		a[i] = seed
	}
	return a
}

func keyStrings(keys []storagemodels.PublicKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

type backend struct {
	name string
	open func(t *testing.T) datastore.Store
}

var backends = []backend{
	{"mock", func(t *testing.T) datastore.Store { return mock.New() }},
	{"sqlite", func(t *testing.T) datastore.Store {
		store, err := sqlite.Open(filepath.Join(t.TempDir(), "registry.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	}},
	{"ddb", func(t *testing.T) datastore.Store {
		store, err := ddb.NewDynamodbDataStore(ddbtest.NewClient(), "registry-test")
		require.NoError(t, err)
		return store
	}},
}

// forEachBackend runs fn once per store implementation that runs without
// external services. ddb runs on an in-memory table.
func forEachBackend(t *testing.T, fn func(t *testing.T, reg *recoveryregistry.GuardianRegistry)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, recoveryregistry.New(b.open(t)))
		})
	}
}

func TestInitializeAndQuery(t *testing.T) {
	ctx := context.Background()
	forEachBackend(t, func(t *testing.T, reg *recoveryregistry.GuardianRegistry) {
		a := testAccount(1)
		k1, k2, k3, k4 := testKey(t, 1), testKey(t, 2), testKey(t, 3), testKey(t, 4)

		require.NoError(t, reg.Initialize(ctx, a, []storagemodels.PublicKey{k1, k2, k3}, 2))

		got, err := reg.GetGuardians(ctx, a)
		require.NoError(t, err)
		if diff := cmp.Diff(keyStrings([]storagemodels.PublicKey{k1, k2, k3}), keyStrings(got)); diff != "" {
			t.Errorf("GetGuardians mismatch (-want +got):\n%s", diff)
		}

		threshold, err := reg.GetThreshold(ctx, a)
		require.NoError(t, err)
		require.Equal(t, uint32(2), threshold)

		ok, err := reg.IsGuardian(ctx, a, k2)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = reg.IsGuardian(ctx, a, k4)
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = reg.HasGuardians(ctx, a)
		require.NoError(t, err)
		require.True(t, ok)
	})
}

func TestInitializeLocksOut(t *testing.T) {
	ctx := context.Background()
	forEachBackend(t, func(t *testing.T, reg *recoveryregistry.GuardianRegistry) {
		a := testAccount(2)
		k1, k2, k3 := testKey(t, 1), testKey(t, 2), testKey(t, 3)
		require.NoError(t, reg.Initialize(ctx, a, []storagemodels.PublicKey{k1, k2}, 1))

		for _, attempt := range []struct {
			guardians []storagemodels.PublicKey
			threshold uint32
		}{
			{[]storagemodels.PublicKey{k1, k2}, 1},
			{[]storagemodels.PublicKey{k2, k3}, 2},
			{[]storagemodels.PublicKey{k1, k2, k3}, 3},
		} {
			err := reg.Initialize(ctx, a, attempt.guardians, attempt.threshold)
			require.True(t, errors.IsAlreadyInitialized(err), "got %v", err)
			code, _ := errors.CodeOf(err)
			require.Equal(t, errors.CodeAlreadyInitialized, code)
		}

		got, err := reg.GetGuardians(ctx, a)
		require.NoError(t, err)
		require.Equal(t, keyStrings([]storagemodels.PublicKey{k1, k2}), keyStrings(got))

		threshold, err := reg.GetThreshold(ctx, a)
		require.NoError(t, err)
		require.Equal(t, uint32(1), threshold)
	})
}

func TestValidationOrder(t *testing.T) {
	ctx := context.Background()
	forEachBackend(t, func(t *testing.T, reg *recoveryregistry.GuardianRegistry) {
		a := testAccount(3)
		k1, k2 := testKey(t, 1), testKey(t, 2)

		t.Run("too few guardians beats threshold", func(t *testing.T) {
			for _, threshold := range []uint32{0, 1, 2, 100} {
				for _, guardians := range [][]storagemodels.PublicKey{nil, {k1}} {
					err := reg.Initialize(ctx, a, guardians, threshold)
					require.True(t, errors.IsInvalidGuardianSetup(err), "threshold %d: got %v", threshold, err)
				}
			}
		})

		t.Run("threshold beats duplicates", func(t *testing.T) {
			err := reg.Initialize(ctx, a, []storagemodels.PublicKey{k1, k1}, 0)
			require.True(t, errors.IsInvalidThreshold(err), "got %v", err)
		})

		t.Run("validation beats already initialized", func(t *testing.T) {
			require.NoError(t, reg.Initialize(ctx, a, []storagemodels.PublicKey{k1, k2}, 2))

			err := reg.Initialize(ctx, a, []storagemodels.PublicKey{k1, k2}, 3)
			require.True(t, errors.IsInvalidThreshold(err), "got %v", err)

			err = reg.Initialize(ctx, a, []storagemodels.PublicKey{k2, k2}, 1)
			require.True(t, errors.IsInvalidGuardianSetup(err), "got %v", err)

			err = reg.Initialize(ctx, a, []storagemodels.PublicKey{k1, {}}, 1)
			require.True(t, errors.IsInvalidGuardianSetup(err), "got %v", err)

			err = reg.Initialize(ctx, a, []storagemodels.PublicKey{k1}, 1)
			require.True(t, errors.IsInvalidGuardianSetup(err), "got %v", err)
		})
	})
}

func TestThresholdBounds(t *testing.T) {
	ctx := context.Background()
	forEachBackend(t, func(t *testing.T, reg *recoveryregistry.GuardianRegistry) {
		seed := byte(10)
		for n := 2; n <= 4; n++ {
			guardians := make([]storagemodels.PublicKey, n)
			for i := range guardians {
				guardians[i] = testKey(t, byte(100+i))
			}
			for threshold := 0; threshold <= n+1; threshold++ {
				seed++
				err := reg.Initialize(ctx, testAccount(seed), guardians, uint32(threshold))
				if threshold >= 1 && threshold <= n {
					require.NoError(t, err, "n=%d threshold=%d", n, threshold)
					continue
				}
				require.True(t, errors.IsInvalidThreshold(err), "n=%d threshold=%d: got %v", n, threshold, err)
			}
		}
	})
}

func TestDuplicateGuardians(t *testing.T) {
	ctx := context.Background()
	forEachBackend(t, func(t *testing.T, reg *recoveryregistry.GuardianRegistry) {
		a := testAccount(4)
		k1, k2 := testKey(t, 1), testKey(t, 2)

		err := reg.Initialize(ctx, a, []storagemodels.PublicKey{k1, k2, k1}, 2)
		require.True(t, errors.IsInvalidGuardianSetup(err), "got %v", err)
		require.Contains(t, err.Error(), "index 2")

		ok, err := reg.HasGuardians(ctx, a)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestInvalidGuardianKeys(t *testing.T) {
	ctx := context.Background()
	forEachBackend(t, func(t *testing.T, reg *recoveryregistry.GuardianRegistry) {
		k1, k2 := testKey(t, 1), testKey(t, 2)
		var unset storagemodels.PublicKey

		tests := []struct {
			name      string
			guardians []storagemodels.PublicKey
			threshold uint32
			invalid   func(error) bool
			detail    string
		}{
			{"unset first", []storagemodels.PublicKey{unset, k1}, 1, errors.IsInvalidGuardianSetup, "index 0"},
			{"unset last", []storagemodels.PublicKey{k1, k2, unset}, 2, errors.IsInvalidGuardianSetup, "index 2"},
			{"unset twice", []storagemodels.PublicKey{unset, unset}, 1, errors.IsInvalidGuardianSetup, "index 0"},
			{"unset before duplicate", []storagemodels.PublicKey{k1, unset, k1}, 1, errors.IsInvalidGuardianSetup, "index 1"},
			{"threshold checked first", []storagemodels.PublicKey{unset, k1}, 3, errors.IsInvalidThreshold, ""},
		}

		for i, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				a := testAccount(byte(100 + i))
				err := reg.Initialize(ctx, a, tt.guardians, tt.threshold)
				require.True(t, tt.invalid(err), "got %v", err)
				if tt.detail != "" {
					require.Contains(t, err.Error(), tt.detail)
				}

				ok, err := reg.HasGuardians(ctx, a)
				require.NoError(t, err)
				require.False(t, ok)
				_, err = reg.GetGuardians(ctx, a)
				require.True(t, errors.IsAccountNotFound(err), "got %v", err)

				// the account stays available for a valid setup
				require.NoError(t, reg.Initialize(ctx, a, []storagemodels.PublicKey{k1, k2}, 2))
				got, err := reg.GetGuardians(ctx, a)
				require.NoError(t, err)
				require.Equal(t, keyStrings([]storagemodels.PublicKey{k1, k2}), keyStrings(got))
				ok, err = reg.IsGuardian(ctx, a, k2)
				require.NoError(t, err)
				require.True(t, ok)
			})
		}
	})
}

func TestQueriesBeforeInitialize(t *testing.T) {
	ctx := context.Background()
	forEachBackend(t, func(t *testing.T, reg *recoveryregistry.GuardianRegistry) {
		a := testAccount(5)

		ok, err := reg.HasGuardians(ctx, a)
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = reg.IsGuardian(ctx, a, testKey(t, 1))
		require.NoError(t, err)
		require.False(t, ok)

		_, err = reg.GetGuardians(ctx, a)
		require.True(t, errors.IsAccountNotFound(err), "got %v", err)

		_, err = reg.GetThreshold(ctx, a)
		require.True(t, errors.IsAccountNotFound(err), "got %v", err)
	})
}

func TestAccountsAreIsolated(t *testing.T) {
	ctx := context.Background()
	forEachBackend(t, func(t *testing.T, reg *recoveryregistry.GuardianRegistry) {
		a, b := testAccount(6), testAccount(7)
		k1, k2, k3 := testKey(t, 1), testKey(t, 2), testKey(t, 3)

		require.NoError(t, reg.Initialize(ctx, a, []storagemodels.PublicKey{k1, k2}, 2))

		ok, err := reg.HasGuardians(ctx, b)
		require.NoError(t, err)
		require.False(t, ok)
		ok, err = reg.IsGuardian(ctx, b, k1)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, reg.Initialize(ctx, b, []storagemodels.PublicKey{k3, k2, k1}, 1))

		got, err := reg.GetGuardians(ctx, a)
		require.NoError(t, err)
		require.Equal(t, keyStrings([]storagemodels.PublicKey{k1, k2}), keyStrings(got))
		threshold, err := reg.GetThreshold(ctx, a)
		require.NoError(t, err)
		require.Equal(t, uint32(2), threshold)

		ok, err = reg.IsGuardian(ctx, a, k3)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestInitializeIsAtomic(t *testing.T) {
	ctx := context.Background()
	a := testAccount(8)
	guardians := []storagemodels.PublicKey{testKey(t, 1), testKey(t, 2)}

	// Initialize issues three writes: guardians, threshold, flag.
	for failAt := 1; failAt <= 3; failAt++ {
		writeErr := stderrors.New("write failed")
		store := mock.New().WithWriteError(failAt, writeErr)
		reg := recoveryregistry.New(store)

		err := reg.Initialize(ctx, a, guardians, 2)
		require.ErrorIs(t, err, writeErr, "failAt=%d", failAt)
		require.Zero(t, store.Count(), "failAt=%d left named keys behind", failAt)

		ok, err := reg.HasGuardians(ctx, a)
		require.NoError(t, err)
		require.False(t, ok)
		_, err = reg.GetGuardians(ctx, a)
		require.True(t, errors.IsAccountNotFound(err))
	}

	commitErr := errors.NewConditionFailedError("commit", "simulated")
	store := mock.New().WithCommitError(commitErr)
	reg := recoveryregistry.New(store)
	require.ErrorIs(t, reg.Initialize(ctx, a, guardians, 1), commitErr)
	require.Zero(t, store.Count())
}

func TestEmptySlotsCountAsAbsent(t *testing.T) {
	ctx := context.Background()
	a := testAccount(9)
	store := mock.New()

	// slots registered by a host but never written
	refs := make(map[keyspace.SlotName]datastore.SlotRef)
	for _, name := range keyspace.Record(a) {
		refs[name] = store.SetSlot(name, nil)
	}
	reg := recoveryregistry.New(store)

	ok, err := reg.HasGuardians(ctx, a)
	require.NoError(t, err)
	require.False(t, ok)
	_, err = reg.GetThreshold(ctx, a)
	require.True(t, errors.IsAccountNotFound(err))

	k1, k2 := testKey(t, 1), testKey(t, 2)
	require.NoError(t, reg.Initialize(ctx, a, []storagemodels.PublicKey{k1, k2}, 2))

	keys, err := store.NamedKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 3)
	for _, nk := range keys {
		require.Equal(t, refs[nk.Name], nk.Ref, "existing slot for %s must be reused", nk.Name)
	}
}

func TestCorruptFlagIsAFault(t *testing.T) {
	ctx := context.Background()
	a := testAccount(10)
	store := mock.New()
	store.SetSlot(keyspace.Locate(keyspace.FieldInitialized, a), []byte{0xff, 0x00})
	reg := recoveryregistry.New(store)

	_, err := reg.HasGuardians(ctx, a)
	require.True(t, errors.IsCorruptSlot(err), "got %v", err)

	err = reg.Initialize(ctx, a, []storagemodels.PublicKey{testKey(t, 1), testKey(t, 2)}, 1)
	require.True(t, errors.IsCorruptSlot(err), "got %v", err)
}

func TestCall(t *testing.T) {
	store := mock.New()
	reg := recoveryregistry.New(store)
	require.NoError(t, reg.Call(context.Background()))
	require.Zero(t, store.Commits())
}
