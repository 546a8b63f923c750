/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suparena/recoveryregistry/storagemodels"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func invoke(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"-env", ""}, args...), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("RECOVERY_BACKEND", "sqlite")
	t.Setenv("RECOVERY_SQLITE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("RECOVERY_LOG_LEVEL", "warn")
}

func key(t *testing.T, b byte) string {
	t.Helper()
	k, err := storagemodels.NewPublicKey(storagemodels.AlgorithmSecp256k1, append([]byte{0x02}, bytes.Repeat([]byte{b}, 32)...))
	require.NoError(t, err)
	return k.String()
}

func TestVersion(t *testing.T) {
	r := invoke(t, "-version")
	require.Equal(t, exitOK, r.code)
	require.Contains(t, r.stdout, "guardianctl version")
}

func TestUsage(t *testing.T) {
	useSQLite(t)
	r := invoke(t)
	require.Equal(t, exitUsage, r.code)
	require.Contains(t, r.stderr, "initialize_guardians")
}

func TestRecordPersistsAcrossRuns(t *testing.T) {
	useSQLite(t)
	account := strings.Repeat("ab", storagemodels.AccountHashLength)
	k1, k2 := key(t, 1), key(t, 2)

	r := invoke(t, "initialize_guardians",
		fmt.Sprintf(`{"account_hash":%q,"guardians":[%q,%q],"threshold":2}`, account, k1, k2))
	require.Equal(t, exitOK, r.code, r.stderr)

	r = invoke(t, "get_threshold", fmt.Sprintf(`{"account_hash":%q}`, account))
	require.Equal(t, exitOK, r.code, r.stderr)
	require.JSONEq(t, `{"result":2}`, r.stdout)

	r = invoke(t, "is_guardian", fmt.Sprintf(`{"account_hash":%q,"public_key":%q}`, account, k2))
	require.Equal(t, exitOK, r.code, r.stderr)
	require.JSONEq(t, `{"result":true}`, r.stdout)

	r = invoke(t, "slots")
	require.Equal(t, exitOK, r.code, r.stderr)
	require.Len(t, strings.Split(strings.TrimSpace(r.stdout), "\n"), 3)
	require.Contains(t, r.stdout, k1)
}

func TestFaultExitCodes(t *testing.T) {
	useSQLite(t)
	account := strings.Repeat("cd", storagemodels.AccountHashLength)

	r := invoke(t, "get_guardians", fmt.Sprintf(`{"account_hash":%q}`, account))
	require.Equal(t, exitFault, r.code)
	require.True(t, strings.HasPrefix(r.stderr, "AccountNotFound (4): "), r.stderr)

	r = invoke(t, "initialize_guardians",
		fmt.Sprintf(`{"account_hash":%q,"guardians":[%q,%q],"threshold":3}`, account, key(t, 1), key(t, 2)))
	require.Equal(t, exitFault, r.code)
	require.True(t, strings.HasPrefix(r.stderr, "InvalidThreshold (2): "), r.stderr)

	r = invoke(t, "get_guardians", `{"account_hash":"nope"}`)
	require.Equal(t, exitUsage, r.code)

	r = invoke(t, "rotate_guardians", `{}`)
	require.Equal(t, exitUsage, r.code)
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("RECOVERY_BACKEND", "redis")
	r := invoke(t, "call")
	require.Equal(t, exitUsage, r.code)
	require.Contains(t, r.stderr, "unknown backend")
}
