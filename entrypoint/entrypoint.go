/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entrypoint

import (
	"context"
	"fmt"
	"strconv"

	"github.com/suparena/recoveryregistry/errors"
	"github.com/suparena/recoveryregistry/storagemodels"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Entry point names.
const (
	InitializeGuardians = "initialize_guardians"
	GetGuardians        = "get_guardians"
	GetThreshold        = "get_threshold"
	IsGuardian          = "is_guardian"
	HasGuardians        = "has_guardians"
	Call                = "call"
)

// Named argument keys.
const (
	ArgAccountHash = "account_hash"
	ArgGuardians   = "guardians"
	ArgThreshold   = "threshold"
	ArgPublicKey   = "public_key"
)

// Registry is the set of operations the entry points dispatch to.
type Registry interface {
	Initialize(ctx context.Context, account storagemodels.AccountHash, guardians []storagemodels.PublicKey, threshold uint32) error
	GetGuardians(ctx context.Context, account storagemodels.AccountHash) ([]storagemodels.PublicKey, error)
	GetThreshold(ctx context.Context, account storagemodels.AccountHash) (uint32, error)
	IsGuardian(ctx context.Context, account storagemodels.AccountHash, key storagemodels.PublicKey) (bool, error)
	HasGuardians(ctx context.Context, account storagemodels.AccountHash) (bool, error)
	Call(ctx context.Context) error
}

type handler func(ctx context.Context, reg Registry, args gjson.Result) ([]byte, error)

var handlers = map[string]handler{
	InitializeGuardians: initializeGuardians,
	GetGuardians:        getGuardians,
	GetThreshold:        getThreshold,
	IsGuardian:          isGuardian,
	HasGuardians:        hasGuardians,
	Call:                call,
}

// EntryPoints lists the names accepted by Dispatcher.Invoke.
func EntryPoints() []string {
	return []string{InitializeGuardians, GetGuardians, GetThreshold, IsGuardian, HasGuardians, Call}
}

// Dispatcher decodes named arguments, runs the entry point and encodes its result.
type Dispatcher struct {
	reg Registry
}

// NewDispatcher returns a Dispatcher for reg.
func NewDispatcher(reg Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// Invoke runs entryPoint with args, a JSON object of named arguments. The
// result is a JSON object: {"result": value}, or {} for entry points that
// return nothing.
func (d *Dispatcher) Invoke(ctx context.Context, entryPoint string, args []byte) ([]byte, error) {
	h, ok := handlers[entryPoint]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEntryPoint, entryPoint)
	}
	if len(args) == 0 {
		args = []byte("{}")
	}
	if !gjson.ValidBytes(args) {
		return nil, errors.NewArgumentError("", "arguments are not valid JSON")
	}
	parsed := gjson.ParseBytes(args)
	if !parsed.IsObject() {
		return nil, errors.NewArgumentError("", "arguments must be a JSON object")
	}
	return h(ctx, d.reg, parsed)
}

func initializeGuardians(ctx context.Context, reg Registry, args gjson.Result) ([]byte, error) {
	account, err := accountArg(args)
	if err != nil {
		return nil, err
	}
	guardians, err := guardiansArg(args)
	if err != nil {
		return nil, err
	}
	threshold, err := thresholdArg(args)
	if err != nil {
		return nil, err
	}
	if err := reg.Initialize(ctx, account, guardians, threshold); err != nil {
		return nil, err
	}
	return empty(), nil
}

func getGuardians(ctx context.Context, reg Registry, args gjson.Result) ([]byte, error) {
	account, err := accountArg(args)
	if err != nil {
		return nil, err
	}
	guardians, err := reg.GetGuardians(ctx, account)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(guardians))
	for i, g := range guardians {
		keys[i] = g.String()
	}
	return result(keys)
}

func getThreshold(ctx context.Context, reg Registry, args gjson.Result) ([]byte, error) {
	account, err := accountArg(args)
	if err != nil {
		return nil, err
	}
	threshold, err := reg.GetThreshold(ctx, account)
	if err != nil {
		return nil, err
	}
	return result(threshold)
}

func isGuardian(ctx context.Context, reg Registry, args gjson.Result) ([]byte, error) {
	account, err := accountArg(args)
	if err != nil {
		return nil, err
	}
	key, err := publicKeyArg(args, ArgPublicKey)
	if err != nil {
		return nil, err
	}
	ok, err := reg.IsGuardian(ctx, account, key)
	if err != nil {
		return nil, err
	}
	return result(ok)
}

func hasGuardians(ctx context.Context, reg Registry, args gjson.Result) ([]byte, error) {
	account, err := accountArg(args)
	if err != nil {
		return nil, err
	}
	ok, err := reg.HasGuardians(ctx, account)
	if err != nil {
		return nil, err
	}
	return result(ok)
}

func call(ctx context.Context, reg Registry, _ gjson.Result) ([]byte, error) {
	if err := reg.Call(ctx); err != nil {
		return nil, err
	}
	return empty(), nil
}

func accountArg(args gjson.Result) (storagemodels.AccountHash, error) {
	v := args.Get(ArgAccountHash)
	if !v.Exists() {
		return storagemodels.AccountHash{}, errors.NewArgumentError(ArgAccountHash, "missing")
	}
	if v.Type != gjson.String {
		return storagemodels.AccountHash{}, errors.NewArgumentError(ArgAccountHash, "must be a string")
	}
	account, err := storagemodels.ParseAccountHash(v.Str)
	if err != nil {
		return storagemodels.AccountHash{}, errors.NewArgumentError(ArgAccountHash, err.Error())
	}
	return account, nil
}

func publicKeyArg(args gjson.Result, name string) (storagemodels.PublicKey, error) {
	v := args.Get(name)
	if !v.Exists() {
		return storagemodels.PublicKey{}, errors.NewArgumentError(name, "missing")
	}
	return parseKey(name, v)
}

func parseKey(name string, v gjson.Result) (storagemodels.PublicKey, error) {
	if v.Type != gjson.String {
		return storagemodels.PublicKey{}, errors.NewArgumentError(name, "must be a hex string")
	}
	key, err := storagemodels.ParsePublicKey(v.Str)
	if err != nil {
		return storagemodels.PublicKey{}, errors.NewArgumentError(name, err.Error())
	}
	return key, nil
}

func guardiansArg(args gjson.Result) ([]storagemodels.PublicKey, error) {
	v := args.Get(ArgGuardians)
	if !v.Exists() {
		return nil, errors.NewArgumentError(ArgGuardians, "missing")
	}
	if !v.IsArray() {
		return nil, errors.NewArgumentError(ArgGuardians, "must be an array")
	}
	items := v.Array()
	guardians := make([]storagemodels.PublicKey, 0, len(items))
	for i, item := range items {
		key, err := parseKey(fmt.Sprintf("%s[%d]", ArgGuardians, i), item)
		if err != nil {
			return nil, err
		}
		guardians = append(guardians, key)
	}
	return guardians, nil
}

func thresholdArg(args gjson.Result) (uint32, error) {
	v := args.Get(ArgThreshold)
	if !v.Exists() {
		return 0, errors.NewArgumentError(ArgThreshold, "missing")
	}
	if v.Type != gjson.Number {
		return 0, errors.NewArgumentError(ArgThreshold, "must be a number")
	}
	// Parse the raw literal so fractions, negatives and values above 2^32-1 are rejected.
	n, err := strconv.ParseUint(v.Raw, 10, 32)
	if err != nil {
		return 0, errors.NewArgumentError(ArgThreshold, "must be an unsigned 32-bit integer")
	}
	return uint32(n), nil
}

func result(value any) ([]byte, error) {
	out, err := sjson.SetBytes(empty(), "result", value)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return out, nil
}

func empty() []byte {
	return []byte("{}")
}
