/*
Package recoveryregistry records, per account, a recovery guardian set and the
number of guardian approvals a recovery needs.

A record is written exactly once by Initialize and is immutable afterwards.
Every account owns three slots: its guardian list, its threshold and an
initialized flag. Slot names are derived from the account (see package
keyspace), so two accounts never share state.

	store := mock.New() // or sqlite.Open(path), ddb.NewDynamodbDataStore(client, table)
	reg := recoveryregistry.New(store)

	err := reg.Initialize(ctx, account, []storagemodels.PublicKey{k1, k2, k3}, 2)
	ok, _ := reg.IsGuardian(ctx, account, k2) // true

Initialize checks its arguments in a fixed order and reports the first
failure: fewer than MinGuardians guardians, then a threshold outside
[1, len(guardians)], then a duplicate guardian, then an existing record. The
three slots are written in one store transaction, so a failed call leaves no
trace.

GetGuardians and GetThreshold fail with errors.ErrAccountNotFound for an
account that was never initialized. IsGuardian and HasGuardians report false
instead.

Hosts call the registry through package entrypoint, which decodes named JSON
arguments. cmd/guardianctl wraps the same dispatcher in a command line tool.
*/
package recoveryregistry
