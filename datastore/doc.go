/*
Package datastore defines the storage interfaces the recovery registry runs on.

Storage is two-level: a named key (see package keyspace) resolves to a
SlotRef, and a slot holds an opaque byte value. All access happens inside a
transaction:

	err := store.Update(ctx, func(tx datastore.Tx) error {
	    ref, err := tx.NewSlot(ctx)
	    if err != nil {
	        return err
	    }
	    if err := tx.PutKey(ctx, name, ref); err != nil {
	        return err
	    }
	    return tx.Write(ctx, ref, value)
	})

Returning an error from the function discards every write of the call,
including slot allocation and key registration.

Implementations:
  - mock: in-memory store with fault injection for tests
  - sqlite: modernc.org/sqlite, one SQL transaction per call
  - ddb: DynamoDB single table, one TransactWriteItems per call
*/
package datastore
