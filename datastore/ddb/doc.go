/*
Package ddb provides a DynamoDB implementation of the datastore.Store interface.

The DynamodbDataStore supports:
  - Single-table design with PK == SK items
  - Automatic EntityType injection (NamedKey, Slot)
  - Buffered transactions committed with one TransactWriteItems call
  - Optimistic concurrency through per-item Version conditions

Item layout:

	PK = SK = "NAME#guardians_<account>"  SlotRef, Version
	PK = SK = "SLOT#uref-<uuid>"          Value, Version

A put of an item first seen absent is conditioned on attribute_not_exists(PK);
a put of an item read at version v is conditioned on Version = :v. When two
writers race, one TransactWriteItems is cancelled and Update returns an
errors.ConditionFailedError; nothing of the losing call is kept.

Connecting:

	client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientConfig{
	    Region:   "us-east-1",
	    Endpoint: "http://localhost:8000", // optional, DynamoDB Local
	}, logger)
	store, err := ddb.NewDynamodbDataStore(client, "recovery-registry")
*/
package ddb
