/*
Package entrypoint is the host-facing boundary of the recovery registry.

A host invokes an entry point by name with a JSON object of named arguments:

	d := entrypoint.NewDispatcher(recoveryregistry.New(store))
	out, err := d.Invoke(ctx, entrypoint.IsGuardian, []byte(`{
	    "account_hash": "9f1c...",
	    "public_key":   "01ab..."
	}`))
	// out: {"result":true}

Missing or malformed arguments fail with errors.ErrInvalidArgument before the
registry is reached. Registry faults are returned unchanged.
*/
package entrypoint
