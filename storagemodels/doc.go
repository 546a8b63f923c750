/*
Package storagemodels defines the data structures used throughout the recovery registry.

Key Types:

AccountHash:
A 32-byte account identifier. Its canonical textual form is 64 lowercase hex
characters and is what storage slot names are derived from:

	account, _ := storagemodels.ParseAccountHash("account-hash-9f1c...")
	fmt.Println(account)             // 9f1c...
	fmt.Println(account.Formatted()) // account-hash-9f1c...

PublicKey:
A tagged guardian key (0x01 Ed25519, 0x02 Secp256k1). Keys compare by tag and
raw bytes:

	key, _ := storagemodels.NewPublicKey(storagemodels.AlgorithmEd25519, pub)
	owner := storagemodels.AccountHashFromPublicKey(key)

An account's guardian record (ordered guardians, threshold and initialized
flag) has no struct of its own: it is stored as three separate slots, see
package keyspace. ContainsKey answers membership over a decoded guardian list.
*/
package storagemodels
