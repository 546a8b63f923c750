/*
Package keyspace derives storage slot names for guardian records.

Every account owns three slots, one per Field. A slot name is the field's
prefix followed by the account's canonical hex form:

	guardians_<64 hex>
	threshold_<64 hex>
	initialized_<64 hex>

All call sites go through Locate; Parse recovers (field, account) from a
name and is used by store inspection tooling.
*/
package keyspace
