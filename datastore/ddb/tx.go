/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/recoveryregistry/datastore"
	"github.com/suparena/recoveryregistry/errors"
	"github.com/suparena/recoveryregistry/keyspace"
)

const (
	condNotExists = "attribute_not_exists(PK)"
	condVersion   = "Version = :v"
)

// tx buffers writes and remembers the version of every item it observed.
// A version of 0 means the item did not exist when observed.
type tx struct {
	store    *DynamodbDataStore
	readOnly bool
	versions map[string]int64
	keys     map[keyspace.SlotName]datastore.SlotRef
	slots    map[datastore.SlotRef][]byte
}

func newTx(store *DynamodbDataStore, readOnly bool) *tx {
	return &tx{
		store:    store,
		readOnly: readOnly,
		versions: make(map[string]int64),
		keys:     make(map[keyspace.SlotName]datastore.SlotRef),
		slots:    make(map[datastore.SlotRef][]byte),
	}
}

func (t *tx) GetKey(ctx context.Context, name keyspace.SlotName) (datastore.SlotRef, bool, error) {
	if ref, ok := t.keys[name]; ok {
		return ref, true, nil
	}
	item, ok, err := t.loadNamedKey(ctx, name)
	if err != nil || !ok {
		return "", false, err
	}
	return datastore.SlotRef(item.SlotRef), true, nil
}

func (t *tx) Read(ctx context.Context, ref datastore.SlotRef) ([]byte, bool, error) {
	if v, ok := t.slots[ref]; ok {
		return bytes.Clone(v), true, nil
	}
	item, ok, err := t.loadSlot(ctx, ref)
	if err != nil || !ok {
		return nil, false, err
	}
	return item.Value, true, nil
}

func (t *tx) NewSlot(ctx context.Context) (datastore.SlotRef, error) {
	if t.readOnly {
		return "", errors.NewValidationError("tx", "read-only transaction")
	}
	ref := t.store.newRef()
	t.versions[slotPK(ref)] = 0
	t.slots[ref] = nil
	return ref, nil
}

func (t *tx) PutKey(ctx context.Context, name keyspace.SlotName, ref datastore.SlotRef) error {
	if t.readOnly {
		return errors.NewValidationError("tx", "read-only transaction")
	}
	if _, seen := t.versions[namedKeyPK(name)]; !seen {
		if _, _, err := t.loadNamedKey(ctx, name); err != nil {
			return err
		}
	}
	t.keys[name] = ref
	return nil
}

func (t *tx) Write(ctx context.Context, ref datastore.SlotRef, value []byte) error {
	if t.readOnly {
		return errors.NewValidationError("tx", "read-only transaction")
	}
	if _, buffered := t.slots[ref]; !buffered {
		_, ok, err := t.loadSlot(ctx, ref)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewNotFoundError("slot", string(ref))
		}
	}
	t.slots[ref] = bytes.Clone(value)
	return nil
}

func (t *tx) loadNamedKey(ctx context.Context, name keyspace.SlotName) (namedKeyItem, bool, error) {
	pk := namedKeyPK(name)
	raw, err := t.store.getItem(ctx, pk)
	if err != nil {
		return namedKeyItem{}, false, err
	}
	if raw == nil {
		t.observe(pk, 0)
		return namedKeyItem{}, false, nil
	}
	var item namedKeyItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return namedKeyItem{}, false, fmt.Errorf("failed to unmarshal named key: %w", err)
	}
	t.observe(pk, item.Version)
	return item, true, nil
}

func (t *tx) loadSlot(ctx context.Context, ref datastore.SlotRef) (slotItem, bool, error) {
	pk := slotPK(ref)
	raw, err := t.store.getItem(ctx, pk)
	if err != nil {
		return slotItem{}, false, err
	}
	if raw == nil {
		t.observe(pk, 0)
		return slotItem{}, false, nil
	}
	var item slotItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return slotItem{}, false, fmt.Errorf("failed to unmarshal slot: %w", err)
	}
	t.observe(pk, item.Version)
	return item, true, nil
}

// observe keeps the first version seen so the commit condition matches what
// the transaction actually read.
func (t *tx) observe(pk string, version int64) {
	if _, ok := t.versions[pk]; !ok {
		t.versions[pk] = version
	}
}

// put builds a conditional Put of item at the next version of pk.
func (t *tx) put(pk string, item any) (types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to marshal item: %w", err)
	}
	observed := t.versions[pk]
	av["Version"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(observed+1, 10)}

	p := &types.Put{
		TableName: &t.store.tableName,
		Item:      av,
	}
	if observed == 0 {
		p.ConditionExpression = aws.String(condNotExists)
	} else {
		p.ConditionExpression = aws.String(condVersion)
		p.ExpressionAttributeValues = map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(observed, 10)},
		}
	}
	return types.TransactWriteItem{Put: p}, nil
}

func (t *tx) commit(ctx context.Context) error {
	var items []types.TransactWriteItem

	names := make([]keyspace.SlotName, 0, len(t.keys))
	for name := range t.keys {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		pk := namedKeyPK(name)
		item, err := t.put(pk, namedKeyItem{
			PK: pk, SK: pk, EntityType: EntityNamedKey,
			Name: string(name), SlotRef: string(t.keys[name]),
		})
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	refs := make([]datastore.SlotRef, 0, len(t.slots))
	for ref := range t.slots {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	for _, ref := range refs {
		pk := slotPK(ref)
		item, err := t.put(pk, slotItem{
			PK: pk, SK: pk, EntityType: EntitySlot,
			SlotRef: string(ref), Value: t.slots[ref],
		})
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil
	}
	if len(items) > maxTransactItems {
		return fmt.Errorf("transaction has %d writes, limit is %d", len(items), maxTransactItems)
	}

	_, err := t.store.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if stderrors.As(err, &tce) {
			return fmt.Errorf("transaction cancelled: %w",
				errors.NewConditionFailedError("commit", cancellationReasons(tce)))
		}
		return fmt.Errorf("TransactWriteItems failed: %w", err)
	}
	return nil
}

func cancellationReasons(tce *types.TransactionCanceledException) string {
	var reasons []string
	for _, r := range tce.CancellationReasons {
		if r.Code != nil && *r.Code != "None" {
			reasons = append(reasons, *r.Code)
		}
	}
	if len(reasons) == 0 {
		return "transaction cancelled"
	}
	return strings.Join(reasons, ", ")
}
