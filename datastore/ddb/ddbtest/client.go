/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package ddbtest provides an in-memory stand-in for the DynamoDB API used by
// the ddb store, so code built on ddb.DynamodbDataStore can be tested without
// a table.
package ddbtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Condition expressions the fake evaluates. They match what the ddb store emits.
const (
	CondNotExists = "attribute_not_exists(PK)"
	CondVersion   = "Version = :v"
)

// Client is an in-memory single table keyed by PK. It is safe for concurrent use.
type Client struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	commits  int
	lastPuts []*types.Put
	getErr   error
}

// NewClient returns an empty table.
func NewClient() *Client {
	return &Client{items: make(map[string]map[string]types.AttributeValue)}
}

// FailGets makes every later GetItem return err. A nil err restores normal reads.
func (c *Client) FailGets(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getErr = err
}

// Commits returns the number of successful TransactWriteItems calls.
func (c *Client) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

// LastPuts returns the puts of the most recent TransactWriteItems call.
func (c *Client) LastPuts() []*types.Put {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.Put(nil), c.lastPuts...)
}

// Len returns the number of stored items.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// PK returns the partition key of item.
func PK(item map[string]types.AttributeValue) string {
	if s, ok := item["PK"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

// Version returns the Version attribute of item, or "" when it has none.
func Version(item map[string]types.AttributeValue) string {
	if v, ok := item["Version"].(*types.AttributeValueMemberN); ok {
		return v.Value
	}
	return ""
}

func (c *Client) GetItem(ctx context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return &sdk.GetItemOutput{Item: c.items[PK(in.Key)]}, nil
}

// TransactWriteItems applies all puts or none. A failed condition cancels
// the call with a TransactionCanceledException carrying one reason per item.
func (c *Client) TransactWriteItems(ctx context.Context, in *sdk.TransactWriteItemsInput, _ ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	puts := make([]*types.Put, 0, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		p := ti.Put
		if p == nil {
			return nil, fmt.Errorf("ddbtest: only Put is supported")
		}
		puts = append(puts, p)
		existing, exists := c.items[PK(p.Item)]
		ok := true
		switch expr := aws.ToString(p.ConditionExpression); expr {
		case "":
		case CondNotExists:
			ok = !exists
		case CondVersion:
			want, _ := p.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberN)
			ok = exists && want != nil && Version(existing) == want.Value
		default:
			return nil, fmt.Errorf("ddbtest: unsupported condition %q", expr)
		}
		code := "None"
		if !ok {
			code = "ConditionalCheckFailed"
			failed = true
		}
		reasons[i] = types.CancellationReason{Code: aws.String(code)}
	}
	c.lastPuts = puts
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, p := range puts {
		c.items[PK(p.Item)] = p.Item
	}
	c.commits++
	return &sdk.TransactWriteItemsOutput{}, nil
}

// Scan returns, in PK order, the items whose EntityType equals :et. It
// ignores pagination and returns everything in one page.
func (c *Client) Scan(ctx context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	want, _ := in.ExpressionAttributeValues[":et"].(*types.AttributeValueMemberS)
	if want == nil {
		return nil, fmt.Errorf("ddbtest: scan needs an :et filter value")
	}

	pks := make([]string, 0, len(c.items))
	for pk := range c.items {
		pks = append(pks, pk)
	}
	sort.Strings(pks)

	out := &sdk.ScanOutput{}
	for _, pk := range pks {
		item := c.items[pk]
		if et, ok := item["EntityType"].(*types.AttributeValueMemberS); ok && et.Value == want.Value {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}
