/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/recoveryregistry/datastore"
	"github.com/suparena/recoveryregistry/keyspace"
)

// Entity types injected into every item.
const (
	EntityNamedKey = "NamedKey"
	EntitySlot     = "Slot"
)

// maxTransactItems is the DynamoDB limit on items per TransactWriteItems call.
const maxTransactItems = 100

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

// ClientConfig holds the connection settings of NewDynamoDBClient.
type ClientConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
}

// DynamodbDataStore implements datastore.Store on a single DynamoDB table.
//
// Named keys and slots are items whose PK and SK are equal:
//
//	NAME#<slot name>  -> SlotRef, Version
//	SLOT#<slot ref>   -> Value, Version
//
// Writes of one Update are buffered and committed with a single
// TransactWriteItems call. Every put is conditioned on the version observed
// in the transaction, so a concurrent writer makes the commit fail instead of
// interleaving.
type DynamodbDataStore struct {
	client    Client
	tableName string
	newRef    func() datastore.SlotRef
}

// namedKeyItem is the stored form of a name to slot mapping.
type namedKeyItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Name       string `dynamodbav:"Name"`
	SlotRef    string `dynamodbav:"SlotRef"`
	Version    int64  `dynamodbav:"Version"`
}

// slotItem is the stored form of one slot.
type slotItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	SlotRef    string `dynamodbav:"SlotRef"`
	Value      []byte `dynamodbav:"Value,omitempty"`
	Version    int64  `dynamodbav:"Version"`
}

func namedKeyPK(name keyspace.SlotName) string {
	return "NAME#" + string(name)
}

func slotPK(ref datastore.SlotRef) string {
	return "SLOT#" + string(ref)
}

// buildSingleKey returns the key of an item whose PK equals its SK.
func buildSingleKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: pk},
	}
}

// NewDynamoDBClient initializes a DynamoDB client using static AWS credentials.
func NewDynamoDBClient(ctx context.Context, cfg ClientConfig, logger *slog.Logger) (*sdk.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	if logger != nil {
		logger.Info("dynamodb client initialized", "region", cfg.Region, "endpoint", cfg.Endpoint)
	}
	return client, nil
}

// NewDynamodbDataStore constructs a store on tableName.
func NewDynamodbDataStore(client Client, tableName string) (*DynamodbDataStore, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamodb client is required")
	}
	if tableName == "" {
		return nil, fmt.Errorf("table name is required")
	}
	return &DynamodbDataStore{
		client:    client,
		tableName: tableName,
		newRef:    datastore.NewSlotRef,
	}, nil
}

// Update implements datastore.Store.
func (d *DynamodbDataStore) Update(ctx context.Context, fn func(tx datastore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(d, false)
	if err := fn(t); err != nil {
		return err
	}
	return t.commit(ctx)
}

// View implements datastore.Store. Reads are strongly consistent.
func (d *DynamodbDataStore) View(ctx context.Context, fn func(r datastore.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(newTx(d, true))
}

// NamedKeys implements datastore.Store by scanning NamedKey items.
func (d *DynamodbDataStore) NamedKeys(ctx context.Context) ([]datastore.NamedKey, error) {
	filter := "EntityType = :et"
	input := &sdk.ScanInput{
		TableName:        &d.tableName,
		FilterExpression: &filter,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":et": &types.AttributeValueMemberS{Value: EntityNamedKey},
		},
		ConsistentRead: aws.Bool(true),
	}

	var out []datastore.NamedKey
	paginator := sdk.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan named keys: %w", err)
		}
		for _, raw := range page.Items {
			var item namedKeyItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal named key: %w", err)
			}
			out = append(out, datastore.NamedKey{
				Name: keyspace.SlotName(item.Name),
				Ref:  datastore.SlotRef(item.SlotRef),
			})
		}
	}
	return out, nil
}

// getItem performs a strongly consistent GetItem. It returns nil when the item does not exist.
func (d *DynamodbDataStore) getItem(ctx context.Context, pk string) (map[string]types.AttributeValue, error) {
	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      &d.tableName,
		Key:            buildSingleKey(pk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	return out.Item, nil
}
