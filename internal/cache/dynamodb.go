package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBConfig contains DynamoDB connection settings. The table needs a
// string partition key named "key"; enabling DynamoDB TTL on the "ttl"
// attribute lets the service purge expired entries.
type DynamoDBConfig struct {
	Region          string
	TableName       string
	Endpoint        string // optional, e.g. LocalStack
	AccessKeyID     string // optional, the default credential chain otherwise
	SecretAccessKey string
	Timeout         time.Duration
}

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDBKV.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

const (
	attrKey     = "key"
	attrValue   = "value"
	attrTTL     = "ttl"
	attrCounter = "counter"
)

// DynamoDBKV is a KV on a DynamoDB table. Entries carry their expiry in the
// "ttl" attribute, which Get checks; the service purges expired items only
// eventually. Counters are updated with ADD.
type DynamoDBKV struct {
	api       DynamoDBAPI
	tableName string
	now       func() time.Time
	closed    atomic.Bool
}

var _ KV = (*DynamoDBKV)(nil)

// NewDynamoDBKV returns a KV on tableName through api.
func NewDynamoDBKV(api DynamoDBAPI, tableName string) *DynamoDBKV {
	return &DynamoDBKV{api: api, tableName: tableName, now: time.Now}
}

// ConnectDynamoDB loads the AWS configuration, creates a client and checks
// that the table exists.
func ConnectDynamoDB(cfg DynamoDBConfig) (*DynamoDBKV, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if cfg.TableName == "" {
		return nil, fmt.Errorf("table name is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	var opts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	client := dynamodb.NewFromConfig(awsCfg, opts...)

	if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(cfg.TableName)}); err != nil {
		return nil, fmt.Errorf("failed to connect to DynamoDB table %s: %w", cfg.TableName, err)
	}
	return NewDynamoDBKV(client, cfg.TableName), nil
}

func (d *DynamoDBKV) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{attrKey: &types.AttributeValueMemberS{Value: key}}
}

func (d *DynamoDBKV) check() error {
	if d.closed.Load() {
		return fmt.Errorf("dynamodb cache is closed")
	}
	return nil
}

// Get implements KV.
func (d *DynamoDBKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            d.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, ErrMiss
	}
	if ttl, ok := numberAttr(out.Item, attrTTL); ok && d.now().Unix() >= ttl {
		return nil, ErrMiss
	}
	v, ok := out.Item[attrValue].(*types.AttributeValueMemberB)
	if !ok {
		return nil, ErrMiss
	}
	return v.Value, nil
}

// Set implements KV.
func (d *DynamoDBKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := d.check(); err != nil {
		return err
	}
	item := d.key(key)
	item[attrValue] = &types.AttributeValueMemberB{Value: value}
	if ttl > 0 {
		expires := d.now().Add(ttl).Unix()
		item[attrTTL] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expires, 10)}
	}
	if _, err := d.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(d.tableName), Item: item}); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete implements KV.
func (d *DynamoDBKV) Delete(ctx context.Context, key string) error {
	if err := d.check(); err != nil {
		return err
	}
	if _, err := d.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String(d.tableName), Key: d.key(key)}); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Incr implements KV.
func (d *DynamoDBKV) Incr(ctx context.Context, key string) (int64, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	out, err := d.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.tableName),
		Key:                       d.key(key),
		UpdateExpression:          aws.String("ADD #c :one"),
		ExpressionAttributeNames:  map[string]string{"#c": attrCounter},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment key %s: %w", key, err)
	}
	n, ok := numberAttr(out.Attributes, attrCounter)
	if !ok {
		return 0, fmt.Errorf("increment of key %s returned no counter", key)
	}
	return n, nil
}

// Counter implements KV.
func (d *DynamoDBKV) Counter(ctx context.Context, key string) (int64, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            d.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get counter %s: %w", key, err)
	}
	n, _ := numberAttr(out.Item, attrCounter)
	return n, nil
}

// Close implements KV. The AWS client holds no connection to release.
func (d *DynamoDBKV) Close() error {
	d.closed.Store(true)
	return nil
}

func numberAttr(item map[string]types.AttributeValue, name string) (int64, bool) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	return n, err == nil
}

// DynamoDBFactory creates DynamoDB KV backends.
type DynamoDBFactory struct{}

// Type implements KVFactory.
func (DynamoDBFactory) Type() string { return "dynamodb" }

// Validate implements KVFactory.
func (DynamoDBFactory) Validate(cfg Config) error {
	if cfg.DynamoDB.Region == "" {
		return fmt.Errorf("region is required for DynamoDB")
	}
	if cfg.DynamoDB.TableName == "" {
		return fmt.Errorf("table_name is required for DynamoDB")
	}
	return nil
}

// Create implements KVFactory.
func (DynamoDBFactory) Create(cfg Config) (KV, error) {
	kv, err := ConnectDynamoDB(cfg.DynamoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB cache: %w", err)
	}
	return kv, nil
}

func init() {
	RegisterFactory(DynamoDBFactory{})
}
