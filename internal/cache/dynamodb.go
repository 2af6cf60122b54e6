package cache

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	apperrors "github.com/rajasatyajit/apikey-authorizer/internal/errors"
	"github.com/rajasatyajit/apikey-authorizer/internal/keys"
)

// DynamoDBClient is the subset of the DynamoDB API used by the cache
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// dynamoItem is the table layout; "value" is the partition key
type dynamoItem struct {
	Value     string            `dynamodbav:"value"`
	ID        string            `dynamodbav:"id"`
	Timestamp int64             `dynamodbav:"timestamp"`
	Tags      map[string]string `dynamodbav:"tags,omitempty"`
}

// DynamoDBStore stores entries in a DynamoDB table
type DynamoDBStore struct {
	client DynamoDBClient
	table  string
}

// NewDynamoDBStore creates a store on the given table
func NewDynamoDBStore(client DynamoDBClient, table string) *DynamoDBStore {
	return &DynamoDBStore{client: client, table: table}
}

func (s *DynamoDBStore) Get(ctx context.Context, value string) (Entry, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"value": &types.AttributeValueMemberS{Value: value},
		},
	})
	if err != nil {
		return Entry{}, false, apperrors.ServiceError{Service: "dynamodb", Operation: "GetItem", Err: err}
	}
	if len(out.Item) == 0 {
		return Entry{}, false, nil
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache item: %w", err)
	}
	return Entry{
		Record:    keys.Record{ID: item.ID, Value: item.Value, Tags: item.Tags},
		Timestamp: item.Timestamp,
	}, true, nil
}

func (s *DynamoDBStore) Put(ctx context.Context, entry Entry) error {
	av, err := attributevalue.MarshalMap(dynamoItem{
		Value:     entry.Record.Value,
		ID:        entry.Record.ID,
		Timestamp: entry.Timestamp,
		Tags:      entry.Record.Tags,
	})
	if err != nil {
		return fmt.Errorf("encode cache item: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}); err != nil {
		return apperrors.ServiceError{Service: "dynamodb", Operation: "PutItem", Err: err}
	}
	return nil
}

func (s *DynamoDBStore) Health(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	}); err != nil {
		return apperrors.ServiceError{Service: "dynamodb", Operation: "DescribeTable", Err: err}
	}
	return nil
}
