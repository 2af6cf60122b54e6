package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rajasatyajit/apikey-authorizer/internal/errors"
	"github.com/rajasatyajit/apikey-authorizer/internal/keys"
)

// tableClient backs the mock with a single in-memory table
func tableClient(t *testing.T, table string) *MockDynamoDBClient {
	t.Helper()
	items := map[string]map[string]types.AttributeValue{}
	partitionKey := func(key map[string]types.AttributeValue) string {
		s, ok := key["value"].(*types.AttributeValueMemberS)
		require.True(t, ok, "partition key must be a string attribute named value")
		return s.Value
	}
	return &MockDynamoDBClient{
		GetItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			assert.Equal(t, table, aws.ToString(params.TableName))
			return &dynamodb.GetItemOutput{Item: items[partitionKey(params.Key)]}, nil
		},
		PutItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			assert.Equal(t, table, aws.ToString(params.TableName))
			items[partitionKey(params.Item)] = params.Item
			return &dynamodb.PutItemOutput{}, nil
		},
	}
}

func TestDynamoDBStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewDynamoDBStore(tableClient(t, "api-key-cache"), "api-key-cache")

	_, found, err := store.Get(ctx, "hello")
	require.NoError(t, err)
	assert.False(t, found)

	entry := Entry{
		Record:    keys.Record{ID: "alpha", Value: "hello", Tags: map[string]string{"context:bravo": "charlie"}},
		Timestamp: 1_700_000_000,
	}
	require.NoError(t, store.Put(ctx, entry))

	got, found, err := store.Get(ctx, "hello")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entry, got)
}

func TestDynamoDBStoreItemLayout(t *testing.T) {
	var written map[string]types.AttributeValue
	client := &MockDynamoDBClient{
		PutItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			written = params.Item
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	store := NewDynamoDBStore(client, "t")

	require.NoError(t, store.Put(context.Background(), Entry{
		Record:    keys.Record{ID: "alpha", Value: "hello"},
		Timestamp: 42,
	}))

	require.Contains(t, written, "value")
	require.Contains(t, written, "id")
	require.Contains(t, written, "timestamp")
	ts, ok := written["timestamp"].(*types.AttributeValueMemberN)
	require.True(t, ok, "timestamp must be a number attribute")
	assert.Equal(t, "42", ts.Value)
	assert.NotContains(t, written, "tags", "absent tags are omitted")
}

func TestDynamoDBStoreErrors(t *testing.T) {
	boom := errors.New("ResourceNotFoundException")
	client := &MockDynamoDBClient{
		GetItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return nil, boom
		},
		PutItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			return nil, boom
		},
		DescribeTableFunc: func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			return nil, boom
		},
	}
	store := NewDynamoDBStore(client, "t")
	ctx := context.Background()

	_, _, err := store.Get(ctx, "hello")
	var svcErr apperrors.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "GetItem", svcErr.Operation)

	err = store.Put(ctx, Entry{Record: keys.Record{Value: "hello"}})
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "PutItem", svcErr.Operation)

	assert.ErrorIs(t, store.Health(ctx), boom)
}
