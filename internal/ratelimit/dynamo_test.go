package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo evaluates the two conditional writes DynamoStore issues.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]dynamoCounter
	err   error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]dynamoCounter)}
}

func numberValue(t map[string]types.AttributeValue, name string) int64 {
	n, _ := t[name].(*types.AttributeValueMemberN)
	if n == nil {
		return 0
	}
	v, _ := strconv.ParseInt(n.Value, 10, 64)
	return v
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var item dynamoCounter
	if err := attributevalue.UnmarshalMap(in.Item, &item); err != nil {
		return nil, err
	}
	now := numberValue(in.ExpressionAttributeValues, ":now")
	if cur, ok := f.items[item.PK]; ok && !(cur.ResetAt < now) {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("put condition failed")}
	}
	f.items[item.PK] = item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	pk := in.Key["pk"].(*types.AttributeValueMemberS).Value
	limit := numberValue(in.ExpressionAttributeValues, ":limit")
	now := numberValue(in.ExpressionAttributeValues, ":now")

	cur, ok := f.items[pk]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("missing")}
	}
	if int64(cur.Count) >= limit || cur.ResetAt < now {
		old, _ := attributevalue.MarshalMap(cur)
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("update condition failed"), Item: old}
	}
	cur.Count++
	f.items[pk] = cur
	attrs, _ := attributevalue.MarshalMap(cur)
	return &dynamodb.UpdateItemOutput{Attributes: attrs}, nil
}

func strPtr(s string) *string { return &s }

func TestFixedWindow_DynamoStore(t *testing.T) {
	exerciseFixedWindow(t, NewDynamoStore(newFakeDynamo(), "rate_limits"))
}

func TestDynamoStore_WritesTTLAttribute(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "rate_limits")
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	_, err := store.Hit(context.Background(), "leads:10.0.0.1", 10, time.Minute, now)
	require.NoError(t, err)

	item := fake.items["leads:10.0.0.1"]
	assert.Equal(t, 1, item.Count)
	assert.Equal(t, now.Add(time.Minute).UnixMilli(), item.ResetAt)
	assert.Equal(t, now.Add(2*time.Minute).Unix(), item.ExpiresAt)
}

func TestDynamoStore_PropagatesServiceErrors(t *testing.T) {
	fake := newFakeDynamo()
	fake.err = errors.New("throughput exceeded")
	store := NewDynamoStore(fake, "rate_limits")

	_, err := store.Hit(context.Background(), "k", 1, time.Minute, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dynamodb put")
}
