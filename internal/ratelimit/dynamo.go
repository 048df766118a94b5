package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// dynamoCounter is the item layout. expires_at is the table's TTL attribute
// (epoch seconds) so DynamoDB reaps stale windows on its own.
type dynamoCounter struct {
	PK        string `dynamodbav:"pk"`
	Count     int    `dynamodbav:"count"`
	ResetAt   int64  `dynamodbav:"reset_at"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// DynamoStore keeps counters in a DynamoDB table keyed by "pk". Opening a
// window is a conditional put; counting inside a window is a conditional ADD
// that refuses to pass the ceiling.
type DynamoStore struct {
	client dynamoAPI
	table  string
}

// NewDynamoStore creates a store over table.
func NewDynamoStore(client dynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// Hit implements Store.
func (s *DynamoStore) Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	if s == nil || s.client == nil {
		return Decision{}, fmt.Errorf("ratelimit: dynamodb client not configured")
	}

	// A window can expire between the two steps; one retry covers that race.
	for attempt := 0; attempt < 2; attempt++ {
		dec, opened, err := s.openWindow(ctx, key, limit, window, now)
		if err != nil {
			return Decision{}, err
		}
		if opened {
			return dec, nil
		}

		dec, expired, err := s.increment(ctx, key, limit, now)
		if err != nil {
			return Decision{}, err
		}
		if !expired {
			return dec, nil
		}
	}
	return Decision{}, fmt.Errorf("ratelimit: dynamodb window contention on %q", key)
}

func (s *DynamoStore) openWindow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, bool, error) {
	resetAt := now.Add(window)
	item, err := attributevalue.MarshalMap(dynamoCounter{
		PK:        key,
		Count:     1,
		ResetAt:   resetAt.UnixMilli(),
		ExpiresAt: resetAt.Add(time.Minute).Unix(),
	})
	if err != nil {
		return Decision{}, false, fmt.Errorf("ratelimit: marshal counter: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(pk) OR reset_at < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return Decision{}, false, nil
		}
		return Decision{}, false, fmt.Errorf("ratelimit: dynamodb put: %w", err)
	}
	return Decision{Allowed: true, Count: 1, Limit: limit, ResetAt: time.UnixMilli(resetAt.UnixMilli())}, true, nil
}

// increment returns expired=true when the window closed after openWindow saw it.
func (s *DynamoStore) increment(ctx context.Context, key string, limit int, now time.Time) (Decision, bool, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression:    aws.String("ADD #count :one"),
		ConditionExpression: aws.String("attribute_exists(pk) AND #count < :limit AND reset_at >= :now"),
		ExpressionAttributeNames: map[string]string{
			"#count": "count",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":   &types.AttributeValueMemberN{Value: "1"},
			":limit": &types.AttributeValueMemberN{Value: strconv.Itoa(limit)},
			":now":   &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if !errors.As(err, &condErr) {
			return Decision{}, false, fmt.Errorf("ratelimit: dynamodb update: %w", err)
		}
		var old dynamoCounter
		if len(condErr.Item) == 0 {
			return Decision{}, true, nil
		}
		if err := attributevalue.UnmarshalMap(condErr.Item, &old); err != nil {
			return Decision{}, false, fmt.Errorf("ratelimit: unmarshal counter: %w", err)
		}
		if now.UnixMilli() > old.ResetAt {
			return Decision{}, true, nil
		}
		return Decision{Allowed: false, Count: old.Count, Limit: limit, ResetAt: time.UnixMilli(old.ResetAt)}, false, nil
	}

	var cur dynamoCounter
	if err := attributevalue.UnmarshalMap(out.Attributes, &cur); err != nil {
		return Decision{}, false, fmt.Errorf("ratelimit: unmarshal counter: %w", err)
	}
	return Decision{Allowed: true, Count: cur.Count, Limit: limit, ResetAt: time.UnixMilli(cur.ResetAt)}, false, nil
}
