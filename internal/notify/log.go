package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/unifly3582/orderflow/internal/aws"
)

// Log entry statuses
const (
	LogStatusSent   = "sent"
	LogStatusFailed = "failed"
)

// OrderLogIndex is the GSI on (order_id, created_at).
const OrderLogIndex = "order_id-index"

// LogEntry records one dispatch attempt. Entries are never updated.
type LogEntry struct {
	LogID     string    `dynamodbav:"log_id" json:"logId"` // PK
	OrderID   string    `dynamodbav:"order_id" json:"orderId"`
	Event     Event     `dynamodbav:"event" json:"event"`
	Channel   string    `dynamodbav:"channel" json:"channel"`
	Template  string    `dynamodbav:"template" json:"template"`
	Recipient string    `dynamodbav:"recipient" json:"recipient"`
	Status    string    `dynamodbav:"status" json:"status"`
	MessageID string    `dynamodbav:"message_id,omitempty" json:"messageId,omitempty"`
	ErrorCode string    `dynamodbav:"error_code,omitempty" json:"errorCode,omitempty"`
	Error     string    `dynamodbav:"error,omitempty" json:"error,omitempty"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"createdAt"`
}

var ErrDuplicateLogEntry = errors.New("notification log entry already exists")

// LogStore is the append-only notification log table.
type LogStore struct {
	client    aws.DynamoDBAPI
	tableName string
}

func NewLogStore(client aws.DynamoDBAPI, tableName string) *LogStore {
	return &LogStore{client: client, tableName: tableName}
}

// Append writes e. It never overwrites an existing entry.
func (s *LogStore) Append(ctx context.Context, e LogEntry) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: sdkaws.String("attribute_not_exists(log_id)"),
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrDuplicateLogEntry
		}
		return fmt.Errorf("put log entry: %w", err)
	}
	return nil
}

// ListByOrder returns an order's entries oldest first.
func (s *LogStore) ListByOrder(ctx context.Context, orderID string) ([]LogEntry, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              sdkaws.String(OrderLogIndex),
		KeyConditionExpression: sdkaws.String("order_id = :o"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":o": &types.AttributeValueMemberS{Value: orderID},
		},
		ScanIndexForward: sdkaws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query log entries: %w", err)
	}
	var entries []LogEntry
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal log entries: %w", err)
	}
	return entries, nil
}
