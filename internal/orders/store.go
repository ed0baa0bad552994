package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/unifly3582/orderflow/internal/aws"
)

const (
	// GatewayOrderIndex is the GSI keyed on razorpay_order_id.
	GatewayOrderIndex = "razorpay_order_id-index"

	orderCounterName  = "orders"
	orderIDBase       = 10000
	maxMutateAttempts = 3
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrOrderExists     = errors.New("order already exists")
	ErrVersionConflict = errors.New("order version conflict")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client        aws.DynamoDBAPI
	tableName     string
	countersTable string
	nowFunc       func() time.Time
}

// NewStore creates a new orders Store. countersTable holds the sequential
// order id counter.
func NewStore(client aws.DynamoDBAPI, tableName, countersTable string) *Store {
	return &Store{
		client:        client,
		tableName:     tableName,
		countersTable: countersTable,
		nowFunc:       time.Now,
	}
}

// NextOrderID atomically increments the order counter and returns the new
// id as a decimal string.
func (s *Store) NextOrderID(ctx context.Context) (string, error) {
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.countersTable,
		Key: map[string]types.AttributeValue{
			"counter_name": &types.AttributeValueMemberS{Value: orderCounterName},
		},
		UpdateExpression:          sdkaws.String("ADD current_value :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return "", fmt.Errorf("increment order counter: %w", err)
	}
	var n int64
	if err := attributevalue.Unmarshal(out.Attributes["current_value"], &n); err != nil {
		return "", fmt.Errorf("unmarshal order counter: %w", err)
	}
	return strconv.FormatInt(orderIDBase+n, 10), nil
}

// Create persists a new order. It fails with ErrOrderExists if the id is
// taken.
func (s *Store) Create(ctx context.Context, o *Order) error {
	now := s.nowFunc()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	o.Version = 1
	o.GatewayOrderID = o.PaymentInfo.RazorpayOrderID

	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: sdkaws.String("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrOrderExists
		}
		return fmt.Errorf("put order: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		ConsistentRead: sdkaws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// FindByGatewayOrderID looks an order up by its payment gateway order id.
// Returns (nil, nil) if none matches.
func (s *Store) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              sdkaws.String(GatewayOrderIndex),
		KeyConditionExpression: sdkaws.String("razorpay_order_id = :g"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":g": &types.AttributeValueMemberS{Value: gatewayOrderID},
		},
		Limit: sdkaws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query gateway order: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	// the index projects keys only; re-read for a consistent full item
	var key struct {
		OrderID string `dynamodbav:"order_id"`
	}
	if err := attributevalue.UnmarshalMap(out.Items[0], &key); err != nil {
		return nil, fmt.Errorf("unmarshal gateway order key: %w", err)
	}
	return s.Get(ctx, key.OrderID)
}

// Mutate re-reads the order, applies fn and writes the result back guarded
// by the version read. fn returns changed=false to skip the write; it may be
// called more than once when a concurrent writer wins the race, so it must
// not have side effects outside the order.
func (s *Store) Mutate(ctx context.Context, orderID string, fn func(*Order) (bool, error)) (*Order, bool, error) {
	for attempt := 1; ; attempt++ {
		o, err := s.Get(ctx, orderID)
		if err != nil {
			return nil, false, err
		}
		if o == nil {
			return nil, false, ErrNotFound
		}

		changed, err := fn(o)
		if err != nil {
			return o, false, err
		}
		if !changed {
			return o, false, nil
		}

		err = s.save(ctx, o)
		if err == nil {
			return o, true, nil
		}
		if !errors.Is(err, ErrVersionConflict) || attempt >= maxMutateAttempts {
			return nil, false, err
		}
	}
}

func (s *Store) save(ctx context.Context, o *Order) error {
	expected := o.Version
	o.Version++
	o.UpdatedAt = s.nowFunc()
	o.GatewayOrderID = o.PaymentInfo.RazorpayOrderID

	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                &s.tableName,
		Item:                     item,
		ConditionExpression:      sdkaws.String("#v = :expected"),
		ExpressionAttributeNames: map[string]string{"#v": "version"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
		},
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrVersionConflict
		}
		return fmt.Errorf("put order: %w", err)
	}
	return nil
}

// ListNeedingTracking returns every order with needs_tracking = true.
func (s *Store) ListNeedingTracking(ctx context.Context) ([]Order, error) {
	var (
		result   []Order
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			FilterExpression:  sdkaws.String("needs_tracking = :t"),
			ExclusiveStartKey: startKey,
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberBOOL{Value: true},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("scan tracked orders: %w", err)
		}
		var page []Order
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal tracked orders: %w", err)
		}
		result = append(result, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return result, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
