package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/unifly3582/orderflow/internal/aws"
)

// AutoApprovalID is the key of the singleton auto-approval record.
const AutoApprovalID = "autoApproval"

// AutoApproval holds the rules the auto-approval engine evaluates.
type AutoApproval struct {
	MaxAutoApprovalValue      float64 `dynamodbav:"max_auto_approval_value" json:"maxAutoApprovalValue" validate:"gte=0"`
	MinCustomerAgeDays        int     `dynamodbav:"min_customer_age_days" json:"minCustomerAgeDays" validate:"gte=0"`
	AllowNewCustomers         bool    `dynamodbav:"allow_new_customers" json:"allowNewCustomers"`
	RequireVerifiedDimensions bool    `dynamodbav:"require_verified_dimensions" json:"requireVerifiedDimensions"`
}

// Defaults is used when no record has been saved yet. A zero ceiling means
// nothing is approved automatically.
func Defaults() AutoApproval {
	return AutoApproval{
		MaxAutoApprovalValue: 0,
		MinCustomerAgeDays:   30,
		AllowNewCustomers:    false,
	}
}

type record struct {
	SettingID string    `dynamodbav:"setting_id"` // PK
	UpdatedAt time.Time `dynamodbav:"updated_at"`
	AutoApproval
}

// Store reads and writes singleton settings records.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

// GetAutoApproval returns the saved settings, or Defaults when none exist.
func (s *Store) GetAutoApproval(ctx context.Context) (AutoApproval, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"setting_id": &types.AttributeValueMemberS{Value: AutoApprovalID},
		},
	})
	if err != nil {
		return AutoApproval{}, fmt.Errorf("get auto-approval settings: %w", err)
	}
	if len(out.Item) == 0 {
		return Defaults(), nil
	}
	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return AutoApproval{}, fmt.Errorf("unmarshal auto-approval settings: %w", err)
	}
	return rec.AutoApproval, nil
}

// PutAutoApproval replaces the singleton record.
func (s *Store) PutAutoApproval(ctx context.Context, a AutoApproval) error {
	item, err := attributevalue.MarshalMap(record{
		SettingID:    AutoApprovalID,
		UpdatedAt:    s.nowFunc(),
		AutoApproval: a,
	})
	if err != nil {
		return fmt.Errorf("marshal auto-approval settings: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.tableName, Item: item}); err != nil {
		return fmt.Errorf("put auto-approval settings: %w", err)
	}
	return nil
}
