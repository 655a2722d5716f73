package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ignite/newsletter-backend/internal/subscriber"
)

// DynamoStore is the DynamoDB-backed subscriber record store. The table is
// keyed on id; email lookups go through a GSI that is unique by convention
// only, so email uniqueness is enforced by read-before-write in the service.
type DynamoStore struct {
	client     *dynamodb.Client
	table      string
	emailIndex string
}

// subscriberItem is the DynamoDB shape of a subscriber record. Timestamps are
// stored as RFC3339 strings so the table stays readable in the console.
type subscriberItem struct {
	ID              string `dynamodbav:"id"`
	Email           string `dynamodbav:"email"`
	Status          string `dynamodbav:"status"`
	ValidationToken string `dynamodbav:"validation_token,omitempty"`
	TokenExpiration string `dynamodbav:"token_expiration,omitempty"`
	CreatedAt       string `dynamodbav:"created_at"`
	UpdatedAt       string `dynamodbav:"updated_at"`
}

// NewDynamoStore creates a DynamoDB store for the given table and email GSI.
func NewDynamoStore(client *dynamodb.Client, table, emailIndex string) *DynamoStore {
	return &DynamoStore{client: client, table: table, emailIndex: emailIndex}
}

// GetByID fetches a record by primary key. Returns (nil, nil) when absent.
func (s *DynamoStore) GetByID(ctx context.Context, id string) (*subscriber.Subscriber, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting subscriber by id: %w", errors.Join(ErrUnavailable, err))
	}
	if result.Item == nil {
		return nil, nil
	}

	return unmarshalSubscriber(result.Item)
}

// GetByEmail fetches a record via the email GSI. Returns (nil, nil) when
// absent. If the index ever holds more than one item for an email, the first
// match wins; the invariant is restored by the next full-record Put.
func (s *DynamoStore) GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.emailIndex),
		KeyConditionExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("querying subscriber by email: %w", errors.Join(ErrUnavailable, err))
	}
	if len(result.Items) == 0 {
		return nil, nil
	}

	return unmarshalSubscriber(result.Items[0])
}

// Put writes the full record, overwriting any previous version.
func (s *DynamoStore) Put(ctx context.Context, sub *subscriber.Subscriber) error {
	av, err := attributevalue.MarshalMap(toItem(sub))
	if err != nil {
		return fmt.Errorf("marshaling subscriber: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting subscriber: %w", errors.Join(ErrUnavailable, err))
	}
	return nil
}

// PutIfAbsent writes the record only if no item with this id exists yet.
// Email-level uniqueness cannot be expressed as a GSI condition, so this
// tightens the create path without fully closing the duplicate-email race.
func (s *DynamoStore) PutIfAbsent(ctx context.Context, sub *subscriber.Subscriber) error {
	av, err := attributevalue.MarshalMap(toItem(sub))
	if err != nil {
		return fmt.Errorf("marshaling subscriber: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("putting subscriber: %w", errors.Join(ErrUnavailable, err))
	}
	return nil
}

func toItem(sub *subscriber.Subscriber) subscriberItem {
	item := subscriberItem{
		ID:        sub.ID,
		Email:     sub.Email,
		Status:    string(sub.Status),
		CreatedAt: sub.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: sub.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if sub.ValidationToken != "" {
		item.ValidationToken = sub.ValidationToken
		item.TokenExpiration = sub.TokenExpires.UTC().Format(time.RFC3339)
	}
	return item
}

func unmarshalSubscriber(av map[string]types.AttributeValue) (*subscriber.Subscriber, error) {
	var item subscriberItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling subscriber item: %w", err)
	}
	return fromItem(item)
}

func fromItem(item subscriberItem) (*subscriber.Subscriber, error) {
	createdAt, err := time.Parse(time.RFC3339, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	sub := &subscriber.Subscriber{
		ID:              item.ID,
		Email:           item.Email,
		Status:          subscriber.Status(item.Status),
		ValidationToken: item.ValidationToken,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}
	if item.TokenExpiration != "" {
		expires, err := time.Parse(time.RFC3339, item.TokenExpiration)
		if err != nil {
			return nil, fmt.Errorf("parsing token_expiration: %w", err)
		}
		sub.TokenExpires = expires
	}
	return sub, nil
}
