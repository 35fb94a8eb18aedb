package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/storage"
)

// GetSession retrieves a session from DynamoDB by its ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session ID: %w", err)
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.SessionsTableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var session models.Session
	if err := attributevalue.UnmarshalMap(result.Item, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.State == "" {
		// Deposit reference markers share the table but are not sessions.
		return nil, storage.ErrNotFound
	}
	return &session, nil
}

// ListSessionsByState queries the state index for sessions opened at or before the cutoff,
// following pagination to the end.
func (s *Store) ListSessionsByState(ctx context.Context, state models.SessionState, openedBy time.Time) ([]models.Session, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.SessionsTableName),
		IndexName:              aws.String(sessionStateGSI),
		KeyConditionExpression: aws.String("#state = :state AND opened_at <= :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#state": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":state":  &types.AttributeValueMemberS{Value: string(state)},
			":cutoff": &types.AttributeValueMemberS{Value: sortableTime(openedBy)},
		},
	}

	var sessions []models.Session
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query sessions by state: %w", err)
		}

		var page []models.Session
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sessions: %w", err)
		}
		sessions = append(sessions, page...)

		if len(result.LastEvaluatedKey) == 0 {
			return sessions, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}
