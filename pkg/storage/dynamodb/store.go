// Package dynamodb implements storage.Storage on AWS DynamoDB. Every multi-record
// write is a single TransactWriteItems call guarded by condition expressions.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/storage"
)

// DynamoDBAPI is the subset of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client            DynamoDBAPI
	UsersTableName    string
	SessionsTableName string
	LedgerTableName   string
}

// New creates a new Store.
func New(client DynamoDBAPI, usersTable, sessionsTable, ledgerTable string) *Store {
	return &Store{
		Client:            client,
		UsersTableName:    usersTable,
		SessionsTableName: sessionsTable,
		LedgerTableName:   ledgerTable,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

const (
	sessionStateGSI = "state-opened_at-index"
	ledgerGSI       = "gsi1pk-timestamp-index"

	// Deposit references are claimed by a marker item in the sessions table so the claim
	// commits in the same transaction as the session it funds.
	depositRefPrefix = "depositref#"

	conditionalCheckFailed = "ConditionalCheckFailed"

	sortableTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type depositRefMarker struct {
	ID        string `dynamodbav:"id"`
	SessionID string `dynamodbav:"session_id"`
}

func (s *Store) putUser(user *models.User, condition string, values map[string]types.AttributeValue) (*types.Put, error) {
	next := *user
	next.Version++
	item, err := attributevalue.MarshalMap(next)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}
	if values == nil {
		values = map[string]types.AttributeValue{}
	}
	values[":version"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", user.Version)}
	return &types.Put{
		TableName:                           aws.String(s.UsersTableName),
		Item:                                item,
		ConditionExpression:                 aws.String(condition),
		ExpressionAttributeValues:           values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}, nil
}

func (s *Store) putSession(session *models.Session, condition string, values map[string]types.AttributeValue) (*types.Put, error) {
	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	// opened_at is the state index range key and is compared as a string.
	item["opened_at"] = &types.AttributeValueMemberS{Value: sortableTime(session.OpenedAt)}
	put := &types.Put{
		TableName:           aws.String(s.SessionsTableName),
		Item:                item,
		ConditionExpression: aws.String(condition),
	}
	if len(values) > 0 {
		put.ExpressionAttributeNames = map[string]string{"#state": "state"}
		put.ExpressionAttributeValues = values
	}
	return put, nil
}

func (s *Store) putEntries(entries []models.LedgerEntry) ([]types.TransactWriteItem, error) {
	items := make([]types.TransactWriteItem, 0, len(entries))
	for _, entry := range entries {
		av, err := attributevalue.MarshalMap(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ledger entry: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.LedgerTableName),
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(entry_id)"),
			},
		})
	}
	return items, nil
}

// sortableTime formats t in UTC with a fixed-width fraction so lexical order matches
// chronological order.
func sortableTime(t time.Time) string {
	return t.UTC().Format(sortableTimeLayout)
}

func stateValue(state models.SessionState) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{":state": &types.AttributeValueMemberS{Value: string(state)}}
}

// cancellationReasons returns the per-item reasons of a cancelled transaction, or nil.
func cancellationReasons(err error) []types.CancellationReason {
	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		return cancelled.CancellationReasons
	}
	return nil
}

func failedCondition(reasons []types.CancellationReason, i int) bool {
	return i < len(reasons) && aws.ToString(reasons[i].Code) == conditionalCheckFailed
}

func isConditionFailure(err error) bool {
	var condCheckFailed *types.ConditionalCheckFailedException
	return errors.As(err, &condCheckFailed)
}
