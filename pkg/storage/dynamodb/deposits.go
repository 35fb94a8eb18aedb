package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/storage"
)

// Positions of the fixed items in the CommitDeposit transaction.
const (
	depositRefItem = iota
	depositSessionItem
	depositUserItem
)

// CommitDeposit claims the deposit reference, creates the session, writes the credited
// user and appends the ledger entries in one transaction.
func (s *Store) CommitDeposit(ctx context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error {
	// 1. Marshal the reference marker and the new session.
	markerAV, err := attributevalue.MarshalMap(depositRefMarker{ID: depositRefPrefix + session.DepositRef, SessionID: session.ID})
	if err != nil {
		return fmt.Errorf("failed to marshal deposit reference: %w", err)
	}
	sessionPut, err := s.putSession(session, "attribute_not_exists(id)", nil)
	if err != nil {
		return err
	}

	// 2. The user must be unchanged since it was read and hold no active session.
	userPut, err := s.putUser(user, "version = :version AND attribute_not_exists(active_session_id)", nil)
	if err != nil {
		return err
	}

	entryItems, err := s.putEntries(entries)
	if err != nil {
		return err
	}

	// 3. Construct the TransactWriteItems input.
	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           aws.String(s.SessionsTableName),
				Item:                markerAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		},
		{Put: sessionPut},
		{Put: userPut},
	}
	items = append(items, entryItems...)

	// 4. Execute the transaction.
	_, err = s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		reasons := cancellationReasons(err)
		switch {
		case failedCondition(reasons, depositRefItem):
			return storage.ErrDuplicateDepositRef
		case failedCondition(reasons, depositSessionItem):
			return storage.ErrStateConflict
		case failedCondition(reasons, depositUserItem):
			return userConflict(reasons[depositUserItem])
		}
		return fmt.Errorf("failed to execute deposit transaction: %w", err)
	}

	user.Version++
	return nil
}

// userConflict tells an active session apart from a stale version using the item
// returned with the failed condition.
func userConflict(reason types.CancellationReason) error {
	if reason.Item == nil {
		return storage.ErrNotFound
	}
	var stored models.User
	if err := attributevalue.UnmarshalMap(reason.Item, &stored); err != nil {
		return storage.ErrVersionConflict
	}
	if stored.ActiveSessionID != "" {
		return storage.ErrActiveSession
	}
	return storage.ErrVersionConflict
}
