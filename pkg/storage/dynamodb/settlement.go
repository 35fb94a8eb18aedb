package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/storage"
)

// BeginSettlement atomically moves a session from OPEN to SETTLING. Only one caller can
// win this transition, so the payout that follows is attempted at most once per entry.
func (s *Store) BeginSettlement(ctx context.Context, session *models.Session) error {
	return s.replaceSession(ctx, session, models.OPEN)
}

// RecordSettlementAttempt stores the payout ref and attempt details of a SETTLING session.
func (s *Store) RecordSettlementAttempt(ctx context.Context, session *models.Session) error {
	return s.replaceSession(ctx, session, models.SETTLING)
}

// AbortSettlement moves a SETTLING session back to OPEN.
func (s *Store) AbortSettlement(ctx context.Context, session *models.Session) error {
	return s.replaceSession(ctx, session, models.SETTLING)
}

// CompleteSettlement moves a SETTLING session to SETTLED together with the user write.
func (s *Store) CompleteSettlement(ctx context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error {
	return s.closeSession(ctx, user, session, entries, models.SETTLING)
}

// ExpireSession moves an OPEN session to EXPIRED together with the user write.
func (s *Store) ExpireSession(ctx context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error {
	return s.closeSession(ctx, user, session, entries, models.OPEN)
}

// replaceSession overwrites a session only while the stored copy is in the given state.
func (s *Store) replaceSession(ctx context.Context, session *models.Session, from models.SessionState) error {
	put, err := s.putSession(session, "#state = :state", stateValue(from))
	if err != nil {
		return err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 put.TableName,
		Item:                      put.Item,
		ConditionExpression:       put.ConditionExpression,
		ExpressionAttributeNames:  put.ExpressionAttributeNames,
		ExpressionAttributeValues: put.ExpressionAttributeValues,
	})
	if err != nil {
		if isConditionFailure(err) {
			return storage.ErrStateConflict
		}
		return fmt.Errorf("failed to update session %s: %w", session.ID, err)
	}
	return nil
}

func (s *Store) closeSession(ctx context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry, from models.SessionState) error {
	sessionPut, err := s.putSession(session, "#state = :state", stateValue(from))
	if err != nil {
		return err
	}
	userPut, err := s.putUser(user, "version = :version", nil)
	if err != nil {
		return err
	}
	entryItems, err := s.putEntries(entries)
	if err != nil {
		return err
	}

	items := append([]types.TransactWriteItem{{Put: sessionPut}, {Put: userPut}}, entryItems...)
	_, err = s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		reasons := cancellationReasons(err)
		switch {
		case failedCondition(reasons, 0):
			return storage.ErrStateConflict
		case failedCondition(reasons, 1):
			return storage.ErrVersionConflict
		}
		return fmt.Errorf("failed to close session %s: %w", session.ID, err)
	}

	user.Version++
	return nil
}
