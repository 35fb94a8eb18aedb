package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/storage"
	"github.com/chris/custodial-ledger/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestGetUser(t *testing.T) {
	user := &models.User{ID: "user1", CustodyAddress: "addr1", Balance: 10, Version: 2}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "users", "sessions", "ledger")

		userAV, _ := attributevalue.MarshalMap(user)
		mockClient.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			return aws.ToString(in.TableName) == "users" && aws.ToBool(in.ConsistentRead)
		})).Return(&dynamodb.GetItemOutput{Item: userAV}, nil)

		result, err := store.GetUser(context.Background(), "user1")

		assert.NoError(t, err)
		assert.Equal(t, user.ID, result.ID)
		assert.Equal(t, user.Balance, result.Balance)
		assert.Equal(t, user.Version, result.Version)
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "users", "sessions", "ledger")
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: nil}, nil)

		_, err := store.GetUser(context.Background(), "user1")

		assert.ErrorIs(t, err, storage.ErrNotFound)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "users", "sessions", "ledger")
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(nil, errors.New("some storage error"))

		_, err := store.GetUser(context.Background(), "user1")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get user from DynamoDB")
		mockClient.AssertExpectations(t)
	})
}

func TestCreateUser(t *testing.T) {
	user := &models.User{ID: "user1", CustodyAddress: "addr1"}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("PutItem", mock.Anything, mock.Anything).Return(&dynamodb.PutItemOutput{}, nil)

		store := New(mockClient, "users", "sessions", "ledger")
		created, err := store.CreateUser(context.Background(), user)

		assert.NoError(t, err)
		assert.Equal(t, user, created)
		mockClient.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("PutItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		store := New(mockClient, "users", "sessions", "ledger")
		_, err := store.CreateUser(context.Background(), user)

		assert.ErrorIs(t, err, storage.ErrUserExists)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("PutItem", mock.Anything, mock.Anything).Return(nil, errors.New("some other storage error"))

		store := New(mockClient, "users", "sessions", "ledger")
		_, err := store.CreateUser(context.Background(), user)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create user in DynamoDB")
		mockClient.AssertExpectations(t)
	})
}
