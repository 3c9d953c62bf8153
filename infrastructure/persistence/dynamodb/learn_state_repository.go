package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"learnengine/application/ports"
	"learnengine/domain/core/aggregates"
	"learnengine/domain/core/valueobjects"
	pkgerrors "learnengine/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const skState = "STATE"

// LearnStateRepository persists the per-user state singleton. Updates use
// a conditional write on StateVersion: the caller passes the version it
// read, and a mismatch surfaces as a conflict error for the CAS loop.
type LearnStateRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewLearnStateRepository creates a new LearnStateRepository
func NewLearnStateRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.LearnStateRepository {
	return &LearnStateRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// stateItem wraps the aggregate with the table keys. The aggregate's own
// dynamodbav tags describe the body.
type stateItem struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	aggregates.LearnState
}

// Get retrieves the state, creating it lazily on first read. The create
// is conditional so two first readers converge on one record.
func (r *LearnStateRepository) Get(ctx context.Context, key valueobjects.StateKey) (*aggregates.LearnState, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(key.DomainID, key.UserID)},
			"SK": &types.AttributeValueMemberS{Value: skState},
		},
		ConsistentRead: aws.Bool(true),
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get learn state: %w", err)
	}

	if result.Item != nil {
		var item stateItem
		if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal learn state: %w", err)
		}
		return &item.LearnState, nil
	}

	state := aggregates.NewLearnState(key)
	if err := r.create(ctx, key, state); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// Lost the creation race; the other writer's record wins.
			return r.Get(ctx, key)
		}
		return nil, err
	}

	r.logger.Debug("Created learn state",
		zap.String("domainID", key.DomainID),
		zap.String("userID", key.UserID),
	)
	return state, nil
}

// Update persists the state conditionally on the version it was read at.
func (r *LearnStateRepository) Update(ctx context.Context, state *aggregates.LearnState, readVersion int64) error {
	key := userPK(state.DomainID, state.UserID)
	av, err := r.marshal(key, state)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("StateVersion = :rv"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rv": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", readVersion)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return pkgerrors.NewConflictError("learn state was modified concurrently")
		}
		return fmt.Errorf("failed to update learn state: %w", err)
	}
	return nil
}

func (r *LearnStateRepository) create(ctx context.Context, key valueobjects.StateKey, state *aggregates.LearnState) error {
	av, err := r.marshal(userPK(key.DomainID, key.UserID), state)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	return err
}

func (r *LearnStateRepository) marshal(pk string, state *aggregates.LearnState) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(stateItem{
		PK:         pk,
		SK:         skState,
		LearnState: *state,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal learn state: %w", err)
	}
	return av, nil
}
