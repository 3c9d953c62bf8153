package dynamodb

import (
	"context"
	"fmt"
	"strings"

	"learnengine/application/ports"
	"learnengine/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// LearnProgressRepository tracks the monotonic per-card pass flag. A pass
// upsert is idempotent; there is no unpass operation.
type LearnProgressRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewLearnProgressRepository creates a new LearnProgressRepository
func NewLearnProgressRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.LearnProgressRepository {
	return &LearnProgressRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// progressItem represents the DynamoDB item structure for a pass flag
type progressItem struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	entities.LearnProgress
}

func progressSK(cardID string) string {
	return fmt.Sprintf("PROGRESS#%s", cardID)
}

// MarkPassed idempotently upserts passed=true for a card.
func (r *LearnProgressRepository) MarkPassed(ctx context.Context, progress *entities.LearnProgress) error {
	av, err := attributevalue.MarshalMap(progressItem{
		PK:            userPK(progress.DomainID, progress.UserID),
		SK:            progressSK(progress.CardID),
		LearnProgress: *progress,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal learn progress: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to mark card passed: %w", err)
	}
	return nil
}

// IsPassed reports whether a card is passed for a user.
func (r *LearnProgressRepository) IsPassed(ctx context.Context, domainID, userID, cardID string) (bool, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(domainID, userID)},
			"SK": &types.AttributeValueMemberS{Value: progressSK(cardID)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to get learn progress: %w", err)
	}
	if result.Item == nil {
		return false, nil
	}

	var item progressItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return false, fmt.Errorf("failed to unmarshal learn progress: %w", err)
	}
	return item.Passed, nil
}

// ListPassed returns the set of passed card ids for a user.
func (r *LearnProgressRepository) ListPassed(ctx context.Context, domainID, userID string) (map[string]bool, error) {
	passed := make(map[string]bool)

	var lastKey map[string]types.AttributeValue
	for {
		result, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: userPK(domainID, userID)},
				":sk": &types.AttributeValueMemberS{Value: "PROGRESS#"},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query learn progress: %w", err)
		}

		for _, raw := range result.Items {
			var item progressItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal progress item", zap.Error(err))
				continue
			}
			cardID := item.CardID
			if cardID == "" {
				cardID = strings.TrimPrefix(item.SK, "PROGRESS#")
			}
			if item.Passed {
				passed[cardID] = true
			}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}
	return passed, nil
}
