package dynamodb

import (
	"context"
	"fmt"
	"time"

	"learnengine/application/ports"
	"learnengine/domain/core/entities"
	"learnengine/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// LearnResultRepository is the append-only attempt log. Results sort under
// a timestamp-prefixed key so newest-first listing is a reverse query, and
// inserts are conditional so a retried request never overwrites an entry.
type LearnResultRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewLearnResultRepository creates a new LearnResultRepository
func NewLearnResultRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.LearnResultRepository {
	return &LearnResultRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// resultItem represents the DynamoDB item structure for a learn result
type resultItem struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	entities.LearnResult
	// Date is denormalized for the practice-date scan.
	Date string `dynamodbav:"PracticeDate"`
}

func resultSK(createdAt time.Time, id string) string {
	return fmt.Sprintf("RESULT#%s#%s", createdAt.UTC().Format(time.RFC3339Nano), id)
}

// Append inserts one result. Results are never mutated.
func (r *LearnResultRepository) Append(ctx context.Context, result *entities.LearnResult) error {
	item := resultItem{
		PK:          userPK(result.DomainID, result.UserID),
		SK:          resultSK(result.CreatedAt, result.ID),
		LearnResult: *result,
		Date:        utils.UTCDate(result.CreatedAt),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal learn result: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	}); err != nil {
		return fmt.Errorf("failed to append learn result: %w", err)
	}

	r.logger.Debug("Appended learn result",
		zap.String("resultID", result.ID),
		zap.String("cardID", result.CardID),
		zap.Int("score", result.Score),
	)
	return nil
}

// ListByUser retrieves results newest-first, bounded by limit.
func (r *LearnResultRepository) ListByUser(ctx context.Context, domainID, userID string, limit int) ([]entities.LearnResult, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(userPK(domainID, userID))).
			And(expression.Key("SK").BeginsWith("RESULT#"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build result query: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(int32(limit)),
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query learn results: %w", err)
	}

	results := make([]entities.LearnResult, 0, len(result.Items))
	for _, raw := range result.Items {
		var item resultItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal learn result item", zap.Error(err))
			continue
		}
		results = append(results, item.LearnResult)
	}
	return results, nil
}

// PracticeDates returns the distinct UTC days with at least one result.
// Pages through the full result range, projecting only the date column.
func (r *LearnResultRepository) PracticeDates(ctx context.Context, domainID, userID string) (map[string]struct{}, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(userPK(domainID, userID))).
			And(expression.Key("SK").BeginsWith("RESULT#"))).
		WithProjection(expression.NamesList(expression.Name("PracticeDate"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build practice-date query: %w", err)
	}

	dates := make(map[string]struct{})

	var lastKey map[string]types.AttributeValue
	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ProjectionExpression:      expr.Projection(),
			ExclusiveStartKey:         lastKey,
		}

		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query practice dates: %w", err)
		}

		for _, raw := range result.Items {
			var item struct {
				Date string `dynamodbav:"PracticeDate"`
			}
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				continue
			}
			if item.Date != "" {
				dates[item.Date] = struct{}{}
			}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}
	return dates, nil
}
