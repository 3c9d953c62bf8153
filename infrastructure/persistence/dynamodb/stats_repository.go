package dynamodb

import (
	"context"
	"fmt"

	"learnengine/application/ports"
	"learnengine/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// StatsRepository accumulates daily counters with atomic ADD updates, so
// concurrent passes never lose increments.
type StatsRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.StatsRepository {
	return &StatsRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// statsItem represents the DynamoDB item structure for one day's counters
type statsItem struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	entities.DailyStats
}

func statsSK(date string) string {
	return fmt.Sprintf("STATS#%s", date)
}

// IncrementDaily adds the delta onto the (domain, user, date) row.
func (r *StatsRepository) IncrementDaily(ctx context.Context, delta *entities.DailyStats) error {
	num := func(v int64) types.AttributeValue {
		return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", v)}
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(delta.DomainID, delta.UserID)},
			"SK": &types.AttributeValueMemberS{Value: statsSK(delta.Date)},
		},
		UpdateExpression: aws.String(
			"ADD Nodes :nodes, Cards :cards, Problems :problems, Practices :practices, TotalTimeMs :time " +
				"SET DomainID = :domain, UserID = :user, #date = :date",
		),
		ExpressionAttributeNames: map[string]string{
			"#date": "Date",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":nodes":     num(int64(delta.Nodes)),
			":cards":     num(int64(delta.Cards)),
			":problems":  num(int64(delta.Problems)),
			":practices": num(int64(delta.Practices)),
			":time":      num(delta.TotalTimeMs),
			":domain":    &types.AttributeValueMemberS{Value: delta.DomainID},
			":user":      &types.AttributeValueMemberS{Value: delta.UserID},
			":date":      &types.AttributeValueMemberS{Value: delta.Date},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to increment daily stats: %w", err)
	}
	return nil
}

// GetDay retrieves one day's counters, zero-valued when absent.
func (r *StatsRepository) GetDay(ctx context.Context, domainID, userID, date string) (*entities.DailyStats, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(domainID, userID)},
			"SK": &types.AttributeValueMemberS{Value: statsSK(date)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}

	stats := &entities.DailyStats{DomainID: domainID, UserID: userID, Date: date}
	if result.Item == nil {
		return stats, nil
	}

	var item statsItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal daily stats: %w", err)
	}
	item.DailyStats.DomainID = domainID
	item.DailyStats.UserID = userID
	item.DailyStats.Date = date
	return &item.DailyStats, nil
}
