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

// CardRepository reads cards from DynamoDB. Cards carry a GSI keyed on
// their owning node so the builder can fetch a node's cards in one query.
type CardRepository struct {
	client        *dynamodb.Client
	tableName     string
	nodeIndexName string
	logger        *zap.Logger
}

// NewCardRepository creates a new CardRepository
func NewCardRepository(client *dynamodb.Client, tableName, nodeIndexName string, logger *zap.Logger) ports.CardRepository {
	return &CardRepository{
		client:        client,
		tableName:     tableName,
		nodeIndexName: nodeIndexName,
		logger:        logger,
	}
}

// cardItem represents the DynamoDB item structure for a card
type cardItem struct {
	PK        string             `dynamodbav:"PK"`
	SK        string             `dynamodbav:"SK"`
	GSI2PK    string             `dynamodbav:"GSI2PK"`
	GSI2SK    string             `dynamodbav:"GSI2SK"`
	CardID    string             `dynamodbav:"CardID"`
	NodeID    string             `dynamodbav:"NodeID"`
	Title     string             `dynamodbav:"Title"`
	Order     int                `dynamodbav:"CardOrder"`
	Problems  []entities.Problem `dynamodbav:"Problems,omitempty"`
	CreatedAt string             `dynamodbav:"CreatedAt"`
}

func nodeCardGSIPK(domainID, baseID, nodeID string) string {
	return fmt.Sprintf("NODE#%s#%s#%s", domainID, baseID, nodeID)
}

// GetByNodeID retrieves all cards attached to one graph node.
func (r *CardRepository) GetByNodeID(ctx context.Context, domainID, baseID, nodeID string) ([]entities.Card, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.nodeIndexName),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: nodeCardGSIPK(domainID, baseID, nodeID)},
		},
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards for node: %w", err)
	}

	cards := make([]entities.Card, 0, len(result.Items))
	for _, raw := range result.Items {
		var item cardItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal card item",
				zap.String("nodeID", nodeID),
				zap.Error(err),
			)
			continue
		}
		cards = append(cards, cardFromItem(&item))
	}
	return cards, nil
}

// GetByID retrieves a single card, or nil when it does not exist.
func (r *CardRepository) GetByID(ctx context.Context, domainID, cardID string) (*entities.Card, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: domainPK(domainID)},
			"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CARD#%s", cardID)},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item cardItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card: %w", err)
	}
	card := cardFromItem(&item)
	return &card, nil
}

func cardFromItem(item *cardItem) entities.Card {
	card := entities.Card{
		ID:       item.CardID,
		NodeID:   item.NodeID,
		Title:    item.Title,
		Order:    item.Order,
		Problems: item.Problems,
	}
	if t, err := parseTimestamp(item.CreatedAt); err == nil {
		card.CreatedAt = t
	}
	return card
}
