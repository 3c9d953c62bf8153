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

// Single-table key layout:
//
//	DOMAIN#{domainID} / BASE              — main content graph
//	DOMAIN#{domainID} / BASE#SKILLS       — optional skills variant
//	DOMAIN#{domainID} / CARD#{cardID}     — leaf content units
//	DOMAIN#{domainID} / DAG#{base}#{br}   — materialized DAG payloads
//	DOMAIN#{d}#USER#{u} / STATE           — learn state singleton
//	DOMAIN#{d}#USER#{u} / RESULT#{ts}#{id}
//	DOMAIN#{d}#USER#{u} / PROGRESS#{cardID}
//	DOMAIN#{d}#USER#{u} / STATS#{date}

const (
	skBase       = "BASE"
	skBaseSkills = "BASE#SKILLS"
)

func domainPK(domainID string) string {
	return fmt.Sprintf("DOMAIN#%s", domainID)
}

func userPK(domainID, userID string) string {
	return fmt.Sprintf("DOMAIN#%s#USER#%s", domainID, userID)
}

// BaseRepository reads authored content graphs from DynamoDB. The learn
// core never writes through it; the editor service owns these items.
type BaseRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewBaseRepository creates a new BaseRepository
func NewBaseRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.BaseRepository {
	return &BaseRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// baseItem represents the DynamoDB item structure for a base document.
// The graph body is stored as a JSON blob; node/edge lists routinely
// exceed DynamoDB's practical nested-attribute depth.
type baseItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	BaseID     string `dynamodbav:"BaseID"`
	DomainID   string `dynamodbav:"DomainID"`
	Title      string `dynamodbav:"Title"`
	Body       string `dynamodbav:"Body"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

// GetByDomain retrieves the main base document for a domain.
func (r *BaseRepository) GetByDomain(ctx context.Context, domainID string) (*entities.BaseDoc, error) {
	return r.get(ctx, domainID, skBase)
}

// GetSkills retrieves the skills variant, or nil when the domain has none.
func (r *BaseRepository) GetSkills(ctx context.Context, domainID string) (*entities.BaseDoc, error) {
	return r.get(ctx, domainID, skBaseSkills)
}

func (r *BaseRepository) get(ctx context.Context, domainID, sk string) (*entities.BaseDoc, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: domainPK(domainID)},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get base document: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item baseItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal base item: %w", err)
	}

	doc, err := decodeBaseDoc(&item)
	if err != nil {
		r.logger.Error("Failed to decode base document body",
			zap.String("domainID", domainID),
			zap.String("baseID", item.BaseID),
			zap.Error(err),
		)
		return nil, err
	}

	r.logger.Debug("Loaded base document",
		zap.String("domainID", domainID),
		zap.String("baseID", doc.ID),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("edges", len(doc.Edges)),
	)
	return doc, nil
}
