package dynamodb

import (
	"context"
	"fmt"
	"time"

	"learnengine/application/ports"
	"learnengine/domain/core/aggregates"
	"learnengine/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DAGRepository persists materialized DAG payloads. Writes are full
// replacements; the payload is a single JSON blob so a reader never sees
// a half-written entry.
type DAGRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewDAGRepository creates a new DAGRepository
func NewDAGRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.DAGRepository {
	return &DAGRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// dagItem represents the DynamoDB item structure for a cached DAG
type dagItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	EntityType    string `dynamodbav:"EntityType"`
	DomainID      string `dynamodbav:"DomainID"`
	BaseID        string `dynamodbav:"BaseID"`
	Branch        string `dynamodbav:"Branch"`
	Payload       string `dynamodbav:"Payload"`
	Version       int64  `dynamodbav:"Version"`
	SchemaVersion int    `dynamodbav:"SchemaVersion"`
	UpdatedAt     string `dynamodbav:"UpdatedAt"`
}

func dagSK(key valueobjects.DAGKey) string {
	return fmt.Sprintf("DAG#%s#%s", key.BaseID, key.Branch)
}

// Get retrieves a cached DAG, or nil when no entry exists.
func (r *DAGRepository) Get(ctx context.Context, key valueobjects.DAGKey) (*aggregates.DAGDoc, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: domainPK(key.DomainID)},
			"SK": &types.AttributeValueMemberS{Value: dagSK(key)},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get DAG: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item dagItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DAG item: %w", err)
	}

	sections, dag, err := decodeDAGPayload(item.Payload)
	if err != nil {
		// A corrupt payload reads as missing; the staleness policy will
		// trigger a rebuild.
		r.logger.Error("Failed to decode cached DAG payload",
			zap.String("key", key.String()),
			zap.Error(err),
		)
		return nil, nil
	}

	doc := &aggregates.DAGDoc{
		Key:           key,
		Sections:      sections,
		DAG:           dag,
		Version:       item.Version,
		SchemaVersion: item.SchemaVersion,
	}
	if t, err := parseTimestamp(item.UpdatedAt); err == nil {
		doc.UpdatedAt = t
	}
	return doc, nil
}

// Put upserts a payload, fully replacing any previous entry.
func (r *DAGRepository) Put(ctx context.Context, doc *aggregates.DAGDoc) error {
	payload, err := encodeDAGPayload(doc.Sections, doc.DAG)
	if err != nil {
		return err
	}

	item := dagItem{
		PK:            domainPK(doc.Key.DomainID),
		SK:            dagSK(doc.Key),
		EntityType:    "DAG",
		DomainID:      doc.Key.DomainID,
		BaseID:        doc.Key.BaseID,
		Branch:        doc.Key.Branch,
		Payload:       payload,
		Version:       doc.Version,
		SchemaVersion: doc.SchemaVersion,
		UpdatedAt:     doc.UpdatedAt.Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal DAG item: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to put DAG: %w", err)
	}

	r.logger.Info("Persisted DAG payload",
		zap.String("key", doc.Key.String()),
		zap.Int64("version", doc.Version),
		zap.Int("sections", len(doc.Sections)),
		zap.Int("nodes", len(doc.DAG)),
	)
	return nil
}
