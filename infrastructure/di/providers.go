package di

import (
	"context"
	"fmt"
	"time"

	"learnengine/application/commands"
	"learnengine/application/commands/bus"
	"learnengine/application/ports"
	"learnengine/application/queries"
	querybus "learnengine/application/queries/bus"
	"learnengine/application/services"
	domaincfg "learnengine/domain/config"
	"learnengine/domain/versioning"
	"learnengine/infrastructure/config"
	"learnengine/infrastructure/messaging/eventbridge"
	dynamorepo "learnengine/infrastructure/persistence/dynamodb"
	rediscache "learnengine/infrastructure/persistence/redis"
	"learnengine/pkg/auth"
	"learnengine/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDomainConfig loads business rule configuration for the environment
func ProvideDomainConfig(cfg *config.Config) *domaincfg.DomainConfig {
	return domaincfg.LoadDomainConfig(cfg.Environment)
}

// ProvideStalenessPolicy pins the policy to the current schema version
func ProvideStalenessPolicy() *versioning.StalenessPolicy {
	return versioning.NewStalenessPolicy(domaincfg.DAGSchemaVersion)
}

// ProvideTranslator resolves placeholder title keys. The default table is
// English; a localized deployment swaps this provider.
func ProvideTranslator() ports.Translator {
	table := map[string]string{
		"unnamed_card": "Untitled card",
		"unnamed_node": "Untitled topic",
	}
	return func(key string) string {
		if v, ok := table[key]; ok {
			return v
		}
		return key
	}
}

// ProvideBaseRepository creates the content graph reader
func ProvideBaseRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.BaseRepository {
	return dynamorepo.NewBaseRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideCardRepository creates the card reader
func ProvideCardRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.CardRepository {
	return dynamorepo.NewCardRepository(client, cfg.DynamoDBTable, cfg.NodeIndexName, logger)
}

// ProvideDAGRepository creates the DAG payload store
func ProvideDAGRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.DAGRepository {
	return dynamorepo.NewDAGRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideLearnStateRepository creates the learn state store
func ProvideLearnStateRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.LearnStateRepository {
	return dynamorepo.NewLearnStateRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideLearnResultRepository creates the attempt log
func ProvideLearnResultRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.LearnResultRepository {
	return dynamorepo.NewLearnResultRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideLearnProgressRepository creates the pass flag store
func ProvideLearnProgressRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.LearnProgressRepository {
	return dynamorepo.NewLearnProgressRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideStatsRepository creates the daily counter store
func ProvideStatsRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.StatsRepository {
	return dynamorepo.NewStatsRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideEventBus creates an event bus
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	return eventbridge.NewEventBridgePublisher(client, cfg.EventBusName, logger)
}

// ProvideEventPublisher narrows the bus to the publisher port
func ProvideEventPublisher(eventBus ports.EventBus) ports.EventPublisher {
	return eventBus
}

// ProvideCache picks the hot cache backend: Redis when configured, an
// in-process cache otherwise.
func ProvideCache(cfg *config.Config, logger *zap.Logger) ports.Cache {
	if cfg.RedisAddress != "" {
		client := rediscache.NewClient(cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		return rediscache.NewCache(client, "learnengine:", logger)
	}
	return NewInMemoryCache()
}

// ProvideMetrics creates metrics instance
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	namespace := fmt.Sprintf("LearnEngine/%s", cfg.Environment)
	return observability.NewMetrics(namespace, client)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer() *observability.Tracer {
	return observability.NewTracer("learnengine")
}

// ProvideDistributedRateLimiter creates a distributed rate limiter
func ProvideDistributedRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.DistributedRateLimiter {
	return auth.NewDistributedRateLimiter(
		client,
		cfg.DynamoDBTable,
		100,           // 100 requests
		1*time.Minute, // per minute
		"API",
	)
}

// ProvideDAGBuilder creates the graph materializer
func ProvideDAGBuilder(cards ports.CardRepository, translate ports.Translator, dcfg *domaincfg.DomainConfig, logger *zap.Logger) *services.DAGBuilder {
	return services.NewDAGBuilder(cards, translate, dcfg, logger)
}

// ProvideDAGService creates the DAG cache service
func ProvideDAGService(
	bases ports.BaseRepository,
	dags ports.DAGRepository,
	builder *services.DAGBuilder,
	policy *versioning.StalenessPolicy,
	cache ports.Cache,
	publisher ports.EventPublisher,
	dcfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *services.DAGService {
	return services.NewDAGService(bases, dags, builder, policy, cache, publisher, dcfg, logger)
}

// ProvideProgressionService creates the progression engine
func ProvideProgressionService(
	dags *services.DAGService,
	states ports.LearnStateRepository,
	results ports.LearnResultRepository,
	progress ports.LearnProgressRepository,
	stats ports.StatsRepository,
	publisher ports.EventPublisher,
	dcfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *services.ProgressionService {
	return services.NewProgressionService(dags, states, results, progress, stats, publisher, dcfg, logger)
}

// ProvideStatsService creates the stats reader
func ProvideStatsService(
	stats ports.StatsRepository,
	results ports.LearnResultRepository,
	states ports.LearnStateRepository,
	logger *zap.Logger,
) *services.StatsService {
	return services.NewStatsService(stats, results, states, logger)
}

// ProvidePassCardHandler creates the pass transition handler
func ProvidePassCardHandler(progression *services.ProgressionService, metrics *observability.Metrics, logger *zap.Logger) *commands.PassCardHandler {
	return commands.NewPassCardHandler(progression, metrics, logger)
}

// ProvideRebuildDAGHandler creates the admin rebuild handler
func ProvideRebuildDAGHandler(dags *services.DAGService, metrics *observability.Metrics, logger *zap.Logger) *commands.RebuildDAGHandler {
	return commands.NewRebuildDAGHandler(dags, metrics, logger)
}

// CommandHandlerAdapter adapts typed command handlers to the bus interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) error
}

func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	progression *services.ProgressionService,
	logger *zap.Logger,
) *bus.CommandBus {
	commandBus := bus.NewCommandBus()

	reorderHandler := commands.NewReorderSectionsHandler(progression, logger)
	commandBus.Register(commands.ReorderSectionsCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			reorderCmd, ok := cmd.(commands.ReorderSectionsCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return reorderHandler.Handle(ctx, reorderCmd)
		},
	})

	goalHandler := commands.NewSetDailyGoalHandler(progression, logger)
	commandBus.Register(commands.SetDailyGoalCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			goalCmd, ok := cmd.(commands.SetDailyGoalCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return goalHandler.Handle(ctx, goalCmd)
		},
	})

	return commandBus
}

// QueryHandlerAdapter adapts typed query handlers to the bus interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	progression *services.ProgressionService,
	stats *services.StatsService,
	dags *services.DAGService,
) *querybus.QueryBus {
	queryBus := querybus.NewQueryBus()

	lessonHandler := queries.NewGetLessonHandler(progression)
	queryBus.Register(queries.GetLessonQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.GetLessonQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return lessonHandler.Handle(ctx, q)
		},
	})

	sectionsHandler := queries.NewGetSectionsHandler(progression)
	queryBus.Register(queries.GetSectionsQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.GetSectionsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return sectionsHandler.Handle(ctx, q)
		},
	})

	statsHandler := queries.NewGetStatsHandler(stats)
	queryBus.Register(queries.GetStatsQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.GetStatsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return statsHandler.Handle(ctx, q)
		},
	})

	dagHandler := queries.NewGetDAGHandler(dags)
	queryBus.Register(queries.GetDAGQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.GetDAGQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return dagHandler.Handle(ctx, q)
		},
	})

	resultsHandler := queries.NewListResultsHandler(stats)
	queryBus.Register(queries.ListResultsQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.ListResultsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return resultsHandler.Handle(ctx, q)
		},
	})

	return queryBus
}
