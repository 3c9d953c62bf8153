//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"learnengine/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideDomainConfig,
	ProvideStalenessPolicy,
	ProvideTranslator,
	ProvideBaseRepository,
	ProvideCardRepository,
	ProvideDAGRepository,
	ProvideLearnStateRepository,
	ProvideLearnResultRepository,
	ProvideLearnProgressRepository,
	ProvideStatsRepository,
	ProvideEventBus,
	ProvideEventPublisher,
	ProvideCache,
	ProvideMetrics,
	ProvideTracer,
	ProvideDistributedRateLimiter,
	ProvideDAGBuilder,
	ProvideDAGService,
	ProvideProgressionService,
	ProvideStatsService,
	ProvidePassCardHandler,
	ProvideRebuildDAGHandler,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
