package di

import (
	"learnengine/application/commands"
	"learnengine/application/commands/bus"
	"learnengine/application/ports"
	querybus "learnengine/application/queries/bus"
	"learnengine/application/services"
	domaincfg "learnengine/domain/config"
	"learnengine/infrastructure/config"
	"learnengine/pkg/auth"
	"learnengine/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	DomainConfig *domaincfg.DomainConfig

	BaseRepo     ports.BaseRepository
	CardRepo     ports.CardRepository
	DAGRepo      ports.DAGRepository
	StateRepo    ports.LearnStateRepository
	ResultRepo   ports.LearnResultRepository
	ProgressRepo ports.LearnProgressRepository
	StatsRepo    ports.StatsRepository

	EventBus ports.EventBus
	Cache    ports.Cache

	DAGService  *services.DAGService
	Progression *services.ProgressionService
	Stats       *services.StatsService

	PassCardHandler   *commands.PassCardHandler
	RebuildDAGHandler *commands.RebuildDAGHandler
	CommandBus        *bus.CommandBus
	QueryBus          *querybus.QueryBus

	Metrics     *observability.Metrics
	Tracer      *observability.Tracer
	RateLimiter *auth.DistributedRateLimiter
}
