package services

import (
	"context"
	"encoding/json"
	"time"

	"learnengine/application/ports"
	"learnengine/domain/config"
	"learnengine/domain/core/aggregates"
	"learnengine/domain/core/entities"
	"learnengine/domain/core/valueobjects"
	"learnengine/domain/events"
	"learnengine/domain/versioning"
	pkgerrors "learnengine/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DAGService is the read-through cache in front of the builder. Every DAG
// read goes through here: check the hot cache, check the persisted entry,
// rebuild when stale, fully replace on write.
//
// Concurrent reads of the same stale key are collapsed with singleflight,
// so a content update triggers at most one rebuild per process. The last
// completed Put wins across processes; payloads are idempotent, so
// duplicate rebuilds are wasted work, not corruption.
type DAGService struct {
	bases     ports.BaseRepository
	dags      ports.DAGRepository
	builder   *DAGBuilder
	policy    *versioning.StalenessPolicy
	cache     ports.Cache
	publisher ports.EventPublisher
	cfg       *config.DomainConfig
	logger    *zap.Logger
	group     singleflight.Group
}

// NewDAGService creates a DAG service.
func NewDAGService(
	bases ports.BaseRepository,
	dags ports.DAGRepository,
	builder *DAGBuilder,
	policy *versioning.StalenessPolicy,
	cache ports.Cache,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *DAGService {
	return &DAGService{
		bases:     bases,
		dags:      dags,
		builder:   builder,
		policy:    policy,
		cache:     cache,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// GetDAG returns the current DAG for a domain's base graph on the given
// branch, rebuilding transparently when the cached entry is stale.
func (s *DAGService) GetDAG(ctx context.Context, domainID, branch string) (*aggregates.DAGDoc, error) {
	return s.get(ctx, domainID, branch, false)
}

// Rebuild regenerates the DAG unconditionally, bypassing staleness checks.
// Exposed for the admin rebuild endpoint.
func (s *DAGService) Rebuild(ctx context.Context, domainID, branch string) (*aggregates.DAGDoc, error) {
	return s.get(ctx, domainID, branch, true)
}

func (s *DAGService) get(ctx context.Context, domainID, branch string, force bool) (*aggregates.DAGDoc, error) {
	base, err := s.loadBase(ctx, domainID, branch)
	if err != nil {
		return nil, err
	}

	key, err := valueobjects.NewDAGKey(domainID, base.ID, branch)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	if !force {
		if cached, ok := s.cache.Get(ctx, cacheKey(key)); ok {
			if doc := decodeCached(cached); doc != nil && s.fresh(doc, base, key.Branch) {
				return doc, nil
			}
		}
	}

	// Collapse concurrent requests for the same key into one fetch/rebuild.
	v, err, _ := s.group.Do(key.String(), func() (interface{}, error) {
		return s.resolve(ctx, key, base, force)
	})
	if err != nil {
		return nil, err
	}

	doc := v.(*aggregates.DAGDoc)
	if err := s.cache.Set(ctx, cacheKey(key), doc, s.cfg.DAGCacheTTLSeconds); err != nil {
		s.logger.Warn("Failed to populate hot cache", zap.String("key", key.String()), zap.Error(err))
	}
	return doc, nil
}

// loadBase picks the source document for a branch. The skills branch has
// its own authored document when one exists; everything else reads the
// primary base, which resolves branch data internally.
func (s *DAGService) loadBase(ctx context.Context, domainID, branch string) (*entities.BaseDoc, error) {
	if branch == valueobjects.SkillsBranch {
		skills, err := s.bases.GetSkills(ctx, domainID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to load skills graph")
		}
		if skills != nil {
			return skills, nil
		}
	}
	base, err := s.bases.GetByDomain(ctx, domainID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load base graph")
	}
	if base == nil {
		return nil, pkgerrors.NewNotFoundError("base graph for domain " + domainID)
	}
	return base, nil
}

// fresh re-checks a hot-cache hit against the source document. A payload
// cached before a content update must not be served past it.
func (s *DAGService) fresh(doc *aggregates.DAGDoc, base *entities.BaseDoc, branch string) bool {
	nodes, _ := base.Graph(branch)
	return len(s.policy.Evaluate(doc, base.SourceVersion(), len(nodes))) == 0
}

// resolve loads the persisted entry, evaluates staleness and rebuilds when
// needed. Runs inside the singleflight group.
func (s *DAGService) resolve(ctx context.Context, key valueobjects.DAGKey, base *entities.BaseDoc, force bool) (*aggregates.DAGDoc, error) {
	nodes, edges := base.Graph(key.Branch)
	sourceVersion := base.SourceVersion()

	cached, err := s.dags.Get(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load cached DAG")
	}

	if !force {
		reasons := s.policy.Evaluate(cached, sourceVersion, len(nodes))
		if len(reasons) == 0 {
			return cached, nil
		}
		s.logger.Info("Rebuilding stale DAG",
			zap.String("key", key.String()),
			zap.Strings("reasons", staleReasonStrings(reasons)),
		)
	}

	built, err := s.builder.Build(ctx, key.DomainID, key.BaseID, nodes, edges)
	if err != nil {
		return nil, err
	}

	doc := aggregates.NewDAGDoc(key, built.Sections, built.DAG, sourceVersion, config.DAGSchemaVersion)
	if err := s.dags.Put(ctx, doc); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to persist rebuilt DAG")
	}

	s.publishRebuilt(ctx, key, cached, doc)
	return doc, nil
}

// publishRebuilt fires the rebuild notification. Failures are logged and
// swallowed; event delivery never blocks a read.
func (s *DAGService) publishRebuilt(ctx context.Context, key valueobjects.DAGKey, previous, current *aggregates.DAGDoc) {
	var fromVersion int64
	if previous != nil {
		fromVersion = previous.Version
	}
	event := events.NewDAGRebuilt(
		key.DomainID, key.BaseID, key.Branch,
		len(current.Sections), len(current.DAG),
		fromVersion, current.Version,
		time.Now(),
	)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish DAG rebuilt event",
			zap.String("key", key.String()),
			zap.Error(err),
		)
	}
}

func staleReasonStrings(reasons []versioning.StaleReason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}

func cacheKey(key valueobjects.DAGKey) string {
	return "dag:" + key.String()
}

// decodeCached handles both cache backends: the in-process cache hands
// back the typed document, the Redis cache hands back raw JSON.
func decodeCached(v interface{}) *aggregates.DAGDoc {
	switch cached := v.(type) {
	case *aggregates.DAGDoc:
		return cached
	case json.RawMessage:
		var doc aggregates.DAGDoc
		if err := json.Unmarshal(cached, &doc); err != nil {
			return nil
		}
		return &doc
	default:
		return nil
	}
}
