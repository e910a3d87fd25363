// Package materializer implements the shard materialization pipeline: it
// iterates a batch of integration records, transforms each through the rule
// evaluation engine, deduplicates against existing shards, creates or
// updates primary and derived shards, and links the relationship graph.
// Records are independent; one record's failure never aborts the batch.
package materializer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fabrik-data/fabrik-engine/pkg/apperrors"
	"github.com/fabrik-data/fabrik-engine/pkg/jsonutil"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
	"github.com/fabrik-data/fabrik-engine/pkg/repositories"
	"github.com/fabrik-data/fabrik-engine/pkg/retry"
	"github.com/fabrik-data/fabrik-engine/pkg/services"
	"github.com/fabrik-data/fabrik-engine/pkg/transform"
)

const (
	defaultWorkers        = 8
	defaultStorageTimeout = 10 * time.Second
)

// Materializer converts record batches into shards and relationship edges.
type Materializer struct {
	shards    repositories.ShardRepository
	edges     repositories.ShardRelationshipRepository
	engine    *transform.Engine
	telemetry services.TelemetryService
	logger    *zap.Logger

	workers        int
	storageTimeout time.Duration
	retryConfig    *retry.Config
	locks          *keyMutex
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithWorkers bounds concurrent per-record materialization within a batch.
func WithWorkers(n int) Option {
	return func(m *Materializer) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithStorageTimeout bounds every call to storage collaborators.
func WithStorageTimeout(d time.Duration) Option {
	return func(m *Materializer) {
		if d > 0 {
			m.storageTimeout = d
		}
	}
}

// WithRetryConfig sets the retry policy for storage writes.
func WithRetryConfig(cfg *retry.Config) Option {
	return func(m *Materializer) {
		if cfg != nil {
			m.retryConfig = cfg
		}
	}
}

// New creates a Materializer.
func New(
	shards repositories.ShardRepository,
	edges repositories.ShardRelationshipRepository,
	engine *transform.Engine,
	telemetry services.TelemetryService,
	logger *zap.Logger,
	opts ...Option,
) *Materializer {
	m := &Materializer{
		shards:         shards,
		edges:          edges,
		engine:         engine,
		telemetry:      telemetry,
		logger:         logger.Named("materializer"),
		workers:        defaultWorkers,
		storageTimeout: defaultStorageTimeout,
		retryConfig:    retry.DefaultConfig(),
		locks:          newKeyMutex(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// shardState classifies the outcome of one upsert.
type shardState int

const (
	stateCreated shardState = iota
	stateUpdated
	stateUnchanged
)

// recordOutcome collects everything one record produced.
type recordOutcome struct {
	created   []*models.Shard
	updated   []*models.Shard
	unchanged []*models.Shard
	failure   *models.MaterializationFailure
	edges     []models.RelationshipEdge
}

// Materialize runs the pipeline over one record batch. It returns an error
// only for invocation-level misconfiguration, before any record is
// processed; per-record failures land in the result's Failed list.
func (m *Materializer) Materialize(ctx context.Context, tenantID, integrationID uuid.UUID, records []map[string]any, schema *models.ConversionSchema, opts models.MaterializeOptions) (*models.MaterializationResult, error) {
	if schema == nil || schema.OutputShardTypes.Primary == "" {
		return nil, apperrors.ErrMissingPrimaryShardType
	}

	start := time.Now()
	m.telemetry.BatchStarted(ctx, "materialize_shards", tenantID, integrationID, len(records))

	result := &models.MaterializationResult{
		Created:       []*models.Shard{},
		Updated:       []*models.Shard{},
		Unchanged:     []*models.Shard{},
		Failed:        []models.MaterializationFailure{},
		Relationships: []models.RelationshipEdge{},
	}

	var mu sync.Mutex
	// Workers never return errors: failures are data, and one record must
	// not cancel its siblings.
	g := new(errgroup.Group)
	g.SetLimit(m.workers)

	for _, record := range records {
		g.Go(func() error {
			outcome := m.materializeRecord(ctx, tenantID, integrationID, record, schema, opts)

			mu.Lock()
			result.Created = append(result.Created, outcome.created...)
			result.Updated = append(result.Updated, outcome.updated...)
			result.Unchanged = append(result.Unchanged, outcome.unchanged...)
			result.Relationships = append(result.Relationships, outcome.edges...)
			if outcome.failure != nil {
				result.Failed = append(result.Failed, *outcome.failure)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	m.telemetry.BatchCompleted(ctx, "materialize_shards", tenantID, integrationID, result, time.Since(start))
	return result, nil
}

// materializeRecord runs steps 1-7 for a single record. Panics are caught
// here and converted into a failure entry so the batch keeps going.
func (m *Materializer) materializeRecord(ctx context.Context, tenantID, integrationID uuid.UUID, record map[string]any, schema *models.ConversionSchema, opts models.MaterializeOptions) (out *recordOutcome) {
	out = &recordOutcome{}
	externalID := "unknown"

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic while materializing record",
				zap.Any("panic", r),
				zap.String("external_id", externalID))
			out = &recordOutcome{failure: &models.MaterializationFailure{
				ExternalID: externalID,
				Reason:     fmt.Sprintf("panic: %v", r),
			}}
		}
	}()

	id, ok := resolveExternalID(schema, record)
	if !ok {
		out.failure = &models.MaterializationFailure{
			ExternalID: externalID,
			Reason:     "record has no resolvable external id",
		}
		return out
	}
	externalID = id
	name := resolveName(schema, record, id)

	tres := m.engine.Transform(schema, record, transform.Context{TaskConfig: opts.TaskConfig})
	if !tres.Success {
		out.failure = &models.MaterializationFailure{
			ExternalID: id,
			Reason:     "transformation failed: " + strings.Join(tres.Errors, "; "),
		}
		return out
	}

	primary, state, err := m.upsertShard(ctx, tenantID, integrationID, schema.OutputShardTypes.Primary, id, name, tres.Data, record, opts)
	if err != nil {
		m.telemetry.RecordException(ctx, "materialize_primary_shard", err, map[string]string{
			"tenant_id":   tenantID.String(),
			"external_id": id,
		})
		out.failure = &models.MaterializationFailure{ExternalID: id, Reason: err.Error()}
		return out
	}
	out.record(primary, state)

	for _, desc := range schema.OutputShardTypes.Derived {
		derived, dstate, derivedErr := m.materializeDerived(ctx, tenantID, integrationID, primary, desc, record, opts)
		if derivedErr != nil {
			out.failure = &models.MaterializationFailure{
				ExternalID: id,
				Reason:     fmt.Sprintf("derived shard %s: %v", desc.ShardTypeID, derivedErr),
			}
			return out
		}
		if derived == nil {
			// Extraction yielded nothing; not a failure.
			continue
		}
		out.record(derived, dstate)

		if desc.LinkToPrimary && opts.DerivedLinksEnabled() {
			relType := desc.LinkRelationshipType
			if relType == "" {
				relType = "has_" + inflection.Singular(desc.ShardTypeID)
			}
			if edge, linkErr := m.linkShards(ctx, tenantID, primary, derived, relType); linkErr != nil {
				// Best effort: a broken link never fails the owning record.
				m.logger.Warn("failed to link derived shard",
					zap.String("primary_id", primary.ID.String()),
					zap.String("derived_type", desc.ShardTypeID),
					zap.Error(linkErr))
			} else {
				out.edges = append(out.edges, edge)
			}
		}
	}

	if opts.RelationshipsEnabled() {
		out.edges = append(out.edges, m.resolveDeclaredRelationships(ctx, tenantID, integrationID, primary, schema.Relationships, record)...)
	}

	return out
}

func (o *recordOutcome) record(shard *models.Shard, state shardState) {
	switch state {
	case stateCreated:
		o.created = append(o.created, shard)
	case stateUpdated:
		o.updated = append(o.updated, shard)
	case stateUnchanged:
		o.unchanged = append(o.unchanged, shard)
	}
}

// upsertShard is the dedup-sensitive create-or-update. The per-key lock
// plus the repository's conditional insert keep concurrent workers from
// double-creating one dedup key.
func (m *Materializer) upsertShard(ctx context.Context, tenantID, integrationID uuid.UUID, shardTypeID, externalID, name string, data, raw map[string]any, opts models.MaterializeOptions) (*models.Shard, shardState, error) {
	key := strings.Join([]string{tenantID.String(), integrationID.String(), externalID, shardTypeID}, "\x00")
	unlock := m.locks.Lock(key)
	defer unlock()

	if !opts.SkipDuplicateCheck {
		existing, err := m.findShard(ctx, tenantID, integrationID, externalID, shardTypeID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, 0, err
		}
		if existing != nil {
			if !opts.UpdateExisting {
				return existing, stateUnchanged, nil
			}
			return m.refreshShard(ctx, existing, name, data)
		}
	}

	now := time.Now()
	shard := &models.Shard{
		TenantID:       tenantID,
		IntegrationID:  integrationID,
		ShardTypeID:    shardTypeID,
		Name:           name,
		ExternalID:     externalID,
		StructuredData: data,
		Source:         models.ShardSourceIntegration,
		SyncStatus:     models.SyncStatusSynced,
		SyncedAt:       &now,
		Metadata: map[string]any{
			models.MetaIntegrationID: integrationID.String(),
			models.MetaExternalID:    externalID,
			models.MetaRawRecord:     raw,
		},
	}

	created, err := m.createShard(ctx, shard)
	if err != nil {
		return nil, 0, err
	}
	if created {
		return shard, stateCreated, nil
	}

	// The conditional insert hit an existing row: either the duplicate
	// check was skipped or a concurrent writer on another instance won.
	existing, err := m.findShard(ctx, tenantID, integrationID, externalID, shardTypeID)
	if err != nil {
		return nil, 0, err
	}
	if !opts.UpdateExisting {
		return existing, stateUnchanged, nil
	}
	return m.refreshShard(ctx, existing, name, data)
}

// refreshShard replaces an existing shard's structured data and marks it
// synced.
func (m *Materializer) refreshShard(ctx context.Context, existing *models.Shard, name string, data map[string]any) (*models.Shard, shardState, error) {
	now := time.Now()
	status := models.SyncStatusSynced
	patch := models.ShardPatch{
		Name:           &name,
		StructuredData: data,
		SyncStatus:     &status,
		SyncedAt:       &now,
	}
	if err := m.updateShard(ctx, existing.ID, existing.TenantID, patch); err != nil {
		return nil, 0, err
	}
	existing.Name = name
	existing.StructuredData = data
	existing.SyncStatus = status
	existing.SyncedAt = &now
	return existing, stateUpdated, nil
}

// materializeDerived extracts a secondary shard from the record. A nil
// shard with a nil error means extraction yielded nothing and the
// descriptor was skipped.
func (m *Materializer) materializeDerived(ctx context.Context, tenantID, integrationID uuid.UUID, primary *models.Shard, desc models.DerivedDescriptor, record map[string]any, opts models.MaterializeOptions) (*models.Shard, shardState, error) {
	data := extractDerivedData(desc, record)
	if len(data) == 0 {
		return nil, 0, nil
	}

	externalID := ""
	if desc.ExternalIDField != "" {
		value, _ := transform.Lookup(record, desc.ExternalIDField)
		externalID = jsonutil.FlexibleString(value)
	}
	if externalID == "" {
		// Deterministic, so re-runs converge on the same derived shard.
		externalID = primary.ExternalID + "-" + desc.ShardTypeID
	}

	name := externalID
	if desc.NameField != "" {
		value, _ := transform.Lookup(record, desc.NameField)
		if s := jsonutil.FlexibleString(value); s != "" {
			name = s
		}
	}

	return m.upsertShard(ctx, tenantID, integrationID, desc.ShardTypeID, externalID, name, data, record, opts)
}

// extractDerivedData pulls the descriptor's field list out of the record,
// keyed by each path's last segment. Unresolvable fields are dropped.
func extractDerivedData(desc models.DerivedDescriptor, record map[string]any) map[string]any {
	data := make(map[string]any, len(desc.Fields))
	for _, path := range desc.Fields {
		value, found := transform.Lookup(record, path)
		if !found || value == nil {
			continue
		}
		segments := strings.Split(path, ".")
		data[segments[len(segments)-1]] = value
	}
	return data
}

// resolveDeclaredRelationships resolves each schema-declared edge for one
// record. Missing targets are silently skipped; storage hiccups are logged.
// Neither ever fails the owning record.
func (m *Materializer) resolveDeclaredRelationships(ctx context.Context, tenantID, integrationID uuid.UUID, primary *models.Shard, declarations []models.RelationshipDeclaration, record map[string]any) []models.RelationshipEdge {
	var edges []models.RelationshipEdge
	for _, decl := range declarations {
		value, _ := transform.Lookup(record, decl.TargetExternalIDField)
		targetExternalID := jsonutil.FlexibleString(value)
		if targetExternalID == "" {
			continue
		}

		target, err := m.findShard(ctx, tenantID, integrationID, targetExternalID, decl.TargetShardTypeID)
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			m.logger.Warn("failed to resolve relationship target",
				zap.String("target_external_id", targetExternalID),
				zap.String("target_type", decl.TargetShardTypeID),
				zap.Error(err))
			continue
		}

		edge, err := m.linkShards(ctx, tenantID, primary, target, decl.RelationshipType)
		if err != nil {
			m.logger.Warn("failed to create declared relationship",
				zap.String("source_id", primary.ID.String()),
				zap.String("target_id", target.ID.String()),
				zap.Error(err))
			continue
		}
		edges = append(edges, edge)
	}
	return edges
}

// linkShards upserts one directed edge. The repository replaces metadata on
// conflict, keeping re-runs idempotent.
func (m *Materializer) linkShards(ctx context.Context, tenantID uuid.UUID, source, target *models.Shard, relationshipType string) (models.RelationshipEdge, error) {
	rel := &models.ShardRelationship{
		TenantID:          tenantID,
		SourceShardID:     source.ID,
		TargetShardID:     target.ID,
		RelationshipType:  relationshipType,
		SourceShardTypeID: source.ShardTypeID,
		TargetShardTypeID: target.ShardTypeID,
		Metadata: map[string]any{
			models.MetaIntegrationID: source.IntegrationID.String(),
		},
		CreatedBy: models.ShardSourceIntegration,
	}

	cctx, cancel := context.WithTimeout(ctx, m.storageTimeout)
	defer cancel()
	err := retry.Do(cctx, m.retryConfig, func() error {
		return m.edges.Upsert(cctx, rel)
	})
	if err != nil {
		return models.RelationshipEdge{}, err
	}
	return models.RelationshipEdge{
		SourceShardID:    source.ID,
		TargetShardID:    target.ID,
		RelationshipType: relationshipType,
	}, nil
}

// findShard wraps the lookup with the storage timeout.
func (m *Materializer) findShard(ctx context.Context, tenantID, integrationID uuid.UUID, externalID, shardTypeID string) (*models.Shard, error) {
	cctx, cancel := context.WithTimeout(ctx, m.storageTimeout)
	defer cancel()
	return m.shards.FindByExternalID(cctx, tenantID, integrationID, externalID, shardTypeID)
}

// createShard wraps the conditional insert with timeout and retry; the
// insert is idempotent on the dedup key, so retries are safe.
func (m *Materializer) createShard(ctx context.Context, shard *models.Shard) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, m.storageTimeout)
	defer cancel()
	return retry.DoWithResult(cctx, m.retryConfig, func() (bool, error) {
		return m.shards.Create(cctx, shard)
	})
}

func (m *Materializer) updateShard(ctx context.Context, id, tenantID uuid.UUID, patch models.ShardPatch) error {
	cctx, cancel := context.WithTimeout(ctx, m.storageTimeout)
	defer cancel()
	return retry.Do(cctx, m.retryConfig, func() error {
		return m.shards.Update(cctx, id, tenantID, patch)
	})
}
