package repositories

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrik-data/fabrik-engine/pkg/apperrors"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
	"github.com/fabrik-data/fabrik-engine/pkg/testhelpers"
)

func testShard(tenantID, integrationID uuid.UUID, externalID string) *models.Shard {
	now := time.Now()
	return &models.Shard{
		TenantID:       tenantID,
		IntegrationID:  integrationID,
		ShardTypeID:    "contact",
		Name:           "Ada",
		ExternalID:     externalID,
		StructuredData: map[string]any{"email": "ada@example.com"},
		Source:         models.ShardSourceIntegration,
		SyncStatus:     models.SyncStatusSynced,
		SyncedAt:       &now,
		Metadata: map[string]any{
			models.MetaExternalID: externalID,
		},
	}
}

func TestShardRepository_CreateAndFind(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewShardRepository()

	tenantID, integrationID := uuid.New(), uuid.New()
	ctx := tenantContext(t, engineDB.DB, tenantID)

	shard := testShard(tenantID, integrationID, "c-1")
	created, err := repo.Create(ctx, shard)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotEqual(t, uuid.Nil, shard.ID)

	got, err := repo.FindByExternalID(ctx, tenantID, integrationID, "c-1", "contact")
	require.NoError(t, err)
	assert.Equal(t, shard.ID, got.ID)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "ada@example.com", got.StructuredData["email"])
	assert.Equal(t, models.SyncStatusSynced, got.SyncStatus)
}

func TestShardRepository_CreateIsConditionalOnDedupKey(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewShardRepository()

	tenantID, integrationID := uuid.New(), uuid.New()
	ctx := tenantContext(t, engineDB.DB, tenantID)

	first := testShard(tenantID, integrationID, "c-dup")
	created, err := repo.Create(ctx, first)
	require.NoError(t, err)
	require.True(t, created)

	second := testShard(tenantID, integrationID, "c-dup")
	created, err = repo.Create(ctx, second)
	require.NoError(t, err, "a duplicate dedup key is not an error")
	assert.False(t, created)

	got, err := repo.FindByExternalID(ctx, tenantID, integrationID, "c-dup", "contact")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID, "the original row survives")
}

func TestShardRepository_SameExternalIDDifferentTypes(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewShardRepository()

	tenantID, integrationID := uuid.New(), uuid.New()
	ctx := tenantContext(t, engineDB.DB, tenantID)

	contact := testShard(tenantID, integrationID, "x-1")
	created, err := repo.Create(ctx, contact)
	require.NoError(t, err)
	require.True(t, created)

	address := testShard(tenantID, integrationID, "x-1")
	address.ShardTypeID = "address"
	created, err = repo.Create(ctx, address)
	require.NoError(t, err)
	assert.True(t, created, "the shard type is part of the dedup key")
}

func TestShardRepository_Update(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewShardRepository()

	tenantID, integrationID := uuid.New(), uuid.New()
	ctx := tenantContext(t, engineDB.DB, tenantID)

	shard := testShard(tenantID, integrationID, "c-upd")
	_, err := repo.Create(ctx, shard)
	require.NoError(t, err)

	name := "Ada L."
	status := models.SyncStatusSynced
	now := time.Now()
	err = repo.Update(ctx, shard.ID, tenantID, models.ShardPatch{
		Name:           &name,
		StructuredData: map[string]any{"email": "ada@newdomain.com"},
		SyncStatus:     &status,
		SyncedAt:       &now,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, shard.ID, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.Name)
	assert.Equal(t, "ada@newdomain.com", got.StructuredData["email"])
	require.NotNil(t, got.UpdatedAt)
}

func TestShardRepository_UpdateMissingShard(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewShardRepository()

	tenantID := uuid.New()
	ctx := tenantContext(t, engineDB.DB, tenantID)

	name := "ghost"
	err := repo.Update(ctx, uuid.New(), tenantID, models.ShardPatch{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestShardRepository_FindMissing(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewShardRepository()

	tenantID, integrationID := uuid.New(), uuid.New()
	ctx := tenantContext(t, engineDB.DB, tenantID)

	_, err := repo.FindByExternalID(ctx, tenantID, integrationID, "nope", "contact")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestShardRelationshipRepository_UpsertConverges(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	shardRepo := NewShardRepository()
	relRepo := NewShardRelationshipRepository()

	tenantID, integrationID := uuid.New(), uuid.New()
	ctx := tenantContext(t, engineDB.DB, tenantID)

	source := testShard(tenantID, integrationID, "s-1")
	_, err := shardRepo.Create(ctx, source)
	require.NoError(t, err)
	target := testShard(tenantID, integrationID, "t-1")
	target.ShardTypeID = "company"
	_, err = shardRepo.Create(ctx, target)
	require.NoError(t, err)

	edge := &models.ShardRelationship{
		TenantID:          tenantID,
		SourceShardID:     source.ID,
		TargetShardID:     target.ID,
		RelationshipType:  "works_at",
		SourceShardTypeID: "contact",
		TargetShardTypeID: "company",
		Metadata:          map[string]any{"confidence": "high"},
		CreatedBy:         models.ShardSourceIntegration,
	}
	require.NoError(t, relRepo.Upsert(ctx, edge))

	// Upserting the same edge replaces metadata instead of duplicating.
	edge.ID = uuid.Nil
	edge.Metadata = map[string]any{"confidence": "low"}
	require.NoError(t, relRepo.Upsert(ctx, edge))

	edges, err := relRepo.GetBySourceShard(ctx, tenantID, source.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "low", edges[0].Metadata["confidence"])
	require.NotNil(t, edges[0].UpdatedAt)
}

func TestShardRelationshipRepository_Delete(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	shardRepo := NewShardRepository()
	relRepo := NewShardRelationshipRepository()

	tenantID, integrationID := uuid.New(), uuid.New()
	ctx := tenantContext(t, engineDB.DB, tenantID)

	source := testShard(tenantID, integrationID, "s-del")
	_, err := shardRepo.Create(ctx, source)
	require.NoError(t, err)
	target := testShard(tenantID, integrationID, "t-del")
	target.ShardTypeID = "company"
	_, err = shardRepo.Create(ctx, target)
	require.NoError(t, err)

	edge := &models.ShardRelationship{
		TenantID:         tenantID,
		SourceShardID:    source.ID,
		TargetShardID:    target.ID,
		RelationshipType: "works_at",
		CreatedBy:        models.ShardSourceIntegration,
	}
	require.NoError(t, relRepo.Upsert(ctx, edge))
	require.NoError(t, relRepo.Delete(ctx, edge.ID, tenantID))

	edges, err := relRepo.GetBySourceShard(ctx, tenantID, source.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)

	assert.ErrorIs(t, relRepo.Delete(ctx, edge.ID, tenantID), apperrors.ErrNotFound)
}
