package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fabrik-data/fabrik-engine/pkg/apperrors"
	"github.com/fabrik-data/fabrik-engine/pkg/database"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// ShardRepository provides data access for shards. The dedup tuple
// (tenant_id, integration_id, external_id, shard_type_id) is enforced by a
// unique index; Create is a conditional insert keyed on it, which makes the
// check-then-create sequence safe under concurrent materialization.
type ShardRepository interface {
	FindByExternalID(ctx context.Context, tenantID, integrationID uuid.UUID, externalID, shardTypeID string) (*models.Shard, error)
	// Create inserts the shard unless its dedup key already exists. The
	// boolean reports whether a row was actually inserted.
	Create(ctx context.Context, shard *models.Shard) (bool, error)
	Update(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, patch models.ShardPatch) error
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Shard, error)
}

type shardRepository struct{}

// NewShardRepository creates a new ShardRepository.
func NewShardRepository() ShardRepository {
	return &shardRepository{}
}

var _ ShardRepository = (*shardRepository)(nil)

const shardSelectColumns = `
	SELECT id, tenant_id, integration_id, shard_type_id, name, external_id,
	       structured_data, source, sync_status, synced_at, metadata,
	       created_at, updated_at`

func (r *shardRepository) FindByExternalID(ctx context.Context, tenantID, integrationID uuid.UUID, externalID, shardTypeID string) (*models.Shard, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoTenantScope
	}

	query := shardSelectColumns + `
		FROM engine_shards
		WHERE tenant_id = $1 AND integration_id = $2 AND external_id = $3 AND shard_type_id = $4`

	row := scope.Conn.QueryRow(ctx, query, tenantID, integrationID, externalID, shardTypeID)
	shard, err := scanShard(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find shard by external id: %w", err)
	}
	return shard, nil
}

func (r *shardRepository) Create(ctx context.Context, shard *models.Shard) (bool, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return false, apperrors.ErrNoTenantScope
	}

	if shard.ID == uuid.Nil {
		shard.ID = uuid.New()
	}
	shard.CreatedAt = time.Now()

	structured, err := json.Marshal(shard.StructuredData)
	if err != nil {
		return false, fmt.Errorf("failed to marshal structured data: %w", err)
	}
	metadata, err := json.Marshal(shard.Metadata)
	if err != nil {
		return false, fmt.Errorf("failed to marshal shard metadata: %w", err)
	}

	query := `
		INSERT INTO engine_shards (
			id, tenant_id, integration_id, shard_type_id, name, external_id,
			structured_data, source, sync_status, synced_at, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id, integration_id, external_id, shard_type_id) DO NOTHING
		RETURNING id`

	var insertedID uuid.UUID
	err = scope.Conn.QueryRow(ctx, query,
		shard.ID, shard.TenantID, shard.IntegrationID, shard.ShardTypeID, shard.Name,
		shard.ExternalID, structured, shard.Source, shard.SyncStatus, shard.SyncedAt,
		metadata, shard.CreatedAt,
	).Scan(&insertedID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race: another worker created the same dedup key first.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create shard: %w", err)
	}
	return true, nil
}

func (r *shardRepository) Update(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, patch models.ShardPatch) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return apperrors.ErrNoTenantScope
	}

	var structured, metadata []byte
	var err error
	if patch.StructuredData != nil {
		structured, err = json.Marshal(patch.StructuredData)
		if err != nil {
			return fmt.Errorf("failed to marshal structured data: %w", err)
		}
	}
	if patch.Metadata != nil {
		metadata, err = json.Marshal(patch.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal shard metadata: %w", err)
		}
	}

	query := `
		UPDATE engine_shards
		SET name = COALESCE($3, name),
		    structured_data = COALESCE($4, structured_data),
		    sync_status = COALESCE($5, sync_status),
		    synced_at = COALESCE($6, synced_at),
		    metadata = COALESCE($7, metadata),
		    updated_at = now()
		WHERE id = $1 AND tenant_id = $2`

	tag, err := scope.Conn.Exec(ctx, query, id, tenantID,
		patch.Name, structured, patch.SyncStatus, patch.SyncedAt, metadata)
	if err != nil {
		return fmt.Errorf("failed to update shard: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *shardRepository) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Shard, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoTenantScope
	}

	query := shardSelectColumns + ` FROM engine_shards WHERE id = $1 AND tenant_id = $2`
	row := scope.Conn.QueryRow(ctx, query, id, tenantID)
	shard, err := scanShard(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shard: %w", err)
	}
	return shard, nil
}

func scanShard(row pgx.Row) (*models.Shard, error) {
	var shard models.Shard
	var structured, metadata []byte

	err := row.Scan(
		&shard.ID, &shard.TenantID, &shard.IntegrationID, &shard.ShardTypeID,
		&shard.Name, &shard.ExternalID, &structured, &shard.Source,
		&shard.SyncStatus, &shard.SyncedAt, &metadata, &shard.CreatedAt, &shard.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(structured) > 0 {
		if err := json.Unmarshal(structured, &shard.StructuredData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal structured data: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &shard.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shard metadata: %w", err)
		}
	}
	return &shard, nil
}
