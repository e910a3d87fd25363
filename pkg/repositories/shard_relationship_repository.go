package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fabrik-data/fabrik-engine/pkg/apperrors"
	"github.com/fabrik-data/fabrik-engine/pkg/database"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// ShardRelationshipRepository provides data access for shard relationships.
type ShardRelationshipRepository interface {
	// Upsert creates the edge or, when the same (tenant, source, target,
	// type) edge already exists, replaces its metadata. This is what makes
	// re-materializing a batch converge on the same edge set.
	Upsert(ctx context.Context, rel *models.ShardRelationship) error
	GetBySourceShard(ctx context.Context, tenantID, sourceShardID uuid.UUID) ([]*models.ShardRelationship, error)
	Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error
}

type shardRelationshipRepository struct{}

// NewShardRelationshipRepository creates a new ShardRelationshipRepository.
func NewShardRelationshipRepository() ShardRelationshipRepository {
	return &shardRelationshipRepository{}
}

var _ ShardRelationshipRepository = (*shardRelationshipRepository)(nil)

func (r *shardRelationshipRepository) Upsert(ctx context.Context, rel *models.ShardRelationship) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return apperrors.ErrNoTenantScope
	}

	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	rel.CreatedAt = time.Now()

	metadata, err := json.Marshal(rel.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal relationship metadata: %w", err)
	}

	query := `
		INSERT INTO engine_shard_relationships (
			id, tenant_id, source_shard_id, target_shard_id, relationship_type,
			source_shard_type_id, target_shard_type_id, metadata, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id, source_shard_id, target_shard_id, relationship_type)
		DO UPDATE SET
			source_shard_type_id = EXCLUDED.source_shard_type_id,
			target_shard_type_id = EXCLUDED.target_shard_type_id,
			metadata = EXCLUDED.metadata,
			updated_at = now()`

	_, err = scope.Conn.Exec(ctx, query,
		rel.ID, rel.TenantID, rel.SourceShardID, rel.TargetShardID, rel.RelationshipType,
		rel.SourceShardTypeID, rel.TargetShardTypeID, metadata, rel.CreatedBy, rel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert shard relationship: %w", err)
	}
	return nil
}

func (r *shardRelationshipRepository) GetBySourceShard(ctx context.Context, tenantID, sourceShardID uuid.UUID) ([]*models.ShardRelationship, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoTenantScope
	}

	query := `
		SELECT id, tenant_id, source_shard_id, target_shard_id, relationship_type,
		       source_shard_type_id, target_shard_type_id, metadata, created_by,
		       created_at, updated_at
		FROM engine_shard_relationships
		WHERE tenant_id = $1 AND source_shard_id = $2
		ORDER BY relationship_type, target_shard_id`

	rows, err := scope.Conn.Query(ctx, query, tenantID, sourceShardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shard relationships: %w", err)
	}
	defer rows.Close()

	var relationships []*models.ShardRelationship
	for rows.Next() {
		rel, err := scanShardRelationship(rows)
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shard relationships: %w", err)
	}
	return relationships, nil
}

func (r *shardRelationshipRepository) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return apperrors.ErrNoTenantScope
	}

	tag, err := scope.Conn.Exec(ctx,
		`DELETE FROM engine_shard_relationships WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete shard relationship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanShardRelationship(row pgx.Row) (*models.ShardRelationship, error) {
	var rel models.ShardRelationship
	var metadata []byte

	err := row.Scan(
		&rel.ID, &rel.TenantID, &rel.SourceShardID, &rel.TargetShardID, &rel.RelationshipType,
		&rel.SourceShardTypeID, &rel.TargetShardTypeID, &metadata, &rel.CreatedBy,
		&rel.CreatedAt, &rel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rel.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal relationship metadata: %w", err)
		}
	}
	return &rel, nil
}
