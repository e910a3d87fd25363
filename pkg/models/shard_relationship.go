package models

import (
	"time"

	"github.com/google/uuid"
)

// ShardRelationship is a directed, typed edge between two shards of the
// same tenant. The tuple (tenant_id, source_shard_id, target_shard_id,
// relationship_type) is unique; re-creating an existing edge replaces its
// metadata instead of appending a duplicate.
// Stored in engine_shard_relationships.
type ShardRelationship struct {
	ID                uuid.UUID      `json:"id"`
	TenantID          uuid.UUID      `json:"tenant_id"`
	SourceShardID     uuid.UUID      `json:"source_shard_id"`
	TargetShardID     uuid.UUID      `json:"target_shard_id"`
	RelationshipType  string         `json:"relationship_type"`
	SourceShardTypeID string         `json:"source_shard_type_id"`
	TargetShardTypeID string         `json:"target_shard_type_id"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedBy         string         `json:"created_by"` // Provenance: "integration" or "manual"
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         *time.Time     `json:"updated_at,omitempty"`
}
