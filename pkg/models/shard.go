package models

import (
	"time"

	"github.com/google/uuid"
)

// Shard provenance sources.
const (
	ShardSourceIntegration = "integration" // Materialized from an external integration record
	ShardSourceManual      = "manual"      // Created directly by a user
)

// Shard sync status values.
const (
	SyncStatusSynced  = "synced"  // Structured data reflects the latest upstream record
	SyncStatusPending = "pending" // Awaiting first sync
	SyncStatusError   = "error"   // Last sync attempt failed
)

// Metadata keys written by the materialization pipeline.
const (
	MetaIntegrationID = "integration_id"
	MetaExternalID    = "external_id"
	MetaRawRecord     = "raw_record" // Original source record, kept for traceability
)

// Shard is a tenant-scoped structured entity materialized from external
// data. At most one shard exists per dedup key
// (tenant_id, integration_id, external_id, shard_type_id); the pipeline
// creates it once and thereafter only updates it in place.
// Stored in engine_shards.
type Shard struct {
	ID             uuid.UUID      `json:"id"`
	TenantID       uuid.UUID      `json:"tenant_id"`
	IntegrationID  uuid.UUID      `json:"integration_id"`
	ShardTypeID    string         `json:"shard_type_id"`
	Name           string         `json:"name"`
	ExternalID     string         `json:"external_id"`
	StructuredData map[string]any `json:"structured_data"`
	Source         string         `json:"source"` // "integration" or "manual"
	SyncStatus     string         `json:"sync_status"`
	SyncedAt       *time.Time     `json:"synced_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
}

// ShardPatch carries the fields an update may replace. Nil fields are left
// untouched.
type ShardPatch struct {
	Name           *string        `json:"name,omitempty"`
	StructuredData map[string]any `json:"structured_data,omitempty"`
	SyncStatus     *string        `json:"sync_status,omitempty"`
	SyncedAt       *time.Time     `json:"synced_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
