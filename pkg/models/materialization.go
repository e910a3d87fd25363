package models

import "github.com/google/uuid"

// MaterializeOptions controls one batch invocation of the pipeline.
// CreateRelationships and LinkDerivedShards default to true when left nil.
type MaterializeOptions struct {
	SkipDuplicateCheck  bool  `json:"skip_duplicate_check,omitempty"`
	UpdateExisting      bool  `json:"update_existing,omitempty"`
	CreateRelationships *bool `json:"create_relationships,omitempty"`
	LinkDerivedShards   *bool `json:"link_derived_shards,omitempty"`

	// TaskConfig backs {{task.KEY}} substitution in templated schema
	// defaults for this batch.
	TaskConfig map[string]string `json:"task_config,omitempty"`
}

// RelationshipsEnabled reports whether declared relationships should be
// resolved for this batch. Defaults to true.
func (o MaterializeOptions) RelationshipsEnabled() bool {
	return o.CreateRelationships == nil || *o.CreateRelationships
}

// DerivedLinksEnabled reports whether primary→derived link edges should be
// created for this batch. Defaults to true.
func (o MaterializeOptions) DerivedLinksEnabled() bool {
	return o.LinkDerivedShards == nil || *o.LinkDerivedShards
}

// MaterializationFailure records one record that could not be materialized.
// ExternalID is "unknown" when the record never resolved an id.
type MaterializationFailure struct {
	ExternalID string `json:"external_id"`
	Reason     string `json:"reason"`
}

// RelationshipEdge is one graph edge produced during a batch.
type RelationshipEdge struct {
	SourceShardID    uuid.UUID `json:"source_shard_id"`
	TargetShardID    uuid.UUID `json:"target_shard_id"`
	RelationshipType string    `json:"relationship_type"`
}

// MaterializationResult aggregates the outcome of one batch invocation.
// Records that matched an existing shard while UpdateExisting was false are
// counted in Unchanged: already satisfied, neither created nor failed.
type MaterializationResult struct {
	Created       []*Shard                 `json:"created"`
	Updated       []*Shard                 `json:"updated"`
	Unchanged     []*Shard                 `json:"unchanged"`
	Failed        []MaterializationFailure `json:"failed"`
	Relationships []RelationshipEdge       `json:"relationships"`
}
