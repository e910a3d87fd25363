// Package repositories provides PostgreSQL data access for fabrik-engine.
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

// ConversionSchemaRepository provides data access for conversion schemas.
// Lookups take an explicit scope: tenant-owned schemas live under their
// tenant id, global templates under a NULL tenant.
type ConversionSchemaRepository interface {
	Create(ctx context.Context, schema *models.ConversionSchema) error
	GetByID(ctx context.Context, id uuid.UUID, scope models.Scope) (*models.ConversionSchema, error)
	GetBySourceEntity(ctx context.Context, sourceEntity string, scope models.Scope) (*models.ConversionSchema, error)
	List(ctx context.Context, scope models.Scope) ([]*models.ConversionSchema, error)
	// Update replaces the stored document. There is no version column;
	// concurrent updates are last-write-wins on UpdatedAt.
	Update(ctx context.Context, schema *models.ConversionSchema) error
	Delete(ctx context.Context, id uuid.UUID, scope models.Scope) error
}

type conversionSchemaRepository struct{}

// NewConversionSchemaRepository creates a new ConversionSchemaRepository.
func NewConversionSchemaRepository() ConversionSchemaRepository {
	return &conversionSchemaRepository{}
}

var _ ConversionSchemaRepository = (*conversionSchemaRepository)(nil)

func (r *conversionSchemaRepository) Create(ctx context.Context, schema *models.ConversionSchema) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return apperrors.ErrNoTenantScope
	}

	if schema.ID == uuid.Nil {
		schema.ID = uuid.New()
	}
	schema.CreatedAt = time.Now()
	schema.UpdatedAt = schema.CreatedAt

	mappings, relationships, outputs, err := marshalSchemaDocuments(schema)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO engine_conversion_schemas (
			id, tenant_id, source_entity, field_mappings, relationships,
			output_shard_types, external_id_field, name_field, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = scope.Conn.Exec(ctx, query,
		schema.ID, schema.TenantID, schema.SourceEntity, mappings, relationships,
		outputs, schema.ExternalIDField, schema.NameField, schema.CreatedAt, schema.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversion schema: %w", err)
	}
	return nil
}

func (r *conversionSchemaRepository) GetByID(ctx context.Context, id uuid.UUID, scope models.Scope) (*models.ConversionSchema, error) {
	ts, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoTenantScope
	}
	if !scope.IsValid() {
		return nil, apperrors.ErrInvalidScope
	}

	query := schemaSelectColumns + ` FROM engine_conversion_schemas WHERE id = $1 AND ` + scopePredicate(scope, 2)
	args := []any{id}
	if scope.Kind == models.ScopeTenant {
		args = append(args, scope.TenantID)
	}

	row := ts.Conn.QueryRow(ctx, query, args...)
	schema, err := scanConversionSchema(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion schema: %w", err)
	}
	return schema, nil
}

func (r *conversionSchemaRepository) GetBySourceEntity(ctx context.Context, sourceEntity string, scope models.Scope) (*models.ConversionSchema, error) {
	ts, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoTenantScope
	}
	if !scope.IsValid() {
		return nil, apperrors.ErrInvalidScope
	}

	query := schemaSelectColumns + ` FROM engine_conversion_schemas
		WHERE source_entity = $1 AND ` + scopePredicate(scope, 2) + `
		ORDER BY updated_at DESC
		LIMIT 1`
	args := []any{sourceEntity}
	if scope.Kind == models.ScopeTenant {
		args = append(args, scope.TenantID)
	}

	row := ts.Conn.QueryRow(ctx, query, args...)
	schema, err := scanConversionSchema(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion schema by source entity: %w", err)
	}
	return schema, nil
}

func (r *conversionSchemaRepository) List(ctx context.Context, scope models.Scope) ([]*models.ConversionSchema, error) {
	ts, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoTenantScope
	}
	if !scope.IsValid() {
		return nil, apperrors.ErrInvalidScope
	}

	query := schemaSelectColumns + ` FROM engine_conversion_schemas
		WHERE ` + scopePredicate(scope, 1) + `
		ORDER BY source_entity`
	var args []any
	if scope.Kind == models.ScopeTenant {
		args = append(args, scope.TenantID)
	}

	rows, err := ts.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversion schemas: %w", err)
	}
	defer rows.Close()

	var schemas []*models.ConversionSchema
	for rows.Next() {
		schema, err := scanConversionSchema(rows)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversion schemas: %w", err)
	}
	return schemas, nil
}

func (r *conversionSchemaRepository) Update(ctx context.Context, schema *models.ConversionSchema) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return apperrors.ErrNoTenantScope
	}

	schema.UpdatedAt = time.Now()

	mappings, relationships, outputs, err := marshalSchemaDocuments(schema)
	if err != nil {
		return err
	}

	query := `
		UPDATE engine_conversion_schemas
		SET source_entity = $2, field_mappings = $3, relationships = $4,
		    output_shard_types = $5, external_id_field = $6, name_field = $7,
		    updated_at = $8
		WHERE id = $1 AND tenant_id IS NOT DISTINCT FROM $9`

	tag, err := scope.Conn.Exec(ctx, query,
		schema.ID, schema.SourceEntity, mappings, relationships,
		outputs, schema.ExternalIDField, schema.NameField, schema.UpdatedAt, schema.TenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversion schema: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *conversionSchemaRepository) Delete(ctx context.Context, id uuid.UUID, scope models.Scope) error {
	ts, ok := database.GetTenantScope(ctx)
	if !ok {
		return apperrors.ErrNoTenantScope
	}
	if !scope.IsValid() {
		return apperrors.ErrInvalidScope
	}

	query := `DELETE FROM engine_conversion_schemas WHERE id = $1 AND ` + scopePredicate(scope, 2)
	args := []any{id}
	if scope.Kind == models.ScopeTenant {
		args = append(args, scope.TenantID)
	}

	tag, err := ts.Conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete conversion schema: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

const schemaSelectColumns = `
	SELECT id, tenant_id, source_entity, field_mappings, relationships,
	       output_shard_types, external_id_field, name_field, created_at, updated_at`

// scopePredicate renders the tenant filter for a scope. The tenant id, when
// present, binds at the given placeholder ordinal.
func scopePredicate(scope models.Scope, ordinal int) string {
	if scope.Kind == models.ScopeGlobal {
		return "tenant_id IS NULL"
	}
	return fmt.Sprintf("tenant_id = $%d", ordinal)
}

func marshalSchemaDocuments(schema *models.ConversionSchema) (mappings, relationships, outputs []byte, err error) {
	mappings, err = json.Marshal(schema.FieldMappings)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal field mappings: %w", err)
	}
	relationships, err = json.Marshal(schema.Relationships)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal relationships: %w", err)
	}
	outputs, err = json.Marshal(schema.OutputShardTypes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal output shard types: %w", err)
	}
	return mappings, relationships, outputs, nil
}

func scanConversionSchema(row pgx.Row) (*models.ConversionSchema, error) {
	var schema models.ConversionSchema
	var mappings, relationships, outputs []byte

	err := row.Scan(
		&schema.ID, &schema.TenantID, &schema.SourceEntity, &mappings, &relationships,
		&outputs, &schema.ExternalIDField, &schema.NameField, &schema.CreatedAt, &schema.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(mappings, &schema.FieldMappings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal field mappings: %w", err)
	}
	if len(relationships) > 0 {
		if err := json.Unmarshal(relationships, &schema.Relationships); err != nil {
			return nil, fmt.Errorf("failed to unmarshal relationships: %w", err)
		}
	}
	if err := json.Unmarshal(outputs, &schema.OutputShardTypes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal output shard types: %w", err)
	}
	return &schema, nil
}
