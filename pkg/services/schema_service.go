// Package services contains the application services of fabrik-engine.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabrik-data/fabrik-engine/pkg/apperrors"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
	"github.com/fabrik-data/fabrik-engine/pkg/repositories"
)

// SchemaService manages conversion schema authoring. Every write is
// validated before it reaches storage: a schema that fails validation is
// never persisted.
type SchemaService interface {
	Create(ctx context.Context, schema *models.ConversionSchema) error
	Update(ctx context.Context, schema *models.ConversionSchema) error
	Get(ctx context.Context, id uuid.UUID, scope models.Scope) (*models.ConversionSchema, error)
	GetBySourceEntity(ctx context.Context, sourceEntity string, scope models.Scope) (*models.ConversionSchema, error)
	List(ctx context.Context, scope models.Scope) ([]*models.ConversionSchema, error)
	Delete(ctx context.Context, id uuid.UUID, scope models.Scope) error
}

type schemaService struct {
	repo   repositories.ConversionSchemaRepository
	logger *zap.Logger
}

// NewSchemaService creates a new SchemaService.
func NewSchemaService(repo repositories.ConversionSchemaRepository, logger *zap.Logger) SchemaService {
	return &schemaService{
		repo:   repo,
		logger: logger.Named("schema-service"),
	}
}

var _ SchemaService = (*schemaService)(nil)

func (s *schemaService) Create(ctx context.Context, schema *models.ConversionSchema) error {
	if err := schema.Validate(); err != nil {
		s.logger.Warn("rejected conversion schema create",
			zap.String("source_entity", schema.SourceEntity),
			zap.Error(err))
		return fmt.Errorf("%w: %v", apperrors.ErrSchemaInvalid, err)
	}

	if err := s.repo.Create(ctx, schema); err != nil {
		return fmt.Errorf("create conversion schema: %w", err)
	}

	s.logger.Info("conversion schema created",
		zap.String("schema_id", schema.ID.String()),
		zap.String("source_entity", schema.SourceEntity),
		zap.Int("field_mappings", len(schema.FieldMappings)))
	return nil
}

func (s *schemaService) Update(ctx context.Context, schema *models.ConversionSchema) error {
	if err := schema.Validate(); err != nil {
		s.logger.Warn("rejected conversion schema update",
			zap.String("schema_id", schema.ID.String()),
			zap.Error(err))
		return fmt.Errorf("%w: %v", apperrors.ErrSchemaInvalid, err)
	}

	if err := s.repo.Update(ctx, schema); err != nil {
		return fmt.Errorf("update conversion schema: %w", err)
	}

	s.logger.Info("conversion schema updated",
		zap.String("schema_id", schema.ID.String()),
		zap.String("source_entity", schema.SourceEntity))
	return nil
}

func (s *schemaService) Get(ctx context.Context, id uuid.UUID, scope models.Scope) (*models.ConversionSchema, error) {
	return s.repo.GetByID(ctx, id, scope)
}

func (s *schemaService) GetBySourceEntity(ctx context.Context, sourceEntity string, scope models.Scope) (*models.ConversionSchema, error) {
	return s.repo.GetBySourceEntity(ctx, sourceEntity, scope)
}

func (s *schemaService) List(ctx context.Context, scope models.Scope) ([]*models.ConversionSchema, error) {
	return s.repo.List(ctx, scope)
}

func (s *schemaService) Delete(ctx context.Context, id uuid.UUID, scope models.Scope) error {
	return s.repo.Delete(ctx, id, scope)
}
