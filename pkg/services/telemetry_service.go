package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabrik-data/fabrik-engine/pkg/logging"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// TelemetryService is the opaque sink for pipeline events: batch
// start/complete with counts and durations, and exceptions tagged with an
// operation name and relevant identifiers. Implementations must never fail
// the operation they observe.
type TelemetryService interface {
	BatchStarted(ctx context.Context, operation string, tenantID, integrationID uuid.UUID, recordCount int)
	BatchCompleted(ctx context.Context, operation string, tenantID, integrationID uuid.UUID, result *models.MaterializationResult, duration time.Duration)
	RecordException(ctx context.Context, operation string, err error, identifiers map[string]string)
}

type zapTelemetry struct {
	logger *zap.Logger
}

// NewTelemetryService creates a telemetry sink backed by structured logs.
func NewTelemetryService(logger *zap.Logger) TelemetryService {
	return &zapTelemetry{logger: logger.Named("telemetry")}
}

var _ TelemetryService = (*zapTelemetry)(nil)

func (t *zapTelemetry) BatchStarted(_ context.Context, operation string, tenantID, integrationID uuid.UUID, recordCount int) {
	t.logger.Info("batch started",
		zap.String("operation", operation),
		zap.String("tenant_id", tenantID.String()),
		zap.String("integration_id", integrationID.String()),
		zap.Int("record_count", recordCount))
}

func (t *zapTelemetry) BatchCompleted(_ context.Context, operation string, tenantID, integrationID uuid.UUID, result *models.MaterializationResult, duration time.Duration) {
	t.logger.Info("batch completed",
		zap.String("operation", operation),
		zap.String("tenant_id", tenantID.String()),
		zap.String("integration_id", integrationID.String()),
		zap.Int("created", len(result.Created)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("unchanged", len(result.Unchanged)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("relationships", len(result.Relationships)),
		zap.Duration("duration", duration))
}

func (t *zapTelemetry) RecordException(_ context.Context, operation string, err error, identifiers map[string]string) {
	fields := make([]zap.Field, 0, len(identifiers)+2)
	fields = append(fields,
		zap.String("operation", operation),
		zap.String("error", logging.SanitizeError(err)))
	for k, v := range identifiers {
		fields = append(fields, zap.String(k, v))
	}
	t.logger.Error("operation failed", fields...)
}
