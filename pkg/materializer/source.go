package materializer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// RecordSource supplies an ordered, finite batch of untyped nested records
// for an integration. Implementations live in the adapter layer; the
// pipeline imposes no pagination or backpressure contract.
type RecordSource interface {
	FetchBatch(ctx context.Context, integrationID uuid.UUID) ([]map[string]any, error)
}

// MaterializeFromSource fetches one batch from the record source and
// materializes it. Fetch failures abort before any record is processed.
func (m *Materializer) MaterializeFromSource(ctx context.Context, tenantID, integrationID uuid.UUID, source RecordSource, schema *models.ConversionSchema, opts models.MaterializeOptions) (*models.MaterializationResult, error) {
	records, err := source.FetchBatch(ctx, integrationID)
	if err != nil {
		m.telemetry.RecordException(ctx, "fetch_record_batch", err, map[string]string{
			"tenant_id":      tenantID.String(),
			"integration_id": integrationID.String(),
		})
		return nil, fmt.Errorf("fetch record batch: %w", err)
	}
	return m.Materialize(ctx, tenantID, integrationID, records, schema, opts)
}
