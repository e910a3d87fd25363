package materializer

import (
	"github.com/fabrik-data/fabrik-engine/pkg/jsonutil"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
	"github.com/fabrik-data/fabrik-engine/pkg/transform"
)

// Fallback search orders for records whose schema declares no explicit
// external-id or name field. Common key spellings across integrations.
var (
	externalIDKeys = []string{"id", "external_id", "externalId", "_id", "uid", "key", "record_id"}
	nameKeys       = []string{"name", "title", "display_name", "displayName", "label", "full_name", "subject"}
)

// resolveExternalID reads the record's external id via the schema's
// declared field, falling back to the common id keys in order. Returns
// false when no key yields a non-empty value.
func resolveExternalID(schema *models.ConversionSchema, record map[string]any) (string, bool) {
	if schema.ExternalIDField != "" {
		value, _ := transform.Lookup(record, schema.ExternalIDField)
		if s := jsonutil.FlexibleString(value); s != "" {
			return s, true
		}
	}
	for _, key := range externalIDKeys {
		value, _ := transform.Lookup(record, key)
		if s := jsonutil.FlexibleString(value); s != "" {
			return s, true
		}
	}
	return "", false
}

// resolveName reads the record's display name via the schema's declared
// field or the common name keys, defaulting to fallback (the external id)
// when nothing resolves.
func resolveName(schema *models.ConversionSchema, record map[string]any, fallback string) string {
	if schema.NameField != "" {
		value, _ := transform.Lookup(record, schema.NameField)
		if s := jsonutil.FlexibleString(value); s != "" {
			return s
		}
	}
	for _, key := range nameKeys {
		value, _ := transform.Lookup(record, key)
		if s := jsonutil.FlexibleString(value); s != "" {
			return s
		}
	}
	return fallback
}
