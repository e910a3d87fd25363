package apperrors

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrNoTenantScope           = errors.New("no tenant scope in context")
	ErrSchemaInvalid           = errors.New("conversion schema failed validation")
	ErrMissingPrimaryShardType = errors.New("conversion schema declares no primary shard type")
	ErrInvalidScope            = errors.New("invalid scope")
)
