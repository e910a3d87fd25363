// Package models contains domain types for fabrik-engine.
package models

import "github.com/google/uuid"

// ScopeKind distinguishes tenant-owned objects from globally shared ones.
type ScopeKind string

const (
	ScopeTenant ScopeKind = "tenant" // Owned by a single tenant
	ScopeGlobal ScopeKind = "global" // Shared across all tenants (curated templates)
)

// Scope identifies the visibility of a conversion schema lookup.
// It replaces the old sentinel-tenant convention: callers say explicitly
// whether they want tenant-owned or global objects.
type Scope struct {
	Kind     ScopeKind
	TenantID uuid.UUID // Required when Kind == ScopeTenant
}

// TenantScope returns a scope restricted to a single tenant.
func TenantScope(tenantID uuid.UUID) Scope {
	return Scope{Kind: ScopeTenant, TenantID: tenantID}
}

// GlobalScope returns the shared scope visible to every tenant.
func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

// IsValid returns true if the scope is well-formed.
func (s Scope) IsValid() bool {
	switch s.Kind {
	case ScopeTenant:
		return s.TenantID != uuid.Nil
	case ScopeGlobal:
		return true
	default:
		return false
	}
}
