// Package tenant defines the explicit tenant scope passed into every engine
// and service call. Tenancy is never derived from ambient state; callers
// construct a Context from the authenticated identity and thread it through.
package tenant

import (
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/httpkit"

	"github.com/google/uuid"
)

// Context identifies the tenant (and acting user) for one operation.
type Context struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// FromIdentity builds a tenant Context from an authenticated identity.
func FromIdentity(id httpkit.Identity) Context {
	return Context{
		TenantID: id.TenantID(),
		UserID:   id.UserID(),
	}
}

// System returns a tenant Context for background jobs acting on a tenant
// without a human actor.
func System(tenantID uuid.UUID) Context {
	return Context{TenantID: tenantID}
}
