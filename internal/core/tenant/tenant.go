// Package tenant provides the tenant (company) handle and its context plumbing.
//
// All companies share one schema and one database pool; isolation is a
// predicate enforced centrally by the storage layer, which reads the tenant
// handle from context on every statement. Handlers never pass tenant ids
// around explicitly.
package tenant

import (
	"errors"

	"tesoreria/internal/core/id"
)

// Errors for context operations.
var (
	ErrNoTenantInContext = errors.New("tenant not found in context")
	ErrNoPoolInContext   = errors.New("database pool not found in context")
	ErrNoTxManager       = errors.New("transaction manager not found in context")
)

// Tenant identifies one company whose data must never be visible to another.
type Tenant struct {
	ID   id.ID
	Code string
	Name string
}
