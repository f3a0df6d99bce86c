package store

import (
	"context"

	"github.com/expfab/expfab/pkg/domain"
)

// GrantStore keeps ephemeral scope grants.
//
// A grant lives until its expiry; the store may evict it earlier than a
// read observes the expiry, so callers treat "not found" and "expired"
// the same way.
type GrantStore interface {
	// Put stores a grant.
	//
	// It replaces any prior grant for the same (user, model, object), so
	// credentials minted against the replaced grant stop validating.
	//
	// Args
	//
	// - context.Context
	//
	// - ScopeGrant: grant to be stored. Scope is stored normalized.
	//
	// Returns
	//
	// - error
	Put(ctx context.Context, grant domain.ScopeGrant) error

	// Get retrieves the stored grant for (user, model, object).
	//
	// Args
	//
	// - context.Context
	//
	// - string: userId
	//
	// - string: model name, e.g. "experiment"
	//
	// - string: objectId
	//
	// Returns
	//
	// - *ScopeGrant: the stored grant, or nil when there is none.
	//
	// - error
	Get(ctx context.Context, userId string, model string, objectId string) (*domain.ScopeGrant, error)
}
