package db

import (
	"context"

	"github.com/expfab/expfab/pkg/domain"
)

type TokenInterface interface {
	// GetOrCreate retrieves the durable token of a user, creating one if
	// the user does not have one yet.
	//
	// At most one token exists per user. Concurrent calls for the same
	// user converge on the same token.
	//
	// Args
	//
	// - context.Context
	//
	// - string: userId the token belongs to.
	//
	// Returns
	//
	// - Token: the user's token.
	//
	// - error: ErrMissing (when the user is not found)
	GetOrCreate(ctx context.Context, userId string) (domain.Token, error)
}
