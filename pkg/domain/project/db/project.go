package db

import (
	"context"

	"github.com/expfab/expfab/pkg/domain"
)

type ProjectInterface interface {
	// Retrieve Projects with their owners.
	//
	// Args
	//
	// - context.Context
	//
	// - []string: projectIds
	//
	// Returns
	//
	// - map[string]ProjectBody: mapping projectId->ProjectBody.
	// Ids which are not found are just omitted from the map, without error.
	//
	// - error
	Get(ctx context.Context, projectIds []string) (map[string]domain.ProjectBody, error)

	// Retrieve experiment groups.
	//
	// Args
	//
	// - context.Context
	//
	// - []string: groupIds
	//
	// Returns
	//
	// - map[string]GroupBody: mapping groupId->GroupBody.
	// Ids which are not found are just omitted from the map, without error.
	//
	// - error
	GetGroups(ctx context.Context, groupIds []string) (map[string]domain.GroupBody, error)

	// Retrieve a user.
	//
	// Args
	//
	// - context.Context
	//
	// - string: userId
	//
	// Returns
	//
	// - UserBody
	//
	// - error: ErrMissing (when the user is not found)
	GetUser(ctx context.Context, userId string) (domain.UserBody, error)
}
