package mocks

import (
	"context"
	"errors"

	"github.com/expfab/expfab/pkg/domain"
	dbmock "github.com/expfab/expfab/pkg/internal/db/mock"
	"github.com/expfab/expfab/pkg/domain/scope/store"
)

type GrantStore struct {
	Impl struct {
		Put func(context.Context, domain.ScopeGrant) error
		Get func(context.Context, string, string, string) (*domain.ScopeGrant, error)
	}
	Calls struct {
		Put dbmock.CallLog[domain.ScopeGrant]
		Get dbmock.CallLog[struct {
			UserId   string
			Model    string
			ObjectId string
		}]
	}
}

func NewGrantStore() *GrantStore {
	return &GrantStore{}
}

var _ store.GrantStore = &GrantStore{}

func (gs *GrantStore) Put(ctx context.Context, grant domain.ScopeGrant) error {
	gs.Calls.Put = append(gs.Calls.Put, grant)
	if gs.Impl.Put != nil {
		return gs.Impl.Put(ctx, grant)
	}
	panic(errors.New("it should not be called"))
}

func (gs *GrantStore) Get(ctx context.Context, userId string, model string, objectId string) (*domain.ScopeGrant, error) {
	gs.Calls.Get = append(gs.Calls.Get, struct {
		UserId   string
		Model    string
		ObjectId string
	}{UserId: userId, Model: model, ObjectId: objectId})
	if gs.Impl.Get != nil {
		return gs.Impl.Get(ctx, userId, model, objectId)
	}
	panic(errors.New("it should not be called"))
}
