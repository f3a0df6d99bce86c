package mocks

import (
	"context"
	"errors"

	"github.com/expfab/expfab/pkg/domain"
	dbmock "github.com/expfab/expfab/pkg/internal/db/mock"
	kdbscope "github.com/expfab/expfab/pkg/domain/scope/db"
)

type TokenInterface struct {
	Impl struct {
		GetOrCreate func(context.Context, string) (domain.Token, error)
	}
	Calls struct {
		GetOrCreate dbmock.CallLog[struct{ UserId string }]
	}
}

func NewTokenInterface() *TokenInterface {
	return &TokenInterface{}
}

var _ kdbscope.TokenInterface = &TokenInterface{}

func (ti *TokenInterface) GetOrCreate(ctx context.Context, userId string) (domain.Token, error) {
	ti.Calls.GetOrCreate = append(ti.Calls.GetOrCreate, struct{ UserId string }{UserId: userId})
	if ti.Impl.GetOrCreate != nil {
		return ti.Impl.GetOrCreate(ctx, userId)
	}
	panic(errors.New("it should not be called"))
}
