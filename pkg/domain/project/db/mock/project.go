package mocks

import (
	"context"
	"errors"

	"github.com/expfab/expfab/pkg/domain"
	dbmock "github.com/expfab/expfab/pkg/internal/db/mock"
	kdbproject "github.com/expfab/expfab/pkg/domain/project/db"
)

type ProjectInterface struct {
	Impl struct {
		Get       func(context.Context, []string) (map[string]domain.ProjectBody, error)
		GetGroups func(context.Context, []string) (map[string]domain.GroupBody, error)
		GetUser   func(context.Context, string) (domain.UserBody, error)
	}
	Calls struct {
		Get       dbmock.CallLog[struct{ ProjectId []string }]
		GetGroups dbmock.CallLog[struct{ GroupId []string }]
		GetUser   dbmock.CallLog[struct{ UserId string }]
	}
}

func NewProjectInterface() *ProjectInterface {
	return &ProjectInterface{}
}

var _ kdbproject.ProjectInterface = &ProjectInterface{}

func (pi *ProjectInterface) Get(ctx context.Context, projectIds []string) (map[string]domain.ProjectBody, error) {
	pi.Calls.Get = append(pi.Calls.Get, struct{ ProjectId []string }{ProjectId: projectIds})
	if pi.Impl.Get != nil {
		return pi.Impl.Get(ctx, projectIds)
	}
	panic(errors.New("it should not be called"))
}

func (pi *ProjectInterface) GetGroups(ctx context.Context, groupIds []string) (map[string]domain.GroupBody, error) {
	pi.Calls.GetGroups = append(pi.Calls.GetGroups, struct{ GroupId []string }{GroupId: groupIds})
	if pi.Impl.GetGroups != nil {
		return pi.Impl.GetGroups(ctx, groupIds)
	}
	panic(errors.New("it should not be called"))
}

func (pi *ProjectInterface) GetUser(ctx context.Context, userId string) (domain.UserBody, error) {
	pi.Calls.GetUser = append(pi.Calls.GetUser, struct{ UserId string }{UserId: userId})
	if pi.Impl.GetUser != nil {
		return pi.Impl.GetUser(ctx, userId)
	}
	panic(errors.New("it should not be called"))
}
