package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/expfab/expfab/pkg/domain/experiment/ttl"
	dbmock "github.com/expfab/expfab/pkg/internal/db/mock"
)

type Store struct {
	Impl struct {
		Set func(context.Context, string, time.Duration) error
		Get func(context.Context, string) (time.Duration, bool, error)
	}
	Calls struct {
		Set dbmock.CallLog[struct {
			ExperimentId string
			TTL          time.Duration
		}]
		Get dbmock.CallLog[struct{ ExperimentId string }]
	}
}

func NewStore() *Store {
	return &Store{}
}

var _ ttl.Store = &Store{}

func (s *Store) Set(ctx context.Context, experimentId string, ttl time.Duration) error {
	s.Calls.Set = append(s.Calls.Set, struct {
		ExperimentId string
		TTL          time.Duration
	}{ExperimentId: experimentId, TTL: ttl})
	if s.Impl.Set != nil {
		return s.Impl.Set(ctx, experimentId, ttl)
	}
	panic(errors.New("it should not be called"))
}

func (s *Store) Get(ctx context.Context, experimentId string) (time.Duration, bool, error) {
	s.Calls.Get = append(s.Calls.Get, struct{ ExperimentId string }{ExperimentId: experimentId})
	if s.Impl.Get != nil {
		return s.Impl.Get(ctx, experimentId)
	}
	panic(errors.New("it should not be called"))
}
