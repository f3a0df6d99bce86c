package mock

import (
	"context"
	"errors"

	"github.com/expfab/expfab/pkg/conn/queue"
	"github.com/expfab/expfab/pkg/domain"
	dbmock "github.com/expfab/expfab/pkg/internal/db/mock"
)

type Queue struct {
	Impl struct {
		Enqueue func(ctx context.Context, command domain.Command) error
		Dequeue func(ctx context.Context) (*domain.Command, error)
	}

	Calls struct {
		Enqueue dbmock.CallLog[domain.Command]
		Dequeue dbmock.CallLog[struct{}]
	}
}

func New() *Queue {
	return &Queue{}
}

var (
	_ queue.Producer = &Queue{}
	_ queue.Consumer = &Queue{}
)

func (m *Queue) Enqueue(ctx context.Context, command domain.Command) error {
	m.Calls.Enqueue = append(m.Calls.Enqueue, command)
	if m.Impl.Enqueue != nil {
		return m.Impl.Enqueue(ctx, command)
	}

	panic(errors.New("it should not be called"))
}

func (m *Queue) Dequeue(ctx context.Context) (*domain.Command, error) {
	m.Calls.Dequeue = append(m.Calls.Dequeue, struct{}{})
	if m.Impl.Dequeue != nil {
		return m.Impl.Dequeue(ctx)
	}

	panic(errors.New("it should not be called"))
}
