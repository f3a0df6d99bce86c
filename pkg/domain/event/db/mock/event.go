package mocks

import (
	"context"
	"errors"

	"github.com/expfab/expfab/pkg/domain"
	kdbevent "github.com/expfab/expfab/pkg/domain/event/db"
	dbmock "github.com/expfab/expfab/pkg/internal/db/mock"
)

type EventInterface struct {
	Impl struct {
		Append        func(context.Context, domain.Event) error
		FindBySubject func(context.Context, string) ([]domain.Event, error)
	}
	Calls struct {
		Append        dbmock.CallLog[domain.Event]
		FindBySubject dbmock.CallLog[struct{ SubjectId string }]
	}
}

func NewEventInterface() *EventInterface {
	return &EventInterface{}
}

var _ kdbevent.EventInterface = &EventInterface{}

func (ei *EventInterface) Append(ctx context.Context, event domain.Event) error {
	ei.Calls.Append = append(ei.Calls.Append, event)
	if ei.Impl.Append != nil {
		return ei.Impl.Append(ctx, event)
	}
	panic(errors.New("it should not be called"))
}

func (ei *EventInterface) FindBySubject(ctx context.Context, subjectId string) ([]domain.Event, error) {
	ei.Calls.FindBySubject = append(ei.Calls.FindBySubject, struct{ SubjectId string }{SubjectId: subjectId})
	if ei.Impl.FindBySubject != nil {
		return ei.Impl.FindBySubject(ctx, subjectId)
	}
	panic(errors.New("it should not be called"))
}
