package mocks

import (
	"context"
	"errors"

	"github.com/expfab/expfab/pkg/domain"
	kdbexp "github.com/expfab/expfab/pkg/domain/experiment/db"
	dbmock "github.com/expfab/expfab/pkg/internal/db/mock"
)

type ExperimentInterface struct {
	Impl struct {
		New           func(context.Context, domain.NewExperiment) (string, error)
		Get           func(context.Context, []string) (map[string]domain.Experiment, error)
		Find          func(context.Context, domain.ExperimentFindQuery) ([]string, error)
		Update        func(context.Context, string, domain.ExperimentPatch) error
		Delete        func(context.Context, string) error
		NewStatus     func(context.Context, string, domain.LifeStatus, string) (domain.StatusRecord, error)
		History       func(context.Context, string) ([]domain.StatusRecord, error)
		CurrentStatus func(context.Context, string) (domain.LifeStatus, error)
	}
	Calls struct {
		New       dbmock.CallLog[domain.NewExperiment]
		Get       dbmock.CallLog[struct{ ExperimentId []string }]
		Find      dbmock.CallLog[domain.ExperimentFindQuery]
		Update    dbmock.CallLog[struct {
			ExperimentId string
			Patch        domain.ExperimentPatch
		}]
		Delete    dbmock.CallLog[struct{ ExperimentId string }]
		NewStatus dbmock.CallLog[struct {
			ExperimentId string
			NewStatus    domain.LifeStatus
			Message      string
		}]
		History       dbmock.CallLog[struct{ ExperimentId string }]
		CurrentStatus dbmock.CallLog[struct{ ExperimentId string }]
	}
}

func NewExperimentInterface() *ExperimentInterface {
	return &ExperimentInterface{}
}

var _ kdbexp.ExperimentInterface = &ExperimentInterface{}

func (ei *ExperimentInterface) New(ctx context.Context, ex domain.NewExperiment) (string, error) {
	ei.Calls.New = append(ei.Calls.New, ex)
	if ei.Impl.New != nil {
		return ei.Impl.New(ctx, ex)
	}
	panic(errors.New("it should not be called"))
}

func (ei *ExperimentInterface) Get(ctx context.Context, experimentIds []string) (map[string]domain.Experiment, error) {
	ei.Calls.Get = append(ei.Calls.Get, struct{ ExperimentId []string }{ExperimentId: experimentIds})
	if ei.Impl.Get != nil {
		return ei.Impl.Get(ctx, experimentIds)
	}
	panic(errors.New("it should not be called"))
}

func (ei *ExperimentInterface) Find(ctx context.Context, query domain.ExperimentFindQuery) ([]string, error) {
	ei.Calls.Find = append(ei.Calls.Find, query)
	if ei.Impl.Find != nil {
		return ei.Impl.Find(ctx, query)
	}
	panic(errors.New("it should not be called"))
}

func (ei *ExperimentInterface) Update(ctx context.Context, experimentId string, patch domain.ExperimentPatch) error {
	ei.Calls.Update = append(ei.Calls.Update, struct {
		ExperimentId string
		Patch        domain.ExperimentPatch
	}{ExperimentId: experimentId, Patch: patch})
	if ei.Impl.Update != nil {
		return ei.Impl.Update(ctx, experimentId, patch)
	}
	panic(errors.New("it should not be called"))
}

func (ei *ExperimentInterface) Delete(ctx context.Context, experimentId string) error {
	ei.Calls.Delete = append(ei.Calls.Delete, struct{ ExperimentId string }{ExperimentId: experimentId})
	if ei.Impl.Delete != nil {
		return ei.Impl.Delete(ctx, experimentId)
	}
	panic(errors.New("it should not be called"))
}

func (ei *ExperimentInterface) NewStatus(ctx context.Context, experimentId string, newStatus domain.LifeStatus, message string) (domain.StatusRecord, error) {
	ei.Calls.NewStatus = append(ei.Calls.NewStatus, struct {
		ExperimentId string
		NewStatus    domain.LifeStatus
		Message      string
	}{ExperimentId: experimentId, NewStatus: newStatus, Message: message})
	if ei.Impl.NewStatus != nil {
		return ei.Impl.NewStatus(ctx, experimentId, newStatus, message)
	}
	panic(errors.New("it should not be called"))
}

func (ei *ExperimentInterface) History(ctx context.Context, experimentId string) ([]domain.StatusRecord, error) {
	ei.Calls.History = append(ei.Calls.History, struct{ ExperimentId string }{ExperimentId: experimentId})
	if ei.Impl.History != nil {
		return ei.Impl.History(ctx, experimentId)
	}
	panic(errors.New("it should not be called"))
}

func (ei *ExperimentInterface) CurrentStatus(ctx context.Context, experimentId string) (domain.LifeStatus, error) {
	ei.Calls.CurrentStatus = append(ei.Calls.CurrentStatus, struct{ ExperimentId string }{ExperimentId: experimentId})
	if ei.Impl.CurrentStatus != nil {
		return ei.Impl.CurrentStatus(ctx, experimentId)
	}
	panic(errors.New("it should not be called"))
}
