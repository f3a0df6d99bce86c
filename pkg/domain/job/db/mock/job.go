package mocks

import (
	"context"
	"errors"

	"github.com/expfab/expfab/pkg/domain"
	dbmock "github.com/expfab/expfab/pkg/internal/db/mock"
	kdbjob "github.com/expfab/expfab/pkg/domain/job/db"
)

type JobInterface struct {
	Impl struct {
		New              func(context.Context, domain.NewExperimentJob) (string, error)
		Get              func(context.Context, []string) (map[string]domain.ExperimentJob, error)
		FindByExperiment func(context.Context, string) ([]string, error)
		NewStatus        func(context.Context, string, domain.LifeStatus, string) (domain.StatusRecord, error)
		History          func(context.Context, string) ([]domain.StatusRecord, error)
		CurrentStatus    func(context.Context, string) (domain.LifeStatus, error)
	}
	Calls struct {
		New              dbmock.CallLog[domain.NewExperimentJob]
		Get              dbmock.CallLog[struct{ JobId []string }]
		FindByExperiment dbmock.CallLog[struct{ ExperimentId string }]
		NewStatus        dbmock.CallLog[struct {
			JobId     string
			NewStatus domain.LifeStatus
			Message   string
		}]
		History       dbmock.CallLog[struct{ JobId string }]
		CurrentStatus dbmock.CallLog[struct{ JobId string }]
	}
}

func NewJobInterface() *JobInterface {
	return &JobInterface{}
}

var _ kdbjob.JobInterface = &JobInterface{}

func (ji *JobInterface) New(ctx context.Context, job domain.NewExperimentJob) (string, error) {
	ji.Calls.New = append(ji.Calls.New, job)
	if ji.Impl.New != nil {
		return ji.Impl.New(ctx, job)
	}
	panic(errors.New("it should not be called"))
}

func (ji *JobInterface) Get(ctx context.Context, jobIds []string) (map[string]domain.ExperimentJob, error) {
	ji.Calls.Get = append(ji.Calls.Get, struct{ JobId []string }{JobId: jobIds})
	if ji.Impl.Get != nil {
		return ji.Impl.Get(ctx, jobIds)
	}
	panic(errors.New("it should not be called"))
}

func (ji *JobInterface) FindByExperiment(ctx context.Context, experimentId string) ([]string, error) {
	ji.Calls.FindByExperiment = append(ji.Calls.FindByExperiment, struct{ ExperimentId string }{ExperimentId: experimentId})
	if ji.Impl.FindByExperiment != nil {
		return ji.Impl.FindByExperiment(ctx, experimentId)
	}
	panic(errors.New("it should not be called"))
}

func (ji *JobInterface) NewStatus(ctx context.Context, jobId string, newStatus domain.LifeStatus, message string) (domain.StatusRecord, error) {
	ji.Calls.NewStatus = append(ji.Calls.NewStatus, struct {
		JobId     string
		NewStatus domain.LifeStatus
		Message   string
	}{JobId: jobId, NewStatus: newStatus, Message: message})
	if ji.Impl.NewStatus != nil {
		return ji.Impl.NewStatus(ctx, jobId, newStatus, message)
	}
	panic(errors.New("it should not be called"))
}

func (ji *JobInterface) History(ctx context.Context, jobId string) ([]domain.StatusRecord, error) {
	ji.Calls.History = append(ji.Calls.History, struct{ JobId string }{JobId: jobId})
	if ji.Impl.History != nil {
		return ji.Impl.History(ctx, jobId)
	}
	panic(errors.New("it should not be called"))
}

func (ji *JobInterface) CurrentStatus(ctx context.Context, jobId string) (domain.LifeStatus, error) {
	ji.Calls.CurrentStatus = append(ji.Calls.CurrentStatus, struct{ JobId string }{JobId: jobId})
	if ji.Impl.CurrentStatus != nil {
		return ji.Impl.CurrentStatus(ctx, jobId)
	}
	panic(errors.New("it should not be called"))
}
