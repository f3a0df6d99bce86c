package mocks

import (
	"context"
	"errors"

	"github.com/expfab/expfab/pkg/domain"
	dbmock "github.com/expfab/expfab/pkg/internal/db/mock"
	kdbmetric "github.com/expfab/expfab/pkg/domain/metric/db"
)

type MetricInterface struct {
	Impl struct {
		New              func(context.Context, string, domain.MetricRecord) (domain.ExperimentMetric, error)
		BulkNew          func(context.Context, string, []domain.MetricRecord) error
		ListByExperiment func(context.Context, string) ([]domain.ExperimentMetric, error)
	}
	Calls struct {
		New dbmock.CallLog[struct {
			ExperimentId string
			Record       domain.MetricRecord
		}]
		BulkNew dbmock.CallLog[struct {
			ExperimentId string
			Records      []domain.MetricRecord
		}]
		ListByExperiment dbmock.CallLog[struct{ ExperimentId string }]
	}
}

func NewMetricInterface() *MetricInterface {
	return &MetricInterface{}
}

var _ kdbmetric.MetricInterface = &MetricInterface{}

func (mi *MetricInterface) New(ctx context.Context, experimentId string, record domain.MetricRecord) (domain.ExperimentMetric, error) {
	mi.Calls.New = append(mi.Calls.New, struct {
		ExperimentId string
		Record       domain.MetricRecord
	}{ExperimentId: experimentId, Record: record})
	if mi.Impl.New != nil {
		return mi.Impl.New(ctx, experimentId, record)
	}
	panic(errors.New("it should not be called"))
}

func (mi *MetricInterface) BulkNew(ctx context.Context, experimentId string, records []domain.MetricRecord) error {
	mi.Calls.BulkNew = append(mi.Calls.BulkNew, struct {
		ExperimentId string
		Records      []domain.MetricRecord
	}{ExperimentId: experimentId, Records: records})
	if mi.Impl.BulkNew != nil {
		return mi.Impl.BulkNew(ctx, experimentId, records)
	}
	panic(errors.New("it should not be called"))
}

func (mi *MetricInterface) ListByExperiment(ctx context.Context, experimentId string) ([]domain.ExperimentMetric, error) {
	mi.Calls.ListByExperiment = append(mi.Calls.ListByExperiment, struct{ ExperimentId string }{ExperimentId: experimentId})
	if mi.Impl.ListByExperiment != nil {
		return mi.Impl.ListByExperiment(ctx, experimentId)
	}
	panic(errors.New("it should not be called"))
}
