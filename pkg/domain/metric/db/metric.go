package db

import (
	"context"

	"github.com/expfab/expfab/pkg/domain"
)

type MetricInterface interface {
	// store one metric observation, synchronously.
	//
	// Args
	//
	// - context.Context
	//
	// - string: experimentId the observation belongs to.
	//
	// - MetricRecord: the observation. When CreatedAt is nil, the storage
	// assigns the current time.
	//
	// Returns
	//
	// - ExperimentMetric: the stored row.
	//
	// - error: ErrMissing (when the experiment is not found)
	New(ctx context.Context, experimentId string, record domain.MetricRecord) (domain.ExperimentMetric, error)

	// store many metric observations at once.
	//
	// This is the bulk path behind the set_metrics command. All records
	// are stored in one transaction; on error none of them are.
	//
	// Args
	//
	// - context.Context
	//
	// - string: experimentId the observations belong to.
	//
	// - []MetricRecord: the observations.
	//
	// Returns
	//
	// - error: ErrMissing (when the experiment is not found)
	BulkNew(ctx context.Context, experimentId string, records []domain.MetricRecord) error

	// Retrieve metric rows of an experiment, oldest first.
	//
	// Args
	//
	// - context.Context
	//
	// - string: experimentId
	//
	// Returns
	//
	// - []ExperimentMetric: stored rows, in creation order.
	//
	// - error: ErrMissing (when the experiment is not found)
	ListByExperiment(ctx context.Context, experimentId string) ([]domain.ExperimentMetric, error)
}
