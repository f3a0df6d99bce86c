package db

import (
	"context"

	"github.com/expfab/expfab/pkg/domain"
)

type JobInterface interface {
	// create a new job under an experiment.
	//
	// The job gets the next sequence number in its experiment. Its ledger
	// starts empty; the cached last status is "created" until the first
	// append.
	//
	// Args
	//
	// - context.Context
	//
	// - NewExperimentJob: content of the job to be created.
	//
	// Returns
	//
	// - string: job id which is newly created.
	//
	// - error: ErrMissing (when the experiment is not found)
	New(ctx context.Context, job domain.NewExperimentJob) (string, error)

	// Retrieve Jobs.
	//
	// Args
	//
	// - context.Context
	//
	// - []string: jobIds
	//
	// Returns
	//
	// - map[string]ExperimentJob: mapping jobId->ExperimentJob.
	// Ids which are not found are just omitted from the map, without error.
	//
	// - error
	Get(ctx context.Context, jobIds []string) (map[string]domain.ExperimentJob, error)

	// find jobs of an experiment, ordered by sequence.
	//
	// Args
	//
	// - context.Context
	//
	// - string: experimentId whose jobs are wanted.
	//
	// Returns
	//
	// - []string: found jobIds.
	//
	// - error: ErrMissing (when the experiment is not found)
	FindByExperiment(ctx context.Context, experimentId string) ([]string, error)

	// append a status record to the job's ledger.
	//
	// Semantics are the same as the experiment ledger: the cached last
	// status is updated in the same transaction, a repeated terminal status
	// appends nothing and returns the existing latest record.
	//
	// Args
	//
	// - context.Context
	//
	// - string: jobId whose ledger is appended to.
	//
	// - LifeStatus: new status.
	//
	// - string: message stored with the record. Can be empty.
	//
	// Returns
	//
	// - StatusRecord: the appended record
	// (or the existing latest one, for a repeated terminal status).
	//
	// - error: ErrInvalidStatusChanging, ErrTerminalStateViolation,
	// ErrMissing (when job is not found for given jobId)
	NewStatus(ctx context.Context, jobId string, newStatus domain.LifeStatus, message string) (domain.StatusRecord, error)

	// Retrieve the full ledger of a job, oldest first.
	//
	// Args
	//
	// - context.Context
	//
	// - string: jobId
	//
	// Returns
	//
	// - []StatusRecord: all status records of the job, in the order they
	// were appended.
	//
	// - error: ErrMissing (when job is not found for given jobId)
	History(ctx context.Context, jobId string) ([]domain.StatusRecord, error)

	// Retrieve the current status of a job without scanning the ledger.
	//
	// Args
	//
	// - context.Context
	//
	// - string: jobId
	//
	// Returns
	//
	// - LifeStatus: status of the most recent ledger record.
	//
	// - error: ErrMissing (when job is not found for given jobId)
	CurrentStatus(ctx context.Context, jobId string) (domain.LifeStatus, error)
}
