package db

import (
	"context"

	"github.com/expfab/expfab/pkg/domain"
)

type ExperimentInterface interface {
	// create a new experiment.
	//
	// The experiment gets the next sequence number in its project. Its
	// ledger starts empty; the cached last status is "created" until the
	// first append.
	//
	// Args
	//
	// - context.Context
	//
	// - NewExperiment: content of the experiment to be created.
	//
	// Returns
	//
	// - string: experiment id which is newly created.
	//
	// - error: ErrMissing (when the project, group or user is not found)
	New(ctx context.Context, ex domain.NewExperiment) (string, error)

	// Retrieve Experiments.
	//
	// Experiments marked deleted are not returned.
	//
	// Args
	//
	// - context.Context
	//
	// - []string: experimentIds
	//
	// Returns
	//
	// - map[string]Experiment: mapping experimentId->Experiment.
	// Ids which are not found are just omitted from the map, without error.
	//
	// - error
	Get(ctx context.Context, experimentIds []string) (map[string]domain.Experiment, error)

	// find experiments which the query matches.
	//
	// When some conditions in the query are empty, such empty conditions are
	// ignored and do not narrow results. Experiments marked deleted never match.
	//
	// Args
	//
	// - context.Context
	//
	// - ExperimentFindQuery: find experiments which the query matches
	//
	// Returns
	//
	// - []string: found experimentIds, ordered by creation time.
	//
	// - error
	Find(ctx context.Context, query domain.ExperimentFindQuery) ([]string, error)

	// update mutable fields of an experiment.
	//
	// nil fields in the patch are left as they are.
	//
	// Args
	//
	// - context.Context
	//
	// - string: experimentId to be updated.
	//
	// - ExperimentPatch: fields to be set.
	//
	// Returns
	//
	// - error: ErrMissing (when experiment is not found for given experimentId)
	Update(ctx context.Context, experimentId string, patch domain.ExperimentPatch) error

	// Delete Experiment.
	//
	// It means that, mark the experiment deleted. The record and its ledger
	// are kept, but the experiment stops matching Get and Find.
	//
	// Args
	//
	// - context.Context
	//
	// - string: experimentId to be deleted
	//
	// Returns
	//
	// - error: ErrMissing (when experiment is not found for given experimentId)
	Delete(ctx context.Context, experimentId string) error

	// append a status record to the experiment's ledger.
	//
	// Along with this, the experiment's cached last status is updated, and
	// started/finished timestamps are set when the new status is "running"
	// or terminal, respectively.
	//
	// When the experiment already is in the same terminal status, nothing is
	// appended and the existing latest record is returned.
	//
	// Args
	//
	// - context.Context
	//
	// - string: experimentId whose ledger is appended to.
	//
	// - LifeStatus: new status.
	//
	// - string: human-readable message stored with the record. Can be empty.
	//
	// Returns
	//
	// - StatusRecord: the appended record
	// (or the existing latest one, for a repeated terminal status).
	//
	// - error: ErrInvalidStatusChanging (when newStatus is not reachable
	// from the current status),
	// ErrTerminalStateViolation (when the current status is terminal and
	// newStatus is a different status),
	// ErrMissing (when experiment is not found for given experimentId)
	NewStatus(ctx context.Context, experimentId string, newStatus domain.LifeStatus, message string) (domain.StatusRecord, error)

	// Retrieve the full ledger of an experiment, oldest first.
	//
	// Args
	//
	// - context.Context
	//
	// - string: experimentId
	//
	// Returns
	//
	// - []StatusRecord: all status records of the experiment, in the order
	// they were appended.
	//
	// - error: ErrMissing (when experiment is not found for given experimentId)
	History(ctx context.Context, experimentId string) ([]domain.StatusRecord, error)

	// Retrieve the current status of an experiment.
	//
	// This reads the cached last status without scanning the ledger.
	//
	// Args
	//
	// - context.Context
	//
	// - string: experimentId
	//
	// Returns
	//
	// - LifeStatus: status of the most recent ledger record.
	//
	// - error: ErrMissing (when experiment is not found for given experimentId)
	CurrentStatus(ctx context.Context, experimentId string) (domain.LifeStatus, error)
}
