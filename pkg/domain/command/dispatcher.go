package command

import (
	"context"
	"encoding/json"

	"github.com/expfab/expfab/pkg/conn/queue"
	"github.com/expfab/expfab/pkg/domain"
)

// Dispatcher turns control actions into queue messages for the worker
// fleet.
//
// Dispatching never waits for execution. An enqueue failure is returned to
// the caller: the triggering action is not complete until its command is
// queued. What the worker later does with the command is out of reach
// here.
type Dispatcher struct {
	producer queue.Producer
}

func NewDispatcher(producer queue.Producer) *Dispatcher {
	return &Dispatcher{producer: producer}
}

// DispatchStop enqueues a stop command for the experiment.
//
// The payload carries every identifier the worker needs, resolved here, so
// the worker does not call back just to name its target. Group fields are
// explicit nulls for an independent experiment.
//
// Args
//
// - context.Context
//
// - Experiment: target, as currently stored.
//
// - bool: updateStatus; when true the worker appends "stopped" to the
// ledger once the workload is gone.
//
// Returns
//
// - error: enqueue failures, as they are.
func (d *Dispatcher) DispatchStop(ctx context.Context, experiment domain.Experiment, updateStatus bool) error {
	payload := domain.StopPayload{
		ProjectName:    experiment.Project.UniqueName(),
		ProjectId:      experiment.Project.Id,
		ExperimentName: experiment.UniqueName(),
		ExperimentId:   experiment.Id,
		Specification:  experiment.Specification,
		UpdateStatus:   updateStatus,
	}
	if experiment.Group != nil {
		payload.GroupName = experiment.GroupUniqueName()
		payload.GroupId = &experiment.Group.Id
	}

	return d.enqueue(ctx, domain.TaskExperimentsStop, payload)
}

// DispatchSetMetrics enqueues a bulk metric ingestion command.
//
// This is the asynchronous path taken when a client submits a list of
// records; the list goes into the payload unmodified.
//
// Args
//
// - context.Context
//
// - string: experimentId the metrics belong to.
//
// - []MetricRecord: the submitted records.
//
// Returns
//
// - error: enqueue failures, as they are.
func (d *Dispatcher) DispatchSetMetrics(ctx context.Context, experimentId string, data []domain.MetricRecord) error {
	return d.enqueue(ctx, domain.TaskExperimentsSetMetrics, domain.SetMetricsPayload{
		ExperimentId: experimentId,
		Data:         data,
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, task domain.TaskName, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.producer.Enqueue(ctx, domain.Command{Task: task, Payload: raw})
}
