package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// name of a task executed by the worker fleet.
type TaskName string

const (
	TaskExperimentsStop       TaskName = "experiments_stop"
	TaskExperimentsSetMetrics TaskName = "experiments_set_metrics"
)

func AsTaskName(s string) (TaskName, error) {
	switch s {
	case string(TaskExperimentsStop):
		return TaskExperimentsStop, nil
	case string(TaskExperimentsSetMetrics):
		return TaskExperimentsSetMetrics, nil
	default:
		return "", fmt.Errorf("'%s' is not TaskName", s)
	}
}

// one queue message. Commands are transient, they are not persisted here.
//
// Delivery is at-least-once; handlers on the worker side are expected to be
// idempotent.
type Command struct {
	Task    TaskName        `json:"task_name"`
	Payload json.RawMessage `json:"payload"`
}

// payload of TaskExperimentsStop.
//
// All identifiers are resolved before dispatch so the worker does not come
// back for them; group fields are explicit nulls when the experiment is
// independent.
type StopPayload struct {
	ProjectName    string         `json:"project_name"`
	ProjectId      string         `json:"project_uuid"`
	ExperimentName string         `json:"experiment_name"`
	ExperimentId   string         `json:"experiment_uuid"`
	GroupName      *string        `json:"experiment_group_name"`
	GroupId        *string        `json:"experiment_group_uuid"`
	Specification  map[string]any `json:"specification"`

	// when true, the worker also appends "stopped" to the ledger on
	// completion.
	UpdateStatus bool `json:"update_status"`
}

// one metric record as submitted by clients.
type MetricRecord struct {
	Values    map[string]float64 `json:"values"`
	CreatedAt *time.Time         `json:"created_at,omitempty"`
}

// payload of TaskExperimentsSetMetrics: the raw submitted list, unmodified.
type SetMetricsPayload struct {
	ExperimentId string         `json:"experiment_id"`
	Data         []MetricRecord `json:"data"`
}
