package domain

import (
	"fmt"
	"time"
)

// Core part of experiment job.
//
// A job is one unit of execution inside an experiment (e.g. one worker
// process). Its status ledger is independent of the parent experiment's.
type ExperimentJobBody struct {
	Id string

	// per-experiment sequence number.
	Sequence int

	// role of the job in the experiment, e.g. "master", "worker", "ps".
	Role string

	// resource/runtime definition of the job.
	Definition map[string]any

	// status of the most-recently-created ledger row. Cached; ledger is
	// authoritative.
	LastStatus LifeStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (jb *ExperimentJobBody) Equal(o *ExperimentJobBody) bool {
	if (jb == nil) || (o == nil) {
		return (jb == nil) && (o == nil)
	}
	return jb.Id == o.Id &&
		jb.Sequence == o.Sequence &&
		jb.Role == o.Role &&
		jb.LastStatus == o.LastStatus
}

// parameter to create an experiment job.
//
// Id, Sequence and timestamps are assigned by the repository.
type NewExperimentJob struct {
	ExperimentId string
	Role         string
	Definition   map[string]any
}

type ExperimentJob struct {
	ExperimentJobBody

	ExperimentId string
}

// unique job name, "<experiment unique name>.<sequence>".
func (j ExperimentJob) UniqueName(e Experiment) string {
	return fmt.Sprintf("%s.%d", e.UniqueName(), j.Sequence)
}

func (j *ExperimentJob) Equal(o *ExperimentJob) bool {
	if (j == nil) || (o == nil) {
		return (j == nil) && (o == nil)
	}
	return j.ExperimentJobBody.Equal(&o.ExperimentJobBody) &&
		j.ExperimentId == o.ExperimentId
}

func (j ExperimentJob) Snapshot() map[string]any {
	return map[string]any{
		"id":          j.Id,
		"role":        j.Role,
		"last_status": j.LastStatus.String(),
		"experiment": map[string]any{
			"id": j.ExperimentId,
		},
	}
}
