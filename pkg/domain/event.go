package domain

import (
	"time"

	"github.com/expfab/expfab/pkg/utils/cmp"
)

// identifier of an audit event type, "<subject>.<what happened>".
type EventType string

const (
	ExperimentCreated          EventType = "experiment.created"
	ExperimentUpdated          EventType = "experiment.updated"
	ExperimentViewed           EventType = "experiment.viewed"
	ExperimentDeletedTriggered EventType = "experiment.deleted_triggered"
	ExperimentStoppedTriggered EventType = "experiment.stopped_triggered"

	ExperimentRestartedTriggered EventType = "experiment.restarted_triggered"
	ExperimentResumedTriggered   EventType = "experiment.resumed_triggered"
	ExperimentCopiedTriggered    EventType = "experiment.copied_triggered"

	ExperimentNewStatus      EventType = "experiment.new_status"
	ExperimentStatusesViewed EventType = "experiment.statuses_viewed"
	ExperimentMetricsViewed  EventType = "experiment.metrics_viewed"
	ExperimentJobsViewed     EventType = "experiment.jobs_viewed"

	ExperimentJobViewed         EventType = "experiment_job.viewed"
	ExperimentJobStatusesViewed EventType = "experiment_job.statuses_viewed"
	ExperimentJobNewStatus      EventType = "experiment_job.new_status"

	ProjectExperimentsViewed EventType = "project.experiments_viewed"
	GroupExperimentsViewed   EventType = "experiment_group.experiments_viewed"
)

// TriggeredEventFor maps a clone strategy to the event recorded against the
// source experiment when derivation is triggered.
func TriggeredEventFor(strategy CloneStrategy) EventType {
	switch strategy {
	case StrategyRestart:
		return ExperimentRestartedTriggered
	case StrategyResume:
		return ExperimentResumedTriggered
	default:
		return ExperimentCopiedTriggered
	}
}

// dotted path into an instance snapshot, e.g. "project.user.id".
type Attribute string

// one extracted attribute. Value is nil when the path was absent.
type AttributeValue struct {
	Path  Attribute
	Value any
}

type Actor struct {
	Id   string
	Name string
}

// write-once audit record. Events are never mutated.
type Event struct {
	Type EventType

	// id of the instance the event is about, for lookups.
	SubjectId string

	// extracted attributes, in the order the event type declares.
	Attributes []AttributeValue

	Actor Actor

	CreatedAt time.Time
}

func (e *Event) Equal(o *Event) bool {
	if (e == nil) || (o == nil) {
		return (e == nil) && (o == nil)
	}
	return e.Type == o.Type &&
		e.SubjectId == o.SubjectId &&
		e.Actor == o.Actor &&
		e.CreatedAt.Equal(o.CreatedAt) &&
		cmp.SliceEqWith(
			e.Attributes, o.Attributes,
			func(a, b AttributeValue) bool { return a.Path == b.Path && a.Value == b.Value },
		)
}
