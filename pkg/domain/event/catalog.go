package event

import (
	"log"

	"github.com/expfab/expfab/pkg/domain"
	kdbevent "github.com/expfab/expfab/pkg/domain/event/db"
)

// attribute schemas of the built-in event catalog.
//
// Schemas are ordered. Extraction order is part of an event type's
// identity, so records stay comparable across restarts.
func DefaultSchemas() map[domain.EventType][]domain.Attribute {
	experiment := []domain.Attribute{
		"id", "name", "project.id", "project.user.id", "user.id",
		"actor_id", "last_status",
	}
	experimentWithActorName := append(
		append([]domain.Attribute{}, experiment...), "actor_name",
	)
	job := []domain.Attribute{"id", "experiment.id", "last_status", "actor_id"}

	return map[domain.EventType][]domain.Attribute{
		domain.ExperimentCreated: experiment,
		domain.ExperimentUpdated: experiment,

		domain.ExperimentViewed:           experimentWithActorName,
		domain.ExperimentDeletedTriggered: experimentWithActorName,
		domain.ExperimentStoppedTriggered: experimentWithActorName,

		domain.ExperimentRestartedTriggered: experimentWithActorName,
		domain.ExperimentResumedTriggered:   experimentWithActorName,
		domain.ExperimentCopiedTriggered:    experimentWithActorName,

		domain.ExperimentNewStatus:      experiment,
		domain.ExperimentStatusesViewed: experimentWithActorName,
		domain.ExperimentMetricsViewed:  experimentWithActorName,
		domain.ExperimentJobsViewed:     experimentWithActorName,

		domain.ExperimentJobViewed:         append(append([]domain.Attribute{}, job...), "actor_name"),
		domain.ExperimentJobStatusesViewed: append(append([]domain.Attribute{}, job...), "actor_name"),
		domain.ExperimentJobNewStatus:      job,

		domain.ProjectExperimentsViewed: {
			"id", "name", "user.id", "actor_id", "actor_name",
		},
		domain.GroupExperimentsViewed: {
			"id", "name", "project_id", "actor_id", "actor_name",
		},
	}
}

// DefaultRegistry builds a Registry subscribed to the whole built-in catalog.
func DefaultRegistry(store kdbevent.EventInterface, logger *log.Logger) *Registry {
	registry := NewRegistry(store, logger)
	for eventType, schema := range DefaultSchemas() {
		registry.Subscribe(eventType, schema)
	}
	return registry
}
