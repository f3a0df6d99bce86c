package event

import (
	"context"
	"log"
	"strings"

	"github.com/expfab/expfab/pkg/domain"
	kdbevent "github.com/expfab/expfab/pkg/domain/event/db"
)

// Registry holds the catalog of recordable event types and writes audit
// records for them.
//
// The catalog is explicit state owned by the Registry, built at startup.
// Subscribe is not safe for concurrent use with Record; finish subscribing
// before serving requests.
//
// Record never reports failure to its caller. Auditing must not break the
// action being audited, so storage errors and unsubscribed types are
// logged and swallowed.
type Registry struct {
	schemas map[domain.EventType][]domain.Attribute
	store   kdbevent.EventInterface
	logger  *log.Logger
}

// args:
//   - store: storage the audit records are written to
//   - logger: destination of swallowed failures
func NewRegistry(store kdbevent.EventInterface, logger *log.Logger) *Registry {
	return &Registry{
		schemas: map[domain.EventType][]domain.Attribute{},
		store:   store,
		logger:  logger,
	}
}

// Subscribe registers an event type with its attribute schema.
//
// Idempotent. Re-subscribing an already known type keeps the first schema.
func (r *Registry) Subscribe(eventType domain.EventType, schema []domain.Attribute) {
	if _, ok := r.schemas[eventType]; ok {
		return
	}
	r.schemas[eventType] = schema
}

func (r *Registry) Subscribed(eventType domain.EventType) bool {
	_, ok := r.schemas[eventType]
	return ok
}

// Record extracts the subscribed attributes from the instance snapshot and
// stores an audit record.
//
// Args
//
// - context.Context
//
// - EventType: type of the event.
//
// - map[string]any: snapshot of the instance the event is about.
// Attribute paths are resolved against it by dotted lookup; a missing or
// nil intermediate yields a null attribute, never an error.
//
// - Actor: acting user. It backs the "actor_id" and "actor_name" paths.
//
// - map[string]any: extra values resolved before the snapshot. Can be nil.
func (r *Registry) Record(
	ctx context.Context,
	eventType domain.EventType,
	instance map[string]any,
	actor domain.Actor,
	extra map[string]any,
) {
	schema, ok := r.schemas[eventType]
	if !ok {
		r.logger.Printf("event type %s is not subscribed. skipped.", eventType)
		return
	}

	attributes := make([]domain.AttributeValue, 0, len(schema))
	for _, path := range schema {
		attributes = append(attributes, domain.AttributeValue{
			Path:  path,
			Value: resolveAttribute(path, instance, actor, extra),
		})
	}

	subjectId, _ := instance["id"].(string)
	event := domain.Event{
		Type:       eventType,
		SubjectId:  subjectId,
		Attributes: attributes,
		Actor:      actor,
	}

	if err := r.store.Append(ctx, event); err != nil {
		r.logger.Printf("failed to record event %s (subject: %s): %s", eventType, subjectId, err)
	}
}

func resolveAttribute(path domain.Attribute, instance map[string]any, actor domain.Actor, extra map[string]any) any {
	switch path {
	case "actor_id":
		return actor.Id
	case "actor_name":
		return actor.Name
	}

	if value, ok := lookup(extra, path); ok {
		return value
	}
	value, _ := lookup(instance, path)
	return value
}

// dotted path lookup. The second return value tells whether the full path
// was present.
func lookup(root map[string]any, path domain.Attribute) (any, bool) {
	if root == nil {
		return nil, false
	}

	var current any = root
	for _, key := range strings.Split(string(path), ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = node[key]; !ok {
			return nil, false
		}
	}
	return current, true
}
