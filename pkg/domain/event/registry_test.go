package event_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/expfab/expfab/pkg/domain"
	"github.com/expfab/expfab/pkg/domain/event"
	mocks "github.com/expfab/expfab/pkg/domain/event/db/mock"
	"github.com/expfab/expfab/pkg/utils/cmp"
)

func TestRegistry_Record(t *testing.T) {
	discard := log.New(io.Discard, "", 0)

	t.Run("it extracts attributes in schema order", func(t *testing.T) {
		store := mocks.NewEventInterface()
		store.Impl.Append = func(context.Context, domain.Event) error { return nil }

		testee := event.NewRegistry(store, discard)
		testee.Subscribe(
			"experiment.viewed",
			[]domain.Attribute{"id", "project.user.id", "group.id", "actor_id", "actor_name"},
		)

		instance := map[string]any{
			"id": "exp-1",
			"project": map[string]any{
				"user": map[string]any{"id": "user-owner"},
			},
			"group": nil,
		}
		actor := domain.Actor{Id: "user-actor", Name: "alice"}

		testee.Record(context.Background(), "experiment.viewed", instance, actor, nil)

		if store.Calls.Append.Times() != 1 {
			t.Fatalf("Append: called %d times (expected: once)", store.Calls.Append.Times())
		}

		actual := store.Calls.Append[0]
		expected := domain.Event{
			Type:      "experiment.viewed",
			SubjectId: "exp-1",
			Attributes: []domain.AttributeValue{
				{Path: "id", Value: "exp-1"},
				{Path: "project.user.id", Value: "user-owner"},
				{Path: "group.id", Value: nil},
				{Path: "actor_id", Value: "user-actor"},
				{Path: "actor_name", Value: "alice"},
			},
			Actor: actor,
		}
		if !actual.Equal(&expected) {
			t.Errorf("recorded event:\n===actual===\n%+v\n===expected===\n%+v", actual, expected)
		}
	})

	t.Run("it prefers extra values over the snapshot", func(t *testing.T) {
		store := mocks.NewEventInterface()
		store.Impl.Append = func(context.Context, domain.Event) error { return nil }

		testee := event.NewRegistry(store, discard)
		testee.Subscribe("experiment.new_status", []domain.Attribute{"id", "last_status"})

		testee.Record(
			context.Background(),
			"experiment.new_status",
			map[string]any{"id": "exp-1", "last_status": "created"},
			domain.Actor{Id: "user-actor"},
			map[string]any{"last_status": "running"},
		)

		actual := store.Calls.Append[0].Attributes
		expected := []domain.AttributeValue{
			{Path: "id", Value: "exp-1"},
			{Path: "last_status", Value: "running"},
		}
		if !cmp.SliceEqWith(
			actual, expected,
			func(a, b domain.AttributeValue) bool { return a.Path == b.Path && a.Value == b.Value },
		) {
			t.Errorf("attributes:\n===actual===\n%+v\n===expected===\n%+v", actual, expected)
		}
	})

	t.Run("it skips recording for a type which is not subscribed", func(t *testing.T) {
		store := mocks.NewEventInterface()
		// no Impl.Append: recording would panic.

		testee := event.NewRegistry(store, discard)
		testee.Record(
			context.Background(),
			"experiment.viewed",
			map[string]any{"id": "exp-1"},
			domain.Actor{Id: "user-actor"},
			nil,
		)

		if store.Calls.Append.Times() != 0 {
			t.Errorf("Append: called %d times (expected: never)", store.Calls.Append.Times())
		}
	})

	t.Run("it swallows storage failures", func(t *testing.T) {
		store := mocks.NewEventInterface()
		store.Impl.Append = func(context.Context, domain.Event) error {
			return errors.New("fake storage error")
		}

		testee := event.NewRegistry(store, discard)
		testee.Subscribe("experiment.viewed", []domain.Attribute{"id"})

		// should not panic nor propagate the error.
		testee.Record(
			context.Background(),
			"experiment.viewed",
			map[string]any{"id": "exp-1"},
			domain.Actor{Id: "user-actor"},
			nil,
		)
	})
}

func TestRegistry_Subscribe(t *testing.T) {
	discard := log.New(io.Discard, "", 0)

	t.Run("it keeps the first schema when re-subscribed", func(t *testing.T) {
		store := mocks.NewEventInterface()
		store.Impl.Append = func(context.Context, domain.Event) error { return nil }

		testee := event.NewRegistry(store, discard)
		testee.Subscribe("experiment.viewed", []domain.Attribute{"id"})
		testee.Subscribe("experiment.viewed", []domain.Attribute{"id", "name"})

		testee.Record(
			context.Background(),
			"experiment.viewed",
			map[string]any{"id": "exp-1", "name": "owner.proj.1"},
			domain.Actor{Id: "user-actor"},
			nil,
		)

		if actual := store.Calls.Append[0].Attributes; len(actual) != 1 {
			t.Errorf("attributes: %+v (expected: only 'id')", actual)
		}
	})
}

func TestDefaultRegistry(t *testing.T) {
	discard := log.New(io.Discard, "", 0)

	t.Run("it subscribes the whole catalog", func(t *testing.T) {
		store := mocks.NewEventInterface()
		testee := event.DefaultRegistry(store, discard)

		for eventType := range event.DefaultSchemas() {
			if !testee.Subscribed(eventType) {
				t.Errorf("event type %s: not subscribed", eventType)
			}
		}
	})
}
