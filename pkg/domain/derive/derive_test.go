package derive_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/expfab/expfab/pkg/domain"
	"github.com/expfab/expfab/pkg/domain/derive"
	"github.com/expfab/expfab/pkg/domain/event"
	eventmocks "github.com/expfab/expfab/pkg/domain/event/db/mock"
	expmocks "github.com/expfab/expfab/pkg/domain/experiment/db/mock"
	"github.com/expfab/expfab/pkg/domain/spec"
	"github.com/expfab/expfab/pkg/utils/pointer"
)

func fakeSource() domain.Experiment {
	return domain.Experiment{
		ExperimentBody: domain.ExperimentBody{
			Id:            "exp-source",
			Sequence:      3,
			Description:   "tuning run",
			CodeReference: "commit-aaa",
			Specification: map[string]any{
				"framework": "torch",
				"declarations": map[string]any{
					"lr": 0.1, "batch_size": 64,
				},
			},
			Declarations: map[string]any{"lr": 0.1, "batch_size": 64},
			LastStatus:   domain.Failed,
		},
		Project: domain.ProjectBody{
			Id: "proj-1", Name: "mnist",
			User: domain.UserBody{Id: "user-owner", Name: "owner"},
		},
		Group: &domain.GroupBody{Id: "group-1", Name: "sweep", ProjectId: "proj-1"},
		User:  domain.UserBody{Id: "user-owner", Name: "owner"},
	}
}

func testRegistry(store *eventmocks.EventInterface) *event.Registry {
	return event.DefaultRegistry(store, log.New(io.Discard, "", 0))
}

func TestEngine_Derive(t *testing.T) {
	ctx := context.Background()
	actor := domain.Actor{Id: "user-actor", Name: "alice"}

	newEngine := func(
		experiments *expmocks.ExperimentInterface,
		store *eventmocks.EventInterface,
		option ...derive.Option,
	) *derive.Engine {
		store.Impl.Append = func(context.Context, domain.Event) error { return nil }
		return derive.New(experiments, testRegistry(store), option...)
	}

	t.Run("restart with an override merges the specification", func(t *testing.T) {
		experiments := expmocks.NewExperimentInterface()
		experiments.Impl.Get = func(context.Context, []string) (map[string]domain.Experiment, error) {
			return map[string]domain.Experiment{"exp-source": fakeSource()}, nil
		}
		experiments.Impl.New = func(context.Context, domain.NewExperiment) (string, error) {
			return "exp-new", nil
		}
		store := eventmocks.NewEventInterface()

		testee := newEngine(experiments, store)

		newId, err := testee.Derive(ctx, "exp-source", derive.Request{
			Strategy: domain.StrategyRestart,
			Override: map[string]any{
				"declarations": map[string]any{"lr": 0.01},
			},
		}, actor)
		if err != nil {
			t.Fatal(err)
		}
		if newId != "exp-new" {
			t.Errorf("new id: %s (expected: exp-new)", newId)
		}

		created := experiments.Calls.New[0]
		decl, ok := created.Specification["declarations"].(map[string]any)
		if !ok {
			t.Fatalf("specification: %+v (expected: declarations mapping)", created.Specification)
		}
		if decl["lr"] != 0.01 {
			t.Errorf("lr: %v (expected: 0.01, overridden)", decl["lr"])
		}
		if decl["batch_size"] != 64 {
			t.Errorf("batch_size: %v (expected: 64, kept from source)", decl["batch_size"])
		}
		if created.Declarations["lr"] != 0.01 {
			t.Errorf("declarations.lr: %v (expected: re-extracted as 0.01)", created.Declarations["lr"])
		}
	})

	t.Run("it records the triggered event against the source", func(t *testing.T) {
		experiments := expmocks.NewExperimentInterface()
		experiments.Impl.Get = func(context.Context, []string) (map[string]domain.Experiment, error) {
			return map[string]domain.Experiment{"exp-source": fakeSource()}, nil
		}
		experiments.Impl.New = func(context.Context, domain.NewExperiment) (string, error) {
			return "exp-new", nil
		}
		store := eventmocks.NewEventInterface()

		testee := newEngine(experiments, store)

		if _, err := testee.Derive(ctx, "exp-source", derive.Request{
			Strategy: domain.StrategyResume,
		}, actor); err != nil {
			t.Fatal(err)
		}

		if store.Calls.Append.Times() != 1 {
			t.Fatalf("Append: called %d times (expected: once)", store.Calls.Append.Times())
		}
		recorded := store.Calls.Append[0]
		if recorded.Type != domain.ExperimentResumedTriggered {
			t.Errorf("event type: %s (expected: %s)", recorded.Type, domain.ExperimentResumedTriggered)
		}
		if recorded.SubjectId != "exp-source" {
			t.Errorf("event subject: %s (expected: the source, exp-source)", recorded.SubjectId)
		}
	})

	t.Run("the description is not inherited", func(t *testing.T) {
		for name, testcase := range map[string]struct {
			when string
			then string
		}{
			"when not supplied, the new record has none": {when: "", then: ""},
			"when supplied, it is used as given":         {when: "fresh start", then: "fresh start"},
		} {
			t.Run(name, func(t *testing.T) {
				experiments := expmocks.NewExperimentInterface()
				experiments.Impl.Get = func(context.Context, []string) (map[string]domain.Experiment, error) {
					return map[string]domain.Experiment{"exp-source": fakeSource()}, nil
				}
				experiments.Impl.New = func(context.Context, domain.NewExperiment) (string, error) {
					return "exp-new", nil
				}
				store := eventmocks.NewEventInterface()

				testee := newEngine(experiments, store)

				if _, err := testee.Derive(ctx, "exp-source", derive.Request{
					Strategy:    domain.StrategyRestart,
					Description: testcase.when,
				}, actor); err != nil {
					t.Fatal(err)
				}

				if actual := experiments.Calls.New[0].Description; actual != testcase.then {
					t.Errorf("description: %q (expected: %q)", actual, testcase.then)
				}
			})
		}
	})

	t.Run("group linkage", func(t *testing.T) {
		for name, testcase := range map[string]struct {
			when derive.Request
			then *string
		}{
			"restart keeps the source's group": {
				when: derive.Request{Strategy: domain.StrategyRestart},
				then: pointer.Ref("group-1"),
			},
			"resume keeps the source's group": {
				when: derive.Request{Strategy: domain.StrategyResume},
				then: pointer.Ref("group-1"),
			},
			"copy has no group by itself": {
				when: derive.Request{Strategy: domain.StrategyCopy},
				then: nil,
			},
			"copy joins a group only when asked to": {
				when: derive.Request{
					Strategy: domain.StrategyCopy, GroupId: pointer.Ref("group-2"),
				},
				then: pointer.Ref("group-2"),
			},
		} {
			t.Run(name, func(t *testing.T) {
				experiments := expmocks.NewExperimentInterface()
				experiments.Impl.Get = func(context.Context, []string) (map[string]domain.Experiment, error) {
					return map[string]domain.Experiment{"exp-source": fakeSource()}, nil
				}
				experiments.Impl.New = func(context.Context, domain.NewExperiment) (string, error) {
					return "exp-new", nil
				}
				store := eventmocks.NewEventInterface()

				testee := newEngine(experiments, store)

				if _, err := testee.Derive(ctx, "exp-source", testcase.when, actor); err != nil {
					t.Fatal(err)
				}

				actual := experiments.Calls.New[0].GroupId
				if (actual == nil) != (testcase.then == nil) ||
					(actual != nil && *actual != *testcase.then) {
					t.Errorf("group id: %v (expected: %v)", actual, testcase.then)
				}
			})
		}
	})

	t.Run("code reference", func(t *testing.T) {
		resolver := func(context.Context, domain.ProjectBody) (string, error) {
			return "commit-bbb", nil
		}

		for name, testcase := range map[string]struct {
			when bool
			then string
		}{
			"is copied as-is by default":         {when: false, then: "commit-aaa"},
			"is recomputed when asked to update": {when: true, then: "commit-bbb"},
		} {
			t.Run(name, func(t *testing.T) {
				experiments := expmocks.NewExperimentInterface()
				experiments.Impl.Get = func(context.Context, []string) (map[string]domain.Experiment, error) {
					return map[string]domain.Experiment{"exp-source": fakeSource()}, nil
				}
				experiments.Impl.New = func(context.Context, domain.NewExperiment) (string, error) {
					return "exp-new", nil
				}
				store := eventmocks.NewEventInterface()

				testee := newEngine(
					experiments, store, derive.WithCodeRefResolver(resolver),
				)

				if _, err := testee.Derive(ctx, "exp-source", derive.Request{
					Strategy:            domain.StrategyCopy,
					UpdateCodeReference: testcase.when,
				}, actor); err != nil {
					t.Fatal(err)
				}

				if actual := experiments.Calls.New[0].CodeReference; actual != testcase.then {
					t.Errorf("code reference: %s (expected: %s)", actual, testcase.then)
				}
			})
		}
	})

	t.Run("when no resolver is configured, an update request creates nothing", func(t *testing.T) {
		experiments := expmocks.NewExperimentInterface()
		experiments.Impl.Get = func(context.Context, []string) (map[string]domain.Experiment, error) {
			return map[string]domain.Experiment{"exp-source": fakeSource()}, nil
		}
		store := eventmocks.NewEventInterface()

		testee := newEngine(experiments, store)

		if _, err := testee.Derive(ctx, "exp-source", derive.Request{
			Strategy:            domain.StrategyCopy,
			UpdateCodeReference: true,
		}, actor); !errors.Is(err, derive.ErrNoCodeRefResolver) {
			t.Errorf("error: %v (expected: %v)", err, derive.ErrNoCodeRefResolver)
		}
		if experiments.Calls.New.Times() != 0 {
			t.Errorf("New: called %d times (expected: never)", experiments.Calls.New.Times())
		}
		if store.Calls.Append.Times() != 0 {
			t.Errorf("Append: called %d times (expected: never)", store.Calls.Append.Times())
		}
	})

	t.Run("it sets the lineage link", func(t *testing.T) {
		experiments := expmocks.NewExperimentInterface()
		experiments.Impl.Get = func(context.Context, []string) (map[string]domain.Experiment, error) {
			return map[string]domain.Experiment{"exp-source": fakeSource()}, nil
		}
		experiments.Impl.New = func(context.Context, domain.NewExperiment) (string, error) {
			return "exp-new", nil
		}
		store := eventmocks.NewEventInterface()

		testee := newEngine(experiments, store)

		if _, err := testee.Derive(ctx, "exp-source", derive.Request{
			Strategy: domain.StrategyRestart,
		}, actor); err != nil {
			t.Fatal(err)
		}

		expected := &domain.Origin{ExperimentId: "exp-source", Strategy: domain.StrategyRestart}
		if actual := experiments.Calls.New[0].Original; !actual.Equal(expected) {
			t.Errorf("origin: %+v (expected: %+v)", actual, expected)
		}
	})

	t.Run("when the source is missing, nothing is created", func(t *testing.T) {
		experiments := expmocks.NewExperimentInterface()
		experiments.Impl.Get = func(context.Context, []string) (map[string]domain.Experiment, error) {
			return map[string]domain.Experiment{}, nil
		}
		store := eventmocks.NewEventInterface()

		testee := newEngine(experiments, store)

		if _, err := testee.Derive(ctx, "exp-gone", derive.Request{
			Strategy: domain.StrategyRestart,
		}, actor); !errors.Is(err, domain.ErrMissing) {
			t.Errorf("error: %v (expected: %v)", err, domain.ErrMissing)
		}
		if experiments.Calls.New.Times() != 0 {
			t.Errorf("New: called %d times (expected: never)", experiments.Calls.New.Times())
		}
		if store.Calls.Append.Times() != 0 {
			t.Errorf("Append: called %d times (expected: never)", store.Calls.Append.Times())
		}
	})

	t.Run("when the override does not merge, nothing is created", func(t *testing.T) {
		experiments := expmocks.NewExperimentInterface()
		experiments.Impl.Get = func(context.Context, []string) (map[string]domain.Experiment, error) {
			return map[string]domain.Experiment{"exp-source": fakeSource()}, nil
		}
		store := eventmocks.NewEventInterface()

		testee := newEngine(experiments, store)

		if _, err := testee.Derive(ctx, "exp-source", derive.Request{
			Strategy: domain.StrategyRestart,
			Override: map[string]any{"declarations": "not-a-mapping"},
		}, actor); !errors.Is(err, spec.ErrInvalidSpec) {
			t.Errorf("error: %v (expected: %v)", err, spec.ErrInvalidSpec)
		}
		if experiments.Calls.New.Times() != 0 {
			t.Errorf("New: called %d times (expected: never)", experiments.Calls.New.Times())
		}
		if store.Calls.Append.Times() != 0 {
			t.Errorf("Append: called %d times (expected: never)", store.Calls.Append.Times())
		}
	})
}
