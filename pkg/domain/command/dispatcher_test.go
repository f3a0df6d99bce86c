package command_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	queuemocks "github.com/expfab/expfab/pkg/conn/queue/mock"
	"github.com/expfab/expfab/pkg/domain"
	"github.com/expfab/expfab/pkg/domain/command"
)

func fakeExperiment(group *domain.GroupBody) domain.Experiment {
	return domain.Experiment{
		ExperimentBody: domain.ExperimentBody{
			Id:       "exp-1",
			Sequence: 7,
			Specification: map[string]any{
				"framework": "torch",
			},
			LastStatus: domain.Running,
		},
		Project: domain.ProjectBody{
			Id: "proj-1", Name: "mnist",
			User: domain.UserBody{Id: "user-owner", Name: "owner"},
		},
		Group: group,
		User:  domain.UserBody{Id: "user-owner", Name: "owner"},
	}
}

func TestDispatcher_DispatchStop(t *testing.T) {
	ctx := context.Background()

	t.Run("it enqueues a stop command with resolved names", func(t *testing.T) {
		producer := queuemocks.New()
		producer.Impl.Enqueue = func(context.Context, domain.Command) error { return nil }

		testee := command.NewDispatcher(producer)

		group := &domain.GroupBody{Id: "group-1", Name: "sweep", ProjectId: "proj-1"}
		if err := testee.DispatchStop(ctx, fakeExperiment(group), true); err != nil {
			t.Fatal(err)
		}

		if producer.Calls.Enqueue.Times() != 1 {
			t.Fatalf("Enqueue: called %d times (expected: once)", producer.Calls.Enqueue.Times())
		}
		enqueued := producer.Calls.Enqueue[0]
		if enqueued.Task != domain.TaskExperimentsStop {
			t.Errorf("task: %s (expected: %s)", enqueued.Task, domain.TaskExperimentsStop)
		}

		payload := domain.StopPayload{}
		if err := json.Unmarshal(enqueued.Payload, &payload); err != nil {
			t.Fatal(err)
		}
		if payload.ExperimentName != "owner.mnist.7" {
			t.Errorf("experiment name: %s (expected: owner.mnist.7)", payload.ExperimentName)
		}
		if payload.ProjectName != "owner.mnist" {
			t.Errorf("project name: %s (expected: owner.mnist)", payload.ProjectName)
		}
		if payload.GroupId == nil || *payload.GroupId != "group-1" {
			t.Errorf("group uuid: %v (expected: group-1)", payload.GroupId)
		}
		if payload.GroupName == nil || *payload.GroupName != "owner.mnist.sweep" {
			t.Errorf("group name: %v (expected: owner.mnist.sweep)", payload.GroupName)
		}
		if !payload.UpdateStatus {
			t.Error("update_status: false (expected: true)")
		}
	})

	t.Run("group fields are explicit nulls for an independent experiment", func(t *testing.T) {
		producer := queuemocks.New()
		producer.Impl.Enqueue = func(context.Context, domain.Command) error { return nil }

		testee := command.NewDispatcher(producer)

		if err := testee.DispatchStop(ctx, fakeExperiment(nil), false); err != nil {
			t.Fatal(err)
		}

		raw := map[string]json.RawMessage{}
		if err := json.Unmarshal(producer.Calls.Enqueue[0].Payload, &raw); err != nil {
			t.Fatal(err)
		}
		for _, field := range []string{"experiment_group_name", "experiment_group_uuid"} {
			value, ok := raw[field]
			if !ok {
				t.Errorf("%s: absent (expected: explicit null)", field)
				continue
			}
			if string(value) != "null" {
				t.Errorf("%s: %s (expected: null)", field, value)
			}
		}
	})

	t.Run("enqueue failures are propagated", func(t *testing.T) {
		fakeError := errors.New("fake enqueue error")
		producer := queuemocks.New()
		producer.Impl.Enqueue = func(context.Context, domain.Command) error { return fakeError }

		testee := command.NewDispatcher(producer)

		if err := testee.DispatchStop(
			ctx, fakeExperiment(nil), true,
		); !errors.Is(err, fakeError) {
			t.Errorf("error: %v (expected: %v)", err, fakeError)
		}
	})
}

func TestDispatcher_DispatchSetMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("it enqueues the submitted records unmodified", func(t *testing.T) {
		producer := queuemocks.New()
		producer.Impl.Enqueue = func(context.Context, domain.Command) error { return nil }

		testee := command.NewDispatcher(producer)

		data := []domain.MetricRecord{
			{Values: map[string]float64{"loss": 0.3}},
			{Values: map[string]float64{"loss": 0.2}},
			{Values: map[string]float64{"loss": 0.1, "accuracy": 0.95}},
		}
		if err := testee.DispatchSetMetrics(ctx, "exp-1", data); err != nil {
			t.Fatal(err)
		}

		enqueued := producer.Calls.Enqueue[0]
		if enqueued.Task != domain.TaskExperimentsSetMetrics {
			t.Errorf("task: %s (expected: %s)", enqueued.Task, domain.TaskExperimentsSetMetrics)
		}

		payload := domain.SetMetricsPayload{}
		if err := json.Unmarshal(enqueued.Payload, &payload); err != nil {
			t.Fatal(err)
		}
		if payload.ExperimentId != "exp-1" {
			t.Errorf("experiment id: %s (expected: exp-1)", payload.ExperimentId)
		}
		if len(payload.Data) != 3 {
			t.Fatalf("records: %d (expected: 3)", len(payload.Data))
		}
		if payload.Data[2].Values["accuracy"] != 0.95 {
			t.Errorf("accuracy: %v (expected: 0.95)", payload.Data[2].Values["accuracy"])
		}
	})
}
