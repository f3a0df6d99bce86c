package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/expfab/expfab/cmd/expd_worker/tasks"
	"github.com/expfab/expfab/pkg/domain"
	mockdb "github.com/expfab/expfab/pkg/domain/experiment/db/mock"
	"github.com/expfab/expfab/pkg/utils/cmp"
)

func TestStopHandler(t *testing.T) {

	logger := log.New(io.Discard, "", 0)

	t.Run("it appends stopped to the ledger when the command asks for it", func(t *testing.T) {
		mockExperiment := mockdb.NewExperimentInterface()
		mockExperiment.Impl.NewStatus = func(ctx context.Context, id string, s domain.LifeStatus, m string) (domain.StatusRecord, error) {
			return domain.StatusRecord{Id: 9, Status: s, Message: m}, nil
		}

		testee := tasks.StopHandler(mockExperiment, logger)
		payload := json.RawMessage(`{
			"project_name": "alice.mnist",
			"project_uuid": "proj-1",
			"experiment_name": "alice.mnist.1",
			"experiment_uuid": "exp-1",
			"experiment_group_name": null,
			"experiment_group_uuid": null,
			"update_status": true
		}`)

		if err := testee(context.Background(), payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []struct {
			ExperimentId string
			NewStatus    domain.LifeStatus
			Message      string
		}{
			{ExperimentId: "exp-1", NewStatus: domain.Stopped, Message: "stopped by command"},
		}
		if !cmp.SliceEq(
			[]struct {
				ExperimentId string
				NewStatus    domain.LifeStatus
				Message      string
			}(mockExperiment.Calls.NewStatus),
			expected,
		) {
			t.Errorf(
				"unmatch: params for ExperimentInterface.NewStatus:\n- actual:\n%+v\n- expected:\n%+v",
				mockExperiment.Calls.NewStatus, expected,
			)
		}
	})

	t.Run("it leaves the ledger alone when update_status is not set", func(t *testing.T) {
		mockExperiment := mockdb.NewExperimentInterface()

		testee := tasks.StopHandler(mockExperiment, logger)
		payload := json.RawMessage(`{"experiment_uuid": "exp-1", "update_status": false}`)

		if err := testee(context.Background(), payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mockExperiment.Calls.NewStatus.Times() != 0 {
			t.Errorf("NewStatus should not be called: %+v", mockExperiment.Calls.NewStatus)
		}
	})

	t.Run("it skips without error when the experiment is gone", func(t *testing.T) {
		mockExperiment := mockdb.NewExperimentInterface()
		mockExperiment.Impl.NewStatus = func(ctx context.Context, id string, s domain.LifeStatus, m string) (domain.StatusRecord, error) {
			return domain.StatusRecord{}, domain.ErrMissing
		}

		testee := tasks.StopHandler(mockExperiment, logger)
		payload := json.RawMessage(`{"experiment_uuid": "exp-gone", "update_status": true}`)

		if err := testee(context.Background(), payload); err != nil {
			t.Fatalf("a gone experiment should be skipped, not failed: %v", err)
		}
	})

	t.Run("it propagates ledger errors for redelivery", func(t *testing.T) {
		dummy := errors.New("dummy error")
		mockExperiment := mockdb.NewExperimentInterface()
		mockExperiment.Impl.NewStatus = func(ctx context.Context, id string, s domain.LifeStatus, m string) (domain.StatusRecord, error) {
			return domain.StatusRecord{}, dummy
		}

		testee := tasks.StopHandler(mockExperiment, logger)
		payload := json.RawMessage(`{"experiment_uuid": "exp-1", "update_status": true}`)

		err := testee(context.Background(), payload)
		if !errors.Is(err, dummy) {
			t.Fatalf("the error should be passed through: %v", err)
		}
	})

	t.Run("it rejects malformed payloads", func(t *testing.T) {
		for name, payload := range map[string]json.RawMessage{
			"not json":              json.RawMessage(`stop it`),
			"empty experiment_uuid": json.RawMessage(`{"update_status": true}`),
		} {
			t.Run(name, func(t *testing.T) {
				mockExperiment := mockdb.NewExperimentInterface()
				testee := tasks.StopHandler(mockExperiment, logger)

				if err := testee(context.Background(), payload); err == nil {
					t.Fatalf("no error but it is not expected result")
				}
				if mockExperiment.Calls.NewStatus.Times() != 0 {
					t.Errorf("NewStatus should not be called: %+v", mockExperiment.Calls.NewStatus)
				}
			})
		}
	})
}
