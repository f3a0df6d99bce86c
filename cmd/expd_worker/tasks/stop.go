// Package tasks holds the command handlers of the worker fleet boundary.
//
// Handlers are idempotent where the ledger allows it, so a command
// delivered twice does not fail on its second run.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/expfab/expfab/pkg/domain"
	kdbexp "github.com/expfab/expfab/pkg/domain/experiment/db"
)

// StopHandler tears an experiment down.
//
// The execution substrate is reached from here in a real deployment; this
// control plane only reports the outcome back through the ledger, and only
// when the command asks for it. Stopping an already-stopped experiment is
// a no-op by the same-terminal re-append rule.
func StopHandler(
	dbExperiment kdbexp.ExperimentInterface,
	logger *log.Logger,
) func(ctx context.Context, payload json.RawMessage) error {
	return func(ctx context.Context, payload json.RawMessage) error {
		stop := domain.StopPayload{}
		if err := json.Unmarshal(payload, &stop); err != nil {
			return fmt.Errorf("malformed stop payload: %w", err)
		}
		if stop.ExperimentId == "" {
			return errors.New("malformed stop payload: experiment_uuid is empty")
		}

		if !stop.UpdateStatus {
			return nil
		}

		if _, err := dbExperiment.NewStatus(
			ctx, stop.ExperimentId, domain.Stopped, "stopped by command",
		); err != nil {
			if errors.Is(err, domain.ErrMissing) {
				logger.Printf(
					"stop %s: experiment is gone. skipped.", stop.ExperimentName,
				)
				return nil
			}
			return err
		}
		return nil
	}
}
