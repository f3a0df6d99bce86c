package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/expfab/expfab/pkg/domain"
	kdbmetric "github.com/expfab/expfab/pkg/domain/metric/db"
)

// SetMetricsHandler bulk-inserts submitted metric records.
func SetMetricsHandler(
	dbMetric kdbmetric.MetricInterface,
	logger *log.Logger,
) func(ctx context.Context, payload json.RawMessage) error {
	return func(ctx context.Context, payload json.RawMessage) error {
		metrics := domain.SetMetricsPayload{}
		if err := json.Unmarshal(payload, &metrics); err != nil {
			return fmt.Errorf("malformed set_metrics payload: %w", err)
		}
		if metrics.ExperimentId == "" {
			return errors.New("malformed set_metrics payload: experiment_id is empty")
		}
		if len(metrics.Data) == 0 {
			return nil
		}

		if err := dbMetric.BulkNew(ctx, metrics.ExperimentId, metrics.Data); err != nil {
			if errors.Is(err, domain.ErrMissing) {
				logger.Printf(
					"set_metrics %s: experiment is gone. skipped.", metrics.ExperimentId,
				)
				return nil
			}
			return err
		}
		return nil
	}
}
