package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	kpool "github.com/expfab/expfab/pkg/conn/db/postgres/pool"
	"github.com/expfab/expfab/pkg/domain"
	kdberr "github.com/expfab/expfab/pkg/domain/errors/dberrors"
)

type metricPG struct { // implements db.MetricInterface
	pool kpool.Pool
}

// args:
//   - pool: connection pool used to query/exec SQL
func New(pool kpool.Pool) *metricPG {
	return &metricPG{pool: pool}
}

func checkExperiment(ctx context.Context, conn kpool.Queryer, experimentId string) error {
	var found string
	err := conn.QueryRow(
		ctx,
		`select "id" from "experiment" where "id" = $1 and not "deleted"`,
		experimentId,
	).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return kdberr.Missing{
			Table: "experiment", Identity: fmt.Sprintf("id='%s'", experimentId),
		}
	}
	return err
}

func insertMetric(ctx context.Context, conn kpool.Queryer, experimentId string, record domain.MetricRecord) (domain.ExperimentMetric, error) {
	values, err := json.Marshal(record.Values)
	if err != nil {
		return domain.ExperimentMetric{}, err
	}

	stored := domain.ExperimentMetric{
		Id:           uuid.NewString(),
		ExperimentId: experimentId,
		Values:       record.Values,
	}
	if err := conn.QueryRow(
		ctx,
		`
		insert into "experiment_metric" ("id", "experiment_id", "values", "created_at")
		values ($1, $2, $3::jsonb, coalesce($4::timestamp with time zone, now()))
		returning "created_at"
		`,
		stored.Id, experimentId, values, record.CreatedAt,
	).Scan(&stored.CreatedAt); err != nil {
		return domain.ExperimentMetric{}, err
	}

	return stored, nil
}

func (m *metricPG) New(ctx context.Context, experimentId string, record domain.MetricRecord) (domain.ExperimentMetric, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return domain.ExperimentMetric{}, err
	}
	defer conn.Release()

	if err := checkExperiment(ctx, conn, experimentId); err != nil {
		return domain.ExperimentMetric{}, err
	}

	return insertMetric(ctx, conn, experimentId, record)
}

func (m *metricPG) BulkNew(ctx context.Context, experimentId string, records []domain.MetricRecord) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := checkExperiment(ctx, tx, experimentId); err != nil {
		return err
	}

	for _, record := range records {
		if _, err := insertMetric(ctx, tx, experimentId, record); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (m *metricPG) ListByExperiment(ctx context.Context, experimentId string) ([]domain.ExperimentMetric, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if err := checkExperiment(ctx, conn, experimentId); err != nil {
		return nil, err
	}

	rows, err := conn.Query(
		ctx,
		`
		select "id", "experiment_id", "values", "created_at" from "experiment_metric"
		where "experiment_id" = $1
		order by "created_at" ASC, "id"
		`,
		experimentId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := []domain.ExperimentMetric{}
	for rows.Next() {
		var (
			found  domain.ExperimentMetric
			values []byte
		)
		if err := rows.Scan(&found.Id, &found.ExperimentId, &values, &found.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(values, &found.Values); err != nil {
			return nil, err
		}
		metrics = append(metrics, found)
	}

	return metrics, nil
}
