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

type jobPG struct { // implements db.JobInterface
	pool kpool.Pool
}

// args:
//   - pool: connection pool used to query/exec SQL
func New(pool kpool.Pool) *jobPG {
	return &jobPG{pool: pool}
}

type pgLifeStatus domain.LifeStatus

func (s *pgLifeStatus) Scan(v any) error {
	var raw string
	switch vv := v.(type) {
	case string:
		raw = vv
	case []byte:
		raw = string(vv)
	default:
		return fmt.Errorf("parse error for LifeStatus: %#v", v)
	}

	parsed, err := domain.AsLifeStatus(raw)
	if err != nil {
		return err
	}
	*s = pgLifeStatus(parsed)
	return nil
}

func (j *jobPG) New(ctx context.Context, job domain.NewExperimentJob) (string, error) {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	// serialize sequence assignment per experiment.
	if err := func() error {
		rows, err := tx.Query(
			ctx,
			`select "id" from "experiment" where "id" = $1 and not "deleted" for update`,
			job.ExperimentId,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return kdberr.Missing{
				Table: "experiment", Identity: fmt.Sprintf("id='%s'", job.ExperimentId),
			}
		}
		return nil
	}(); err != nil {
		return "", err
	}

	definition, err := json.Marshal(job.Definition)
	if err != nil {
		return "", err
	}

	jobId := uuid.NewString()
	if _, err := tx.Exec(
		ctx,
		`
		insert into "experiment_job" (
			"id", "experiment_id", "sequence", "role", "definition", "last_status"
		)
		select
			$1, $2, coalesce(max("sequence"), 0) + 1, $3, $4::jsonb, $5
		from "experiment_job" where "experiment_id" = $2
		`,
		jobId, job.ExperimentId, job.Role, definition, domain.Created.String(),
	); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return jobId, nil
}

func (j *jobPG) Get(ctx context.Context, jobIds []string) (map[string]domain.ExperimentJob, error) {
	result := map[string]domain.ExperimentJob{}
	if len(jobIds) == 0 {
		return result, nil
	}

	conn, err := j.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select
			"id", "experiment_id", "sequence", "role", "definition",
			"last_status", "created_at", "updated_at"
		from "experiment_job"
		where "id" = any($1::varchar[])
		`,
		jobIds,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			found      domain.ExperimentJob
			definition []byte
			lastStatus pgLifeStatus
		)
		if err := rows.Scan(
			&found.Id, &found.ExperimentId, &found.Sequence, &found.Role,
			&definition, &lastStatus, &found.CreatedAt, &found.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(definition, &found.Definition); err != nil {
			return nil, err
		}
		found.LastStatus = domain.LifeStatus(lastStatus)
		result[found.Id] = found
	}

	return result, nil
}

func (j *jobPG) FindByExperiment(ctx context.Context, experimentId string) ([]string, error) {
	conn, err := j.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if err := func() error {
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
	}(); err != nil {
		return nil, err
	}

	rows, err := conn.Query(
		ctx,
		`select "id" from "experiment_job" where "experiment_id" = $1 order by "sequence" ASC`,
		experimentId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobIds := []string{}
	for rows.Next() {
		var jobId string
		if err := rows.Scan(&jobId); err != nil {
			return nil, err
		}
		jobIds = append(jobIds, jobId)
	}

	return jobIds, nil
}

func (j *jobPG) NewStatus(ctx context.Context, jobId string, newStatus domain.LifeStatus, message string) (domain.StatusRecord, error) {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return domain.StatusRecord{}, err
	}
	defer tx.Rollback(ctx)

	var current pgLifeStatus
	if err := tx.QueryRow(
		ctx,
		`select "last_status" from "experiment_job" where "id" = $1 for update`,
		jobId,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StatusRecord{}, kdberr.Missing{
				Table: "experiment_job", Identity: fmt.Sprintf("id='%s'", jobId),
			}
		}
		return domain.StatusRecord{}, err
	}
	currentStatus := domain.LifeStatus(current)

	if currentStatus.Terminal() && currentStatus == newStatus {
		var existing domain.StatusRecord
		var existingStatus pgLifeStatus
		if err := tx.QueryRow(
			ctx,
			`
			select "id", "status", "message", "created_at" from "experiment_job_status"
			where "job_id" = $1
			order by "id" DESC limit 1
			`,
			jobId,
		).Scan(&existing.Id, &existingStatus, &existing.Message, &existing.CreatedAt); err != nil {
			return domain.StatusRecord{}, err
		}
		existing.Status = domain.LifeStatus(existingStatus)
		return existing, tx.Commit(ctx)
	}

	if !currentStatus.CanTransitTo(newStatus) {
		if currentStatus.Terminal() {
			return domain.StatusRecord{}, domain.NewErrTerminalStateViolation(currentStatus, newStatus)
		}
		return domain.StatusRecord{}, domain.NewErrInvalidStatusChanging(currentStatus, newStatus)
	}

	record := domain.StatusRecord{Status: newStatus, Message: message}
	if err := tx.QueryRow(
		ctx,
		`
		insert into "experiment_job_status" ("job_id", "status", "message")
		values ($1, $2, $3)
		returning "id", "created_at"
		`,
		jobId, newStatus.String(), message,
	).Scan(&record.Id, &record.CreatedAt); err != nil {
		return domain.StatusRecord{}, err
	}

	if _, err := tx.Exec(
		ctx,
		`update "experiment_job" set "last_status" = $2, "updated_at" = now() where "id" = $1`,
		jobId, newStatus.String(),
	); err != nil {
		return domain.StatusRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StatusRecord{}, err
	}
	return record, nil
}

func (j *jobPG) History(ctx context.Context, jobId string) ([]domain.StatusRecord, error) {
	conn, err := j.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if err := func() error {
		var found string
		err := conn.QueryRow(
			ctx, `select "id" from "experiment_job" where "id" = $1`, jobId,
		).Scan(&found)
		if errors.Is(err, pgx.ErrNoRows) {
			return kdberr.Missing{
				Table: "experiment_job", Identity: fmt.Sprintf("id='%s'", jobId),
			}
		}
		return err
	}(); err != nil {
		return nil, err
	}

	rows, err := conn.Query(
		ctx,
		`
		select "id", "status", "message", "created_at" from "experiment_job_status"
		where "job_id" = $1
		order by "id" ASC
		`,
		jobId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []domain.StatusRecord{}
	for rows.Next() {
		var record domain.StatusRecord
		var status pgLifeStatus
		if err := rows.Scan(&record.Id, &status, &record.Message, &record.CreatedAt); err != nil {
			return nil, err
		}
		record.Status = domain.LifeStatus(status)
		history = append(history, record)
	}

	return history, nil
}

func (j *jobPG) CurrentStatus(ctx context.Context, jobId string) (domain.LifeStatus, error) {
	conn, err := j.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Release()

	var current pgLifeStatus
	if err := conn.QueryRow(
		ctx, `select "last_status" from "experiment_job" where "id" = $1`, jobId,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", kdberr.Missing{
				Table: "experiment_job", Identity: fmt.Sprintf("id='%s'", jobId),
			}
		}
		return "", err
	}

	return domain.LifeStatus(current), nil
}
