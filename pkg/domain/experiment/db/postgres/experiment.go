package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	pgerrcode "github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	kpool "github.com/expfab/expfab/pkg/conn/db/postgres/pool"
	"github.com/expfab/expfab/pkg/domain"
	kdberr "github.com/expfab/expfab/pkg/domain/errors/dberrors"
	"github.com/expfab/expfab/pkg/utils/slices"
)

type experimentPG struct { // implements db.ExperimentInterface
	pool kpool.Pool
}

// args:
//   - pool: connection pool used to query/exec SQL
func New(pool kpool.Pool) *experimentPG {
	return &experimentPG{pool: pool}
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

func (e *experimentPG) New(ctx context.Context, ex domain.NewExperiment) (string, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	// serialize sequence assignment per project.
	if err := func() error {
		rows, err := tx.Query(
			ctx, `select "id" from "project" where "id" = $1 for update`, ex.ProjectId,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return kdberr.Missing{
				Table: "project", Identity: fmt.Sprintf("id='%s'", ex.ProjectId),
			}
		}
		return nil
	}(); err != nil {
		return "", err
	}

	if ex.GroupId != nil {
		var groupProjectId string
		if err := tx.QueryRow(
			ctx, `select "project_id" from "experiment_group" where "id" = $1`, *ex.GroupId,
		).Scan(&groupProjectId); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", kdberr.Missing{
					Table: "experiment_group", Identity: fmt.Sprintf("id='%s'", *ex.GroupId),
				}
			}
			return "", err
		}
		if groupProjectId != ex.ProjectId {
			return "", kdberr.Missing{
				Table: "experiment_group",
				Identity: fmt.Sprintf(
					"id='%s' (in project '%s')", *ex.GroupId, ex.ProjectId,
				),
			}
		}
	}

	specification, err := json.Marshal(ex.Specification)
	if err != nil {
		return "", err
	}
	declarations, err := json.Marshal(ex.Declarations)
	if err != nil {
		return "", err
	}

	var originalId, cloneStrategy *string
	if ex.Original != nil {
		oid := ex.Original.ExperimentId
		strategy := string(ex.Original.Strategy)
		originalId = &oid
		cloneStrategy = &strategy
	}

	experimentId := uuid.NewString()
	if _, err := tx.Exec(
		ctx,
		`
		insert into "experiment" (
			"id", "project_id", "group_id", "user_id", "sequence",
			"description", "code_reference", "persistence_outputs",
			"specification", "declarations",
			"original_id", "clone_strategy", "last_status"
		)
		select
			$1, $2, $3, $4,
			coalesce(max("sequence"), 0) + 1,
			$5, $6, $7, $8::jsonb, $9::jsonb, $10, $11, $12
		from "experiment" where "project_id" = $2
		`,
		experimentId, ex.ProjectId, ex.GroupId, ex.UserId,
		ex.Description, ex.CodeReference, ex.PersistenceOutputs,
		specification, declarations,
		originalId, cloneStrategy, domain.Created.String(),
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return "", kdberr.Missing{
				Table: pgErr.TableName,
				Identity: fmt.Sprintf(
					"experiment for project '%s' (constraint: %s)",
					ex.ProjectId, pgErr.ConstraintName,
				),
			}
		}
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return experimentId, nil
}

func (e *experimentPG) Get(ctx context.Context, experimentIds []string) (map[string]domain.Experiment, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return getExperiments(ctx, conn, experimentIds)
}

func getExperiments(ctx context.Context, conn kpool.Queryer, experimentIds []string) (map[string]domain.Experiment, error) {
	result := map[string]domain.Experiment{}
	if len(experimentIds) == 0 {
		return result, nil
	}

	rows, err := conn.Query(
		ctx,
		`
		select
			"e"."id", "e"."sequence", "e"."description",
			"e"."code_reference", "e"."persistence_outputs",
			"e"."specification", "e"."declarations",
			"e"."last_status", "e"."deleted",
			"e"."created_at", "e"."updated_at", "e"."started_at", "e"."finished_at",
			"e"."original_id", "e"."clone_strategy",
			"p"."id", "p"."name", "ow"."id", "ow"."name",
			"cr"."id", "cr"."name",
			"g"."id", "g"."name", "g"."project_id"
		from "experiment" as "e"
		inner join "project" as "p" on "e"."project_id" = "p"."id"
		inner join "account" as "ow" on "p"."user_id" = "ow"."id"
		inner join "account" as "cr" on "e"."user_id" = "cr"."id"
		left outer join "experiment_group" as "g" on "e"."group_id" = "g"."id"
		where "e"."id" = any($1::varchar[]) and not "e"."deleted"
		`,
		experimentIds,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			body                        domain.ExperimentBody
			specification, declarations []byte
			lastStatus                  pgLifeStatus
			originalId, cloneStrategy   *string
			project                     domain.ProjectBody
			creator                     domain.UserBody
			groupId, groupName          *string
			groupProjectId              *string
		)
		if err := rows.Scan(
			&body.Id, &body.Sequence, &body.Description,
			&body.CodeReference, &body.PersistenceOutputs,
			&specification, &declarations,
			&lastStatus, &body.Deleted,
			&body.CreatedAt, &body.UpdatedAt, &body.StartedAt, &body.FinishedAt,
			&originalId, &cloneStrategy,
			&project.Id, &project.Name, &project.User.Id, &project.User.Name,
			&creator.Id, &creator.Name,
			&groupId, &groupName, &groupProjectId,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(specification, &body.Specification); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(declarations, &body.Declarations); err != nil {
			return nil, err
		}
		body.LastStatus = domain.LifeStatus(lastStatus)

		found := domain.Experiment{
			ExperimentBody: body,
			Project:        project,
			User:           creator,
		}
		if groupId != nil {
			found.Group = &domain.GroupBody{
				Id: *groupId, Name: *groupName, ProjectId: *groupProjectId,
			}
		}
		if originalId != nil {
			strategy, err := domain.AsCloneStrategy(*cloneStrategy)
			if err != nil {
				return nil, err
			}
			found.Original = &domain.Origin{ExperimentId: *originalId, Strategy: strategy}
		}

		result[found.Id] = found
	}

	return result, nil
}

func (e *experimentPG) Find(ctx context.Context, query domain.ExperimentFindQuery) ([]string, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "id" from "experiment"
		where
			not "deleted"
			and (cardinality($1::varchar[]) = 0 or "project_id" = any($1::varchar[]))
			and (cardinality($2::varchar[]) = 0 or "group_id" = any($2::varchar[]))
			and (not $3::boolean or "group_id" is null)
			and (cardinality($4::varchar[]) = 0 or "last_status" = any($4::varchar[]))
			and ($5::timestamp with time zone is null or "updated_at" >= $5::timestamp with time zone)
			and ($6::timestamp with time zone is null or "updated_at" < $6::timestamp with time zone)
		order by "created_at" ASC, "id"
		`,
		query.ProjectId, query.GroupId, query.Independent,
		slices.Map(query.Status, domain.LifeStatus.String),
		query.UpdatedSince, query.UpdatedUntil,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	experimentIds := []string{}
	for rows.Next() {
		var experimentId string
		if err := rows.Scan(&experimentId); err != nil {
			return nil, err
		}
		experimentIds = append(experimentIds, experimentId)
	}

	return experimentIds, nil
}

func (e *experimentPG) Update(ctx context.Context, experimentId string, patch domain.ExperimentPatch) error {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockExperiment(ctx, tx, experimentId); err != nil {
		return err
	}

	var declarations []byte
	if patch.Declarations != nil {
		declarations, err = json.Marshal(patch.Declarations)
		if err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "experiment" set
			"description" = coalesce($2, "description"),
			"code_reference" = coalesce($3, "code_reference"),
			"declarations" = coalesce($4::jsonb, "declarations"),
			"updated_at" = now()
		where "id" = $1
		`,
		experimentId, patch.Description, patch.CodeReference, declarations,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (e *experimentPG) Delete(ctx context.Context, experimentId string) error {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockExperiment(ctx, tx, experimentId); err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx,
		`update "experiment" set "deleted" = true, "updated_at" = now() where "id" = $1`,
		experimentId,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// take a row lock on a live experiment. kdberr.Missing when there is none.
func lockExperiment(ctx context.Context, conn kpool.Queryer, experimentId string) error {
	rows, err := conn.Query(
		ctx,
		`select "id" from "experiment" where "id" = $1 and not "deleted" for update`,
		experimentId,
	)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		return kdberr.Missing{
			Table: "experiment", Identity: fmt.Sprintf("id='%s'", experimentId),
		}
	}
	return nil
}

func (e *experimentPG) NewStatus(ctx context.Context, experimentId string, newStatus domain.LifeStatus, message string) (domain.StatusRecord, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return domain.StatusRecord{}, err
	}
	defer tx.Rollback(ctx)

	var current pgLifeStatus
	if err := tx.QueryRow(
		ctx,
		`select "last_status" from "experiment" where "id" = $1 and not "deleted" for update`,
		experimentId,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StatusRecord{}, kdberr.Missing{
				Table: "experiment", Identity: fmt.Sprintf("id='%s'", experimentId),
			}
		}
		return domain.StatusRecord{}, err
	}
	currentStatus := domain.LifeStatus(current)

	if currentStatus.Terminal() && currentStatus == newStatus {
		// the ledger already closes with this status. keep it as it is.
		var existing domain.StatusRecord
		var existingStatus pgLifeStatus
		if err := tx.QueryRow(
			ctx,
			`
			select "id", "status", "message", "created_at" from "experiment_status"
			where "experiment_id" = $1
			order by "id" DESC limit 1
			`,
			experimentId,
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
		insert into "experiment_status" ("experiment_id", "status", "message")
		values ($1, $2, $3)
		returning "id", "created_at"
		`,
		experimentId, newStatus.String(), message,
	).Scan(&record.Id, &record.CreatedAt); err != nil {
		return domain.StatusRecord{}, err
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "experiment" set
			"last_status" = $2,
			"updated_at" = now(),
			"started_at" = case
				when $3::boolean and "started_at" is null then $5::timestamp with time zone
				else "started_at"
			end,
			"finished_at" = case
				when $4::boolean then $5::timestamp with time zone
				else "finished_at"
			end
		where "id" = $1
		`,
		experimentId, newStatus.String(),
		newStatus == domain.Running, newStatus.Terminal(), record.CreatedAt,
	); err != nil {
		return domain.StatusRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StatusRecord{}, err
	}
	return record, nil
}

func (e *experimentPG) History(ctx context.Context, experimentId string) ([]domain.StatusRecord, error) {
	conn, err := e.pool.Acquire(ctx)
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
		`
		select "id", "status", "message", "created_at" from "experiment_status"
		where "experiment_id" = $1
		order by "id" ASC
		`,
		experimentId,
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

func (e *experimentPG) CurrentStatus(ctx context.Context, experimentId string) (domain.LifeStatus, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Release()

	var current pgLifeStatus
	if err := conn.QueryRow(
		ctx,
		`select "last_status" from "experiment" where "id" = $1 and not "deleted"`,
		experimentId,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", kdberr.Missing{
				Table: "experiment", Identity: fmt.Sprintf("id='%s'", experimentId),
			}
		}
		return "", err
	}

	return domain.LifeStatus(current), nil
}
