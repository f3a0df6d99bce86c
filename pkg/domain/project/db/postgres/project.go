package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	kpool "github.com/expfab/expfab/pkg/conn/db/postgres/pool"
	"github.com/expfab/expfab/pkg/domain"
	kdberr "github.com/expfab/expfab/pkg/domain/errors/dberrors"
)

type projectPG struct { // implements db.ProjectInterface
	pool kpool.Pool
}

// args:
//   - pool: connection pool used to query/exec SQL
func New(pool kpool.Pool) *projectPG {
	return &projectPG{pool: pool}
}

func (p *projectPG) Get(ctx context.Context, projectIds []string) (map[string]domain.ProjectBody, error) {
	result := map[string]domain.ProjectBody{}
	if len(projectIds) == 0 {
		return result, nil
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "p"."id", "p"."name", "ow"."id", "ow"."name"
		from "project" as "p"
		inner join "account" as "ow" on "p"."user_id" = "ow"."id"
		where "p"."id" = any($1::varchar[])
		`,
		projectIds,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var found domain.ProjectBody
		if err := rows.Scan(
			&found.Id, &found.Name, &found.User.Id, &found.User.Name,
		); err != nil {
			return nil, err
		}
		result[found.Id] = found
	}

	return result, nil
}

func (p *projectPG) GetGroups(ctx context.Context, groupIds []string) (map[string]domain.GroupBody, error) {
	result := map[string]domain.GroupBody{}
	if len(groupIds) == 0 {
		return result, nil
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`select "id", "name", "project_id" from "experiment_group" where "id" = any($1::varchar[])`,
		groupIds,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var found domain.GroupBody
		if err := rows.Scan(&found.Id, &found.Name, &found.ProjectId); err != nil {
			return nil, err
		}
		result[found.Id] = found
	}

	return result, nil
}

func (p *projectPG) GetUser(ctx context.Context, userId string) (domain.UserBody, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return domain.UserBody{}, err
	}
	defer conn.Release()

	found := domain.UserBody{}
	if err := conn.QueryRow(
		ctx, `select "id", "name" from "account" where "id" = $1`, userId,
	).Scan(&found.Id, &found.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserBody{}, kdberr.Missing{
				Table: "account", Identity: fmt.Sprintf("id='%s'", userId),
			}
		}
		return domain.UserBody{}, err
	}

	return found, nil
}
