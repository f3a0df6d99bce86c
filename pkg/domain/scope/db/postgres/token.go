package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	pgerrcode "github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	kpool "github.com/expfab/expfab/pkg/conn/db/postgres/pool"
	"github.com/expfab/expfab/pkg/domain"
	kdberr "github.com/expfab/expfab/pkg/domain/errors/dberrors"
)

type tokenPG struct { // implements db.TokenInterface
	pool kpool.Pool
}

// args:
//   - pool: connection pool used to query/exec SQL
func New(pool kpool.Pool) *tokenPG {
	return &tokenPG{pool: pool}
}

func (t *tokenPG) GetOrCreate(ctx context.Context, userId string) (domain.Token, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return domain.Token{}, err
	}
	defer conn.Release()

	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return domain.Token{}, err
	}

	// the insert loses against an existing row, so a prior token is
	// reused rather than replaced.
	token := domain.Token{UserId: userId}
	if err := conn.QueryRow(
		ctx,
		`
		with "token_insert" as (
			insert into "token" ("user_id", "key") values ($1, $2)
			on conflict ("user_id") do nothing
			returning "user_id", "key", "created_at"
		)
		select "key", "created_at" from "token_insert"
		union
		select "key", "created_at" from "token" where "user_id" = $1
		limit 1
		`,
		userId, hex.EncodeToString(secret),
	).Scan(&token.Key, &token.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, kdberr.Missing{
				Table: "token", Identity: fmt.Sprintf("user_id='%s'", userId),
			}
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return domain.Token{}, kdberr.Missing{
				Table: "account", Identity: fmt.Sprintf("id='%s'", userId),
			}
		}
		return domain.Token{}, err
	}

	return token, nil
}
