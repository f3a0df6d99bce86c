package schema_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/expfab/expfab/pkg/conn/db/postgres/pool/fake"
	"github.com/expfab/expfab/pkg/conn/db/postgres/schema"
)

func writeSchema(t *testing.T, repo string, version string, name string, query string) {
	t.Helper()
	dir := filepath.Join(repo, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(query), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPgSchema_Upgrade(t *testing.T) {
	ctx := context.Background()

	t.Run("it applies newer versions and records the version in one transaction", func(t *testing.T) {
		repo := t.TempDir()
		writeSchema(t, repo, "1", "00.sql", `create table "foo" ("id" int);`)
		writeSchema(t, repo, "2", "00.sql", `create table "bar" ("id" int);`)

		pool := fake.New(fake.Script{
			`SELECT max("version") FROM "schema_version"`: {
				Rows: [][]interface{}{{1}},
			},
			`create table "bar"`:          {},
			`DELETE FROM "schema_version"`: {},
			`INSERT INTO "schema_version"`: {},
		})
		testee := schema.New(pool, repo)

		if err := testee.Upgrade(ctx); err != nil {
			t.Fatalf("Upgrade returns error unexpectedly: %v", err)
		}

		if len(pool.Txs) != 1 {
			t.Fatalf("transactions started %d times (expected: 1)", len(pool.Txs))
		}
		tx := pool.Txs[0]
		if !tx.Committed {
			t.Error("the transaction is not committed")
		}

		var appliedFoo, appliedBar, recorded bool
		for _, q := range tx.Log {
			if strings.Contains(q.SQL, `create table "foo"`) {
				appliedFoo = true
			}
			if strings.Contains(q.SQL, `create table "bar"`) {
				appliedBar = true
			}
			if strings.Contains(q.SQL, `INSERT INTO "schema_version"`) {
				recorded = true
			}
		}
		if appliedFoo {
			t.Error("it re-applies a version already in the database")
		}
		if !appliedBar {
			t.Error("it does not apply the newer version")
		}
		if !recorded {
			t.Error("it does not record the new version")
		}
	})

	t.Run("when the database is up to date, it applies nothing", func(t *testing.T) {
		repo := t.TempDir()
		writeSchema(t, repo, "1", "00.sql", `create table "foo" ("id" int);`)

		pool := fake.New(fake.Script{
			`SELECT max("version") FROM "schema_version"`: {
				Rows: [][]interface{}{{1}},
			},
		})
		testee := schema.New(pool, repo)

		if err := testee.Upgrade(ctx); err != nil {
			t.Fatalf("Upgrade returns error unexpectedly: %v", err)
		}

		tx := pool.Txs[0]
		if !tx.Committed {
			t.Error("the transaction is not committed")
		}
		if len(tx.Log) != 0 {
			t.Errorf("it sends statements, unexpectedly: %v", tx.Log)
		}
	})

	t.Run("Null schema refuses to upgrade", func(t *testing.T) {
		if err := schema.Null().Upgrade(ctx); err == nil {
			t.Error("no error but it is not expected result")
		}
	})
}
