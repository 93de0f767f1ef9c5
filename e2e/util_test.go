package e2e

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"
)

//go:embed fixtures/test_schema.sql
var testSchema string

const pgCreds = "postgres:secret"

// testPostgres is a disposable postgres container. Each test gets its own
// database on it, loaded with the provisioning routines in testSchema.
type testPostgres struct {
	admin *pgxpool.Pool
	port  string
}

func startPostgres(t testing.TB) *testPostgres {
	t.Log("starting postgres")
	defer t.Log("postgres started")
	require := require.New(t)
	pool, err := dockertest.NewPool("")
	require.NoError(err)

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "13.4",
		Env:        []string{"POSTGRES_PASSWORD=secret", "POSTGRES_DB=defaultdb"},
	})
	require.NoError(err)

	pg := &testPostgres{port: resource.GetPort("5432/tcp")}
	require.NoError(pool.Retry(func() error {
		admin, err := pgxpool.Connect(context.Background(), pg.uri("defaultdb"))
		if err != nil {
			return err
		}
		if err := admin.Ping(context.Background()); err != nil {
			admin.Close()
			return err
		}
		pg.admin = admin
		return nil
	}))

	t.Cleanup(func() {
		pg.admin.Close()
		require.NoError(pool.Purge(resource))
	})
	return pg
}

func (pg *testPostgres) uri(database string) string {
	return fmt.Sprintf("postgres://%s@localhost:%s/%s?sslmode=disable", pgCreds, pg.port, database)
}

// newDB creates a fresh database holding the scim schema and returns its
// connection string.
func (pg *testPostgres) newDB(t testing.TB) string {
	require := require.New(t)
	ctx := context.Background()
	name := "tenant_" + randomHex(require, 4)
	_, err := pg.admin.Exec(ctx, "CREATE DATABASE "+name)
	require.NoError(err)

	uri := pg.uri(name)
	conn, err := pgxpool.Connect(ctx, uri)
	require.NoError(err)
	defer conn.Close()

	_, err = conn.Exec(ctx, testSchema)
	require.NoError(err)

	t.Log(uri)
	return uri
}

func randomHex(require *require.Assertions, nbytes int) string {
	b := make([]byte, nbytes)
	_, err := rand.Read(b)
	require.NoError(err)
	return hex.EncodeToString(b)
}
