package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/db"
)

const (
	dbUser     = "pos_user"
	dbPassword = "pos_pass"
	dbName     = "pos"
)

// Postgres is a migrated, throwaway database.
type Postgres struct {
	DSN  string
	Pool *pgxpool.Pool
}

// StartPostgres launches a Postgres container, applies the embedded
// migrations and returns a connected pool. Teardown is registered with
// t.Cleanup.
func StartPostgres(t *testing.T) Postgres {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     dbUser,
				"POSTGRES_PASSWORD": dbPassword,
				"POSTGRES_DB":       dbName,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()
		_ = container.Terminate(cleanupCtx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, host, port.Port(), dbName)
	migrate(ctx, t, dsn)

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return Postgres{DSN: dsn, Pool: pool}
}

func migrate(ctx context.Context, t *testing.T, dsn string) {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	for {
		err := db.RunMigrations(dsn, zap.NewNop())
		if err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout migrating postgres: %v", err)
		}

		select {
		case <-ctx.Done():
			t.Fatalf("context cancelled migrating postgres: %v", ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Truncate empties every table the service writes to.
func Truncate(t *testing.T, pg Postgres) {
	t.Helper()
	_, err := pg.Pool.Exec(context.Background(),
		`TRUNCATE sale_items, sales, products, categories, event_sequence`)
	require.NoError(t, err)
}
