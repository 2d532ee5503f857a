package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-reconciler/internal/database"
	"order-reconciler/internal/testutil"
)

func TestMigrateIsRepeatable(t *testing.T) {
	db := testutil.NewPostgres(t)

	require.NoError(t, database.Migrate(context.Background(), db))

	var n int
	err := db.QueryRow(`SELECT count(*) FROM information_schema.tables WHERE table_name IN ('orders', 'order_items', 'fulfillment_queue')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestHealth(t *testing.T) {
	db := testutil.NewPostgres(t)
	svc := database.New(db)

	stats := svc.Health(context.Background())
	assert.Equal(t, "up", stats["status"])
	assert.Contains(t, stats, "open_connections")
}
