package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

func TestLoadProducts(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer db.Close(context.Background())

	// temp tables are per connection, so everything runs in one tx
	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `CREATE TEMP TABLE products (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		description text NOT NULL,
		category text NOT NULL,
		price numeric(12,2) NOT NULL,
		stock int NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO products (id, name, description, category, price, stock, created_at)
		VALUES ('6f0c2a52-2a59-4b8e-9b0c-6d1f7f1f3a11', 'Coffee Mug', 'Ceramic', 'Home & Kitchen', 12.99, 200, now() - interval '1 hour'),
		       ('0b7e4c1e-5d0a-4f0e-8a39-3f8f2b8e7c22', 'Running Shoes', 'Light', 'Footwear', 89.99, 30, now())`)
	require.NoError(t, err)

	products, err := LoadProducts(ctx, tx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Coffee Mug", products[0].Name)
	assert.Equal(t, "12.99", products[0].Price.StringFixed(2))

	store := catalog.NewStore()
	require.NoError(t, store.Seed(ctx, products))
	got, err := store.Find(ctx, "0b7e4c1e-5d0a-4f0e-8a39-3f8f2b8e7c22")
	require.NoError(t, err)
	assert.Equal(t, 30, got.Stock)
}
