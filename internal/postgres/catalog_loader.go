package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

const selectProducts = `SELECT id::text, name, description, category, price::text, stock, created_at, updated_at
FROM products ORDER BY created_at, id`

// Querier is satisfied by *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Open dials a single connection. The catalog is read once at boot, so there
// is no pool to keep warm.
func Open(ctx context.Context, dsn string) (*pgx.Conn, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return conn, nil
}

// LoadCatalog opens a connection, reads every product and closes it again.
func LoadCatalog(ctx context.Context, dsn string) ([]catalog.Product, error) {
	conn, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer conn.Close(context.WithoutCancel(ctx))
	return LoadProducts(ctx, conn)
}

// LoadProducts reads the starting catalog. The table is only read at boot;
// runtime state stays in memory.
func LoadProducts(ctx context.Context, db Querier) ([]catalog.Product, error) {
	rows, err := db.Query(ctx, selectProducts)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p     catalog.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return p, fmt.Errorf("product %s price %q: %w", p.ID, price, err)
	}
	p.Price = d
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
