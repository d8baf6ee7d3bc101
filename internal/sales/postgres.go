package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type PostgresRepository struct {
	pool  DBPool
	newID func() string
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool, newID: uuid.NewString}
}

func (r *PostgresRepository) Save(ctx context.Context, in NewSale) (Sale, error) {
	if err := in.Validate(); err != nil {
		return Sale{}, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Sale{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s := Sale{
		ID:       r.newID(),
		OwnerID:  in.OwnerID,
		Items:    append([]Item(nil), in.Items...),
		Total:    in.Total,
		Discount: in.Discount,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO sales (id, owner_id, total, discount)
		VALUES ($1, $2, $3::numeric, $4::numeric)
		RETURNING created_at
	`, s.ID, s.OwnerID, s.Total.String(), s.Discount.String()).Scan(&s.CreatedAt)
	if err != nil {
		return Sale{}, fmt.Errorf("insert sale: %w", err)
	}

	for i, it := range s.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO sale_items (sale_id, position, product_id, name, price, category, image)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		`, s.ID, i, it.ProductID, it.Name, it.Price.String(), it.Category, it.Image)
		if err != nil {
			return Sale{}, fmt.Errorf("insert sale item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Sale{}, fmt.Errorf("commit sale: %w", err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, id string) (Sale, error) {
	var (
		s               Sale
		total, discount string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, created_at, total::text, discount::text
		FROM sales
		WHERE owner_id = $1 AND id = $2
	`, ownerID, id).Scan(&s.ID, &s.OwnerID, &s.CreatedAt, &total, &discount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, fmt.Errorf("get sale: %w", err)
	}
	if s.Total, err = decimal.NewFromString(total); err != nil {
		return Sale{}, fmt.Errorf("parse total: %w", err)
	}
	if s.Discount, err = decimal.NewFromString(discount); err != nil {
		return Sale{}, fmt.Errorf("parse discount: %w", err)
	}

	items, err := r.loadItems(ctx, []string{s.ID})
	if err != nil {
		return Sale{}, err
	}
	s.Items = items[s.ID]
	return s, nil
}

func (r *PostgresRepository) ListForOwner(ctx context.Context, ownerID string, rng DateRange) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, created_at, total::text, discount::text
		FROM sales
		WHERE owner_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at ASC
	`, ownerID, optionalTime(rng.From), optionalTime(rng.To))
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	out := []Sale{}
	ids := []string{}
	for rows.Next() {
		var (
			s               Sale
			total, discount string
		)
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.CreatedAt, &total, &discount); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		if s.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse total: %w", err)
		}
		if s.Discount, err = decimal.NewFromString(discount); err != nil {
			return nil, fmt.Errorf("parse discount: %w", err)
		}
		s.CreatedAt = s.CreatedAt.UTC()
		out = append(out, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *PostgresRepository) ClearForOwner(ctx context.Context, ownerID string) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM sale_items
		WHERE sale_id IN (SELECT id FROM sales WHERE owner_id = $1)
	`, ownerID); err != nil {
		return 0, fmt.Errorf("delete sale items: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM sales WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete sales: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit clear: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, saleIDs []string) (map[string][]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sale_id, product_id, name, price::text, category, image
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position
	`, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Item, len(saleIDs))
	for rows.Next() {
		var (
			saleID, price string
			it            Item
		)
		if err := rows.Scan(&saleID, &it.ProductID, &it.Name, &price, &it.Category, &it.Image); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse item price: %w", err)
		}
		out[saleID] = append(out[saleID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	return out, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
