package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"botmesero-backend/internal/db"
	"botmesero-backend/internal/models"
)

// MenuStore reads categories, products and order statistics from Postgres.
// Every call runs in its own read-only transaction that ends before the
// method returns.
type MenuStore struct {
	db *db.DB
}

func NewMenuStore(database *db.DB) *MenuStore {
	return &MenuStore{db: database}
}

const productColumns = `p.id, p.name, p.price, p.image, p."categoryId"`

func (s *MenuStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, name, slug FROM "Category" ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				c    models.Category
				slug sql.NullString
			)
			if err := rows.Scan(&c.ID, &c.Name, &slug); err != nil {
				return err
			}
			c.Slug = slug.String
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return out, nil
}

// ListProducts returns the products whose category id equals categoryID.
// An unknown category yields an empty slice.
func (s *MenuStore) ListProducts(ctx context.Context, categoryID int64) ([]models.Product, error) {
	var out []models.Product
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+productColumns+` FROM "Product" p WHERE p."categoryId" = $1 ORDER BY p.id`,
			categoryID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products for category %d: %w", categoryID, err)
	}
	return out, nil
}

// MostOrderedProduct returns the product referenced by the most order lines,
// or nil when no order lines exist. Ties go to the lowest product id.
func (s *MenuStore) MostOrderedProduct(ctx context.Context) (*models.Product, error) {
	var out *models.Product
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+productColumns+`
			FROM "Product" p
			JOIN "OrderProducts" op ON op."productId" = p.id
			GROUP BY p.id
			ORDER BY COUNT(op.id) DESC, p.id ASC
			LIMIT 1`)
		p, err := scanProduct(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get most ordered product: %w", err)
	}
	return out, nil
}

func (s *MenuStore) readTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(tx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (models.Product, error) {
	var (
		p          models.Product
		price      decimal.NullDecimal
		image      sql.NullString
		categoryID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &image, &categoryID); err != nil {
		return models.Product{}, err
	}
	p.Price = price.Decimal
	p.Image = image.String
	p.CategoryID = categoryID.Int64
	return p, nil
}
