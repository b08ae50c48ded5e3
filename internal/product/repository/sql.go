package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/fekuna/omnipos-qrmenu/internal/product/dto"
	"github.com/jmoiron/sqlx"
)

const columns = `id, category_id, name, description, price, image, sort_order, is_active, created_at, updated_at, deleted_at`

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) Create(ctx context.Context, p *model.Product) error {
	query := r.DB.Rebind(`
        INSERT INTO products (
            category_id, name, description, price, image,
            sort_order, is_active, created_at, updated_at
        )
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `)
	err := r.DB.QueryRowxContext(ctx, query,
		p.CategoryID, p.Name, p.Description, p.Price, p.Image,
		p.SortOrder, p.IsActive, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	query := r.DB.Rebind(`SELECT ` + columns + ` FROM products WHERE id = ? LIMIT 1`)
	err := r.DB.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *SQLRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, error) {
	conditions := []string{}
	args := []interface{}{}

	if !f.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	switch {
	case f.CategoryID != nil:
		conditions = append(conditions, "category_id = ?")
		args = append(args, *f.CategoryID)
	case f.Uncategorized:
		conditions = append(conditions, "category_id IS NULL")
	}
	if f.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *f.IsActive)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := "SELECT " + columns + " FROM products" + whereClause +
		" ORDER BY CASE WHEN deleted_at IS NULL THEN 0 ELSE 1 END, COALESCE(category_id, 0) ASC, sort_order ASC, id ASC"

	products := []model.Product{}
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return products, nil
}

// Update writes every mutable column including category and order. It is the
// only path that moves a product between scopes.
func (r *SQLRepository) Update(ctx context.Context, p *model.Product) error {
	query := r.DB.Rebind(`
        UPDATE products
        SET category_id = ?,
            name = ?,
            description = ?,
            price = ?,
            image = ?,
            sort_order = ?,
            is_active = ?,
            updated_at = ?
        WHERE id = ? AND deleted_at IS NULL
    `)
	res, err := r.DB.ExecContext(ctx, query,
		p.CategoryID, p.Name, p.Description, p.Price, p.Image,
		p.SortOrder, p.IsActive, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}

func (r *SQLRepository) NextOrder(ctx context.Context, scope ordering.Scope) (int, error) {
	query, args := scoped(`SELECT COALESCE(MAX(sort_order) + 1, 0) FROM products WHERE deleted_at IS NULL`, scope)
	var next int
	err := r.DB.GetContext(ctx, &next, r.DB.Rebind(query), args...)
	return next, err
}

func (r *SQLRepository) CountActiveByCategory(ctx context.Context, categoryIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return counts, nil
	}

	query, args, err := sqlx.In(`
        SELECT category_id, count(*) AS n
        FROM products
        WHERE deleted_at IS NULL AND category_id IN (?)
        GROUP BY category_id
    `, categoryIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		CategoryID int64 `db:"category_id"`
		N          int   `db:"n"`
	}
	if err := r.DB.SelectContext(ctx, &rows, r.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("counting products per category: %w", err)
	}
	for _, row := range rows {
		counts[row.CategoryID] = row.N
	}
	return counts, nil
}

func (r *SQLRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+columns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var items []model.Product
	err = r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...)
	return items, err
}

func (r *SQLRepository) FindActive(ctx context.Context, scope ordering.Scope) ([]model.Product, error) {
	query, args := scoped(`SELECT `+columns+` FROM products WHERE deleted_at IS NULL`, scope)
	query += " ORDER BY sort_order ASC, id ASC"

	var items []model.Product
	err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...)
	return items, err
}

func (r *SQLRepository) SoftDelete(ctx context.Context, ids []int64, at time.Time) error {
	query, args, err := sqlx.In(`
        UPDATE products
        SET deleted_at = ?, updated_at = ?
        WHERE id IN (?) AND deleted_at IS NULL
    `, at, at, ids)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); int(n) != len(ids) {
		return apperr.NotFound("product not found or already deleted")
	}
	return tx.Commit()
}

func (r *SQLRepository) Restore(ctx context.Context, ids []int64) error {
	query, args, err := sqlx.In(`
        UPDATE products
        SET deleted_at = NULL, updated_at = ?
        WHERE id IN (?) AND deleted_at IS NOT NULL
    `, time.Now().UTC(), ids)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(query), args...)
	return err
}

func (r *SQLRepository) Purge(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM products WHERE id IN (?) AND deleted_at IS NOT NULL`, ids)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(query), args...)
	return err
}

func (r *SQLRepository) ApplyOrder(ctx context.Context, assignments []ordering.Assignment) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := tx.Rebind(`UPDATE products SET sort_order = ? WHERE id = ? AND deleted_at IS NULL`)
	for _, a := range assignments {
		res, err := tx.ExecContext(ctx, query, a.Order, a.ID)
		if err != nil {
			return fmt.Errorf("setting order of product %d: %w", a.ID, err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("product %d vanished during reorder", a.ID)
		}
	}
	return tx.Commit()
}

func scoped(query string, scope ordering.Scope) (string, []interface{}) {
	if !scope.Valid {
		return query + " AND category_id IS NULL", nil
	}
	return query + " AND category_id = ?", []interface{}{scope.ParentID}
}
