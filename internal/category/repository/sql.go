package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
	"github.com/fekuna/omnipos-qrmenu/internal/category/dto"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/jmoiron/sqlx"
)

const columns = `id, name, icon, sort_order, is_active, created_at, updated_at, deleted_at`

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) Create(ctx context.Context, c *model.Category) error {
	query := r.DB.Rebind(`
        INSERT INTO categories (name, icon, sort_order, is_active, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        RETURNING id
    `)
	err := r.DB.QueryRowxContext(ctx, query,
		c.Name, c.Icon, c.SortOrder, c.IsActive, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	var category model.Category
	query := r.DB.Rebind(`SELECT ` + columns + ` FROM categories WHERE id = ? LIMIT 1`)
	err := r.DB.GetContext(ctx, &category, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *SQLRepository) FindAll(ctx context.Context, f *dto.CategoryFilters) ([]model.Category, error) {
	conditions := []string{}
	args := []interface{}{}

	if !f.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if f.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *f.IsActive)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	// deleted rows keep a stale order, so they sort after the live ones
	query := "SELECT " + columns + " FROM categories" + whereClause +
		" ORDER BY CASE WHEN deleted_at IS NULL THEN 0 ELSE 1 END, sort_order ASC, id ASC"

	categories := []model.Category{}
	if err := r.DB.SelectContext(ctx, &categories, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *SQLRepository) Update(ctx context.Context, c *model.Category) error {
	query := r.DB.Rebind(`
        UPDATE categories
        SET name = ?,
            icon = ?,
            is_active = ?,
            updated_at = ?
        WHERE id = ? AND deleted_at IS NULL
    `)
	res, err := r.DB.ExecContext(ctx, query, c.Name, c.Icon, c.IsActive, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("updating category %d: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("category not found")
	}
	return nil
}

func (r *SQLRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, `SELECT count(*) FROM categories WHERE deleted_at IS NULL`)
	return n, err
}

func (r *SQLRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Category, error) {
	if len(ids) == 0 {
		return []model.Category{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+columns+` FROM categories WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var items []model.Category
	err = r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...)
	return items, err
}

func (r *SQLRepository) FindActive(ctx context.Context, _ ordering.Scope) ([]model.Category, error) {
	var items []model.Category
	err := r.DB.SelectContext(ctx, &items,
		`SELECT `+columns+` FROM categories WHERE deleted_at IS NULL ORDER BY sort_order ASC, id ASC`)
	return items, err
}

func (r *SQLRepository) SoftDelete(ctx context.Context, ids []int64, at time.Time) error {
	query, args, err := sqlx.In(`
        UPDATE categories
        SET deleted_at = ?, is_active = ?, updated_at = ?
        WHERE id IN (?) AND deleted_at IS NULL
    `, at, false, at, ids)
	if err != nil {
		return err
	}
	return r.execAll(ctx, r.DB.Rebind(query), args, len(ids), "category")
}

func (r *SQLRepository) Restore(ctx context.Context, ids []int64) error {
	query, args, err := sqlx.In(`
        UPDATE categories
        SET deleted_at = NULL, is_active = ?, updated_at = ?
        WHERE id IN (?) AND deleted_at IS NOT NULL
    `, true, time.Now().UTC(), ids)
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
	query, args, err := sqlx.In(`DELETE FROM categories WHERE id IN (?) AND deleted_at IS NOT NULL`, ids)
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

	query := tx.Rebind(`UPDATE categories SET sort_order = ? WHERE id = ? AND deleted_at IS NULL`)
	for _, a := range assignments {
		res, err := tx.ExecContext(ctx, query, a.Order, a.ID)
		if err != nil {
			return fmt.Errorf("setting order of category %d: %w", a.ID, err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("category %d vanished during reorder", a.ID)
		}
	}
	return tx.Commit()
}

// execAll runs query in a transaction and rolls back unless exactly want rows changed.
func (r *SQLRepository) execAll(ctx context.Context, query string, args []interface{}, want int, what string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); int(n) != want {
		return apperr.NotFound("%s not found or already deleted", what)
	}
	return tx.Commit()
}
