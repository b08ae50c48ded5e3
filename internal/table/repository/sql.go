package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
	"github.com/fekuna/omnipos-qrmenu/internal/database"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/fekuna/omnipos-qrmenu/internal/table"
	"github.com/fekuna/omnipos-qrmenu/internal/table/dto"
	"github.com/jmoiron/sqlx"
)

const columns = `id, name, sort_order, is_active, created_at, updated_at, deleted_at`

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) Create(ctx context.Context, t *model.Table) error {
	query := r.DB.Rebind(`
        INSERT INTO dining_tables (name, sort_order, is_active, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        RETURNING id
    `)
	err := r.DB.QueryRowxContext(ctx, query, t.Name, t.SortOrder, t.IsActive, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return table.ErrDuplicateName
		}
		return fmt.Errorf("inserting table: %w", err)
	}
	return nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id int64) (*model.Table, error) {
	return r.get(ctx, `SELECT `+columns+` FROM dining_tables WHERE id = ? LIMIT 1`, id)
}

func (r *SQLRepository) FindLiveByName(ctx context.Context, name string) (*model.Table, error) {
	return r.get(ctx, `SELECT `+columns+` FROM dining_tables WHERE LOWER(name) = LOWER(?) AND deleted_at IS NULL LIMIT 1`, name)
}

func (r *SQLRepository) get(ctx context.Context, query string, args ...interface{}) (*model.Table, error) {
	var t model.Table
	err := r.DB.GetContext(ctx, &t, r.DB.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *SQLRepository) FindAll(ctx context.Context, f *dto.TableFilters) ([]model.Table, error) {
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

	query := "SELECT " + columns + " FROM dining_tables" + whereClause +
		" ORDER BY CASE WHEN deleted_at IS NULL THEN 0 ELSE 1 END, sort_order ASC, id ASC"

	tables := []model.Table{}
	if err := r.DB.SelectContext(ctx, &tables, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return tables, nil
}

func (r *SQLRepository) Update(ctx context.Context, t *model.Table) error {
	query := r.DB.Rebind(`
        UPDATE dining_tables
        SET name = ?, is_active = ?, updated_at = ?
        WHERE id = ? AND deleted_at IS NULL
    `)
	res, err := r.DB.ExecContext(ctx, query, t.Name, t.IsActive, t.UpdatedAt, t.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return table.ErrDuplicateName
		}
		return fmt.Errorf("updating table %d: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("table not found")
	}
	return nil
}

func (r *SQLRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, `SELECT count(*) FROM dining_tables WHERE deleted_at IS NULL`)
	return n, err
}

func (r *SQLRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Table, error) {
	if len(ids) == 0 {
		return []model.Table{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+columns+` FROM dining_tables WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var items []model.Table
	err = r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...)
	return items, err
}

func (r *SQLRepository) FindActive(ctx context.Context, _ ordering.Scope) ([]model.Table, error) {
	var items []model.Table
	err := r.DB.SelectContext(ctx, &items,
		`SELECT `+columns+` FROM dining_tables WHERE deleted_at IS NULL ORDER BY sort_order ASC, id ASC`)
	return items, err
}

func (r *SQLRepository) SoftDelete(ctx context.Context, ids []int64, at time.Time) error {
	query, args, err := sqlx.In(`
        UPDATE dining_tables
        SET deleted_at = ?, is_active = ?, updated_at = ?
        WHERE id IN (?) AND deleted_at IS NULL
    `, at, false, at, ids)
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
		return apperr.NotFound("table not found or already deleted")
	}
	return tx.Commit()
}

// Restore brings tables back unless a live table took the name meanwhile.
func (r *SQLRepository) Restore(ctx context.Context, ids []int64) error {
	query, args, err := sqlx.In(`
        UPDATE dining_tables
        SET deleted_at = NULL, is_active = ?, updated_at = ?
        WHERE id IN (?) AND deleted_at IS NOT NULL
    `, true, time.Now().UTC(), ids)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(query), args...)
	if database.IsUniqueViolation(err) {
		return table.ErrDuplicateName
	}
	return err
}

func (r *SQLRepository) Purge(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM dining_tables WHERE id IN (?) AND deleted_at IS NOT NULL`, ids)
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

	query := tx.Rebind(`UPDATE dining_tables SET sort_order = ? WHERE id = ? AND deleted_at IS NULL`)
	for _, a := range assignments {
		res, err := tx.ExecContext(ctx, query, a.Order, a.ID)
		if err != nil {
			return fmt.Errorf("setting order of table %d: %w", a.ID, err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("table %d vanished during reorder", a.ID)
		}
	}
	return tx.Commit()
}
