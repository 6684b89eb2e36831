package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/homebase/internal/model"
)

type ListStore struct {
	db *sql.DB
}

func NewListStore(db *sql.DB) *ListStore {
	return &ListStore{db: db}
}

const listCols = `id, name, color, icon, created_at, updated_at`

func scanList(sc scanner) (*model.List, error) {
	var l model.List
	if err := sc.Scan(&l.ID, &l.Name, &l.Color, &l.Icon, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *ListStore) List(ctx context.Context, skip, limit int) ([]model.List, error) {
	skip, limit = page(skip, limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listCols+` FROM lists ORDER BY name ASC, id ASC LIMIT ? OFFSET ?`,
		limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	var lists []model.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

func (s *ListStore) GetByID(ctx context.Context, id int64) (*model.List, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listCols+` FROM lists WHERE id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	return l, nil
}

func (s *ListStore) Create(ctx context.Context, name, color, icon string) (*model.List, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO lists (name, color, icon) VALUES (?, ?, ?)`,
		name, color, icon,
	)
	if err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ListStore) Update(ctx context.Context, id int64, name, color, icon string) (*model.List, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE lists SET name = ?, color = ?, icon = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, color, icon, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update list: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a list together with its tasks.
func (s *ListStore) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE list_id = ?`, id); err != nil {
			return fmt.Errorf("delete list tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete list: %w", err)
		}
		return nil
	})
}
