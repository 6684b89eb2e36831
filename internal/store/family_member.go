package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/homebase/internal/model"
)

type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

const memberCols = `id, name, is_system, color, photo_url, created_at, updated_at`

func scanMember(sc scanner) (*model.FamilyMember, error) {
	var m model.FamilyMember
	if err := sc.Scan(&m.ID, &m.Name, &m.IsSystem, &m.Color, &m.PhotoURL, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *FamilyMemberStore) Create(ctx context.Context, name, color, photoURL string) (*model.FamilyMember, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO family_members (name, color, photo_url) VALUES (?, ?, ?)",
		name, color, photoURL,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// List returns members with the system member first, then by name.
func (s *FamilyMemberStore) List(ctx context.Context, skip, limit int) ([]model.FamilyMember, error) {
	skip, limit = page(skip, limit)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memberCols+" FROM family_members ORDER BY is_system DESC, name ASC LIMIT ? OFFSET ?",
		limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *FamilyMemberStore) GetByID(ctx context.Context, id int64) (*model.FamilyMember, error) {
	return getMember(ctx, s.db, "id = ?", id)
}

func (s *FamilyMemberStore) GetByName(ctx context.Context, name string) (*model.FamilyMember, error) {
	return getMember(ctx, s.db, "name = ?", name)
}

func getMember(ctx context.Context, q querier, where string, arg any) (*model.FamilyMember, error) {
	row := q.QueryRowContext(ctx, "SELECT "+memberCols+" FROM family_members WHERE "+where, arg)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query family member: %w", err)
	}
	return m, nil
}

// Update writes every editable column. System members are rejected.
func (s *FamilyMemberStore) Update(ctx context.Context, id int64, name, color, photoURL string) (*model.FamilyMember, error) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE family_members SET name = ?, color = ?, photo_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_system = 0",
		name, color, photoURL, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family member: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a member and returns the deleted row, or nil if it did not
// exist. System members and members that still have tasks or
// responsibilities assigned are refused.
func (s *FamilyMemberStore) Delete(ctx context.Context, id int64) (*model.FamilyMember, error) {
	var deleted *model.FamilyMember
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		m, err := getMember(ctx, tx, "id = ?", id)
		if err != nil {
			return err
		}
		if m == nil {
			return nil
		}
		if m.IsSystem {
			return ErrSystemMember
		}

		var refs int
		err = tx.QueryRowContext(ctx,
			`SELECT (SELECT COUNT(*) FROM tasks WHERE assigned_to = ?) + (SELECT COUNT(*) FROM responsibilities WHERE assigned_to = ?)`,
			id, id,
		).Scan(&refs)
		if err != nil {
			return fmt.Errorf("count member references: %w", err)
		}
		if refs > 0 {
			return ErrMemberInUse
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM family_members WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete family member: %w", err)
		}
		deleted = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *FamilyMemberStore) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM family_members WHERE name = ? AND id != ?",
		name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}
