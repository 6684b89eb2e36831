package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/homebase/internal/model"
)

// ResponsibilityStore persists responsibilities and their completions.
type ResponsibilityStore struct {
	db *sql.DB
	q  querier
}

func NewResponsibilityStore(db *sql.DB) *ResponsibilityStore {
	return &ResponsibilityStore{db: db, q: db}
}

// InTx runs fn with a store bound to one transaction, committing when fn
// returns nil. fn must only use the store it is handed; InTx must not be
// called on a store that is already bound to a transaction.
func (s *ResponsibilityStore) InTx(ctx context.Context, fn func(tx *ResponsibilityStore) error) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&ResponsibilityStore{db: s.db, q: tx})
	})
}

// --- Responsibility methods ---

const responsibilityCols = `r.id, r.title, r.categories, r.assigned_to, r.frequency, r.icon_url, r.description, r.created_at, r.updated_at,
	m.id, m.name, m.color, m.photo_url`

const responsibilityFrom = ` FROM responsibilities r JOIN family_members m ON m.id = r.assigned_to`

func scanResponsibility(sc scanner) (*model.Responsibility, error) {
	var r model.Responsibility
	var categories, frequency string
	var m model.MemberSummary

	err := sc.Scan(
		&r.ID, &r.Title, &categories, &r.AssignedTo, &frequency, &r.IconURL, &r.Description,
		&r.CreatedAt, &r.UpdatedAt,
		&m.ID, &m.Name, &m.Color, &m.PhotoURL,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(categories), &r.Categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if err := json.Unmarshal([]byte(frequency), &r.Frequency); err != nil {
		return nil, fmt.Errorf("decode frequency: %w", err)
	}
	r.FamilyMember = &m
	return &r, nil
}

func encodeArrays(r model.Responsibility) (string, string, error) {
	categories, err := json.Marshal(r.Categories)
	if err != nil {
		return "", "", fmt.Errorf("encode categories: %w", err)
	}
	frequency, err := json.Marshal(r.Frequency)
	if err != nil {
		return "", "", fmt.Errorf("encode frequency: %w", err)
	}
	return string(categories), string(frequency), nil
}

// List returns responsibilities ordered by first category, then title. A nil
// assignedTo lists every member's responsibilities.
func (s *ResponsibilityStore) List(ctx context.Context, assignedTo *int64, skip, limit int) ([]model.Responsibility, error) {
	skip, limit = page(skip, limit)

	query := `SELECT ` + responsibilityCols + responsibilityFrom
	var args []any
	if assignedTo != nil {
		query += ` WHERE r.assigned_to = ?`
		args = append(args, *assignedTo)
	}
	query += ` ORDER BY json_extract(r.categories, '$[0]') ASC, r.title ASC, r.id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list responsibilities: %w", err)
	}
	defer rows.Close()

	var out []model.Responsibility
	for rows.Next() {
		r, err := scanResponsibility(rows)
		if err != nil {
			return nil, fmt.Errorf("scan responsibility: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *ResponsibilityStore) GetByID(ctx context.Context, id int64) (*model.Responsibility, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+responsibilityCols+responsibilityFrom+` WHERE r.id = ?`, id)
	r, err := scanResponsibility(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get responsibility: %w", err)
	}
	return r, nil
}

// Create inserts r (ignoring its ID and timestamps) and returns the stored row.
func (s *ResponsibilityStore) Create(ctx context.Context, r model.Responsibility) (*model.Responsibility, error) {
	categories, frequency, err := encodeArrays(r)
	if err != nil {
		return nil, err
	}

	result, err := s.q.ExecContext(ctx,
		`INSERT INTO responsibilities (title, categories, assigned_to, frequency, icon_url, description) VALUES (?, ?, ?, ?, ?, ?)`,
		r.Title, categories, r.AssignedTo, frequency, r.IconURL, r.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert responsibility: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Update overwrites every editable column of the row identified by r.ID.
func (s *ResponsibilityStore) Update(ctx context.Context, r model.Responsibility) (*model.Responsibility, error) {
	categories, frequency, err := encodeArrays(r)
	if err != nil {
		return nil, err
	}

	_, err = s.q.ExecContext(ctx,
		`UPDATE responsibilities
		 SET title = ?, categories = ?, assigned_to = ?, frequency = ?, icon_url = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		r.Title, categories, r.AssignedTo, frequency, r.IconURL, r.Description, r.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update responsibility: %w", err)
	}
	return s.GetByID(ctx, r.ID)
}

// Delete removes the responsibility's completions and then the
// responsibility itself. It reports whether a row was deleted.
func (s *ResponsibilityStore) Delete(ctx context.Context, id int64) (bool, error) {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM responsibility_completions WHERE responsibility_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete completions: %w", err)
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM responsibilities WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete responsibility: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// --- Completion methods ---

const completionCols = `id, responsibility_id, family_member_id, completion_date, category, created_at`

func scanCompletion(sc scanner) (*model.ResponsibilityCompletion, error) {
	var c model.ResponsibilityCompletion
	err := sc.Scan(&c.ID, &c.ResponsibilityID, &c.FamilyMemberID, &c.CompletionDate, &c.Category, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func dateKey(d time.Time) string {
	return d.Format(time.DateOnly)
}

// FindCompletion returns the completion for the (responsibility, date,
// category) triple regardless of which member recorded it, or nil.
func (s *ResponsibilityStore) FindCompletion(ctx context.Context, responsibilityID int64, date time.Time, category model.Category) (*model.ResponsibilityCompletion, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+completionCols+` FROM responsibility_completions
		 WHERE responsibility_id = ? AND completion_date = ? AND category = ?`,
		responsibilityID, dateKey(date), string(category),
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find completion: %w", err)
	}
	return c, nil
}

func (s *ResponsibilityStore) CreateCompletion(ctx context.Context, responsibilityID, familyMemberID int64, date time.Time, category model.Category) (*model.ResponsibilityCompletion, error) {
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO responsibility_completions (responsibility_id, family_member_id, completion_date, category) VALUES (?, ?, ?, ?)`,
		responsibilityID, familyMemberID, dateKey(date), string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+completionCols+` FROM responsibility_completions WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

func (s *ResponsibilityStore) DeleteCompletion(ctx context.Context, id int64) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM responsibility_completions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

func (s *ResponsibilityStore) ListCompletionsByDate(ctx context.Context, date time.Time) ([]model.ResponsibilityCompletion, error) {
	return s.listCompletions(ctx,
		`SELECT `+completionCols+` FROM responsibility_completions WHERE completion_date = ? ORDER BY id ASC`,
		dateKey(date),
	)
}

// ListCompletionsByDateRange returns completions with from <= date <= to.
func (s *ResponsibilityStore) ListCompletionsByDateRange(ctx context.Context, from, to time.Time) ([]model.ResponsibilityCompletion, error) {
	return s.listCompletions(ctx,
		`SELECT `+completionCols+` FROM responsibility_completions
		 WHERE completion_date >= ? AND completion_date <= ? ORDER BY completion_date ASC, id ASC`,
		dateKey(from), dateKey(to),
	)
}

func (s *ResponsibilityStore) listCompletions(ctx context.Context, query string, args ...any) ([]model.ResponsibilityCompletion, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.ResponsibilityCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// CountCompletions counts completion rows for a responsibility; a zero date
// counts across all dates.
func (s *ResponsibilityStore) CountCompletions(ctx context.Context, responsibilityID int64, date time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM responsibility_completions WHERE responsibility_id = ?`
	args := []any{responsibilityID}
	if !date.IsZero() {
		query += ` AND completion_date = ?`
		args = append(args, dateKey(date))
	}

	var n int
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return n, nil
}
