package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/homebase/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// TaskFilter narrows List. Start and End bound due_date inclusively.
type TaskFilter struct {
	ListID     *int64
	AssignedTo *int64
	Start      *time.Time
	End        *time.Time
	Skip       int
	Limit      int
}

const taskCols = `t.id, t.title, t.description, t.due_date, t.completed, t.important, t.assigned_to, t.list_id, t.created_at, t.updated_at,
	m.id, m.name, m.color, m.photo_url`

const taskFrom = ` FROM tasks t JOIN family_members m ON m.id = t.assigned_to`

func scanTask(sc scanner) (*model.Task, error) {
	var t model.Task
	var due sql.NullTime
	var m model.MemberSummary

	err := sc.Scan(
		&t.ID, &t.Title, &t.Description, &due, &t.Completed, &t.Important, &t.AssignedTo, &t.ListID,
		&t.CreatedAt, &t.UpdatedAt,
		&m.ID, &m.Name, &m.Color, &m.PhotoURL,
	)
	if err != nil {
		return nil, err
	}
	if due.Valid {
		t.DueDate = &due.Time
	}
	t.FamilyMember = &m
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (s *TaskStore) List(ctx context.Context, f TaskFilter) ([]model.Task, error) {
	skip, limit := page(f.Skip, f.Limit)

	query := `SELECT ` + taskCols + taskFrom + ` WHERE 1 = 1`
	var args []any
	if f.ListID != nil {
		query += ` AND t.list_id = ?`
		args = append(args, *f.ListID)
	}
	if f.AssignedTo != nil {
		query += ` AND t.assigned_to = ?`
		args = append(args, *f.AssignedTo)
	}
	if f.Start != nil {
		query += ` AND t.due_date >= ?`
		args = append(args, f.Start.UTC())
	}
	if f.End != nil {
		query += ` AND t.due_date <= ?`
		args = append(args, f.End.UTC())
	}
	query += ` ORDER BY t.created_at DESC, t.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskCols+taskFrom+` WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) Create(ctx context.Context, t model.Task) (*model.Task, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, due_date, completed, important, assigned_to, list_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, nullTime(t.DueDate), boolToInt(t.Completed), boolToInt(t.Important), t.AssignedTo, t.ListID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *TaskStore) Update(ctx context.Context, t model.Task) (*model.Task, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks
		 SET title = ?, description = ?, due_date = ?, completed = ?, important = ?, assigned_to = ?, list_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		t.Title, t.Description, nullTime(t.DueDate), boolToInt(t.Completed), boolToInt(t.Important), t.AssignedTo, t.ListID, t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(ctx, t.ID)
}

func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
