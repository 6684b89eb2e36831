package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/homebase/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `e.id, e.title, e.description, e.date, e.start_time, e.end_time, e.all_day, e.source, e.external_id, e.assigned_to,
	e.created_at, e.updated_at, m.id, m.name, m.color, m.photo_url`

const eventFrom = ` FROM calendar_events e LEFT JOIN family_members m ON m.id = e.assigned_to`

func scanEvent(sc scanner) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var start, end, externalID sql.NullString
	var assignedTo, memberID sql.NullInt64
	var memberName, memberColor, memberPhoto sql.NullString

	err := sc.Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &start, &end, &e.AllDay, &e.Source, &externalID, &assignedTo,
		&e.CreatedAt, &e.UpdatedAt, &memberID, &memberName, &memberColor, &memberPhoto,
	)
	if err != nil {
		return nil, err
	}

	if start.Valid {
		e.StartTime = &start.String
	}
	if end.Valid {
		e.EndTime = &end.String
	}
	if externalID.Valid {
		e.ExternalID = &externalID.String
	}
	if assignedTo.Valid {
		e.AssignedTo = &assignedTo.Int64
	}
	if memberID.Valid {
		e.FamilyMember = &model.MemberSummary{
			ID:       memberID.Int64,
			Name:     memberName.String,
			Color:    memberColor.String,
			PhotoURL: memberPhoto.String,
		}
	}
	return &e, nil
}

func (s *EventStore) Create(ctx context.Context, e model.CalendarEvent) (*model.CalendarEvent, error) {
	if e.Source == "" {
		e.Source = model.SourceManual
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO calendar_events (title, description, date, start_time, end_time, all_day, source, external_id, assigned_to)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.Date, nullString(e.StartTime), nullString(e.EndTime), boolToInt(e.AllDay),
		string(e.Source), nullString(e.ExternalID), nullInt64(e.AssignedTo),
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *EventStore) GetByID(ctx context.Context, id int64) (*model.CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventCols+eventFrom+` WHERE e.id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}
	return e, nil
}

// ListByDateRange returns events whose date falls within [start, end],
// ordered by date then start time with all-day events first.
func (s *EventStore) ListByDateRange(ctx context.Context, start, end time.Time, assignedTo *int64) ([]model.CalendarEvent, error) {
	query := `SELECT ` + eventCols + eventFrom + ` WHERE e.date >= ? AND e.date <= ?`
	args := []any{start.Format(time.DateOnly), end.Format(time.DateOnly)}
	if assignedTo != nil {
		query += ` AND e.assigned_to = ?`
		args = append(args, *assignedTo)
	}
	query += ` ORDER BY e.date ASC, e.start_time IS NOT NULL, e.start_time ASC, e.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update overwrites the editable columns. Source and external_id are fixed
// at creation.
func (s *EventStore) Update(ctx context.Context, e model.CalendarEvent) (*model.CalendarEvent, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE calendar_events
		 SET title = ?, description = ?, date = ?, start_time = ?, end_time = ?, all_day = ?, assigned_to = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.Title, e.Description, e.Date, nullString(e.StartTime), nullString(e.EndTime), boolToInt(e.AllDay),
		nullInt64(e.AssignedTo), e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}
	return s.GetByID(ctx, e.ID)
}

func (s *EventStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}
