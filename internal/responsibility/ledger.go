package responsibility

import (
	"context"
	"strings"
	"time"

	"github.com/dukerupert/homebase/internal/database"
	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/store"
)

// maxRangeDays bounds CompletionsInRange.
const maxRangeDays = 31

type ToggleInput struct {
	ResponsibilityID int64
	Date             time.Time
	FamilyMemberID   int64
	// Category defaults to the responsibility's first category when empty.
	Category string
}

type ToggleResult struct {
	Completed  bool                            `json:"completed"`
	Completion *model.ResponsibilityCompletion `json:"completion"`
	// Category is the category that was toggled, after defaulting.
	Category model.Category `json:"-"`
}

// Toggle flips the (responsibility, date, category) triple between complete
// and incomplete. The existing completion is looked up without regard to the
// member, so any member's toggle clears a completion recorded by another.
//
// If the insert loses a race against a concurrent toggle of the same triple,
// the toggle is replayed as the incomplete transition, so two concurrent
// toggles end where two serial toggles would.
func (s *Service) Toggle(ctx context.Context, in ToggleInput) (ToggleResult, error) {
	if in.Date.IsZero() {
		return ToggleResult{}, invalid("date", "is required")
	}
	var category model.Category
	if strings.TrimSpace(in.Category) != "" {
		c, ok := model.ParseCategory(in.Category)
		if !ok {
			return ToggleResult{}, invalid("category", "unknown category %q, want one of %s", in.Category, model.CategoryNames())
		}
		category = c
	}

	var res ToggleResult
	err := s.store.InTx(ctx, func(tx *store.ResponsibilityStore) error {
		r, err := tx.GetByID(ctx, in.ResponsibilityID)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrNotFound
		}
		if category == "" {
			category = r.Categories[0]
		}

		existing, err := tx.FindCompletion(ctx, r.ID, in.Date, category)
		if err != nil {
			return err
		}
		if existing != nil {
			res = ToggleResult{Category: category}
			return tx.DeleteCompletion(ctx, existing.ID)
		}

		if s.beforeInsert != nil {
			if err := s.beforeInsert(ctx, tx); err != nil {
				return err
			}
		}
		c, err := tx.CreateCompletion(ctx, r.ID, in.FamilyMemberID, in.Date, category)
		if err != nil {
			return err
		}
		res = ToggleResult{Completed: true, Completion: c, Category: category}
		return nil
	})

	switch {
	case err == nil:
		return res, nil
	case database.IsUniqueViolation(err):
		s.logger.Info("toggle raced, clearing completion",
			"responsibility_id", in.ResponsibilityID,
			"date", in.Date.Format(time.DateOnly),
			"category", category,
		)
		return s.clear(ctx, in.ResponsibilityID, in.Date, category)
	case database.IsForeignKeyViolation(err):
		return ToggleResult{}, ErrMemberNotFound
	default:
		return ToggleResult{}, err
	}
}

// clear deletes whatever completion currently occupies the triple.
func (s *Service) clear(ctx context.Context, responsibilityID int64, date time.Time, category model.Category) (ToggleResult, error) {
	err := s.store.InTx(ctx, func(tx *store.ResponsibilityStore) error {
		existing, err := tx.FindCompletion(ctx, responsibilityID, date, category)
		if err != nil || existing == nil {
			return err
		}
		return tx.DeleteCompletion(ctx, existing.ID)
	})
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Category: category}, nil
}

// CompletionsForDate returns every completion recorded for date, across all
// responsibilities and members.
func (s *Service) CompletionsForDate(ctx context.Context, date time.Time) ([]model.ResponsibilityCompletion, error) {
	if date.IsZero() {
		return nil, invalid("date", "is required")
	}
	completions, err := s.store.ListCompletionsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if completions == nil {
		completions = []model.ResponsibilityCompletion{}
	}
	return completions, nil
}

// CompletionsInRange returns completions dated from..to inclusive.
func (s *Service) CompletionsInRange(ctx context.Context, from, to time.Time) ([]model.ResponsibilityCompletion, error) {
	if from.IsZero() || to.IsZero() {
		return nil, invalid("date", "start_date and end_date are required")
	}
	if to.Before(from) {
		return nil, invalid("end_date", "must not be before start_date")
	}
	if to.Sub(from) > (maxRangeDays-1)*24*time.Hour {
		return nil, invalid("end_date", "range must not exceed %d days", maxRangeDays)
	}

	completions, err := s.store.ListCompletionsByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if completions == nil {
		completions = []model.ResponsibilityCompletion{}
	}
	return completions, nil
}

// ParseDate parses a YYYY-MM-DD value, reporting failures against field.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, invalid(field, "is required")
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}
