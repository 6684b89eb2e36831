// Package responsibility implements the chore catalog and the per-date,
// per-category completion ledger on top of the store.
package responsibility

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/homebase/internal/database"
	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/store"
	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleLen  = 100
	defaultLimit = 100
)

type Service struct {
	store  *store.ResponsibilityStore
	logger *slog.Logger

	// beforeInsert, when set, runs inside the toggle transaction right
	// before the completion insert. Tests use it to stage a competing row.
	beforeInsert func(ctx context.Context, tx *store.ResponsibilityStore) error
}

func NewService(s *store.ResponsibilityStore, logger *slog.Logger) *Service {
	return &Service{store: s, logger: logger}
}

// Filter selects responsibilities for List.
type Filter struct {
	AssignedTo *int64
	Skip       int
	Limit      int
}

type CreateInput struct {
	Title       string
	Categories  []string
	AssignedTo  int64
	Frequency   []string
	Description string
	IconURL     string
}

// Patch carries a partial update; nil fields keep their stored value.
type Patch struct {
	Title       *string
	Categories  []string
	AssignedTo  *int64
	Frequency   []string
	Description *string
	IconURL     *string
}

func (s *Service) List(ctx context.Context, f Filter) ([]model.Responsibility, error) {
	if f.Skip < 0 {
		return nil, invalid("skip", "must not be negative")
	}
	if f.Limit < 0 {
		return nil, invalid("limit", "must not be negative")
	}
	if f.Limit == 0 {
		f.Limit = defaultLimit
	}

	items, err := s.store.List(ctx, f.AssignedTo, f.Skip, f.Limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Responsibility{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Responsibility, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Responsibility, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	categories, err := validateCategories(in.Categories)
	if err != nil {
		return nil, err
	}
	frequency, err := validateFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}

	r, err := s.store.Create(ctx, model.Responsibility{
		Title:       title,
		Categories:  categories,
		AssignedTo:  in.AssignedTo,
		Frequency:   frequency,
		Description: strings.TrimSpace(in.Description),
		IconURL:     strings.TrimSpace(in.IconURL),
	})
	if err != nil {
		return nil, mapWriteError(err)
	}
	return r, nil
}

// Update merges the supplied fields into the stored responsibility inside
// one transaction.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (*model.Responsibility, error) {
	var updated *model.Responsibility
	err := s.store.InTx(ctx, func(tx *store.ResponsibilityStore) error {
		r, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrNotFound
		}

		if p.Title != nil {
			if r.Title, err = validateTitle(*p.Title); err != nil {
				return err
			}
		}
		if p.Categories != nil {
			if r.Categories, err = validateCategories(p.Categories); err != nil {
				return err
			}
		}
		if p.Frequency != nil {
			if r.Frequency, err = validateFrequency(p.Frequency); err != nil {
				return err
			}
		}
		if p.AssignedTo != nil {
			r.AssignedTo = *p.AssignedTo
		}
		if p.Description != nil {
			r.Description = strings.TrimSpace(*p.Description)
		}
		if p.IconURL != nil {
			r.IconURL = strings.TrimSpace(*p.IconURL)
		}

		updated, err = tx.Update(ctx, *r)
		return err
	})
	if err != nil {
		return nil, mapWriteError(err)
	}
	return updated, nil
}

// Delete removes a responsibility and its whole completion history, and
// returns the row as it was before deletion.
func (s *Service) Delete(ctx context.Context, id int64) (*model.Responsibility, error) {
	var deleted *model.Responsibility
	err := s.store.InTx(ctx, func(tx *store.ResponsibilityStore) error {
		r, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrNotFound
		}
		if _, err := tx.Delete(ctx, id); err != nil {
			return err
		}
		deleted = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func validateTitle(title string) (string, error) {
	title = norm.NFC.String(strings.TrimSpace(title))
	if title == "" {
		return "", invalid("title", "is required")
	}
	if len([]rune(title)) > maxTitleLen {
		return "", invalid("title", "must be at most %d characters", maxTitleLen)
	}
	return title, nil
}

// validateCategories parses every entry against the closed category set and
// drops repeats, keeping first-seen order.
func validateCategories(raw []string) ([]model.Category, error) {
	if len(raw) == 0 {
		return nil, invalid("categories", "at least one category is required")
	}
	seen := make(map[model.Category]bool, len(raw))
	out := make([]model.Category, 0, len(raw))
	for _, v := range raw {
		c, ok := model.ParseCategory(v)
		if !ok {
			return nil, invalid("categories", "unknown category %q, want one of %s", v, model.CategoryNames())
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// validateFrequency only requires non-blank entries; day names are opaque.
func validateFrequency(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, invalid("frequency", "at least one day is required")
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, invalid("frequency", "entries must not be blank")
		}
		out = append(out, v)
	}
	return out, nil
}

func mapWriteError(err error) error {
	if database.IsForeignKeyViolation(err) {
		return ErrMemberNotFound
	}
	return err
}
