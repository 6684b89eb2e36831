package responsibility

import (
	"context"
	"time"

	"github.com/dukerupert/homebase/internal/model"
)

// ListForMember returns the responsibilities assigned to one member.
func (s *Service) ListForMember(ctx context.Context, memberID int64) ([]model.Responsibility, error) {
	return s.List(ctx, Filter{AssignedTo: &memberID})
}

// CompletionsOn is CompletionsForDate under its read-side name.
func (s *Service) CompletionsOn(ctx context.Context, date time.Time) ([]model.ResponsibilityCompletion, error) {
	return s.CompletionsForDate(ctx, date)
}
