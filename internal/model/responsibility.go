package model

import (
	"slices"
	"strings"
	"time"
)

// Category is the time-of-day or type tag of a responsibility instance.
type Category string

const (
	CategoryMorning   Category = "MORNING"
	CategoryAfternoon Category = "AFTERNOON"
	CategoryEvening   Category = "EVENING"
	CategoryChore     Category = "CHORE"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryMorning, CategoryAfternoon, CategoryEvening, CategoryChore}

func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// CategoryNames joins Categories for error messages.
func CategoryNames() string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// ParseCategory accepts a category name in any letter case.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}

type Responsibility struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Categories   []Category     `json:"categories"`
	AssignedTo   int64          `json:"assigned_to"`
	Frequency    []string       `json:"frequency"`
	IconURL      string         `json:"icon_url"`
	Description  string         `json:"description"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	FamilyMember *MemberSummary `json:"family_member,omitempty"`
}

// ResponsibilityCompletion records that one category instance of a
// responsibility was done on a calendar date. CompletionDate is YYYY-MM-DD.
type ResponsibilityCompletion struct {
	ID               int64     `json:"id"`
	ResponsibilityID int64     `json:"responsibility_id"`
	FamilyMemberID   int64     `json:"family_member_id"`
	CompletionDate   string    `json:"completion_date"`
	Category         Category  `json:"category"`
	CreatedAt        time.Time `json:"created_at"`
}
