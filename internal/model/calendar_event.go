package model

import "time"

// EventSource identifies where a calendar event came from. Only manual
// events are editable; the others mirror external calendars.
type EventSource string

const (
	SourceManual EventSource = "MANUAL"
	SourceICloud EventSource = "ICLOUD"
	SourceGoogle EventSource = "GOOGLE"
)

func (s EventSource) Valid() bool {
	switch s {
	case SourceManual, SourceICloud, SourceGoogle:
		return true
	}
	return false
}

type CalendarEvent struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Date         string         `json:"date"`
	StartTime    *string        `json:"start_time"`
	EndTime      *string        `json:"end_time"`
	AllDay       bool           `json:"all_day"`
	Source       EventSource    `json:"source"`
	ExternalID   *string        `json:"external_id"`
	AssignedTo   *int64         `json:"assigned_to"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	FamilyMember *MemberSummary `json:"family_member,omitempty"`
}
