package model

import "time"

type Task struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	DueDate      *time.Time     `json:"due_date"`
	Completed    bool           `json:"completed"`
	Important    bool           `json:"important"`
	AssignedTo   int64          `json:"assigned_to"`
	ListID       int64          `json:"list_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	FamilyMember *MemberSummary `json:"family_member,omitempty"`
}
