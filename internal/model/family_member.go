package model

import "time"

type FamilyMember struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsSystem  bool      `json:"is_system"`
	Color     string    `json:"color"`
	PhotoURL  string    `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberSummary is the assignee view embedded in other resources.
type MemberSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	PhotoURL string `json:"photo_url"`
}
