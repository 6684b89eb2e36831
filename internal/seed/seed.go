// Package seed loads a household description from YAML into an empty or
// partially filled database.
package seed

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/dukerupert/homebase/internal/responsibility"
	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/store"
)

type File struct {
	Members          []Member         `yaml:"members"`
	Lists            []List           `yaml:"lists"`
	Responsibilities []Responsibility `yaml:"responsibilities"`
}

type Member struct {
	Name     string `yaml:"name"`
	Color    string `yaml:"color"`
	PhotoURL string `yaml:"photo_url"`
}

type List struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
	Icon  string `yaml:"icon"`
}

// Responsibility names its assignee by member name.
type Responsibility struct {
	Title       string   `yaml:"title"`
	Categories  []string `yaml:"categories"`
	AssignedTo  string   `yaml:"assigned_to"`
	Frequency   []string `yaml:"frequency"`
	Description string   `yaml:"description"`
	IconURL     string   `yaml:"icon_url"`
}

// Result counts what Apply created. Entries already present are skipped.
type Result struct {
	Members          int
	Lists            int
	Responsibilities int
}

// Load reads and parses a seed file, rejecting unknown keys.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, m := range f.Members {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("members[%d]: name is required", i)
		}
	}
	for i, l := range f.Lists {
		if strings.TrimSpace(l.Name) == "" {
			return nil, fmt.Errorf("lists[%d]: name is required", i)
		}
	}
	for i, r := range f.Responsibilities {
		if strings.TrimSpace(r.AssignedTo) == "" {
			return nil, fmt.Errorf("responsibilities[%d]: assigned_to is required", i)
		}
	}
	return &f, nil
}

// Apply inserts members, then lists, then responsibilities. Members and lists
// match existing rows by name; a responsibility matches on title within its
// assignee. Responsibilities go through the catalog so they are validated
// like API writes.
func Apply(ctx context.Context, db *sql.DB, f *File, logger *slog.Logger) (Result, error) {
	var res Result
	members := store.NewFamilyMemberStore(db)
	lists := store.NewListStore(db)
	catalog := responsibility.NewService(store.NewResponsibilityStore(db), logger)

	ids := make(map[string]int64)
	for _, m := range f.Members {
		name := memberName(m.Name)
		existing, err := members.GetByName(ctx, name)
		if err != nil {
			return res, err
		}
		if existing != nil {
			ids[name] = existing.ID
			continue
		}
		color := m.Color
		if color == "" {
			color = "#3B82F6"
		}
		created, err := members.Create(ctx, name, color, m.PhotoURL)
		if err != nil {
			return res, fmt.Errorf("member %q: %w", name, err)
		}
		ids[name] = created.ID
		res.Members++
	}

	existingLists, err := lists.List(ctx, 0, 0)
	if err != nil {
		return res, err
	}
	haveList := make(map[string]bool, len(existingLists))
	for _, l := range existingLists {
		haveList[l.Name] = true
	}
	for _, l := range f.Lists {
		name := strings.TrimSpace(l.Name)
		if haveList[name] {
			continue
		}
		if _, err := lists.Create(ctx, name, l.Color, l.Icon); err != nil {
			return res, fmt.Errorf("list %q: %w", name, err)
		}
		haveList[name] = true
		res.Lists++
	}

	for _, r := range f.Responsibilities {
		assignee := memberName(r.AssignedTo)
		id, ok := ids[assignee]
		if !ok {
			m, err := members.GetByName(ctx, assignee)
			if err != nil {
				return res, err
			}
			if m == nil {
				return res, fmt.Errorf("responsibility %q: unknown member %q", r.Title, assignee)
			}
			id = m.ID
			ids[assignee] = id
		}

		current, err := catalog.ListForMember(ctx, id)
		if err != nil {
			return res, err
		}
		if hasTitle(current, norm.NFC.String(strings.TrimSpace(r.Title))) {
			continue
		}

		_, err = catalog.Create(ctx, responsibility.CreateInput{
			Title:       r.Title,
			Categories:  r.Categories,
			AssignedTo:  id,
			Frequency:   r.Frequency,
			Description: r.Description,
			IconURL:     r.IconURL,
		})
		if err != nil {
			return res, fmt.Errorf("responsibility %q: %w", r.Title, err)
		}
		res.Responsibilities++
	}

	logger.Info("seed applied",
		"members", res.Members,
		"lists", res.Lists,
		"responsibilities", res.Responsibilities,
	)
	return res, nil
}

// memberName matches the normalization the API applies to member names.
func memberName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func hasTitle(items []model.Responsibility, title string) bool {
	for _, r := range items {
		if r.Title == title {
			return true
		}
	}
	return false
}
