package responsibility

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/homebase/internal/database"
	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *Service
	rs      *store.ResponsibilityStore
	members *store.FamilyMemberStore
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rs := store.NewResponsibilityStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fixture{
		svc:     NewService(rs, logger),
		rs:      rs,
		members: store.NewFamilyMemberStore(db),
	}
}

func (f fixture) member(t *testing.T, name string) int64 {
	t.Helper()
	m, err := f.members.Create(context.Background(), name, "#3B82F6", "")
	require.NoError(t, err)
	return m.ID
}

func (f fixture) responsibility(t *testing.T, memberID int64, categories ...string) *model.Responsibility {
	t.Helper()
	r, err := f.svc.Create(context.Background(), CreateInput{
		Title:      "Make bed",
		Categories: categories,
		AssignedTo: memberID,
		Frequency:  []string{"Monday", "Wednesday"},
	})
	require.NoError(t, err)
	return r
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

func (f fixture) count(t *testing.T, responsibilityID int64, date time.Time) int {
	t.Helper()
	n, err := f.rs.CountCompletions(context.Background(), responsibilityID, date)
	require.NoError(t, err)
	return n
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")

	tests := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"blank title", CreateInput{Title: "  ", Categories: []string{"MORNING"}, AssignedTo: alice, Frequency: []string{"Monday"}}, "title"},
		{"no categories", CreateInput{Title: "x", AssignedTo: alice, Frequency: []string{"Monday"}}, "categories"},
		{"bad category", CreateInput{Title: "x", Categories: []string{"NIGHT"}, AssignedTo: alice, Frequency: []string{"Monday"}}, "categories"},
		{"no frequency", CreateInput{Title: "x", Categories: []string{"CHORE"}, AssignedTo: alice}, "frequency"},
		{"blank frequency", CreateInput{Title: "x", Categories: []string{"CHORE"}, AssignedTo: alice, Frequency: []string{" "}}, "frequency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCreateNormalizesCategories(t *testing.T) {
	f := setup(t)
	alice := f.member(t, "Alice")

	r := f.responsibility(t, alice, "evening", "MORNING", "Evening")
	assert.Equal(t, []model.Category{model.CategoryEvening, model.CategoryMorning}, r.Categories)
	require.NotNil(t, r.FamilyMember)
	assert.Equal(t, "Alice", r.FamilyMember.Name)
}

func TestCreateUnknownMember(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		Title:      "Feed cat",
		Categories: []string{"CHORE"},
		AssignedTo: 9999,
		Frequency:  []string{"Daily"},
	})
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestGetMissing(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersAndOrders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	bob := f.member(t, "Bob")

	_, err := f.svc.Create(ctx, CreateInput{Title: "Walk dog", Categories: []string{"EVENING"}, AssignedTo: alice, Frequency: []string{"Daily"}})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateInput{Title: "Brush teeth", Categories: []string{"AFTERNOON", "MORNING"}, AssignedTo: alice, Frequency: []string{"Daily"}})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateInput{Title: "Dishes", Categories: []string{"CHORE"}, AssignedTo: bob, Frequency: []string{"Daily"}})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Brush teeth", all[0].Title)
	assert.Equal(t, "Dishes", all[1].Title)
	assert.Equal(t, "Walk dog", all[2].Title)

	mine, err := f.svc.ListForMember(ctx, bob)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Dishes", mine[0].Title)

	paged, err := f.svc.List(ctx, Filter{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "Dishes", paged[0].Title)

	// Zero limit means the default page size, not an empty page.
	zero, err := f.svc.List(ctx, Filter{Limit: 0})
	require.NoError(t, err)
	assert.Len(t, zero, 3)

	_, err = f.svc.List(ctx, Filter{Skip: -1})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestListEmptyIsNotNil(t *testing.T) {
	f := setup(t)
	items, err := f.svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestUpdatePartial(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	bob := f.member(t, "Bob")
	r := f.responsibility(t, alice, "MORNING")

	title := "Make bed neatly"
	got, err := f.svc.Update(ctx, r.ID, Patch{Title: &title, AssignedTo: &bob})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, bob, got.AssignedTo)
	assert.Equal(t, r.Categories, got.Categories)
	assert.Equal(t, r.Frequency, got.Frequency)

	_, err = f.svc.Update(ctx, r.ID, Patch{Categories: []string{}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "categories", verr.Field)

	missing := int64(9999)
	_, err = f.svc.Update(ctx, r.ID, Patch{AssignedTo: &missing})
	assert.ErrorIs(t, err, ErrMemberNotFound)

	_, err = f.svc.Update(ctx, 9999, Patch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleIsInverse(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	r := f.responsibility(t, alice, "MORNING")
	d := day(t, "2024-03-04")

	first, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: d, FamilyMemberID: alice, Category: "MORNING"})
	require.NoError(t, err)
	assert.True(t, first.Completed)
	require.NotNil(t, first.Completion)
	assert.Equal(t, "2024-03-04", first.Completion.CompletionDate)
	assert.Equal(t, model.CategoryMorning, first.Completion.Category)
	assert.Equal(t, 1, f.count(t, r.ID, d))

	second, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: d, FamilyMemberID: alice, Category: "MORNING"})
	require.NoError(t, err)
	assert.False(t, second.Completed)
	assert.Nil(t, second.Completion)
	assert.Equal(t, 0, f.count(t, r.ID, d))
}

func TestToggleSharedAcrossMembers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	bob := f.member(t, "Bob")
	r := f.responsibility(t, alice, "CHORE")
	d := day(t, "2024-03-04")

	res, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: d, FamilyMemberID: alice, Category: "CHORE"})
	require.NoError(t, err)
	assert.True(t, res.Completed)

	res, err = f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: d, FamilyMemberID: bob, Category: "CHORE"})
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 0, f.count(t, r.ID, d))
}

func TestToggleCategoriesAndDatesAreIndependent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	r := f.responsibility(t, alice, "MORNING", "EVENING")
	monday := day(t, "2024-03-04")
	tuesday := day(t, "2024-03-05")

	_, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: monday, FamilyMemberID: alice, Category: "MORNING"})
	require.NoError(t, err)
	_, err = f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: monday, FamilyMemberID: alice, Category: "EVENING"})
	require.NoError(t, err)
	_, err = f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: tuesday, FamilyMemberID: alice, Category: "MORNING"})
	require.NoError(t, err)

	assert.Equal(t, 2, f.count(t, r.ID, monday))
	assert.Equal(t, 1, f.count(t, r.ID, tuesday))

	// Clearing Monday evening leaves the other two alone.
	res, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: monday, FamilyMemberID: alice, Category: "EVENING"})
	require.NoError(t, err)
	assert.False(t, res.Completed)

	completions, err := f.svc.CompletionsOn(ctx, monday)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, model.CategoryMorning, completions[0].Category)
	assert.Equal(t, 1, f.count(t, r.ID, tuesday))
}

func TestToggleDefaultsToFirstCategory(t *testing.T) {
	f := setup(t)
	alice := f.member(t, "Alice")
	r := f.responsibility(t, alice, "AFTERNOON", "EVENING")

	res, err := f.svc.Toggle(context.Background(), ToggleInput{ResponsibilityID: r.ID, Date: day(t, "2024-03-04"), FamilyMemberID: alice})
	require.NoError(t, err)
	require.True(t, res.Completed)
	assert.Equal(t, model.CategoryAfternoon, res.Completion.Category)
}

func TestToggleErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	r := f.responsibility(t, alice, "MORNING")
	d := day(t, "2024-03-04")

	_, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: 9999, Date: d, FamilyMemberID: alice, Category: "MORNING"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: d, FamilyMemberID: 9999, Category: "MORNING"})
	assert.ErrorIs(t, err, ErrMemberNotFound)

	_, err = f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: d, FamilyMemberID: alice, Category: "BEDTIME"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)

	_, err = f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, FamilyMemberID: alice, Category: "MORNING"})
	assert.ErrorAs(t, err, &verr)

	assert.Equal(t, 0, f.count(t, r.ID, time.Time{}))
}

func TestConcurrentTogglesLeaveOneRowAtMost(t *testing.T) {
	for _, n := range []int{2, 5, 8} {
		f := setup(t)
		alice := f.member(t, "Alice")
		r := f.responsibility(t, alice, "CHORE")
		d := day(t, "2024-03-04")

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Toggle(context.Background(), ToggleInput{
					ResponsibilityID: r.ID, Date: d, FamilyMemberID: alice, Category: "CHORE",
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		assert.Equal(t, n%2, f.count(t, r.ID, d), "after %d toggles", n)
	}
}

func TestClearRemovesCompletionFromAnyMember(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	bob := f.member(t, "Bob")
	r := f.responsibility(t, alice, "MORNING")
	d := day(t, "2024-03-04")

	_, err := f.rs.CreateCompletion(ctx, r.ID, bob, d, model.CategoryMorning)
	require.NoError(t, err)

	res, err := f.svc.clear(ctx, r.ID, d, model.CategoryMorning)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Nil(t, res.Completion)
	assert.Equal(t, model.CategoryMorning, res.Category)
	assert.Equal(t, 0, f.count(t, r.ID, d))

	res, err = f.svc.clear(ctx, r.ID, d, model.CategoryMorning)
	require.NoError(t, err)
	assert.False(t, res.Completed)
}

func TestToggleLosingInsertClears(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	bob := f.member(t, "Bob")
	r := f.responsibility(t, alice, "CHORE")
	d := day(t, "2024-03-04")

	calls := 0
	f.svc.beforeInsert = func(ctx context.Context, tx *store.ResponsibilityStore) error {
		calls++
		// Another member records the same triple between lookup and insert.
		_, err := tx.CreateCompletion(ctx, r.ID, bob, d, model.CategoryChore)
		return err
	}

	res, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: d, FamilyMemberID: alice, Category: "CHORE"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, res.Completed)
	assert.Nil(t, res.Completion)
	assert.Equal(t, model.CategoryChore, res.Category)
	assert.Equal(t, 0, f.count(t, r.ID, d))

	f.svc.beforeInsert = nil
	res, err = f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: d, FamilyMemberID: alice, Category: "CHORE"})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 1, f.count(t, r.ID, d))
}

func TestToggleHookErrorAborts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	r := f.responsibility(t, alice, "CHORE")
	d := day(t, "2024-03-04")

	boom := errors.New("boom")
	f.svc.beforeInsert = func(context.Context, *store.ResponsibilityStore) error { return boom }

	_, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: d, FamilyMemberID: alice})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, f.count(t, r.ID, d))
}

func TestDeleteCascadesCompletions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	r := f.responsibility(t, alice, "MORNING", "EVENING")
	other := f.responsibility(t, alice, "CHORE")

	for _, ds := range []string{"2024-03-04", "2024-03-05", "2024-03-06"} {
		_, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: day(t, ds), FamilyMemberID: alice, Category: "MORNING"})
		require.NoError(t, err)
	}
	_, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: other.ID, Date: day(t, "2024-03-04"), FamilyMemberID: alice})
	require.NoError(t, err)

	deleted, err := f.svc.Delete(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, deleted.ID)
	assert.Equal(t, 0, f.count(t, r.ID, time.Time{}))
	assert.Equal(t, 1, f.count(t, other.ID, time.Time{}))

	_, err = f.svc.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Delete(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMorningRoutineScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	kid := f.member(t, "Sam")
	r := f.responsibility(t, kid, "MORNING", "EVENING")
	today := day(t, "2024-06-01")

	res, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: today, FamilyMemberID: kid, Category: "MORNING"})
	require.NoError(t, err)
	require.True(t, res.Completed)

	completions, err := f.svc.CompletionsForDate(ctx, today)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, r.ID, completions[0].ResponsibilityID)
	assert.Equal(t, kid, completions[0].FamilyMemberID)

	res, err = f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: today, FamilyMemberID: kid, Category: "MORNING"})
	require.NoError(t, err)
	require.False(t, res.Completed)

	completions, err = f.svc.CompletionsForDate(ctx, today)
	require.NoError(t, err)
	assert.Empty(t, completions)
	assert.NotNil(t, completions)
}

func TestCompletionsInRange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	r := f.responsibility(t, alice, "CHORE")

	for _, ds := range []string{"2024-02-28", "2024-03-01", "2024-03-10", "2024-04-02"} {
		_, err := f.svc.Toggle(ctx, ToggleInput{ResponsibilityID: r.ID, Date: day(t, ds), FamilyMemberID: alice})
		require.NoError(t, err)
	}

	got, err := f.svc.CompletionsInRange(ctx, day(t, "2024-03-01"), day(t, "2024-03-31"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-03-01", got[0].CompletionDate)
	assert.Equal(t, "2024-03-10", got[1].CompletionDate)

	_, err = f.svc.CompletionsInRange(ctx, day(t, "2024-03-10"), day(t, "2024-03-01"))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.svc.CompletionsInRange(ctx, day(t, "2024-03-01"), day(t, "2024-04-01"))
	assert.ErrorAs(t, err, &verr)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("date", "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, 29, d.Day())

	for _, bad := range []string{"", "2024-02-30", "03/04/2024", "2024-3-4"} {
		_, err := ParseDate("date", bad)
		var verr *ValidationError
		if assert.True(t, errors.As(err, &verr), "input %q", bad) {
			assert.Equal(t, "date", verr.Field)
		}
	}
}
