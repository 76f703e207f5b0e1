package shiftlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	domain "shift-handover-log/backend/internal/domain/shiftlog"
	"shift-handover-log/backend/internal/infra/sanitize"
	"shift-handover-log/backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingJournal struct{ entries []domain.LogEntry }

func (j *recordingJournal) Append(e domain.LogEntry) error {
	j.entries = append(j.entries, e)
	return nil
}

type staticSwitch bool

func (s staticSwitch) DailyLogsEnabled() bool { return bool(s) }

type fixture struct {
	svc     *Service
	repo    *repository.LogEntryRepository
	clock   *fakeClock
	journal *recordingJournal
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.LogEntry{}))

	clock := &fakeClock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
	repo := repository.NewLogEntryRepository(db)
	journal := &recordingJournal{}
	svc := NewService(repo, sanitize.NewHTMLSanitizer(), nil, Config{
		Journal:       journal,
		JournalSwitch: staticSwitch(true),
		Clock:         clock.Now,
	})
	return fixture{svc: svc, repo: repo, clock: clock, journal: journal}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func validInput() CreateInput {
	return CreateInput{
		LogDate:          "2026-10-15T07:30",
		ShortDescription: "Boiler pressure low",
		Note:             "<p>Topped up to <b>1.5 bar</b></p>",
		WorkerName:       "abc",
	}
}

func (f fixture) viewIDs(t *testing.T, archived string) []uint {
	t.Helper()
	res, err := f.svc.List(context.Background(), ListQuery{Archived: archived, Limit: "100"})
	require.NoError(t, err)
	ids := make([]uint, 0, len(res.Entries))
	for _, e := range res.Entries {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestCreateNormalisesAndJournals(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Color = strPtr("light-blue")
	in.Note = `<p onclick="x()">Topped up</p><script>alert(1)</script>`

	entry, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, "ABC", entry.WorkerName)
	assert.Equal(t, domain.ColorLightBlue, entry.Color)
	assert.NotContains(t, entry.Note, "script")
	assert.NotContains(t, entry.Note, "onclick")
	assert.False(t, entry.IsArchived)
	assert.False(t, entry.EffectiveArchived)
	assert.Equal(t, time.Date(2026, 10, 15, 7, 30, 0, 0, time.UTC), entry.LogDate)
	require.Len(t, f.journal.entries, 1)
}

func TestCreateShortDescriptionBoundary(t *testing.T) {
	f := newFixture(t)

	in := validInput()
	in.ShortDescription = strings.Repeat("a", 50)
	_, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)

	in.ShortDescription = strings.Repeat("a", 51)
	_, err = f.svc.Create(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "short_description")
	assert.Len(t, verr.Fields, 1)
}

func TestCreateValidationErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{
		LogDate:          "yesterday-ish",
		ShortDescription: "  ",
		Note:             "<p><br></p>",
		WorkerName:       "A1",
		Color:            strPtr("purple"),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"log_date", "short_description", "note", "worker_name", "color"} {
		assert.Contains(t, verr.Fields, field)
	}

	in := validInput()
	in.WorkerName = "ABCD"
	_, err = f.svc.Create(context.Background(), in)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "worker_name")

	in = validInput()
	in.Note = "<p>" + strings.Repeat("x", 1001) + "</p>"
	_, err = f.svc.Create(context.Background(), in)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "note")
}

func TestCreateWithFutureReminderArchives(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.ReminderDate = strPtr(f.clock.now.Add(time.Hour).Format(time.RFC3339))
	in.IsArchived = boolPtr(false)

	entry, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, entry.IsArchived)
	assert.True(t, entry.EffectiveArchived)

	in.ReminderDate = strPtr(f.clock.now.Format(time.RFC3339))
	_, err = f.svc.Create(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgReminderNotFuture, verr.Fields["reminder_date"])
}

func TestCreateHonoursExplicitArchive(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.IsArchived = boolPtr(true)
	entry, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, entry.IsArchived)
	assert.Equal(t, []uint{entry.ID}, f.viewIDs(t, "true"))
}

func TestFutureReminderDominatesActiveView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = f.svc.SetReminder(ctx, entry.ID, f.clock.now.Add(time.Hour).Format(time.RFC3339))
	require.NoError(t, err)

	// 显式取消归档不会让带未来提醒的日志回到活动视图。
	updated, err := f.svc.SetArchived(ctx, entry.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsArchived)
	assert.NotNil(t, updated.ReminderDate)
	assert.True(t, updated.EffectiveArchived)

	assert.Contains(t, f.viewIDs(t, "true"), entry.ID)
	assert.NotContains(t, f.viewIDs(t, ""), entry.ID)
}

func TestElapsedReminderReactivatesWithoutSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := validInput()
	in.ReminderDate = strPtr(f.clock.now.Add(time.Minute).Format(time.RFC3339))
	entry, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, f.viewIDs(t, "1"), entry.ID)

	f.clock.Advance(time.Minute + time.Second)

	assert.Contains(t, f.viewIDs(t, ""), entry.ID)
	assert.NotContains(t, f.viewIDs(t, "true"), entry.ID)

	stored, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsArchived, "stored flag stays until the sweep runs")
}

func TestSetReminderRejectsPast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = f.svc.SetReminder(ctx, entry.ID, f.clock.now.Add(-time.Second).Format(time.RFC3339))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgReminderNotFuture, verr.Fields["reminder_date"])

	_, err = f.svc.SetReminder(ctx, 9999, f.clock.now.Add(time.Hour).Format(time.RFC3339))
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestSetReminderEmptyClears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := validInput()
	in.ReminderDate = strPtr(f.clock.now.Add(time.Hour).Format(time.RFC3339))
	entry, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	cleared, err := f.svc.SetReminder(ctx, entry.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.ReminderDate)
	assert.True(t, cleared.IsArchived, "clearing keeps the stored flag")
}

func TestClearReminderKeepsFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = f.svc.SetReminder(ctx, entry.ID, f.clock.now.Add(time.Hour).Format(time.RFC3339))
	require.NoError(t, err)
	_, err = f.svc.SetArchived(ctx, entry.ID, false)
	require.NoError(t, err)

	cleared, err := f.svc.ClearReminder(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.ReminderDate)
	assert.False(t, cleared.IsArchived)
	assert.Contains(t, f.viewIDs(t, ""), entry.ID)
}

func TestUpdateReminderTriState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := validInput()
	in.ReminderDate = strPtr(f.clock.now.Add(time.Hour).Format(time.RFC3339))
	entry, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	// 未提供 reminder_date：提醒与归档保持不变。
	updated, err := f.svc.Update(ctx, entry.ID, UpdateInput{ShortDescription: strPtr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.ShortDescription)
	assert.NotNil(t, updated.ReminderDate)
	assert.True(t, updated.IsArchived)

	// 显式清除并同时取消归档。
	updated, err = f.svc.Update(ctx, entry.ID, UpdateInput{Reminder: ReminderPatch{Present: true}, IsArchived: boolPtr(false)})
	require.NoError(t, err)
	assert.Nil(t, updated.ReminderDate)
	assert.False(t, updated.IsArchived)

	// 设置新的未来提醒会强制归档，即使请求要求不归档。
	future := f.clock.now.Add(48 * time.Hour).Format(time.RFC3339)
	updated, err = f.svc.Update(ctx, entry.ID, UpdateInput{Reminder: ReminderPatch{Present: true, Value: future}, IsArchived: boolPtr(false)})
	require.NoError(t, err)
	assert.True(t, updated.IsArchived)
	require.NotNil(t, updated.ReminderDate)

	// 清除但不带归档值：保持存储的 true。
	updated, err = f.svc.Update(ctx, entry.ID, UpdateInput{Reminder: ReminderPatch{Present: true}})
	require.NoError(t, err)
	assert.Nil(t, updated.ReminderDate)
	assert.True(t, updated.IsArchived)
}

func TestUpdateValidatesPresentFieldsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, entry.ID, UpdateInput{WorkerName: strPtr("12"), LogDate: strPtr("nope")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "worker_name")
	assert.Contains(t, verr.Fields, "log_date")

	_, err = f.svc.Update(ctx, 4242, UpdateInput{WorkerName: strPtr("xy")})
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestDeleteIsFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, entry.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, entry.ID), ErrEntryNotFound)

	_, err = f.svc.Get(ctx, entry.ID)
	assert.True(t, errors.Is(err, ErrEntryNotFound))
	_, err = f.svc.SetArchived(ctx, entry.ID, true)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	f.clock.Advance(365 * 24 * time.Hour)
	assert.NotContains(t, f.viewIDs(t, ""), entry.ID)
	assert.NotContains(t, f.viewIDs(t, "true"), entry.ID)
}

func TestListPaginationAgreesWithCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 45; i++ {
		in := validInput()
		in.LogDate = f.clock.now.Add(-time.Duration(i) * time.Minute).Format(time.RFC3339)
		if i%4 == 0 {
			in.IsArchived = boolPtr(true)
		}
		_, err := f.svc.Create(ctx, in)
		require.NoError(t, err)
	}

	first, err := f.svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.CurrentPage)
	assert.Len(t, first.Entries, DefaultPageSize)
	assert.EqualValues(t, 33, first.Total)
	assert.Equal(t, 2, first.TotalPages)

	seen := 0
	for page := 1; page <= first.TotalPages; page++ {
		res, err := f.svc.List(ctx, ListQuery{Page: fmt.Sprint(page)})
		require.NoError(t, err)
		seen += len(res.Entries)
	}
	assert.EqualValues(t, first.Total, seen)

	capped, err := f.svc.List(ctx, ListQuery{Limit: "1000"})
	require.NoError(t, err)
	assert.Len(t, capped.Entries, 33)

	fallback, err := f.svc.List(ctx, ListQuery{Page: "-3", Limit: "abc"})
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.CurrentPage)
	assert.Len(t, fallback.Entries, DefaultPageSize)
}

func TestListBadFiltersYieldEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	for _, q := range []ListQuery{
		{StartDate: "not-a-date"},
		{EndDate: "2026-13-45"},
		{StartDate: "2026-10-16", EndDate: "2026-10-14"},
	} {
		res, err := f.svc.List(ctx, q)
		require.NoError(t, err)
		assert.Empty(t, res.Entries)
		assert.Zero(t, res.Total)
	}

	res, err := f.svc.List(ctx, ListQuery{StartDate: "2026-10-15", EndDate: "2026-10-15", WorkerName: "abc", Search: "BOILER"})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 1, "date-only end_date covers the whole day")
}

func TestListSearchFoldsNonASCII(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	oil := validInput()
	oil.ShortDescription = "Ölstand prüfen"
	oilEntry, err := f.svc.Create(ctx, oil)
	require.NoError(t, err)

	pump := validInput()
	pump.ShortDescription = "Насос 3"
	pump.Note = "<p><strong>Давление</strong> в норме</p>"
	pumpEntry, err := f.svc.Create(ctx, pump)
	require.NoError(t, err)

	cases := []struct {
		search string
		want   []uint
	}{
		{"Ölstand", []uint{oilEntry.ID}},
		{"ölstand", []uint{oilEntry.ID}},
		{"ÖLSTAND", []uint{oilEntry.ID}},
		{"PRÜFEN", []uint{oilEntry.ID}},
		{"насос", []uint{pumpEntry.ID}},
		{"ДАВЛЕНИЕ", []uint{pumpEntry.ID}},
		{"strong", nil},
		{"<p>", nil},
	}
	for _, tc := range cases {
		res, err := f.svc.List(ctx, ListQuery{Search: tc.search})
		require.NoError(t, err, tc.search)
		got := make([]uint, 0, len(res.Entries))
		for _, e := range res.Entries {
			got = append(got, e.ID)
		}
		assert.ElementsMatch(t, tc.want, got, "search %q", tc.search)
		assert.EqualValues(t, len(tc.want), res.Total, "search %q", tc.search)
	}
}

func TestListSearchFollowsUpdatedText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, entry.ID, UpdateInput{ShortDescription: strPtr("Kühlwasser nachfüllen")})
	require.NoError(t, err)

	res, err := f.svc.List(ctx, ListQuery{Search: "KÜHLWASSER"})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, entry.ID, res.Entries[0].ID)

	res, err = f.svc.List(ctx, ListQuery{Search: "boiler"})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
}

func TestListOutOfRangePageIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, validInput())
		require.NoError(t, err)
	}

	cases := []struct {
		page        string
		wantPage    int
		wantEntries int
	}{
		{"1", 1, 3},
		{"2", 2, 0},
		{"1000000", 1000000, 0},
		{"9223372036854775807", 9223372036854775807, 0},
		// 超出 int 范围无法解析，按默认第 1 页处理。
		{"99999999999999999999", 1, 3},
	}
	for _, tc := range cases {
		res, err := f.svc.List(ctx, ListQuery{Page: tc.page})
		require.NoError(t, err, tc.page)
		assert.Equal(t, tc.wantPage, res.CurrentPage, "page %s", tc.page)
		assert.Len(t, res.Entries, tc.wantEntries, "page %s", tc.page)
		assert.EqualValues(t, 3, res.Total, "page %s", tc.page)
		assert.Equal(t, 1, res.TotalPages, "page %s", tc.page)
	}

	res, err := f.svc.List(ctx, ListQuery{Page: "9223372036854775807", Limit: "100"})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
}
