package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domain "shift-handover-log/backend/internal/domain/shiftlog"
	"shift-handover-log/backend/internal/infra/lock"
	"shift-handover-log/backend/internal/infra/sanitize"
	"shift-handover-log/backend/internal/repository"
	"shift-handover-log/backend/internal/service/shiftlog"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newRepo(t *testing.T) *repository.LogEntryRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.LogEntry{}))
	return repository.NewLogEntryRepository(db)
}

func viewIDs(t *testing.T, svc *shiftlog.Service, archived string) []uint {
	t.Helper()
	res, err := svc.List(context.Background(), shiftlog.ListQuery{Archived: archived, Limit: "100"})
	require.NoError(t, err)
	out := make([]uint, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, e.ID)
	}
	return out
}

func TestTomorrowReminderScenario(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	clk := &clock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
	svc := shiftlog.NewService(repo, sanitize.NewHTMLSanitizer(), nil, shiftlog.Config{Clock: clk.Now})
	processor := NewProcessor(repo, nil, Config{}, nil, clk.Now)

	tomorrow := clk.Now().Add(24 * time.Hour).Format(time.RFC3339)
	entry, err := svc.Create(ctx, shiftlog.CreateInput{
		LogDate:          "2026-10-15",
		ShortDescription: "Call vendor",
		Note:             "<p>Ask about the spare valve</p>",
		WorkerName:       "JD",
		ReminderDate:     &tomorrow,
	})
	require.NoError(t, err)

	assert.Contains(t, viewIDs(t, svc, "true"), entry.ID)
	assert.NotContains(t, viewIDs(t, svc, ""), entry.ID)

	result, err := processor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Released, "reminder not due yet")

	clk.Advance(25 * time.Hour)
	result, err = processor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Released)

	stored, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReminderDate)
	assert.False(t, stored.IsArchived)
	assert.Contains(t, viewIDs(t, svc, ""), entry.ID)
	assert.NotContains(t, viewIDs(t, svc, "true"), entry.ID)

	// 第二轮不再处理任何记录。
	result, err = processor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Due)
	assert.Zero(t, result.Released)
}

func TestSweepSkipsDeletedAndFutureEntries(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	deleted := &domain.LogEntry{LogDate: now, ShortDescription: "d", Note: "n", WorkerName: "A", IsArchived: true, ReminderDate: &past, IsDeleted: true}
	pending := &domain.LogEntry{LogDate: now, ShortDescription: "p", Note: "n", WorkerName: "A", IsArchived: true, ReminderDate: &future}
	for _, e := range []*domain.LogEntry{deleted, pending} {
		require.NoError(t, repo.Insert(ctx, e))
	}

	processor := NewProcessor(repo, nil, Config{}, nil, func() time.Time { return now })
	result, err := processor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Due)

	all, err := repo.ListAll(ctx, true)
	require.NoError(t, err)
	for _, e := range all {
		assert.NotNil(t, e.ReminderDate, "entry %d must keep its reminder", e.ID)
	}
}

type flakyStore struct {
	ids      []uint
	failID   uint
	listErr  error
	released []uint
}

func (f *flakyStore) ListDueReminders(context.Context, time.Time) ([]uint, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ids, nil
}

func (f *flakyStore) ReleaseReminder(_ context.Context, id uint, _ time.Time) (bool, error) {
	if id == f.failID {
		return false, errors.New("row locked")
	}
	f.released = append(f.released, id)
	return true, nil
}

func TestSweepCollectsPerEntryFailures(t *testing.T) {
	store := &flakyStore{ids: []uint{1, 2, 3}, failID: 2}
	processor := NewProcessor(store, nil, Config{}, nil, nil)

	result, err := processor.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 2")
	assert.Equal(t, 2, result.Released)
	assert.Equal(t, []uint{1, 3}, store.released)
}

type countingStore struct {
	calls atomic.Int32
	err   error
}

func (c *countingStore) ListDueReminders(context.Context, time.Time) ([]uint, error) {
	c.calls.Add(1)
	return nil, c.err
}

func (c *countingStore) ReleaseReminder(context.Context, uint, time.Time) (bool, error) {
	return false, nil
}

func TestStartRunsImmediatelyAndSurvivesErrors(t *testing.T) {
	store := &countingStore{err: errors.New("database is locked")}
	processor := NewProcessor(store, nil, Config{Interval: 10 * time.Millisecond}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	processor.Start(ctx)
	processor.Start(ctx)

	require.Eventually(t, func() bool { return store.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	processor.Stop()

	stopped := store.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, store.calls.Load(), "no sweeps after Stop")
}

func TestSweepSkippedWhenLeaseHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	other := lock.NewRedisLocker(client, "shiftlog")
	release, ok, err := other.TryAcquire(ctx, lockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	store := &countingStore{}
	processor := NewProcessor(store, lock.NewRedisLocker(client, "shiftlog"), Config{}, nil, nil)
	result, err := processor.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Zero(t, store.calls.Load())

	require.NoError(t, release(ctx))
	result, err = processor.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.EqualValues(t, 1, store.calls.Load())
}
