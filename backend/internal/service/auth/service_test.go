package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"shift-handover-log/backend/internal/domain/settings"
	domain "shift-handover-log/backend/internal/domain/user"
	"shift-handover-log/backend/internal/infra/ratelimit"
	"shift-handover-log/backend/internal/infra/security"
	"shift-handover-log/backend/internal/infra/token"
	"shift-handover-log/backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type staticSettings struct {
	site settings.SiteSettings
}

func (s *staticSettings) Current() settings.SiteSettings { return s.site }

type fixture struct {
	svc      *Service
	users    *repository.UserRepository
	clock    *fakeClock
	settings *staticSettings
	admin    *domain.User
	worker   *domain.User
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
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	users := repository.NewUserRepository(db)
	hash, err := security.HashPassword("pass123")
	require.NoError(t, err)
	admin := &domain.User{Username: "admin", PasswordHash: hash, IsAdmin: true, DisplayOrder: 1}
	worker := &domain.User{Username: "FO", PasswordHash: hash, DisplayOrder: 2}
	require.NoError(t, users.Create(context.Background(), admin))
	require.NoError(t, users.Create(context.Background(), worker))

	clock := &fakeClock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
	site := &staticSettings{site: settings.DefaultSiteSettings()}
	tokens := token.NewJWTManager("test-secret").WithClock(clock.Now)
	limiter := ratelimit.NewMemoryLimiter().WithClock(clock.Now)
	svc := NewService(users, tokens, token.NewMemoryRevocationStore(), limiter, site, nil)

	return fixture{svc: svc, users: users, clock: clock, settings: site, admin: admin, worker: worker}
}

func TestLoginIssuesTokenWithConfiguredExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Login(ctx, LoginParams{IP: "10.0.0.1", Username: "admin", Password: "pass123", AdminOnly: true})
	require.NoError(t, err)
	require.NotNil(t, result.ExpiresAt)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour).Unix(), result.ExpiresAt.Unix())

	identity, err := f.svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, identity.UserID)
	assert.True(t, identity.IsAdmin)
	assert.Equal(t, token.TypeAdmin, identity.Type)
}

func TestBackofficeLoginRejectsNonAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Login(context.Background(), LoginParams{IP: "10.0.0.1", Username: "FO", Password: "pass123", AdminOnly: true})
	assert.ErrorIs(t, err, ErrAdminRequired)

	result, err := f.svc.Login(context.Background(), LoginParams{IP: "10.0.0.1", Username: "FO", Password: "pass123"})
	require.NoError(t, err)
	identity, err := f.svc.VerifyUser(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, "FO", identity.Username)
}

func TestVerifyUserRejectsAdminToken(t *testing.T) {
	f := newFixture(t)
	result, err := f.svc.Login(context.Background(), LoginParams{IP: "1.1.1.1", Username: "admin", Password: "pass123", AdminOnly: true})
	require.NoError(t, err)
	_, err = f.svc.VerifyUser(context.Background(), result.Token)
	assert.ErrorIs(t, err, ErrUserTokenRequired)
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	params := LoginParams{IP: "10.0.0.9", Username: "FO", Password: "nope"}

	for i := 0; i < MaxFailedAttempts; i++ {
		_, err := f.svc.Login(ctx, params)
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}

	params.Password = "pass123"
	_, err := f.svc.Login(ctx, params)
	var locked *LockedError
	require.True(t, errors.As(err, &locked), "expected lockout, got %v", err)
	assert.Equal(t, LockoutWindow, locked.RetryAfter)

	// 另一个 IP 不受影响。
	_, err = f.svc.Login(ctx, LoginParams{IP: "10.0.0.10", Username: "FO", Password: "pass123"})
	require.NoError(t, err)

	f.clock.Advance(LockoutWindow + time.Second)
	_, err = f.svc.Login(ctx, params)
	require.NoError(t, err)
}

func TestSuccessfulLoginClearsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bad := LoginParams{IP: "10.0.0.2", Username: "FO", Password: "bad"}
	good := LoginParams{IP: "10.0.0.2", Username: "FO", Password: "pass123"}

	for i := 0; i < MaxFailedAttempts-1; i++ {
		_, _ = f.svc.Login(ctx, bad)
	}
	_, err := f.svc.Login(ctx, good)
	require.NoError(t, err)

	for i := 0; i < MaxFailedAttempts-1; i++ {
		_, _ = f.svc.Login(ctx, bad)
	}
	_, err = f.svc.Login(ctx, good)
	require.NoError(t, err, "counter should restart after a successful login")
}

func TestExpiryIgnoredWhenDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	result, err := f.svc.Login(ctx, LoginParams{IP: "1.1.1.1", Username: "FO", Password: "pass123"})
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	_, err = f.svc.Authenticate(ctx, result.Token)
	require.ErrorIs(t, err, token.ErrTokenExpired)

	f.settings.site.LoginExpiryEnabled = false
	_, err = f.svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)

	next, err := f.svc.Login(ctx, LoginParams{IP: "1.1.1.1", Username: "FO", Password: "pass123"})
	require.NoError(t, err)
	assert.Nil(t, next.ExpiresAt)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	result, err := f.svc.Login(ctx, LoginParams{IP: "1.1.1.1", Username: "FO", Password: "pass123"})
	require.NoError(t, err)

	identity, err := f.svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, identity))

	_, err = f.svc.Authenticate(ctx, result.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, f.worker.ID, "wrong", "newpass1"), ErrCurrentPassword)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, f.worker.ID, "pass123", "short"), security.ErrPasswordTooShort)
	require.NoError(t, f.svc.ChangePassword(ctx, f.worker.ID, "pass123", "newpass1"))

	_, err := f.svc.Login(ctx, LoginParams{IP: "1.1.1.1", Username: "FO", Password: "pass123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, LoginParams{IP: "1.1.1.1", Username: "FO", Password: "newpass1"})
	assert.NoError(t, err)
}

func TestAuthenticateRejectsDeletedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	result, err := f.svc.Login(ctx, LoginParams{IP: "1.1.1.1", Username: "FO", Password: "pass123"})
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(ctx, f.worker.ID))
	_, err = f.svc.Authenticate(ctx, result.Token)
	assert.ErrorIs(t, err, token.ErrTokenInvalid)
}
