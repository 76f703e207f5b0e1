/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-05 08:37:41
 * @FilePath: \shift-handover-log\backend\internal\service\user\service.go
 * @LastEditTime: 2026-10-09 10:52:03
 */
package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	domain "shift-handover-log/backend/internal/domain/user"
	"shift-handover-log/backend/internal/infra/security"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxUsernameLength = 50

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameTooLong  = fmt.Errorf("username must be %d characters or less", maxUsernameLength)
	ErrUsernameTaken    = errors.New("username already exists")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrEmailMissing     = errors.New("user has no email address")
	ErrCannotDeleteSelf = errors.New("cannot delete your own account")
	ErrProtectedUser    = errors.New("the built-in admin account cannot be deleted or demoted")
	ErrInvalidDirection = errors.New("direction must be up or down")
)

// Direction 表示排序移动方向。
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Store 是用户管理所需的仓储能力，由 repository.UserRepository 实现。
type Store interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ListOrdered(ctx context.Context) ([]domain.User, error)
	MaxDisplayOrder(ctx context.Context) (int, error)
	Update(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, userID uint, hash string) error
	Delete(ctx context.Context, id uint) error
	SwapDisplayOrder(ctx context.Context, a, b *domain.User) error
	CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error)
}

// Notifier 把账号信息发给用户。
type Notifier interface {
	Notify(ctx context.Context, u domain.User, message string) error
}

// LoggingNotifier 只把通知写入日志，不真正投递。
type LoggingNotifier struct {
	Logger *zap.SugaredLogger
}

// Notify 实现 Notifier。密码不会写入日志。
func (n LoggingNotifier) Notify(_ context.Context, u domain.User, _ string) error {
	if n.Logger != nil {
		n.Logger.Infow("credentials notification queued", "user_id", u.ID, "username", u.Username, "email", u.EmailAddress())
	}
	return nil
}

// CreateInput 描述新建用户的请求。
type CreateInput struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
	IsAdmin  bool    `json:"is_admin"`
}

// UpdateInput 描述部分更新，空指针表示不修改。
type UpdateInput struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Email    *string `json:"email"`
	IsAdmin  *bool   `json:"is_admin"`
}

// Service 负责后台的用户管理。
type Service struct {
	users    Store
	notifier Notifier
	logger   *zap.SugaredLogger
}

// NewService 构造用户服务，notifier 为空时使用日志实现。
func NewService(users Store, notifier Notifier, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	logger = logger.With("component", "user.service")
	if notifier == nil {
		notifier = LoggingNotifier{Logger: logger}
	}
	return &Service{users: users, notifier: notifier, logger: logger}
}

// List 按展示顺序返回所有用户。
func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Create 新建用户并排在列表末尾。
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.User, error) {
	username, err := normaliseUsername(in.Username)
	if err != nil {
		return nil, err
	}
	if err := security.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	email, err := normaliseEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUsernameFree(ctx, username, 0); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	maxOrder, err := s.users.MaxDisplayOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("load display order: %w", err)
	}

	u := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin,
		DisplayOrder: maxOrder + 1,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Infow("user created", "user_id", u.ID, "username", u.Username, "is_admin", u.IsAdmin)
	return u, nil
}

// Update 修改用户名、邮箱、密码或管理员标记。
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*domain.User, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username, err := normaliseUsername(*in.Username)
		if err != nil {
			return nil, err
		}
		if u.Username == domain.ProtectedUsername && username != u.Username {
			return nil, ErrProtectedUser
		}
		if err := s.ensureUsernameFree(ctx, username, u.ID); err != nil {
			return nil, err
		}
		u.Username = username
	}
	if in.Email != nil {
		email, err := normaliseEmail(in.Email)
		if err != nil {
			return nil, err
		}
		u.Email = email
	}
	if in.IsAdmin != nil {
		if u.Username == domain.ProtectedUsername && !*in.IsAdmin {
			return nil, ErrProtectedUser
		}
		u.IsAdmin = *in.IsAdmin
	}
	if in.Password != nil && *in.Password != "" {
		if err := security.ValidatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := security.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.logger.Infow("user updated", "user_id", u.ID)
	return u, nil
}

// Delete 删除用户，不能删除自己或内置管理员。
func (s *Service) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}
	u, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if u.Username == domain.ProtectedUsername {
		return ErrProtectedUser
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Infow("user deleted", "user_id", id, "actor_id", actorID)
	return nil
}

// Move 与相邻用户交换排序位置，已在边界时不做修改。
func (s *Service) Move(ctx context.Context, id uint, direction Direction) ([]domain.User, error) {
	if direction != DirectionUp && direction != DirectionDown {
		return nil, ErrInvalidDirection
	}
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range users {
		if users[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrUserNotFound
	}

	neighbour := idx - 1
	if direction == DirectionDown {
		neighbour = idx + 1
	}
	if neighbour < 0 || neighbour >= len(users) {
		return users, nil
	}

	a, b := &users[idx], &users[neighbour]
	// 历史数据可能出现相同排序值，交换前先拉开。
	if a.DisplayOrder == b.DisplayOrder {
		if direction == DirectionUp {
			a.DisplayOrder++
		} else {
			b.DisplayOrder++
		}
	}
	if err := s.users.SwapDisplayOrder(ctx, a, b); err != nil {
		return nil, fmt.Errorf("swap display order: %w", err)
	}
	return s.List(ctx)
}

// SendPassword 重置密码并通过 Notifier 发送给用户。
func (s *Service) SendPassword(ctx context.Context, id uint, password string) error {
	if err := security.ValidatePassword(password); err != nil {
		return err
	}
	u, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if u.EmailAddress() == "" {
		return ErrEmailMissing
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	message := fmt.Sprintf("Your shift handover log account\nUsername: %s\nPassword: %s\n", u.Username, password)
	if err := s.notifier.Notify(ctx, *u, message); err != nil {
		return fmt.Errorf("notify user: %w", err)
	}
	return nil
}

// SeedDefaults 首次启动时创建内置的 admin 与 FO 账号，已存在的账号保持不变。
func (s *Service) SeedDefaults(ctx context.Context, password string) (int, error) {
	hash, err := security.HashPassword(password)
	if err != nil {
		return 0, err
	}
	defaults := []domain.User{
		{Username: domain.ProtectedUsername, PasswordHash: hash, IsAdmin: true, DisplayOrder: 1},
		{Username: "FO", PasswordHash: hash, DisplayOrder: 2},
	}

	created := 0
	for i := range defaults {
		ok, err := s.users.CreateIfAbsent(ctx, &defaults[i])
		if err != nil {
			return created, fmt.Errorf("seed user %s: %w", defaults[i].Username, err)
		}
		if ok {
			created++
			s.logger.Infow("default user seeded", "username", defaults[i].Username)
		}
	}
	return created, nil
}

func (s *Service) find(ctx context.Context, id uint) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *Service) ensureUsernameFree(ctx context.Context, username string, selfID uint) error {
	existing, err := s.users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check username: %w", err)
	case existing.ID != selfID:
		return ErrUsernameTaken
	}
	return nil
}

func normaliseUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	if username == "" {
		return "", ErrUsernameRequired
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return "", ErrUsernameTooLong
	}
	return username, nil
}

func normaliseEmail(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	email := strings.TrimSpace(*raw)
	if email == "" {
		return nil, nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}
	return &email, nil
}
