/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-03 11:20:09
 * @FilePath: \shift-handover-log\backend\internal\repository\user_repository.go
 * @LastEditTime: 2026-10-05 19:44:51
 */
package repository

import (
	"context"

	"shift-handover-log/backend/internal/domain/user"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 封装用户相关的数据访问方法，基于 GORM 实现。
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储实例，接收共享的 *gorm.DB。
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 写入用户记录。
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// FindByID 根据主键查找用户。
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByUsername 通过用户名查找用户。
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListOrdered 按后台展示顺序返回所有用户。
func (r *UserRepository) ListOrdered(ctx context.Context) ([]user.User, error) {
	var users []user.User
	if err := r.db.WithContext(ctx).Order("display_order ASC, id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// MaxDisplayOrder 返回当前最大的排序值，没有用户时为 0。
func (r *UserRepository) MaxDisplayOrder(ctx context.Context) (int, error) {
	var max *int
	if err := r.db.WithContext(ctx).Model(&user.User{}).Select("MAX(display_order)").Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// Update 按主键更新用户信息。
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

// UpdatePassword 只更新密码哈希。
func (r *UserRepository) UpdatePassword(ctx context.Context, userID uint, hash string) error {
	result := r.db.WithContext(ctx).
		Model(&user.User{}).
		Where("id = ?", userID).
		Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除用户。
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&user.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SwapDisplayOrder 在事务中交换两个用户的排序值。
func (r *UserRepository) SwapDisplayOrder(ctx context.Context, a, b *user.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user.User{}).Where("id = ?", a.ID).Update("display_order", b.DisplayOrder).Error; err != nil {
			return err
		}
		if err := tx.Model(&user.User{}).Where("id = ?", b.ID).Update("display_order", a.DisplayOrder).Error; err != nil {
			return err
		}
		a.DisplayOrder, b.DisplayOrder = b.DisplayOrder, a.DisplayOrder
		return nil
	})
}

// CreateIfAbsent 用户名不存在时写入，已存在时保持原样；返回是否新建。
func (r *UserRepository) CreateIfAbsent(ctx context.Context, u *user.User) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(u)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
