/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-02 10:03:11
 * @FilePath: \shift-handover-log\backend\internal\domain\user\entity.go
 * @LastEditTime: 2026-10-03 16:20:05
 */
package user

import "time"

// ProtectedUsername 是系统内置管理员账号，禁止删除。
const ProtectedUsername = "admin"

// User represents a shift worker or administrator able to sign in.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`                             // 自增主键
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`     // 登录名（唯一）
	Email        *string   `gorm:"size:255" json:"email"`                            // 接收账号信息的邮箱，可为空
	PasswordHash string    `gorm:"size:255;not null" json:"-"`                       // bcrypt 生成的密码哈希
	IsAdmin      bool      `gorm:"default:false;index" json:"is_admin"`              // 管理员标记，可进入后台
	DisplayOrder int       `gorm:"default:0;index" json:"display_order"`             // 后台列表中的排序位置
	CreatedAt    time.Time `json:"created_at"`                                       // 创建时间戳（gorm 自动维护）
	UpdatedAt    time.Time `json:"updated_at"`                                       // 更新时间戳（gorm 自动维护）
}

// EmailAddress 返回邮箱字符串，未设置时为空串。
func (u User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
