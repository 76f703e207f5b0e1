/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-04 20:11:36
 * @FilePath: \shift-handover-log\backend\internal\infra\security\password.go
 * @LastEditTime: 2026-10-04 20:11:36
 */
package security

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength 密码最少字符数。
const MinPasswordLength = 6

// ErrPasswordTooShort 表示密码长度不足。
var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// ValidatePassword 校验明文密码长度，首尾空白不计入。
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(strings.TrimSpace(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// HashPassword 使用 bcrypt 对明文密码加盐哈希。
func HashPassword(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

// CheckPassword 比较明文与哈希，不匹配时返回 false 且 err 为空。
func CheckPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
