/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-03 09:15:27
 * @FilePath: \shift-handover-log\backend\internal\infra\token\jwt_manager.go
 * @LastEditTime: 2026-10-06 17:02:48
 */
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	claimTokenType = "type"
	claimTokenID   = "jti"

	// TypeAdmin 后台登录签发的令牌。
	TypeAdmin = "admin"
	// TypeUser 主页登录签发的令牌。
	TypeUser = "user"
)

var (
	// ErrTokenExpired 令牌已过期。
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid 签名、格式或声明不合法。
	ErrTokenInvalid = errors.New("token invalid")
)

// Subject 描述签发令牌所需的用户信息。
type Subject struct {
	UserID   uint
	Username string
	IsAdmin  bool
}

// Claims 是解析后的令牌内容。
type Claims struct {
	UserID    uint
	Username  string
	IsAdmin   bool
	Type      string
	TokenID   string
	ExpiresAt *time.Time
}

// Issued 是一次签发的结果，ExpiresAt 为空表示永不过期。
type Issued struct {
	Token     string
	TokenID   string
	ExpiresAt *time.Time
}

// JWTManager 基于对称密钥签发和校验 HS256 令牌。
type JWTManager struct {
	secret []byte
	now    func() time.Time
}

// NewJWTManager 创建 JWT 管理器。
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{secret: []byte(secret), now: time.Now}
}

// WithClock 替换时间源，便于测试过期逻辑。
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

// Issue 为用户签发令牌；ttl <= 0 时不写 exp，对应后台关闭了登录过期。
func (m *JWTManager) Issue(subject Subject, tokenType string, ttl time.Duration) (Issued, error) {
	tokenID := uuid.NewString()
	now := m.now()

	// 这里使用 MapClaims，方便后续扩展自定义字段。
	claims := jwt.MapClaims{
		"sub":          strconv.FormatUint(uint64(subject.UserID), 10),
		"username":     subject.Username,
		"is_admin":     subject.IsAdmin,
		"iat":          now.Unix(),
		claimTokenType: tokenType,
		claimTokenID:   tokenID,
	}

	var expiresAt *time.Time
	if ttl > 0 {
		exp := now.Add(ttl)
		expiresAt = &exp
		claims["exp"] = exp.Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	return Issued{Token: signed, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

// Parse 校验签名并解析声明。ignoreExpiry 为 true 时跳过 exp 校验，兼容关闭过期前签发的旧令牌。
func (m *JWTManager) Parse(raw string, ignoreExpiry bool) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if ignoreExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	mapClaims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, mapClaims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return Claims{}, ErrTokenInvalid
	}

	userID, err := parseSubject(mapClaims["sub"])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims := Claims{UserID: userID}
	claims.Username, _ = mapClaims["username"].(string)
	claims.IsAdmin, _ = mapClaims["is_admin"].(bool)
	claims.Type, _ = mapClaims[claimTokenType].(string)
	claims.TokenID, _ = mapClaims[claimTokenID].(string)
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		claims.ExpiresAt = &t
	}
	if claims.Username == "" {
		return Claims{}, fmt.Errorf("%w: missing username", ErrTokenInvalid)
	}
	return claims, nil
}

func parseSubject(raw any) (uint, error) {
	var subRaw string
	switch v := raw.(type) {
	case string:
		subRaw = v
	case float64:
		if v < 0 {
			return 0, errors.New("invalid subject")
		}
		subRaw = fmt.Sprintf("%.0f", v)
	case json.Number:
		subRaw = v.String()
	default:
		return 0, errors.New("missing subject")
	}

	id64, err := strconv.ParseUint(subRaw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse subject: %w", err)
	}
	return uint(id64), nil
}
