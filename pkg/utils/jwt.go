package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"idea-incubator-backend/pkg/models"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrTokenExpired is returned for well-formed tokens past their expiry.
var ErrTokenExpired = errors.New("token expired")

// JWTService JWT服务
type JWTService struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService 创建JWT服务；TTL 为 0 时使用 15 分钟 / 7 天
func NewJWTService(secretKey string, accessTTL, refreshTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTService{
		secretKey:  []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the clock. Tests only.
func (j *JWTService) WithClock(now func() time.Time) *JWTService {
	j.now = now
	return j
}

// AccessTTL 访问令牌有效期
func (j *JWTService) AccessTTL() time.Duration {
	return j.accessTTL
}

func (j *JWTService) sign(user *models.User, tokenType string, ttl time.Duration) (string, int64, error) {
	now := j.now()
	expiry := now.Add(ttl)
	claims := &models.TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Type:   tokenType,
		Exp:    expiry.Unix(),
		Iat:    now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate %s token: %w", tokenType, err)
	}
	return token, expiry.Unix(), nil
}

// GenerateTokenPair 生成访问令牌和刷新令牌对
func (j *JWTService) GenerateTokenPair(user *models.User) (accessToken, refreshToken string, expiresIn int64, err error) {
	accessToken, expiresIn, err = j.sign(user, TokenTypeAccess, j.accessTTL)
	if err != nil {
		return "", "", 0, err
	}
	refreshToken, _, err = j.sign(user, TokenTypeRefresh, j.refreshTTL)
	if err != nil {
		return "", "", 0, err
	}
	return accessToken, refreshToken, expiresIn, nil
}

// GenerateAccessToken 生成访问令牌
func (j *JWTService) GenerateAccessToken(user *models.User) (string, int64, error) {
	return j.sign(user, TokenTypeAccess, j.accessTTL)
}

// ValidateToken 验证令牌
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ValidateAccessToken 验证访问令牌
func (j *JWTService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	return j.validateType(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken 验证刷新令牌
func (j *JWTService) ValidateRefreshToken(tokenString string) (*models.TokenClaims, error) {
	return j.validateType(tokenString, TokenTypeRefresh)
}

func (j *JWTService) validateType(tokenString, want string) (*models.TokenClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", want, claims.Type)
	}
	return claims, nil
}
