package service

import (
	"errors"
	"fmt"
	"time"

	"ash-trivia/internal/config"
	"ash-trivia/internal/dto"
	"ash-trivia/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	ErrInvalidJWTToken = errors.New("invalid jwt token")
	ErrInvalidRole     = errors.New("invalid role")
)

// AuthService issues and checks the bearer tokens the bot, moderators and
// the approver use against the API.
type AuthService interface {
	CreateToken(subject string, role dto.Role, ttl time.Duration) (string, time.Time, error)
	ValidateToken(tokenString string) (*dto.AuthClaims, error)
}

type authServiceImpl struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewAuthService(cfg config.AuthConfig) (AuthService, error) {
	if len(cfg.JWTSecret) < 16 {
		return nil, errors.New("auth.jwt_secret must be at least 16 bytes long")
	}
	return &authServiceImpl{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer, ttl: cfg.TokenTTL}, nil
}

// CreateToken signs a token for subject. A zero ttl uses the configured one.
func (s *authServiceImpl) CreateToken(subject string, role dto.Role, ttl time.Duration) (string, time.Time, error) {
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := dto.AuthClaims{
		UserID: subject,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *authServiceImpl) ValidateToken(tokenString string) (*dto.AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &dto.AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			logger.Get().Warn("JWT token expired", zap.Error(err))
		} else {
			logger.Get().Warn("JWT validation failed", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTToken, err)
	}

	claims, ok := token.Claims.(*dto.AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidJWTToken
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJWTToken, ErrInvalidRole)
	}
	return claims, nil
}
