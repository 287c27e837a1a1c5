// Package service holds the business rules between HTTP handlers and repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/marinaua13/social-media-api/internal/config"
	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenPair is the response body of a successful login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type TokenService struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	revoked    repository.TokenRepository
	users      repository.UserRepository
	now        func() time.Time
}

func NewTokenService(cfg *config.Config, revoked repository.TokenRepository, users repository.UserRepository) *TokenService {
	return &TokenService{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		revoked:    revoked,
		users:      users,
		now:        time.Now,
	}
}

// IssuePair signs a fresh access and refresh token for userID.
func (s *TokenService) IssuePair(userID uint) (*TokenPair, error) {
	access, err := s.sign(userID, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, err := s.sign(userID, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// VerifyAccessToken returns the user an unexpired access token was issued to.
// Tokens of deleted accounts are rejected.
func (s *TokenService) VerifyAccessToken(ctx context.Context, token string) (uint, error) {
	claims, err := s.parse(token, TokenTypeAccess)
	if err != nil {
		return 0, err
	}
	if err := s.requireAccount(ctx, claims.userID); err != nil {
		return 0, err
	}
	return claims.userID, nil
}

// requireAccount turns a missing user into Unauthorized. Lookup failures keep
// their own code.
func (s *TokenService) requireAccount(ctx context.Context, userID uint) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewUnauthorizedError("User not found")
		}
		return err
	}
	return nil
}

// Refresh exchanges a valid, unrevoked refresh token for a new access token.
func (s *TokenService) Refresh(ctx context.Context, refresh string) (string, error) {
	claims, err := s.parse(refresh, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.jti)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", models.NewUnauthorizedError("Token is blacklisted")
	}
	if err := s.requireAccount(ctx, claims.userID); err != nil {
		return "", err
	}

	access, err := s.sign(claims.userID, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return access, nil
}

// Revoke blacklists a refresh token owned by userID. A malformed, expired, or
// foreign token is a validation error.
func (s *TokenService) Revoke(ctx context.Context, userID uint, refresh string) error {
	claims, err := s.parse(refresh, TokenTypeRefresh)
	if err != nil || claims.userID != userID {
		return models.NewValidationError("Invalid or expired refresh token")
	}
	return s.revoked.Revoke(ctx, &models.RevokedToken{
		JTI:       claims.jti,
		UserID:    userID,
		ExpiresAt: claims.expiresAt,
	})
}

func (s *TokenService) sign(userID uint, tokenType string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": s.issuer,
		"aud": s.audience,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": newJTI(now),
		"typ": tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

type parsedClaims struct {
	userID    uint
	jti       string
	expiresAt time.Time
}

func (s *TokenService) parse(tokenString, wantType string) (*parsedClaims, error) {
	token, err := jwt.Parse(tokenString,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Token is invalid or expired")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}
	if typ, _ := claims["typ"].(string); typ != wantType {
		return nil, models.NewUnauthorizedError("Token has wrong type")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, models.NewUnauthorizedError("Invalid user ID in token")
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, models.NewUnauthorizedError("Token has no id")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, models.NewUnauthorizedError("Invalid expiration claim")
	}

	return &parsedClaims{userID: uint(userID), jti: jti, expiresAt: exp.Time}, nil
}

func newJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8])
}
