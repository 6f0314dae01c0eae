package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/thptprep/engprep-backend/internal/client"
	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/model"
)

// Common auth errors.
var (
	ErrCodeExchange = errors.New("authorization code exchange failed")
	ErrNoSession    = errors.New("no active session")
)

// Claims extends JWT standard claims with app-specific fields. Subject
// carries the provider's stable user id; SessionID keys the per-tab
// attempt state.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
}

// AuthService completes the hosted OAuth login and manages the
// self-issued JWT plus the Redis session registry.
type AuthService struct {
	identity *client.IdentityClient
	cfg      *config.Config
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(identity *client.IdentityClient, cfg *config.Config, rdb *redis.Client, log zerolog.Logger) *AuthService {
	return &AuthService{
		identity: identity,
		cfg:      cfg,
		rdb:      rdb,
		log:      log.With().Str("component", "auth_service").Logger(),
	}
}

// Login redeems an authorization code, fetches the profile and issues
// an app token. Each login opens a fresh session id.
func (s *AuthService) Login(ctx context.Context, code, redirectURI string) (string, *model.UserInfo, error) {
	tokens, err := s.identity.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		s.log.Warn().Err(err).Msg("code exchange failed")
		return "", nil, ErrCodeExchange
	}
	info, err := s.identity.UserInfo(ctx, tokens.AccessToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("userinfo fetch failed")
		return "", nil, ErrCodeExchange
	}

	sid := uuid.New().String()
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   info.Sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		SessionID: sid,
		Username:  info.Username,
		Email:     info.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	// Register the session with the same expiry as the JWT so logout
	// can invalidate tokens early.
	if err := s.rdb.Set(ctx, config.CacheKey.UserSessionKey(sid), info.Sub, s.cfg.JWTExpiry).Err(); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}

	s.log.Info().Str("user", info.Sub).Msg("login completed")
	return signed, info, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateSession checks the session id is still registered.
func (s *AuthService) ValidateSession(ctx context.Context, sid string) error {
	_, err := s.rdb.Get(ctx, config.CacheKey.UserSessionKey(sid)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNoSession
		}
		return fmt.Errorf("check session: %w", err)
	}
	return nil
}

// Logout removes the session, invalidating outstanding tokens for it.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, config.CacheKey.UserSessionKey(sid)).Err()
}
