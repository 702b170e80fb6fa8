// Package session issues signed session tokens and tracks them in Redis so a
// logout revokes the token before it expires.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

const keyPrefix = "session:"

// Claims are carried in the session cookie
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SessionID returns the registry id of the session
func (c *Claims) SessionID() string {
	return c.ID
}

// Manager issues, validates and revokes sessions
type Manager interface {
	Issue(ctx context.Context, user *domain.User) (token string, expiresAt time.Time, err error)
	Validate(ctx context.Context, token string) (*Claims, error)
	Revoke(ctx context.Context, token string) error
	TTL() time.Duration
}

type manager struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a Manager backed by the given Redis client
func NewManager(client *redis.Client, secret string, ttl time.Duration) Manager {
	return &manager{
		client: client,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *manager) TTL() time.Duration {
	return m.ttl
}

func (m *manager) Issue(ctx context.Context, user *domain.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	sid := uuid.NewString()

	claims := &Claims{
		UserID: user.ID.String(),
		Role:   user.Role(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}

	if err := m.client.Set(ctx, keyPrefix+sid, claims.UserID, m.ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return token, expiresAt, nil
}

func (m *manager) Validate(ctx context.Context, token string) (*Claims, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, err
	}

	owner, err := m.client.Get(ctx, keyPrefix+claims.ID).Result()
	if err == redis.Nil {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if owner != claims.UserID {
		return nil, ErrInvalidSession
	}

	return claims, nil
}

// Revoke removes the session from the registry. Tokens that no longer parse
// are already unusable and are ignored.
func (m *manager) Revoke(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}

	if err := m.client.Del(ctx, keyPrefix+claims.ID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (m *manager) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.ID == "" || claims.UserID == "" {
		return nil, ErrInvalidSession
	}

	return claims, nil
}
