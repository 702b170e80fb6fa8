package session

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"storefront/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const resetPurpose = "password_reset"

type resetClaims struct {
	Purpose     string `json:"purpose"`
	Fingerprint string `json:"fp"`
	jwt.RegisteredClaims
}

// ResetTokens makes and checks password reset tokens. A token is bound to the
// password hash it was issued against, so it stops working once the password
// changes.
type ResetTokens struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewResetTokens creates a reset token generator
func NewResetTokens(secret string, expiry time.Duration) *ResetTokens {
	return &ResetTokens{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// Make issues a reset token for the user
func (r *ResetTokens) Make(user *domain.User) (string, error) {
	now := r.now()
	claims := &resetClaims{
		Purpose:     resetPurpose,
		Fingerprint: fingerprint(user),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// Check reports whether token is a valid, unexpired reset token for the user
func (r *ResetTokens) Check(user *domain.User, token string) bool {
	if user == nil || token == "" {
		return false
	}

	claims := &resetClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return r.secret, nil
	}, jwt.WithTimeFunc(r.now), jwt.WithSubject(user.ID.String()))
	if err != nil || !parsed.Valid {
		return false
	}

	return claims.Purpose == resetPurpose && claims.Fingerprint == fingerprint(user)
}

func fingerprint(user *domain.User) string {
	sum := sha256.Sum256([]byte(user.ID.String() + ":" + user.PasswordHash))
	return hex.EncodeToString(sum[:16])
}
