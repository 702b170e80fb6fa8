package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storefront/internal/session"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type userFixture struct {
	users    *mockUserRepository
	sessions *mockSessionManager
	mailer   *mockMailer
	service  UserService
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:    newMockUserRepository(),
		sessions: newMockSessionManager(),
		mailer:   &mockMailer{},
	}
	f.service = NewUserService(
		f.users,
		f.sessions,
		session.NewResetTokens("reset-secret", 72*time.Hour),
		f.mailer,
		zap.NewNop(),
	)
	return f
}

// bcrypt makes every run slow; fewer cases keep the suite quick
func slowProperties() *gopter.Properties {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 15
	return gopter.NewProperties(params)
}

// Feature: storefront, Property 1: Signup creates exactly one active account and a session
// Validates: Account flow, sign up
func TestProperty_SignupCreatesActiveAccount(t *testing.T) {
	properties := slowProperties()

	properties.Property("signup stores one active account keyed by email and logs it in", prop.ForAll(
		func(email string, password string) bool {
			f := newUserFixture()
			ctx := context.Background()

			user, sess, err := f.service.Signup(ctx, email, password, password)
			if err != nil {
				t.Logf("FAIL: Signup failed: %v", err)
				return false
			}

			if len(f.users.users) != 1 {
				t.Logf("FAIL: Expected one account, got %d", len(f.users.users))
				return false
			}

			if user.Username != email || user.Email != email || !user.IsActive || user.IsStaff {
				t.Logf("FAIL: Unexpected account fields: %+v", user)
				return false
			}

			if user.PasswordHash == password {
				t.Logf("FAIL: Password stored as plaintext")
				return false
			}
			if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
				t.Logf("FAIL: Password hash does not verify: %v", err)
				return false
			}

			if sess == nil || sess.Token == "" {
				t.Logf("FAIL: Signup did not start a session")
				return false
			}
			claims, err := f.sessions.Validate(ctx, sess.Token)
			if err != nil || claims.UserID != user.ID.String() {
				t.Logf("FAIL: Session does not belong to the new account")
				return false
			}

			// A second signup with the same email is rejected
			_, _, err = f.service.Signup(ctx, email, password, password)
			if !errors.Is(err, ErrEmailTaken) {
				t.Logf("FAIL: Expected ErrEmailTaken, got %v", err)
				return false
			}

			return len(f.users.users) == 1
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSignupValidation(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	_, _, err := f.service.Signup(ctx, "  ", "secret123", "secret123")
	assert.ErrorIs(t, err, ErrFieldsRequired)

	_, _, err = f.service.Signup(ctx, "a@b.com", "secret123", "secret124")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	user, _, err := f.service.Signup(ctx, " a@b.com ", " secret123 ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Username)

	assert.Empty(t, f.sessions.revoked)
}

// Feature: storefront, Property 2: Login resolves accounts by case-insensitive email
// Validates: Account flow, log in
func TestProperty_LoginByEmailIgnoresCase(t *testing.T) {
	properties := slowProperties()

	properties.Property("an account created as lower case logs in with an upper case email", prop.ForAll(
		func(email string, password string) bool {
			f := newUserFixture()
			ctx := context.Background()

			created, _, err := f.service.Signup(ctx, email, password, password)
			if err != nil {
				t.Logf("FAIL: Signup failed: %v", err)
				return false
			}

			user, sess, err := f.service.Login(ctx, strings.ToUpper(email), password)
			if err != nil {
				t.Logf("FAIL: Login with upper case email failed: %v", err)
				return false
			}
			if user.ID != created.ID || sess == nil {
				t.Logf("FAIL: Login resolved the wrong account")
				return false
			}

			_, _, err = f.service.Login(ctx, strings.ToUpper(email), password+"x")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Logf("FAIL: Expected ErrInvalidCredentials, got %v", err)
				return false
			}

			return true
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestLoginRejectsInactiveAndBlank(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	user, _, err := f.service.Signup(ctx, "shopper@example.com", "secret123", "secret123")
	require.NoError(t, err)

	_, _, err = f.service.Login(ctx, "", "secret123")
	assert.ErrorIs(t, err, ErrFieldsRequired)

	_, _, err = f.service.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user.IsActive = false
	_, _, err = f.service.Login(ctx, "shopper@example.com", "secret123")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	_, sess, err := f.service.Signup(ctx, "shopper@example.com", "secret123", "secret123")
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, sess.Token))
	_, err = f.sessions.Validate(ctx, sess.Token)
	assert.ErrorIs(t, err, session.ErrInvalidSession)

	assert.NoError(t, f.service.Logout(ctx, ""))
}

func TestRequestPasswordResetUnknownEmailLooksLikeSuccess(t *testing.T) {
	f := newUserFixture()

	err := f.service.RequestPasswordReset(context.Background(), "ghost@example.com", "https://shop.example.com")
	assert.NoError(t, err)
	assert.Empty(t, f.mailer.sent)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	user, _, err := f.service.Signup(ctx, "Shopper@Example.com", "secret123", "secret123")
	require.NoError(t, err)

	require.NoError(t, f.service.RequestPasswordReset(ctx, "shopper@example.com", "https://shop.example.com/"))
	require.Len(t, f.mailer.sent, 1)

	mail := f.mailer.sent[0]
	assert.Equal(t, ResetEmailSubject, mail.Subject)
	assert.Equal(t, "shopper@example.com", mail.To)

	prefix := "https://shop.example.com/auth/set-new-password/" + EncodeUID(user.ID) + "/"
	require.Contains(t, mail.Body, prefix)

	start := strings.Index(mail.Body, prefix) + len(prefix)
	token := strings.TrimSuffix(strings.Fields(mail.Body[start:])[0], "/")
	uid := EncodeUID(user.ID)

	checked, err := f.service.CheckResetLink(ctx, uid, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, checked.ID)

	assert.ErrorIs(t, f.service.SetNewPassword(ctx, uid, token, "short", "short"), ErrPasswordTooShort)
	assert.ErrorIs(t, f.service.SetNewPassword(ctx, uid, token, "newsecret1", "newsecret2"), ErrPasswordMismatch)
	require.NoError(t, f.service.SetNewPassword(ctx, uid, token, "newsecret1", "newsecret1"))

	// The token is bound to the old password hash
	_, err = f.service.CheckResetLink(ctx, uid, token)
	assert.ErrorIs(t, err, ErrInvalidResetLink)

	_, _, err = f.service.Login(ctx, "Shopper@Example.com", "newsecret1")
	assert.NoError(t, err)
}

func TestRequestPasswordResetMailFailure(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	_, _, err := f.service.Signup(ctx, "shopper@example.com", "secret123", "secret123")
	require.NoError(t, err)

	f.mailer.err = errors.New("connection refused")
	err = f.service.RequestPasswordReset(ctx, "shopper@example.com", "http://localhost:8080")
	assert.ErrorIs(t, err, ErrEmailService)
}

func TestRequestPasswordResetMisconfiguredSender(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	_, _, err := f.service.Signup(ctx, "shopper@example.com", "secret123", "secret123")
	require.NoError(t, err)

	f.mailer.notReady = errors.New("invalid sender address")
	assert.ErrorIs(t, f.service.RequestPasswordReset(ctx, "shopper@example.com", "http://localhost:8080"), ErrEmailService)
	assert.ErrorIs(t, f.service.RequestPasswordReset(ctx, "ghost@example.com", "http://localhost:8080"), ErrEmailService)
	assert.Empty(t, f.mailer.sent)
}

func TestCheckResetLinkRejectsGarbage(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	_, err := f.service.CheckResetLink(ctx, "%%%", "token")
	assert.ErrorIs(t, err, ErrInvalidResetLink)

	_, err = f.service.CheckResetLink(ctx, EncodeUID(uuid.New()), "token")
	assert.ErrorIs(t, err, ErrInvalidResetLink)
}

func TestEncodeUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	decoded, err := DecodeUID(EncodeUID(id))
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}

func TestEnsureAdmin(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	created, err := f.service.EnsureAdmin(ctx, "admin", "admin@example.com", "adminpass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.service.EnsureAdmin(ctx, "admin", "owner@example.com", "otherpass")
	require.NoError(t, err)
	assert.False(t, created)

	admin := f.users.users["admin"]
	assert.True(t, admin.IsStaff)
	assert.Equal(t, "owner@example.com", admin.Email)

	user, _, err := f.service.Login(ctx, "admin", "otherpass")
	require.NoError(t, err)
	assert.True(t, user.IsStaff)

	_, err = f.service.EnsureAdmin(ctx, "", "x@example.com", "pass")
	assert.ErrorIs(t, err, ErrFieldsRequired)
}
