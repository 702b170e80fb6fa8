package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/mailer"
	"storefront/internal/repository"
	"storefront/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// MinPasswordLength applies to passwords chosen through the reset flow
	MinPasswordLength = 8

	ResetEmailSubject = "Natural Nikhaar - Reset Your Password"
)

var (
	ErrFieldsRequired     = errors.New("please fill in all fields")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account inactive")
	ErrInvalidResetLink   = errors.New("invalid or expired link")
	ErrEmailService       = errors.New("email service error, please try later")
)

// Session is an issued login session
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// UserService defines the interface for account business logic
type UserService interface {
	Signup(ctx context.Context, email, password, confirm string) (*domain.User, *Session, error)
	Login(ctx context.Context, identifier, password string) (*domain.User, *Session, error)
	Logout(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email, baseURL string) error
	CheckResetLink(ctx context.Context, uidb64, token string) (*domain.User, error)
	SetNewPassword(ctx context.Context, uidb64, token, password, confirm string) error
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	EnsureAdmin(ctx context.Context, username, email, password string) (created bool, err error)
}

type userService struct {
	userRepo    repository.UserRepository
	sessions    session.Manager
	resetTokens *session.ResetTokens
	mailer      mailer.Mailer
	logger      *zap.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	sessions session.Manager,
	resetTokens *session.ResetTokens,
	mailer mailer.Mailer,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepo:    userRepo,
		sessions:    sessions,
		resetTokens: resetTokens,
		mailer:      mailer,
		logger:      logger,
	}
}

// Signup creates an active account whose username is the email address and
// logs it in
func (s *userService) Signup(ctx context.Context, email, password, confirm string) (*domain.User, *Session, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	confirm = strings.TrimSpace(confirm)

	if email == "" || password == "" || confirm == "" {
		return nil, nil, ErrFieldsRequired
	}
	if password != confirm {
		return nil, nil, ErrPasswordMismatch
	}

	if _, err := s.userRepo.FindByUsername(ctx, email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     email,
		Email:        email,
		PasswordHash: hashedPassword,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	sess, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, sess, nil
}

// Login authenticates by username first, then by case-insensitive email when
// the identifier looks like an address
func (s *userService) Login(ctx context.Context, identifier, password string) (*domain.User, *Session, error) {
	identifier = strings.TrimSpace(identifier)
	password = strings.TrimSpace(password)

	if identifier == "" || password == "" {
		return nil, nil, ErrFieldsRequired
	}

	user, err := s.authenticate(ctx, identifier, password)
	if err != nil {
		return nil, nil, err
	}

	if user == nil && strings.Contains(identifier, "@") {
		byEmail, err := s.userRepo.FindByEmailFold(ctx, identifier)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if byEmail != nil {
			user, err = s.authenticate(ctx, byEmail.Username, password)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrAccountInactive
	}

	sess, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, sess, nil
}

// Logout revokes the session. An unknown or malformed token is not an error.
func (s *userService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RequestPasswordReset mails a reset link when an account with the email
// exists. The outcome for unknown addresses is indistinguishable from success.
func (s *userService) RequestPasswordReset(ctx context.Context, email, baseURL string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrFieldsRequired
	}

	// Checked before the lookup so known and unknown addresses fail alike
	if err := s.mailer.Ready(); err != nil {
		s.logger.Error("Password reset email cannot be sent", zap.Error(err))
		return ErrEmailService
	}

	user, err := s.userRepo.FindByEmailFold(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to find user by email: %w", err)
	}

	token, err := s.resetTokens.Make(user)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	link := ResetLink(baseURL, user.ID, token)
	body := "Hello,\n\nWe received a request to reset the password for your account.\n\n" +
		"Open the link below to choose a new password:\n" + link + "\n\n" +
		"If you did not request this, you can ignore this email.\n"

	if err := s.mailer.Send(ctx, email, ResetEmailSubject, body); err != nil {
		s.logger.Error("Failed to send password reset email",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return ErrEmailService
	}

	return nil
}

// CheckResetLink resolves the account of a reset link and validates its token
func (s *userService) CheckResetLink(ctx context.Context, uidb64, token string) (*domain.User, error) {
	userID, err := DecodeUID(uidb64)
	if err != nil {
		return nil, ErrInvalidResetLink
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidResetLink
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.resetTokens.Check(user, token) {
		return nil, ErrInvalidResetLink
	}

	return user, nil
}

// SetNewPassword overwrites the password of the link's account. The old token
// stops validating once the hash changes.
func (s *userService) SetNewPassword(ctx context.Context, uidb64, token, password, confirm string) error {
	user, err := s.CheckResetLink(ctx, uidb64, token)
	if err != nil {
		return err
	}

	password = strings.TrimSpace(password)
	confirm = strings.TrimSpace(confirm)

	if password == "" || confirm == "" {
		return ErrFieldsRequired
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates or promotes the bootstrap staff account
func (s *userService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, ErrFieldsRequired
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.userRepo.UpsertStaff(ctx, &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to ensure admin: %w", err)
	}

	return created, nil
}

// authenticate returns the user when the password matches, nil otherwise
func (s *userService) authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return nil, nil
	}

	return user, nil
}

func (s *userService) issue(ctx context.Context, user *domain.User) (*Session, error) {
	token, expiresAt, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// hashPassword hashes a password using bcrypt with cost factor 10
func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// verifyPassword verifies a password against a bcrypt hash
func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// EncodeUID encodes an account id for use in a reset link
func EncodeUID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

// DecodeUID reverses EncodeUID
func DecodeUID(uidb64 string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(uidb64, "="))
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(string(raw))
}

// ResetLink builds the absolute set-new-password URL
func ResetLink(baseURL string, userID uuid.UUID, token string) string {
	return strings.TrimRight(baseURL, "/") + "/auth/set-new-password/" + EncodeUID(userID) + "/" + token + "/"
}
