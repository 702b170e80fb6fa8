package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"go.uber.org/zap"
)

// ContactAcknowledgement is shown after a message is stored
const ContactAcknowledgement = "We will get back to you soon."

var ErrInvalidPhone = errors.New("phone number must contain digits only")

// ContactService defines the public contact form operation
type ContactService interface {
	Submit(ctx context.Context, name, email, desc, phone string) (*domain.Contact, error)
}

type contactService struct {
	contactRepo repository.ContactRepository
	logger      *zap.Logger
}

// NewContactService creates a new instance of ContactService
func NewContactService(contactRepo repository.ContactRepository, logger *zap.Logger) ContactService {
	return &contactService{
		contactRepo: contactRepo,
		logger:      logger,
	}
}

func (s *contactService) Submit(ctx context.Context, name, email, desc, phone string) (*domain.Contact, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	desc = strings.TrimSpace(desc)
	phone = strings.TrimSpace(phone)

	if name == "" || email == "" || desc == "" || phone == "" {
		return nil, ErrFieldsRequired
	}

	number, err := strconv.ParseInt(phone, 10, 64)
	if err != nil || number < 0 {
		return nil, ErrInvalidPhone
	}

	contact := &domain.Contact{
		Name:        name,
		Email:       email,
		Description: desc,
		PhoneNumber: number,
	}
	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	s.logger.Info("Contact message received", zap.Int64("contact_id", contact.ID))
	return contact, nil
}
