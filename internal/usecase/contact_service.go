package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

// ResolveContact finds or creates the tenant's contact for phone. Provider hints
// only fill fields that are still empty; a name equal to the phone counts as empty.
func (s *CRMService) ResolveContact(ctx context.Context, companyID, phone string, hint model.ContactHint) (*model.Contact, error) {
	ctx = scoped(ctx, companyID)
	log := logger.FromContext(ctx).With(zap.String("phone", phone))

	contact, err := s.contactRepo.FindByPhone(ctx, phone)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, handleRepositoryError(ctx, err, "FindContactByPhone", phone)
	}

	if contact == nil {
		name := hint.Name
		if name == "" {
			name = phone
		}
		candidate := model.Contact{
			ID:            uuid.NewString(),
			CompanyID:     companyID,
			Phone:         phone,
			Name:          name,
			ProfilePicURL: hint.ProfilePic,
		}
		contact, err = s.contactRepo.CreateIfAbsent(ctx, candidate)
		if err != nil {
			return nil, handleRepositoryError(ctx, err, "CreateContact", phone)
		}
		if contact.ID == candidate.ID {
			log.Info("Contact created", zap.String("contact_id", contact.ID))
			return contact, nil
		}
		log.Debug("Contact created concurrently by another delivery", zap.String("contact_id", contact.ID))
	}

	fields := contact.MissingFields(hint)
	if len(fields) == 0 {
		return contact, nil
	}

	updated, err := s.contactRepo.UpdateFields(ctx, contact.ID, fields)
	if err != nil {
		return nil, handleRepositoryError(ctx, err, "UpdateContactFields", contact.ID)
	}
	log.Debug("Contact fields filled from provider data", zap.Any("fields", fields))
	return updated, nil
}
