package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"earnflow/internal/model"
	"earnflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidProfile        = errors.New("invalid profile")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
)

const (
	referralCodeLen   = 8
	maxNameLen        = 100
	maxPhoneLen       = 32
	maxPaymentMethods = 5
)

// ReferralCode is the code a user shares, the leading characters of the user id
func ReferralCode(userID string) string {
	if len(userID) > referralCodeLen {
		return userID[:referralCodeLen]
	}
	return userID
}

// ProfileService manages account settings and saved payout destinations.
// A profile is created from the session on first access.
type ProfileService struct {
	profiles repository.ProfileRepo
	locks    *userLocks
	log      *zap.Logger
	now      func() time.Time
}

// NewProfileService creates a new profile service
func NewProfileService(profiles repository.ProfileRepo, log *zap.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		locks:    newUserLocks(),
		log:      log,
		now:      time.Now,
	}
}

// Get returns the session user's profile, creating it when missing
func (s *ProfileService) Get(ctx context.Context, session model.Session) (*model.Profile, error) {
	p, err := s.profiles.Get(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if p != nil {
		return p, nil
	}
	return s.create(ctx, session)
}

func (s *ProfileService) create(ctx context.Context, session model.Session) (*model.Profile, error) {
	p := &model.Profile{
		UserID:         session.UserID,
		Name:           session.DisplayName,
		Email:          session.Email,
		Notifications:  model.NotificationSettings{Email: true},
		PaymentMethods: []model.PaymentMethod{},
		ReferralCode:   ReferralCode(session.UserID),
		CreatedAt:      s.now(),
	}

	err := s.profiles.Create(ctx, p)
	if errors.Is(err, repository.ErrDuplicate) {
		existing, getErr := s.profiles.Get(ctx, session.UserID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to get profile: %w", getErr)
		}
		if existing != nil {
			return existing, nil
		}
		// short code is taken by another user
		p.ReferralCode = session.UserID
		err = s.profiles.Create(ctx, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.log.Info("profile created", zap.String("user_id", p.UserID), zap.String("referral_code", p.ReferralCode))
	return p, nil
}

// Update applies the non-nil fields of upd
func (s *ProfileService) Update(ctx context.Context, session model.Session, upd model.ProfileUpdate) (*model.Profile, error) {
	if err := validateProfileUpdate(upd); err != nil {
		return nil, err
	}
	return s.mutate(ctx, session, func(p *model.Profile) error {
		if upd.Name != nil {
			p.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Email != nil {
			p.Email = strings.TrimSpace(*upd.Email)
		}
		if upd.Phone != nil {
			p.Phone = strings.TrimSpace(*upd.Phone)
		}
		if upd.Notifications != nil {
			p.Notifications = *upd.Notifications
		}
		return nil
	})
}

// AddPaymentMethod saves a payout destination. The first one becomes the default.
func (s *ProfileService) AddPaymentMethod(ctx context.Context, session model.Session, req model.PaymentMethodRequest) (*model.Profile, error) {
	switch req.Type {
	case model.MethodPayPal, model.MethodBank, model.MethodCrypto:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidMethod, req.Type)
	}
	details := strings.TrimSpace(req.Details)
	if details == "" {
		return nil, ErrMissingDetails
	}

	return s.mutate(ctx, session, func(p *model.Profile) error {
		if len(p.PaymentMethods) >= maxPaymentMethods {
			return fmt.Errorf("%w: at most %d payment methods", ErrInvalidProfile, maxPaymentMethods)
		}
		p.PaymentMethods = append(p.PaymentMethods, model.PaymentMethod{
			ID:        "pm_" + uuid.New().String(),
			Type:      req.Type,
			Details:   details,
			IsDefault: len(p.PaymentMethods) == 0,
		})
		return nil
	})
}

// SetDefaultPaymentMethod marks one saved method as the default
func (s *ProfileService) SetDefaultPaymentMethod(ctx context.Context, session model.Session, methodID string) (*model.Profile, error) {
	return s.mutate(ctx, session, func(p *model.Profile) error {
		if indexOfMethod(p.PaymentMethods, methodID) < 0 {
			return ErrPaymentMethodNotFound
		}
		for i := range p.PaymentMethods {
			p.PaymentMethods[i].IsDefault = p.PaymentMethods[i].ID == methodID
		}
		return nil
	})
}

// DeletePaymentMethod removes a saved method. Deleting the default promotes
// the first remaining one.
func (s *ProfileService) DeletePaymentMethod(ctx context.Context, session model.Session, methodID string) (*model.Profile, error) {
	return s.mutate(ctx, session, func(p *model.Profile) error {
		i := indexOfMethod(p.PaymentMethods, methodID)
		if i < 0 {
			return ErrPaymentMethodNotFound
		}
		wasDefault := p.PaymentMethods[i].IsDefault
		p.PaymentMethods = append(p.PaymentMethods[:i], p.PaymentMethods[i+1:]...)
		if wasDefault && len(p.PaymentMethods) > 0 {
			p.PaymentMethods[0].IsDefault = true
		}
		return nil
	})
}

// mutate serializes read-modify-write cycles per user
func (s *ProfileService) mutate(ctx context.Context, session model.Session, fn func(p *model.Profile) error) (*model.Profile, error) {
	lock := s.locks.get(session.UserID)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.Get(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.profiles.Replace(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return p, nil
}

func indexOfMethod(methods []model.PaymentMethod, id string) int {
	for i, m := range methods {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func validateProfileUpdate(upd model.ProfileUpdate) error {
	if upd.Name != nil && len(strings.TrimSpace(*upd.Name)) > maxNameLen {
		return fmt.Errorf("%w: name is longer than %d characters", ErrInvalidProfile, maxNameLen)
	}
	if upd.Email != nil {
		if email := strings.TrimSpace(*upd.Email); email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				return fmt.Errorf("%w: email address is not valid", ErrInvalidProfile)
			}
		}
	}
	if upd.Phone != nil && len(strings.TrimSpace(*upd.Phone)) > maxPhoneLen {
		return fmt.Errorf("%w: phone is longer than %d characters", ErrInvalidProfile, maxPhoneLen)
	}
	return nil
}
