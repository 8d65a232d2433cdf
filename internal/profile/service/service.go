package service

import (
	"context"
	"log/slog"
	"time"

	"shadow/internal/docstore"
	"shadow/internal/profile/models"
	dErrors "shadow/pkg/domain-errors"
	audit "shadow/pkg/platform/audit"
	"shadow/pkg/requestcontext"
)

type Store interface {
	FindOne(ctx context.Context, wallet string) (*models.Profile, error)
	Save(ctx context.Context, p *models.Profile) error
	SearchPublic(ctx context.Context, query string, limit int) ([]*models.Profile, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service keeps one profile per wallet.
type Service struct {
	store        Store
	auditor      AuditPublisher
	logger       *slog.Logger
	storeTimeout time.Duration
}

func New(store Store, auditor AuditPublisher, logger *slog.Logger, storeTimeout time.Duration) *Service {
	return &Service{store: store, auditor: auditor, logger: logger, storeTimeout: storeTimeout}
}

func (s *Service) Get(ctx context.Context, wallet string) (*models.Profile, error) {
	ctx, cancel := docstore.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	p, err := s.store.FindOne(ctx, wallet)
	if err != nil {
		return nil, docstore.DomainError(err, "profile not found")
	}
	return p, nil
}

// Save creates or replaces the profile for wallet.
func (s *Service) Save(ctx context.Context, wallet, profileCID string, isPublic bool) (*models.Profile, error) {
	return s.write(ctx, wallet, func(existing *models.Profile) (*models.Profile, error) {
		return &models.Profile{WalletPubkey: wallet, ProfileCID: profileCID, IsPublic: isPublic}, nil
	})
}

// Update changes the given fields of an existing profile.
func (s *Service) Update(ctx context.Context, wallet string, profileCID *string, isPublic *bool) (*models.Profile, error) {
	return s.write(ctx, wallet, func(existing *models.Profile) (*models.Profile, error) {
		if existing == nil {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		next := *existing
		if profileCID != nil {
			next.ProfileCID = *profileCID
		}
		if isPublic != nil {
			next.IsPublic = *isPublic
		}
		return &next, nil
	})
}

func (s *Service) write(ctx context.Context, wallet string, build func(existing *models.Profile) (*models.Profile, error)) (*models.Profile, error) {
	existing, err := s.Get(ctx, wallet)
	if err != nil && !dErrors.Is(err, dErrors.CodeNotFound) {
		return nil, err
	}
	next, err := build(existing)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	next.CreatedAt, next.UpdatedAt = now, now
	if existing != nil {
		next.CreatedAt = existing.CreatedAt
	}

	writeCtx, cancel := docstore.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.Save(writeCtx, next); err != nil {
		s.logger.ErrorContext(ctx, "failed to save profile", "wallet", wallet, "error", err)
		return nil, docstore.DomainError(err, "profile not found")
	}

	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Event{
			Subject: wallet,
			Action:  string(audit.EventProfileSaved),
			Actor:   requestcontext.Wallet(ctx),
			Detail:  map[string]string{"profile_cid": next.ProfileCID},
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event", "action", audit.EventProfileSaved, "error", err)
		}
	}
	return next, nil
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]*models.Profile, error) {
	ctx, cancel := docstore.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	profiles, err := s.store.SearchPublic(ctx, query, limit)
	if err != nil {
		return nil, docstore.DomainError(err, "profile not found")
	}
	return profiles, nil
}
