package service

import (
	"context"
	"log/slog"
	"time"

	"shadow/internal/content"
	"shadow/internal/docstore"
	"shadow/internal/site/models"
	dErrors "shadow/pkg/domain-errors"
	audit "shadow/pkg/platform/audit"
	"shadow/pkg/requestcontext"
)

const notFoundMsg = "site not found"

type Store interface {
	FindOne(ctx context.Context, program string) (*models.Site, error)
	Save(ctx context.Context, site *models.Site) error
	Search(ctx context.Context, query string, limit int) ([]*models.Site, error)
}

type ContentFetcher interface {
	Fetch(ctx context.Context, ref content.Ref) ([]byte, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store        Store
	fetcher      ContentFetcher
	auditor      AuditPublisher
	logger       *slog.Logger
	storeTimeout time.Duration
}

type Option func(*Service)

func WithContentFetcher(f ContentFetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.storeTimeout = d
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, program string) (*models.Site, error) {
	ctx, cancel := docstore.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	site, err := s.store.FindOne(ctx, program)
	if err != nil {
		return nil, docstore.DomainError(err, notFoundMsg)
	}
	return site, nil
}

// Register creates the site for program, or replaces it when owner already
// holds it. created reports whether the site is new.
func (s *Service) Register(ctx context.Context, site models.Site) (*models.Site, bool, error) {
	existing, err := s.Get(ctx, site.ProgramAddress)
	if err != nil && !dErrors.Is(err, dErrors.CodeNotFound) {
		return nil, false, err
	}
	if existing != nil && !existing.OwnedBy(site.OwnerPubkey) {
		return nil, false, models.ErrNotOwner
	}

	now := requestcontext.Now(ctx).UTC()
	site.CreatedAt, site.UpdatedAt = now, now
	if existing != nil {
		site.CreatedAt = existing.CreatedAt
	}
	if err := s.save(ctx, &site); err != nil {
		return nil, false, err
	}

	detail := map[string]string{"owner_pubkey": site.OwnerPubkey, "storage_cid": site.StorageRef}
	if existing == nil {
		detail["created"] = "true"
	}
	s.emit(ctx, audit.EventSiteRegistered, site.ProgramAddress, detail)
	return &site, existing == nil, nil
}

// Update applies changes to a site owned by caller.
func (s *Service) Update(ctx context.Context, program, caller string, changes models.Changes) (*models.Site, error) {
	existing, err := s.Get(ctx, program)
	if err != nil {
		return nil, err
	}
	if !existing.OwnedBy(caller) {
		return nil, models.ErrNotOwner
	}

	next := *existing
	changes.ApplyTo(&next)
	next.UpdatedAt = requestcontext.Now(ctx).UTC()
	if next.UpdatedAt.Before(existing.UpdatedAt) {
		next.UpdatedAt = existing.UpdatedAt
	}
	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}
	s.emit(ctx, audit.EventSiteUpdated, program, map[string]string{"storage_cid": next.StorageRef})
	return &next, nil
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]*models.Site, error) {
	ctx, cancel := docstore.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	sites, err := s.store.Search(ctx, query, limit)
	if err != nil {
		return nil, docstore.DomainError(err, notFoundMsg)
	}
	return sites, nil
}

// Content loads the site and reads its payload from the backend named by its
// storage reference.
func (s *Service) Content(ctx context.Context, program string) ([]byte, error) {
	site, err := s.Get(ctx, program)
	if err != nil {
		return nil, err
	}
	ref, err := content.ParseRef(site.StorageRef)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid storage reference")
	}
	if s.fetcher == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "content storage is not configured")
	}
	return s.fetcher.Fetch(ctx, ref)
}

func (s *Service) save(ctx context.Context, site *models.Site) error {
	writeCtx, cancel := docstore.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.Save(writeCtx, site); err != nil {
		s.logger.ErrorContext(ctx, "failed to save site", "program_address", site.ProgramAddress, "error", err)
		return docstore.DomainError(err, notFoundMsg)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, program string, detail map[string]string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Subject: program,
		Action:  string(action),
		Actor:   requestcontext.Wallet(ctx),
		Detail:  detail,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", action, "program_address", program, "error", err)
	}
}
