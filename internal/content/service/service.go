package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"shadow/internal/content"
	dErrors "shadow/pkg/domain-errors"
	audit "shadow/pkg/platform/audit"
	"shadow/pkg/platform/sentinel"
	"shadow/pkg/requestcontext"
)

// Backend is one content store. Put returns the backend-specific id.
type Backend interface {
	Put(ctx context.Context, data []byte, name string) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	backends map[content.Scheme]Backend
	auditor  AuditPublisher
	logger   *slog.Logger
}

type Option func(*Service)

func WithBackend(scheme content.Scheme, b Backend) Option {
	return func(s *Service) {
		s.backends[scheme] = b
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

func New(opts ...Option) *Service {
	s := &Service{
		backends: make(map[content.Scheme]Backend),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether a backend is registered for scheme.
func (s *Service) Enabled(scheme content.Scheme) bool {
	_, ok := s.backends[scheme]
	return ok
}

// Store writes data to the backend for scheme and returns its reference.
func (s *Service) Store(ctx context.Context, scheme content.Scheme, data []byte, name string) (content.Ref, error) {
	if len(data) == 0 {
		return content.Ref{}, dErrors.New(dErrors.CodeValidation, "upload body is empty")
	}
	if len(data) > content.MaxObjectBytes {
		return content.Ref{}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("upload exceeds %d bytes", content.MaxObjectBytes))
	}
	b, err := s.backend(scheme)
	if err != nil {
		return content.Ref{}, err
	}

	id, err := b.Put(ctx, data, name)
	if err != nil {
		s.logger.ErrorContext(ctx, "content upload failed", "backend", scheme, "error", err)
		return content.Ref{}, translate(err)
	}
	ref := content.Ref{Scheme: scheme, ID: id}
	s.logger.InfoContext(ctx, "content stored", "ref", ref.String(), "bytes", len(data))

	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Event{
			Subject: ref.String(),
			Action:  string(audit.EventContentStored),
			Actor:   requestcontext.Wallet(ctx),
			Detail:  map[string]string{"name": name, "bytes": strconv.Itoa(len(data))},
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event", "action", audit.EventContentStored, "error", err)
		}
	}
	return ref, nil
}

func (s *Service) Fetch(ctx context.Context, ref content.Ref) ([]byte, error) {
	b, err := s.backend(ref.Scheme)
	if err != nil {
		return nil, err
	}
	data, err := b.Get(ctx, ref.ID)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

func (s *Service) backend(scheme content.Scheme) (Backend, error) {
	b, ok := s.backends[scheme]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnavailable, string(scheme)+" storage is not configured")
	}
	return b, nil
}

func translate(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "content not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "content backend unavailable")
	}
}
