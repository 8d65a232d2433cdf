package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shadow/internal/naming/metrics"
	"shadow/internal/naming/models"
	dErrors "shadow/pkg/domain-errors"
	audit "shadow/pkg/platform/audit"
	"shadow/pkg/platform/sentinel"
	"shadow/pkg/requestcontext"
)

// Store is the persistence the authority mediates. Absent records are
// reported with an error wrapping sentinel.ErrNotFound.
type Store interface {
	FindOne(ctx context.Context, domain string) (*models.NameRecord, error)
	Save(ctx context.Context, change models.Change) error
	FindByProgram(ctx context.Context, program string) (*models.NameRecord, error)
	ListByOwner(ctx context.Context, owner string) ([]*models.NameRecord, error)
	Search(ctx context.Context, query string, limit int) ([]*models.NameRecord, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

// Authority applies domain transitions and serves name lookups. It holds no
// locks across store calls; concurrent writes to one domain are last-write-wins
// at the store.
type Authority struct {
	store        Store
	auditor      AuditPublisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	storeTimeout time.Duration
}

type Option func(*Authority)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authority) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authority) {
		a.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(a *Authority) {
		a.auditor = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(a *Authority) {
		a.tracer = t
	}
}

// WithStoreTimeout bounds every store round trip. Zero disables the bound.
func WithStoreTimeout(d time.Duration) Option {
	return func(a *Authority) {
		a.storeTimeout = d
	}
}

func New(store Store, opts ...Option) (*Authority, error) {
	if store == nil {
		return nil, errors.New("naming store is required")
	}
	a := &Authority{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("shadow/naming"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Register creates the domain or overwrites its owner and program. Either way
// the record ends up unverified. The stored record is returned; if it cannot
// be read back, the record as written is returned instead.
func (a *Authority) Register(ctx context.Context, domain, owner, program string, expiresAt *time.Time) (*models.NameRecord, error) {
	t := models.Register(domain, owner, program)
	t.ExpiresAt = expiresAt
	ctx, span := a.startSpan(ctx, "naming.register", domain)
	defer span.End()

	written, _, err := a.transition(ctx, t)
	if err != nil {
		return nil, spanError(span, err)
	}
	// Reread so a racing insert's created_at wins over the local guess.
	stored, err := a.find(ctx, "register_reread", domain)
	if err != nil {
		a.logger.WarnContext(ctx, "register reread failed, returning written record",
			"domain", domain,
			"error", err,
		)
		return written, nil
	}
	return stored, nil
}

// Verify records that the owner's program was checked. Fails with not_found
// when the domain has no record.
func (a *Authority) Verify(ctx context.Context, domain string) (*models.NameRecord, error) {
	ctx, span := a.startSpan(ctx, "naming.verify", domain)
	defer span.End()

	next, _, err := a.transition(ctx, models.Verify(domain))
	if err != nil {
		return nil, spanError(span, err)
	}
	return next, nil
}

// Transfer hands the domain to newOwner and clears verification.
func (a *Authority) Transfer(ctx context.Context, domain, newOwner string) (*models.NameRecord, error) {
	ctx, span := a.startSpan(ctx, "naming.transfer", domain)
	defer span.End()

	next, _, err := a.transition(ctx, models.Transfer(domain, newOwner))
	if err != nil {
		return nil, spanError(span, err)
	}
	return next, nil
}

func (a *Authority) Lookup(ctx context.Context, domain string) (*models.NameRecord, error) {
	ctx, span := a.startSpan(ctx, "naming.lookup", domain)
	defer span.End()

	rec, err := a.find(ctx, "lookup", domain)
	if err != nil {
		return nil, spanError(span, err)
	}
	return rec, nil
}

func (a *Authority) LookupByProgram(ctx context.Context, program string) (*models.NameRecord, error) {
	ctx, span := a.tracer.Start(ctx, "naming.lookup_by_program",
		trace.WithAttributes(attribute.String("naming.program", program)))
	defer span.End()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	rec, err := a.store.FindByProgram(ctx, program)
	a.observe("lookup_by_program", start)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, spanError(span, dErrors.New(dErrors.CodeNotFound, "no domain for program "+program))
		}
		return nil, spanError(span, a.storeError(ctx, "lookup_by_program", err))
	}
	return rec, nil
}

func (a *Authority) ListByOwner(ctx context.Context, owner string) ([]*models.NameRecord, error) {
	ctx, span := a.tracer.Start(ctx, "naming.list_by_owner",
		trace.WithAttributes(attribute.String("naming.owner", owner)))
	defer span.End()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	records, err := a.store.ListByOwner(ctx, owner)
	a.observe("list_by_owner", start)
	if err != nil {
		return nil, spanError(span, a.storeError(ctx, "list_by_owner", err))
	}
	return records, nil
}

// Search returns verified domains whose name or program contains query,
// newest first. limit is clamped to [1, MaxSearchLimit].
func (a *Authority) Search(ctx context.Context, query string, limit int) ([]*models.NameRecord, error) {
	ctx, span := a.tracer.Start(ctx, "naming.search",
		trace.WithAttributes(attribute.String("naming.query", query)))
	defer span.End()

	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	records, err := a.store.Search(ctx, query, limit)
	a.observe("search", start)
	if err != nil {
		return nil, spanError(span, a.storeError(ctx, "search", err))
	}
	return records, nil
}

// transition reads the current record, applies t and writes the change. The
// store write is the only mutation, so a failure leaves the record untouched.
func (a *Authority) transition(ctx context.Context, t models.Transition) (*models.NameRecord, *models.NameRecord, error) {
	kind := string(t.Kind)

	current, err := a.find(ctx, kind+"_read", t.Domain)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		a.recordTransition(kind, "error")
		return nil, nil, err
	}

	next, change, err := models.Apply(current, t, requestcontext.Now(ctx))
	if err != nil {
		a.recordTransition(kind, "rejected")
		return nil, nil, err
	}

	if err := a.save(ctx, kind+"_write", change); err != nil {
		a.recordTransition(kind, "error")
		return nil, nil, err
	}
	a.recordTransition(kind, "ok")
	a.logger.InfoContext(ctx, "domain transition applied",
		"kind", kind,
		"domain", next.Domain,
		"owner", next.OwnerPubkey,
		"verified", next.Verified,
	)
	a.emit(ctx, t, current, next)
	return next, current, nil
}

func (a *Authority) find(ctx context.Context, op, domain string) (*models.NameRecord, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	rec, err := a.store.FindOne(ctx, domain)
	a.observe(op, start)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "domain "+domain+" not found")
		}
		return nil, a.storeError(ctx, op, err)
	}
	return rec, nil
}

func (a *Authority) save(ctx context.Context, op string, change models.Change) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	err := a.store.Save(ctx, change)
	a.observe(op, start)
	if err != nil {
		return a.storeError(ctx, op, err)
	}
	return nil
}

// storeError maps any persistence failure, including a timeout, to unavailable.
func (a *Authority) storeError(ctx context.Context, op string, err error) error {
	a.logger.ErrorContext(ctx, "naming store failure",
		"operation", op,
		"error", err,
	)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store timeout")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
}

func (a *Authority) emit(ctx context.Context, t models.Transition, prev, next *models.NameRecord) {
	if a.auditor == nil {
		return
	}
	event := audit.Event{
		Subject: next.Domain,
		Actor:   requestcontext.Wallet(ctx),
		Detail: map[string]string{
			"owner_pubkey":    next.OwnerPubkey,
			"program_address": next.ProgramAddress,
		},
	}
	switch t.Kind {
	case models.KindRegister:
		event.Action = string(audit.EventDomainRegistered)
		if prev == nil {
			event.Detail["created"] = "true"
		}
	case models.KindVerify:
		event.Action = string(audit.EventDomainVerified)
	case models.KindTransfer:
		event.Action = string(audit.EventDomainTransferred)
		event.Detail["previous_owner"] = prev.OwnerPubkey
	}
	if err := a.auditor.Emit(ctx, event); err != nil {
		a.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"domain", next.Domain,
			"error", err,
		)
	}
}

func (a *Authority) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.storeTimeout)
}

func (a *Authority) startSpan(ctx context.Context, name, domain string) (context.Context, trace.Span) {
	return a.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("naming.domain", domain)))
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (a *Authority) recordTransition(kind, result string) {
	if a.metrics != nil {
		a.metrics.IncTransition(kind, result)
	}
}

func (a *Authority) observe(op string, start time.Time) {
	if a.metrics != nil {
		a.metrics.ObserveStore(op, start)
	}
}
