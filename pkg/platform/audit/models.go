package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryOwnership covers changes to who controls a name or what it resolves to.
	CategoryOwnership EventCategory = "ownership"

	// CategoryContent covers profile, site and upload activity.
	CategoryContent EventCategory = "content"

	// CategorySecurity covers rejected or suspicious requests.
	CategorySecurity EventCategory = "security"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	// Subject is the entity acted on: a domain name, a wallet, or a site id.
	Subject string
	Action  string
	// Actor is the wallet that performed the action, when known.
	Actor     string
	Detail    map[string]string
	RequestID string
}

type AuditEvent string

const (
	EventDomainRegistered  AuditEvent = "domain.registered"
	EventDomainVerified    AuditEvent = "domain.verified"
	EventDomainTransferred AuditEvent = "domain.transferred"

	EventProfileSaved   AuditEvent = "profile.saved"
	EventSiteRegistered AuditEvent = "site.registered"
	EventSiteUpdated    AuditEvent = "site.updated"
	EventContentStored  AuditEvent = "content.stored"

	EventRateLimitExceeded AuditEvent = "rate_limit.exceeded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDomainRegistered:  CategoryOwnership,
	EventDomainVerified:    CategoryOwnership,
	EventDomainTransferred: CategoryOwnership,

	EventProfileSaved:   CategoryContent,
	EventSiteRegistered: CategoryContent,
	EventSiteUpdated:    CategoryContent,
	EventContentStored:  CategoryContent,

	EventRateLimitExceeded: CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryContent.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryContent
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
