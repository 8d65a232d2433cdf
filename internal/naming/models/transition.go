package models

import (
	"strings"
	"time"

	dErrors "shadow/pkg/domain-errors"
)

type TransitionKind string

const (
	KindRegister TransitionKind = "register"
	KindVerify   TransitionKind = "verify"
	KindTransfer TransitionKind = "transfer"
)

// Transition is one state change requested for a domain. Only the fields
// relevant to Kind are read.
type Transition struct {
	Kind           TransitionKind
	Domain         string
	Owner          string
	ProgramAddress string
	ExpiresAt      *time.Time
	NewOwner       string
}

func Register(domain, owner, programAddress string) Transition {
	return Transition{Kind: KindRegister, Domain: domain, Owner: owner, ProgramAddress: programAddress}
}

func Verify(domain string) Transition {
	return Transition{Kind: KindVerify, Domain: domain}
}

func Transfer(domain, newOwner string) Transition {
	return Transition{Kind: KindTransfer, Domain: domain, NewOwner: newOwner}
}

// Apply computes the record that results from t. current is nil when the
// domain has no record. Apply does not touch storage.
//
//	register: creates or overwrites owner and program; verified becomes false
//	verify:   requires a record; verified becomes true
//	transfer: requires a record; owner changes and verified becomes false
func Apply(current *NameRecord, t Transition, now time.Time) (*NameRecord, Change, error) {
	if strings.TrimSpace(t.Domain) == "" {
		return nil, Change{}, dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	if current != nil && current.Domain != "" && current.Domain != t.Domain {
		return nil, Change{}, dErrors.New(dErrors.CodeInvariantViolation, "transition applied to a different domain")
	}
	now = now.UTC()

	switch t.Kind {
	case KindRegister:
		return applyRegister(current, t, now)
	case KindVerify:
		if current == nil {
			return nil, Change{}, notFound(t.Domain)
		}
		next := *current
		next.Verified = true
		next.UpdatedAt = advance(current.UpdatedAt, now)
		return &next, Change{Record: &next, Fields: []string{FieldVerified, FieldUpdatedAt}}, nil
	case KindTransfer:
		if current == nil {
			return nil, Change{}, notFound(t.Domain)
		}
		if t.NewOwner == "" {
			return nil, Change{}, dErrors.New(dErrors.CodeValidation, "new owner is required")
		}
		next := *current
		next.OwnerPubkey = t.NewOwner
		next.Verified = false
		next.UpdatedAt = advance(current.UpdatedAt, now)
		return &next, Change{Record: &next, Fields: []string{FieldOwner, FieldVerified, FieldUpdatedAt}}, nil
	default:
		return nil, Change{}, dErrors.New(dErrors.CodeBadRequest, "unknown transition "+string(t.Kind))
	}
}

func applyRegister(current *NameRecord, t Transition, now time.Time) (*NameRecord, Change, error) {
	if t.Owner == "" {
		return nil, Change{}, dErrors.New(dErrors.CodeValidation, "owner is required")
	}
	if t.ProgramAddress == "" {
		return nil, Change{}, dErrors.New(dErrors.CodeValidation, "program address is required")
	}

	next := NameRecord{
		Domain:         t.Domain,
		OwnerPubkey:    t.Owner,
		ProgramAddress: t.ProgramAddress,
		Verified:       false,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      t.ExpiresAt,
	}
	if current != nil {
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = advance(current.UpdatedAt, now)
		if t.ExpiresAt == nil {
			next.ExpiresAt = current.ExpiresAt
		}
	}

	change := Change{
		Record:       &next,
		Fields:       []string{FieldOwner, FieldProgram, FieldVerified, FieldUpdatedAt},
		InsertFields: []string{FieldDomain, FieldCreatedAt},
	}
	if t.ExpiresAt != nil {
		change.Fields = append(change.Fields, FieldExpiresAt)
	}
	return &next, change, nil
}

// advance keeps updated_at from moving backwards under clock skew.
func advance(prev, now time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}

func notFound(domain string) error {
	return dErrors.New(dErrors.CodeNotFound, "domain "+domain+" not found")
}
