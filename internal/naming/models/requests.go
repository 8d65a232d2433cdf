package models

import (
	"strings"
	"time"

	"shadow/internal/validate"
	dErrors "shadow/pkg/domain-errors"
)

type RegisterDomainRequest struct {
	Domain         string     `json:"domain"`
	OwnerPubkey    string     `json:"owner_pubkey"`
	ProgramAddress string     `json:"program_address"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

func (r *RegisterDomainRequest) Validate() error {
	r.Domain = strings.TrimSpace(r.Domain)
	r.OwnerPubkey = strings.TrimSpace(r.OwnerPubkey)
	r.ProgramAddress = strings.TrimSpace(r.ProgramAddress)
	if err := validate.Domain(r.Domain); err != nil {
		return err
	}
	if err := validate.Pubkey("owner_pubkey", r.OwnerPubkey); err != nil {
		return err
	}
	if err := validate.Pubkey("program_address", r.ProgramAddress); err != nil {
		return err
	}
	if r.ExpiresAt != nil && r.ExpiresAt.IsZero() {
		r.ExpiresAt = nil
	}
	return nil
}

type UpdateDomainRequest struct {
	ProgramAddress string `json:"program_address"`
}

func (r *UpdateDomainRequest) Validate() error {
	r.ProgramAddress = strings.TrimSpace(r.ProgramAddress)
	return validate.Pubkey("program_address", r.ProgramAddress)
}

type TransferDomainRequest struct {
	NewOwner string `json:"new_owner"`
}

func (r *TransferDomainRequest) Validate() error {
	r.NewOwner = strings.TrimSpace(r.NewOwner)
	return validate.Pubkey("new_owner", r.NewOwner)
}

// DomainResponse wraps a record for mutation responses.
type DomainResponse struct {
	Success bool        `json:"success"`
	Domain  *NameRecord `json:"domain"`
}

// ErrNotOwner is returned when the caller's wallet does not own the domain.
var ErrNotOwner = dErrors.New(dErrors.CodeForbidden, "domain is owned by another wallet")
