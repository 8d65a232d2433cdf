package models

import (
	"strings"
	"time"

	"shadow/internal/content"
	"shadow/internal/validate"
	dErrors "shadow/pkg/domain-errors"
)

const (
	FieldProgramAddress = "program_address"
	FieldOwnerPubkey    = "owner_pubkey"
	FieldStorageRef     = "storage_cid"
	FieldName           = "name"
	FieldDescription    = "description"
	FieldCreatedAt      = "created_at"
	FieldUpdatedAt      = "updated_at"

	MaxNameLength        = 100
	MaxDescriptionLength = 1000
)

var ErrNotOwner = dErrors.New(dErrors.CodeForbidden, "site is owned by another wallet")

// Site is a deployed program and the stored content it serves.
type Site struct {
	ProgramAddress string    `json:"program_address"`
	OwnerPubkey    string    `json:"owner_pubkey"`
	StorageRef     string    `json:"storage_cid"`
	Name           string    `json:"name,omitempty"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (s *Site) OwnedBy(wallet string) bool {
	return s != nil && wallet != "" && s.OwnerPubkey == wallet
}

type SiteResponse struct {
	Success bool  `json:"success"`
	Site    *Site `json:"site"`
}

type RegisterSiteRequest struct {
	ProgramAddress string `json:"program_address"`
	OwnerPubkey    string `json:"owner_pubkey"`
	StorageCID     string `json:"storage_cid"`
	Name           string `json:"name"`
	Description    string `json:"description"`
}

func (r *RegisterSiteRequest) Validate() error {
	r.ProgramAddress = strings.TrimSpace(r.ProgramAddress)
	r.OwnerPubkey = strings.TrimSpace(r.OwnerPubkey)
	if err := validate.Pubkey("program_address", r.ProgramAddress); err != nil {
		return err
	}
	if err := validate.Pubkey("owner_pubkey", r.OwnerPubkey); err != nil {
		return err
	}
	ref, err := content.ParseRef(r.StorageCID)
	if err != nil {
		return err
	}
	r.StorageCID = ref.String()
	if r.Name, err = validate.Sanitize("name", strings.TrimSpace(r.Name), MaxNameLength); err != nil {
		return err
	}
	r.Description, err = validate.Sanitize("description", strings.TrimSpace(r.Description), MaxDescriptionLength)
	return err
}

// UpdateSiteRequest leaves nil fields unchanged.
type UpdateSiteRequest struct {
	StorageCID  *string `json:"storage_cid"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (r *UpdateSiteRequest) Validate() error {
	if r.StorageCID != nil {
		ref, err := content.ParseRef(*r.StorageCID)
		if err != nil {
			return err
		}
		s := ref.String()
		r.StorageCID = &s
	}
	if r.Name != nil {
		name, err := validate.Sanitize("name", strings.TrimSpace(*r.Name), MaxNameLength)
		if err != nil {
			return err
		}
		r.Name = &name
	}
	if r.Description != nil {
		desc, err := validate.Sanitize("description", strings.TrimSpace(*r.Description), MaxDescriptionLength)
		if err != nil {
			return err
		}
		r.Description = &desc
	}
	return nil
}

// Changes is the subset of site fields an update may touch.
type Changes struct {
	StorageRef  *string
	Name        *string
	Description *string
}

func (c Changes) ApplyTo(s *Site) {
	if c.StorageRef != nil {
		s.StorageRef = *c.StorageRef
	}
	if c.Name != nil {
		s.Name = *c.Name
	}
	if c.Description != nil {
		s.Description = *c.Description
	}
}
