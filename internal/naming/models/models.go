package models

import (
	"time"
)

// Document field names shared by the record store and search filters.
const (
	FieldDomain    = "domain"
	FieldOwner     = "owner_pubkey"
	FieldProgram   = "program_address"
	FieldVerified  = "verified"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldExpiresAt = "expires_at"
)

// NameRecord is the ownership and verification state of one domain.
// Verified is bound to the (OwnerPubkey, ProgramAddress) pair that was checked.
type NameRecord struct {
	Domain         string     `json:"domain"`
	OwnerPubkey    string     `json:"owner_pubkey"`
	ProgramAddress string     `json:"program_address"`
	Verified       bool       `json:"verified"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// OwnedBy reports whether wallet controls the record.
func (r *NameRecord) OwnedBy(wallet string) bool {
	return r != nil && wallet != "" && r.OwnerPubkey == wallet
}

// Change is what a transition writes. Fields are overwritten on every apply;
// InsertFields are written only when the record is created.
type Change struct {
	Record       *NameRecord
	Fields       []string
	InsertFields []string
}
