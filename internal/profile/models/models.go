package models

import (
	"strings"
	"time"

	"shadow/internal/validate"
)

const (
	FieldWallet     = "wallet_pubkey"
	FieldProfileCID = "profile_cid"
	FieldIsPublic   = "is_public"
	FieldCreatedAt  = "created_at"
	FieldUpdatedAt  = "updated_at"
)

// Profile points a wallet at profile content stored on IPFS.
type Profile struct {
	WalletPubkey string    `json:"wallet_pubkey"`
	ProfileCID   string    `json:"profile_cid,omitempty"`
	IsPublic     bool      `json:"is_public"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileResponse answers lookups; a missing profile is reported with Exists=false.
type ProfileResponse struct {
	WalletPubkey string  `json:"wallet_pubkey"`
	ProfileCID   *string `json:"profile_cid"`
	IsPublic     bool    `json:"is_public"`
	Exists       bool    `json:"exists"`
}

func NewProfileResponse(wallet string, p *Profile) ProfileResponse {
	if p == nil {
		return ProfileResponse{WalletPubkey: wallet}
	}
	resp := ProfileResponse{WalletPubkey: p.WalletPubkey, IsPublic: p.IsPublic, Exists: true}
	if p.ProfileCID != "" {
		cid := p.ProfileCID
		resp.ProfileCID = &cid
	}
	return resp
}

type CreateProfileRequest struct {
	Wallet     string `json:"wallet"`
	ProfileCID string `json:"profile_cid"`
	IsPublic   bool   `json:"is_public"`
}

func (r *CreateProfileRequest) Validate() error {
	r.Wallet = strings.TrimSpace(r.Wallet)
	r.ProfileCID = strings.TrimSpace(r.ProfileCID)
	if err := validate.Pubkey("wallet", r.Wallet); err != nil {
		return err
	}
	return validate.IPFSCID(r.ProfileCID)
}

// UpdateProfileRequest leaves nil fields unchanged.
type UpdateProfileRequest struct {
	ProfileCID *string `json:"profile_cid"`
	IsPublic   *bool   `json:"is_public"`
}

func (r *UpdateProfileRequest) Validate() error {
	if r.ProfileCID == nil {
		return nil
	}
	cid := strings.TrimSpace(*r.ProfileCID)
	r.ProfileCID = &cid
	return validate.IPFSCID(cid)
}
