package store

import (
	"context"
	"fmt"

	"shadow/internal/docstore"
	"shadow/internal/profile/models"
)

const Collection = "users"

type ProfileStore struct {
	docs docstore.Store
}

func New(docs docstore.Store) *ProfileStore {
	return &ProfileStore{docs: docs}
}

// FindOne returns an error wrapping sentinel.ErrNotFound when wallet has no profile.
func (s *ProfileStore) FindOne(ctx context.Context, wallet string) (*models.Profile, error) {
	doc, err := s.docs.FindOne(ctx, Collection, wallet)
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return fromDocument(wallet, doc), nil
}

// Save upserts p. created_at is written only when the profile is new.
func (s *ProfileStore) Save(ctx context.Context, p *models.Profile) error {
	patch := docstore.Document{
		models.FieldProfileCID: p.ProfileCID,
		models.FieldIsPublic:   p.IsPublic,
		models.FieldUpdatedAt:  docstore.FormatTime(p.UpdatedAt),
	}
	onInsert := docstore.Document{
		models.FieldWallet:    p.WalletPubkey,
		models.FieldCreatedAt: docstore.FormatTime(p.CreatedAt),
	}
	if err := s.docs.Upsert(ctx, Collection, p.WalletPubkey, patch, onInsert); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// SearchPublic matches query against wallet keys of public profiles, newest first.
func (s *ProfileStore) SearchPublic(ctx context.Context, query string, limit int) ([]*models.Profile, error) {
	docs, err := s.docs.FindMany(ctx, Collection, docstore.Filter{
		Equals:   map[string]any{models.FieldIsPublic: true},
		Contains: &docstore.Contains{Fields: []string{models.FieldWallet}, Substring: query},
	}, &docstore.Sort{Field: models.FieldCreatedAt, Desc: true}, limit)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	out := make([]*models.Profile, 0, len(docs))
	for _, doc := range docs {
		out = append(out, fromDocument("", doc))
	}
	return out, nil
}

func fromDocument(key string, doc docstore.Document) *models.Profile {
	p := &models.Profile{
		WalletPubkey: doc.String(models.FieldWallet),
		ProfileCID:   doc.String(models.FieldProfileCID),
		IsPublic:     doc.Bool(models.FieldIsPublic),
		CreatedAt:    doc.Time(models.FieldCreatedAt),
		UpdatedAt:    doc.Time(models.FieldUpdatedAt),
	}
	if p.WalletPubkey == "" {
		p.WalletPubkey = key
	}
	return p
}
