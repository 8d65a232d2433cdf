package store

import (
	"context"
	"fmt"

	"shadow/internal/docstore"
	"shadow/internal/site/models"
)

const Collection = "sites"

type SiteStore struct {
	docs docstore.Store
}

func New(docs docstore.Store) *SiteStore {
	return &SiteStore{docs: docs}
}

func (s *SiteStore) FindOne(ctx context.Context, program string) (*models.Site, error) {
	doc, err := s.docs.FindOne(ctx, Collection, program)
	if err != nil {
		return nil, fmt.Errorf("find site: %w", err)
	}
	return fromDocument(program, doc), nil
}

// Save upserts site keyed by program address; created_at is only written on insert.
func (s *SiteStore) Save(ctx context.Context, site *models.Site) error {
	patch := docstore.Document{
		models.FieldOwnerPubkey: site.OwnerPubkey,
		models.FieldStorageRef:  site.StorageRef,
		models.FieldName:        site.Name,
		models.FieldDescription: site.Description,
		models.FieldUpdatedAt:   docstore.FormatTime(site.UpdatedAt),
	}
	onInsert := docstore.Document{
		models.FieldProgramAddress: site.ProgramAddress,
		models.FieldCreatedAt:      docstore.FormatTime(site.CreatedAt),
	}
	if err := s.docs.Upsert(ctx, Collection, site.ProgramAddress, patch, onInsert); err != nil {
		return fmt.Errorf("save site: %w", err)
	}
	return nil
}

// Search matches query against name, description and program address, newest first.
func (s *SiteStore) Search(ctx context.Context, query string, limit int) ([]*models.Site, error) {
	docs, err := s.docs.FindMany(ctx, Collection, docstore.Filter{
		Contains: &docstore.Contains{
			Fields:    []string{models.FieldName, models.FieldDescription, models.FieldProgramAddress},
			Substring: query,
		},
	}, &docstore.Sort{Field: models.FieldCreatedAt, Desc: true}, limit)
	if err != nil {
		return nil, fmt.Errorf("search sites: %w", err)
	}
	out := make([]*models.Site, 0, len(docs))
	for _, doc := range docs {
		out = append(out, fromDocument("", doc))
	}
	return out, nil
}

func fromDocument(key string, doc docstore.Document) *models.Site {
	site := &models.Site{
		ProgramAddress: doc.String(models.FieldProgramAddress),
		OwnerPubkey:    doc.String(models.FieldOwnerPubkey),
		StorageRef:     doc.String(models.FieldStorageRef),
		Name:           doc.String(models.FieldName),
		Description:    doc.String(models.FieldDescription),
		CreatedAt:      doc.Time(models.FieldCreatedAt),
		UpdatedAt:      doc.Time(models.FieldUpdatedAt),
	}
	if site.ProgramAddress == "" {
		site.ProgramAddress = key
	}
	return site
}
