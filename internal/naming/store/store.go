// Package store maps name records onto the shared document store.
package store

import (
	"context"
	"errors"
	"fmt"

	"shadow/internal/docstore"
	"shadow/internal/naming/models"
	"shadow/pkg/platform/sentinel"
)

const Collection = "domains"

// ErrNotFound is returned when a domain has no record.
var ErrNotFound = fmt.Errorf("domain record: %w", sentinel.ErrNotFound)

type RecordStore struct {
	docs docstore.Store
}

func New(docs docstore.Store) *RecordStore {
	return &RecordStore{docs: docs}
}

func (s *RecordStore) FindOne(ctx context.Context, domain string) (*models.NameRecord, error) {
	doc, err := s.docs.FindOne(ctx, Collection, domain)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find domain %q: %w", domain, err)
	}
	return fromDocument(domain, doc), nil
}

// Save writes change atomically. Fields become the patch and InsertFields are
// applied only if the record does not exist yet.
func (s *RecordStore) Save(ctx context.Context, change models.Change) error {
	if change.Record == nil {
		return errors.New("save domain: change has no record")
	}
	doc := toDocument(change.Record)
	patch := pick(doc, change.Fields)
	onInsert := pick(doc, change.InsertFields)
	if err := s.docs.Upsert(ctx, Collection, change.Record.Domain, patch, onInsert); err != nil {
		return fmt.Errorf("save domain %q: %w", change.Record.Domain, err)
	}
	return nil
}

// FindByProgram returns the first record pointing at program. Which record wins
// when several share a program is not defined.
func (s *RecordStore) FindByProgram(ctx context.Context, program string) (*models.NameRecord, error) {
	docs, err := s.docs.FindMany(ctx, Collection, docstore.Filter{
		Equals: map[string]any{models.FieldProgram: program},
	}, nil, 1)
	if err != nil {
		return nil, fmt.Errorf("find domain by program: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return fromDocument("", docs[0]), nil
}

func (s *RecordStore) ListByOwner(ctx context.Context, owner string) ([]*models.NameRecord, error) {
	docs, err := s.docs.FindMany(ctx, Collection, docstore.Filter{
		Equals: map[string]any{models.FieldOwner: owner},
	}, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("list domains by owner: %w", err)
	}
	return fromDocuments(docs), nil
}

// Search matches query against domain and program address over verified
// records only, newest first.
func (s *RecordStore) Search(ctx context.Context, query string, limit int) ([]*models.NameRecord, error) {
	docs, err := s.docs.FindMany(ctx, Collection, docstore.Filter{
		Equals: map[string]any{models.FieldVerified: true},
		Contains: &docstore.Contains{
			Fields:    []string{models.FieldDomain, models.FieldProgram},
			Substring: query,
		},
	}, &docstore.Sort{Field: models.FieldCreatedAt, Desc: true}, limit)
	if err != nil {
		return nil, fmt.Errorf("search domains: %w", err)
	}
	return fromDocuments(docs), nil
}

func toDocument(r *models.NameRecord) docstore.Document {
	doc := docstore.Document{
		models.FieldDomain:    r.Domain,
		models.FieldOwner:     r.OwnerPubkey,
		models.FieldProgram:   r.ProgramAddress,
		models.FieldVerified:  r.Verified,
		models.FieldCreatedAt: docstore.FormatTime(r.CreatedAt),
		models.FieldUpdatedAt: docstore.FormatTime(r.UpdatedAt),
	}
	if r.ExpiresAt != nil {
		doc[models.FieldExpiresAt] = docstore.FormatTime(*r.ExpiresAt)
	}
	return doc
}

func fromDocument(key string, doc docstore.Document) *models.NameRecord {
	r := &models.NameRecord{
		Domain:         doc.String(models.FieldDomain),
		OwnerPubkey:    doc.String(models.FieldOwner),
		ProgramAddress: doc.String(models.FieldProgram),
		Verified:       doc.Bool(models.FieldVerified),
		CreatedAt:      doc.Time(models.FieldCreatedAt),
		UpdatedAt:      doc.Time(models.FieldUpdatedAt),
	}
	if r.Domain == "" {
		r.Domain = key
	}
	if _, ok := doc[models.FieldExpiresAt]; ok {
		exp := doc.Time(models.FieldExpiresAt)
		if !exp.IsZero() {
			r.ExpiresAt = &exp
		}
	}
	return r
}

func fromDocuments(docs []docstore.Document) []*models.NameRecord {
	records := make([]*models.NameRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, fromDocument("", doc))
	}
	return records
}

func pick(doc docstore.Document, fields []string) docstore.Document {
	out := make(docstore.Document, len(fields))
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}
