// Package docstoretest holds the behavioural suite every docstore backend must pass.
package docstoretest

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/suite"

	"shadow/internal/docstore"
	"shadow/pkg/platform/sentinel"
)

// StoreSuite is embedded by backend tests. NewStore must return an empty store.
type StoreSuite struct {
	suite.Suite
	NewStore func() docstore.Store
	store    docstore.Store
}

func (s *StoreSuite) SetupTest() {
	s.store = s.NewStore()
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		s.Require().NoError(s.store.Close())
	}
}

func (s *StoreSuite) TestFindOneMissing() {
	_, err := s.store.FindOne(context.Background(), "domains", "missing.shadow")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestUpsertInsertAppliesSetOnInsert() {
	ctx := context.Background()
	err := s.store.Upsert(ctx, "domains", "a.shadow",
		docstore.Document{"owner": "W1", "verified": false},
		docstore.Document{"domain": "a.shadow", "created_at": "2026-01-01T00:00:00.000000000Z"},
	)
	s.Require().NoError(err)

	doc, err := s.store.FindOne(ctx, "domains", "a.shadow")
	s.Require().NoError(err)
	s.Equal("W1", doc.String("owner"))
	s.Equal("a.shadow", doc.String("domain"))
	s.Equal("2026-01-01T00:00:00.000000000Z", doc.String("created_at"))
	s.False(doc.Bool("verified"))
}

func (s *StoreSuite) TestUpsertUpdateSkipsSetOnInsert() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, "domains", "a.shadow",
		docstore.Document{"owner": "W1"},
		docstore.Document{"created_at": "first"},
	))
	s.Require().NoError(s.store.Upsert(ctx, "domains", "a.shadow",
		docstore.Document{"owner": "W2", "verified": true},
		docstore.Document{"created_at": "second"},
	))

	doc, err := s.store.FindOne(ctx, "domains", "a.shadow")
	s.Require().NoError(err)
	s.Equal("W2", doc.String("owner"))
	s.True(doc.Bool("verified"))
	s.Equal("first", doc.String("created_at"))
}

func (s *StoreSuite) TestCollectionsAreIsolated() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, "users", "k", docstore.Document{"v": "users"}, nil))

	_, err := s.store.FindOne(ctx, "sites", "k")
	s.ErrorIs(err, sentinel.ErrNotFound)

	docs, err := s.store.FindMany(ctx, "sites", docstore.Filter{}, nil, 0)
	s.Require().NoError(err)
	s.Empty(docs)
}

func (s *StoreSuite) TestFindManyFilterSortLimit() {
	ctx := context.Background()
	seed := []struct {
		key      string
		verified bool
		created  string
	}{
		{"alice.shadow", true, "2026-01-01T00:00:01.000000000Z"},
		{"alicia.shadow", false, "2026-01-01T00:00:02.000000000Z"},
		{"malice.shadow", true, "2026-01-01T00:00:03.000000000Z"},
		{"bob.shadow", true, "2026-01-01T00:00:04.000000000Z"},
	}
	for _, d := range seed {
		s.Require().NoError(s.store.Upsert(ctx, "domains", d.key,
			docstore.Document{"verified": d.verified, "program_address": "P-" + d.key},
			docstore.Document{"domain": d.key, "created_at": d.created},
		))
	}

	s.Run("equals and contains", func() {
		docs, err := s.store.FindMany(ctx, "domains", docstore.Filter{
			Equals:   map[string]any{"verified": true},
			Contains: &docstore.Contains{Fields: []string{"domain", "program_address"}, Substring: "ALI"},
		}, &docstore.Sort{Field: "created_at", Desc: true}, 10)
		s.Require().NoError(err)
		s.Require().Len(docs, 2)
		s.Equal("malice.shadow", docs[0].String("domain"))
		s.Equal("alice.shadow", docs[1].String("domain"))
	})

	s.Run("limit truncates after sorting", func() {
		docs, err := s.store.FindMany(ctx, "domains", docstore.Filter{}, &docstore.Sort{Field: "created_at"}, 2)
		s.Require().NoError(err)
		s.Require().Len(docs, 2)
		s.Equal("alice.shadow", docs[0].String("domain"))
		s.Equal("alicia.shadow", docs[1].String("domain"))
	})

	s.Run("contains treats wildcards literally", func() {
		docs, err := s.store.FindMany(ctx, "domains", docstore.Filter{
			Contains: &docstore.Contains{Fields: []string{"domain"}, Substring: "%"},
		}, nil, 0)
		s.Require().NoError(err)
		s.Empty(docs)
	})
}

func (s *StoreSuite) TestConcurrentUpsertsLastWriteWins() {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			owner := fmt.Sprintf("W%d", i)
			_ = s.store.Upsert(ctx, "domains", "race.shadow",
				docstore.Document{"owner": owner, "program_address": "P" + owner},
				docstore.Document{"domain": "race.shadow"},
			)
		})
	}
	wg.Wait()

	doc, err := s.store.FindOne(ctx, "domains", "race.shadow")
	s.Require().NoError(err)
	// Never a merge of two writes.
	s.Equal("P"+doc.String("owner"), doc.String("program_address"))
	s.Equal("race.shadow", doc.String("domain"))
}
