package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"shadow/internal/content"
	"shadow/internal/docstore/memory"
	"shadow/internal/site/models"
	"shadow/internal/site/service/mocks"
	"shadow/internal/site/store"
	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/audit/publisher"
	auditmemory "shadow/pkg/platform/audit/store/memory"
	"shadow/pkg/platform/sentinel"
	"shadow/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,ContentFetcher,AuditPublisher

const (
	program   = "SysvarC1ock11111111111111111111111111111111"
	walletA   = "So11111111111111111111111111111111111111112"
	walletB   = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	sampleCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

var epoch = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func at(offset time.Duration, wallet string) context.Context {
	ctx := requestcontext.WithTime(context.Background(), epoch.Add(offset))
	return requestcontext.WithWallet(ctx, wallet)
}

func site(owner string) models.Site {
	return models.Site{
		ProgramAddress: program,
		OwnerPubkey:    owner,
		StorageRef:     "ipfs://" + sampleCID,
		Name:           "Clock",
	}
}

type ServiceSuite struct {
	suite.Suite
	fetcher *mocks.MockContentFetcher
	events  *auditmemory.InMemoryStore
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.fetcher = mocks.NewMockContentFetcher(gomock.NewController(s.T()))
	s.events = auditmemory.NewInMemoryStore()
	s.service = New(store.New(memory.New()),
		WithContentFetcher(s.fetcher),
		WithAuditPublisher(publisher.NewPublisher(s.events)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithStoreTimeout(time.Second),
	)
}

func (s *ServiceSuite) TestRegister() {
	created, isNew, err := s.service.Register(at(0, walletA), site(walletA))
	s.Require().NoError(err)
	s.True(isNew)
	s.True(epoch.Equal(created.CreatedAt))

	s.Run("owner re-registers", func() {
		next := site(walletA)
		next.Name = "Clock v2"
		got, isNew, err := s.service.Register(at(time.Hour, walletA), next)
		s.Require().NoError(err)
		s.False(isNew)
		s.Equal("Clock v2", got.Name)
		s.True(epoch.Equal(got.CreatedAt))
	})

	s.Run("another wallet is refused", func() {
		_, _, err := s.service.Register(at(time.Hour, walletB), site(walletB))
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	events, err := s.events.ListBySubject(context.Background(), program)
	s.Require().NoError(err)
	s.Len(events, 2)
}

func (s *ServiceSuite) TestUpdate() {
	_, _, err := s.service.Register(at(0, walletA), site(walletA))
	s.Require().NoError(err)

	desc := "a clock"
	s.Run("owner updates", func() {
		got, err := s.service.Update(at(time.Minute, walletA), program, walletA, models.Changes{Description: &desc})
		s.Require().NoError(err)
		s.Equal("a clock", got.Description)
		s.Equal("Clock", got.Name)
		s.True(epoch.Add(time.Minute).Equal(got.UpdatedAt))
	})

	s.Run("non-owner is refused", func() {
		_, err := s.service.Update(at(time.Minute, walletB), program, walletB, models.Changes{Description: &desc})
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("missing site", func() {
		_, err := s.service.Update(at(time.Minute, walletA), "BPFLoaderUpgradeab1e11111111111111111111111", walletA, models.Changes{})
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestContent() {
	_, _, err := s.service.Register(at(0, walletA), site(walletA))
	s.Require().NoError(err)

	s.fetcher.EXPECT().Fetch(gomock.Any(), content.Ref{Scheme: content.SchemeIPFS, ID: sampleCID}).Return([]byte("<html>"), nil)
	data, err := s.service.Content(at(0, ""), program)
	s.Require().NoError(err)
	s.Equal("<html>", string(data))

	_, err = s.service.Content(at(0, ""), "BPFLoaderUpgradeab1e11111111111111111111111")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSearch() {
	_, _, err := s.service.Register(at(0, walletA), site(walletA))
	s.Require().NoError(err)

	got, err := s.service.Search(at(0, ""), "clo", 10)
	s.Require().NoError(err)
	s.Len(got, 1)
}

type ServiceFailureSuite struct {
	suite.Suite
	store   *mocks.MockStore
	service *Service
}

func TestServiceFailureSuite(t *testing.T) {
	suite.Run(t, new(ServiceFailureSuite))
}

func (s *ServiceFailureSuite) SetupTest() {
	s.store = mocks.NewMockStore(gomock.NewController(s.T()))
	s.service = New(s.store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithStoreTimeout(time.Second))
}

func (s *ServiceFailureSuite) TestReadFailure() {
	s.store.EXPECT().FindOne(gomock.Any(), program).Return(nil, sentinel.ErrUnavailable)

	_, _, err := s.service.Register(at(0, walletA), site(walletA))
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
}

func (s *ServiceFailureSuite) TestWriteFailure() {
	s.store.EXPECT().FindOne(gomock.Any(), program).Return(nil, sentinel.ErrNotFound)
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	_, _, err := s.service.Register(at(0, walletA), site(walletA))
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
}

func (s *ServiceFailureSuite) TestContentWithoutFetcher() {
	stored := site(walletA)
	s.store.EXPECT().FindOne(gomock.Any(), program).Return(&stored, nil)

	_, err := s.service.Content(at(0, ""), program)
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
}
