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

	"shadow/internal/docstore/memory"
	"shadow/internal/profile/models"
	"shadow/internal/profile/service/mocks"
	"shadow/internal/profile/store"
	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/audit/publisher"
	auditmemory "shadow/pkg/platform/audit/store/memory"
	"shadow/pkg/platform/sentinel"
	"shadow/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher

const walletA = "So11111111111111111111111111111111111111112"

var epoch = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(offset time.Duration) context.Context {
	ctx := requestcontext.WithTime(context.Background(), epoch.Add(offset))
	return requestcontext.WithWallet(ctx, walletA)
}

type ServiceSuite struct {
	suite.Suite
	service *Service
	events  *auditmemory.InMemoryStore
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.events = auditmemory.NewInMemoryStore()
	s.service = New(store.New(memory.New()), publisher.NewPublisher(s.events), discard(), time.Second)
}

func (s *ServiceSuite) TestSaveThenUpdate() {
	created, err := s.service.Save(at(0), walletA, "QmProfileAAAA", false)
	s.Require().NoError(err)
	s.True(epoch.Equal(created.CreatedAt))

	public := true
	updated, err := s.service.Update(at(time.Hour), walletA, nil, &public)
	s.Require().NoError(err)
	s.Equal("QmProfileAAAA", updated.ProfileCID)
	s.True(updated.IsPublic)
	s.True(epoch.Equal(updated.CreatedAt))
	s.True(epoch.Add(time.Hour).Equal(updated.UpdatedAt))

	got, err := s.service.Get(at(0), walletA)
	s.Require().NoError(err)
	s.Equal(updated.ProfileCID, got.ProfileCID)
	s.True(got.IsPublic)
	s.True(updated.UpdatedAt.Equal(got.UpdatedAt))
}

func (s *ServiceSuite) TestUpdateMissing() {
	cid := "QmProfileAAAA"
	_, err := s.service.Update(at(0), walletA, &cid, nil)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestGetMissing() {
	_, err := s.service.Get(at(0), walletA)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSaveEmitsAuditEvent() {
	_, err := s.service.Save(at(0), walletA, "QmProfileAAAA", true)
	s.Require().NoError(err)

	events, err := s.events.ListBySubject(context.Background(), walletA)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("profile.saved", events[0].Action)
	s.Equal(walletA, events[0].Actor)
	s.Equal("QmProfileAAAA", events[0].Detail["profile_cid"])
}

func (s *ServiceSuite) TestSearchPublic() {
	_, err := s.service.Save(at(0), walletA, "QmProfileAAAA", true)
	s.Require().NoError(err)

	got, err := s.service.Search(at(0), "so111", 10)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(walletA, got[0].WalletPubkey)
}

type ServiceFailureSuite struct {
	suite.Suite
	store   *mocks.MockStore
	auditor *mocks.MockAuditPublisher
	service *Service
}

func TestServiceFailureSuite(t *testing.T) {
	suite.Run(t, new(ServiceFailureSuite))
}

func (s *ServiceFailureSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.store = mocks.NewMockStore(ctrl)
	s.auditor = mocks.NewMockAuditPublisher(ctrl)
	s.service = New(s.store, s.auditor, discard(), 20*time.Millisecond)
}

func (s *ServiceFailureSuite) TestReadFailure() {
	s.store.EXPECT().FindOne(gomock.Any(), walletA).Return(nil, sentinel.ErrUnavailable)

	_, err := s.service.Save(at(0), walletA, "QmProfileAAAA", true)
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
}

func (s *ServiceFailureSuite) TestWriteTimeout() {
	s.store.EXPECT().FindOne(gomock.Any(), walletA).Return(nil, sentinel.ErrNotFound)
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ *models.Profile) error {
		<-ctx.Done()
		return ctx.Err()
	})

	_, err := s.service.Save(at(0), walletA, "QmProfileAAAA", true)
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
	var de *dErrors.Error
	s.Require().True(errors.As(err, &de))
	s.Equal("store timeout", de.Message)
}

func (s *ServiceFailureSuite) TestAuditFailureDoesNotFailSave() {
	s.store.EXPECT().FindOne(gomock.Any(), walletA).Return(nil, sentinel.ErrNotFound)
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("sink down"))

	p, err := s.service.Save(at(0), walletA, "QmProfileAAAA", true)
	s.Require().NoError(err)
	s.Equal(walletA, p.WalletPubkey)
}

func (s *ServiceFailureSuite) TestSearchFailure() {
	s.store.EXPECT().SearchPublic(gomock.Any(), "so", 10).Return(nil, sentinel.ErrUnavailable)

	_, err := s.service.Search(at(0), "so", 10)
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
}
