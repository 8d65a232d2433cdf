package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"shadow/internal/profile/handler/mocks"
	"shadow/internal/profile/models"
	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

const (
	walletA = "So11111111111111111111111111111111111111112"
	walletB = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	tokenA  = "token-a"
	cid     = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

type ProfileHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestProfileHandlerSuite(t *testing.T) {
	suite.Run(t, new(ProfileHandlerSuite))
}

func (s *ProfileHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), testutil.StaticTokens{tokenA: walletA})
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *ProfileHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func profile(wallet string, public bool) *models.Profile {
	return &models.Profile{WalletPubkey: wallet, ProfileCID: cid, IsPublic: public}
}

func (s *ProfileHandlerSuite) TestGet() {
	s.Run("existing profile", func() {
		s.service.EXPECT().Get(gomock.Any(), walletA).Return(profile(walletA, true), nil)

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles/"+walletA))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[models.ProfileResponse](s.T(), rr)
		s.True(resp.Exists)
		s.True(resp.IsPublic)
		s.Require().NotNil(resp.ProfileCID)
		s.Equal(cid, *resp.ProfileCID)
	})

	s.Run("missing profile reports exists false", func() {
		s.service.EXPECT().Get(gomock.Any(), walletB).Return(nil, dErrors.New(dErrors.CodeNotFound, "profile not found"))

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles/"+walletB))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[models.ProfileResponse](s.T(), rr)
		s.False(resp.Exists)
		s.Equal(walletB, resp.WalletPubkey)
		s.Nil(resp.ProfileCID)
	})

	s.Run("store unavailable", func() {
		s.service.EXPECT().Get(gomock.Any(), walletA).Return(nil, dErrors.New(dErrors.CodeUnavailable, "store unavailable"))

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles/"+walletA))
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
	})

	s.Run("invalid wallet", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles/not-a-key"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *ProfileHandlerSuite) TestCreate() {
	body := models.CreateProfileRequest{Wallet: walletA, ProfileCID: cid, IsPublic: true}

	s.Run("caller creates own profile", func() {
		s.service.EXPECT().Save(gomock.Any(), walletA, cid, true).Return(profile(walletA, true), nil)

		rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/profiles", body), tokenA))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "exists", true)
	})

	s.Run("another wallet", func() {
		other := body
		other.Wallet = walletB
		rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/profiles", other), tokenA))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("invalid cid", func() {
		bad := body
		bad.ProfileCID = "short"
		rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/profiles", bad), tokenA))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("missing token", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/profiles", body))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})
}

func (s *ProfileHandlerSuite) TestUpdate() {
	public := false

	s.Run("owner toggles visibility", func() {
		s.service.EXPECT().Update(gomock.Any(), walletA, nil, &public).Return(profile(walletA, false), nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/profiles/"+walletA, models.UpdateProfileRequest{IsPublic: &public})
		rr := s.do(testutil.WithBearer(req, tokenA))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "is_public", false)
	})

	s.Run("not the owner", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/profiles/"+walletB, models.UpdateProfileRequest{IsPublic: &public})
		rr := s.do(testutil.WithBearer(req, tokenA))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("missing profile", func() {
		s.service.EXPECT().Update(gomock.Any(), walletA, nil, &public).Return(nil, dErrors.New(dErrors.CodeNotFound, "profile not found"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/profiles/"+walletA, models.UpdateProfileRequest{IsPublic: &public})
		rr := s.do(testutil.WithBearer(req, tokenA))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *ProfileHandlerSuite) TestSearch() {
	s.Run("returns public profiles", func() {
		s.service.EXPECT().Search(gomock.Any(), "So11", 10).Return([]*models.Profile{profile(walletA, true)}, nil)

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles/search?q=So11"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[[]models.ProfileResponse](s.T(), rr)
		s.Require().Len(*resp, 1)
		s.Equal(walletA, (*resp)[0].WalletPubkey)
	})

	s.Run("empty result is an empty array", func() {
		s.service.EXPECT().Search(gomock.Any(), "zzz", 5).Return(nil, nil)

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles/search?q=zzz&limit=5"))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq("[]", rr.Body.String())
	})

	s.Run("missing query", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles/search"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}
