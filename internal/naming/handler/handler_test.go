package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"shadow/internal/naming/handler/mocks"
	"shadow/internal/naming/models"
	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,ProgramChecker

const (
	walletA  = "So11111111111111111111111111111111111111112"
	walletB  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	program1 = "SysvarC1ock11111111111111111111111111111111"
	program2 = "BPFLoaderUpgradeab1e11111111111111111111111"
	tokenA   = "token-a"
	tokenB   = "token-b"
)

type DomainHandlerSuite struct {
	suite.Suite
	service  *mocks.MockService
	programs *mocks.MockProgramChecker
	router   chi.Router
}

func TestDomainHandlerSuite(t *testing.T) {
	suite.Run(t, new(DomainHandlerSuite))
}

func (s *DomainHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.programs = mocks.NewMockProgramChecker(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(s.service, s.programs, logger, testutil.StaticTokens{tokenA: walletA, tokenB: walletB})
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func record(domain, owner, program string, verified bool) *models.NameRecord {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return &models.NameRecord{
		Domain:         domain,
		OwnerPubkey:    owner,
		ProgramAddress: program,
		Verified:       verified,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
}

func notFound() error {
	return dErrors.New(dErrors.CodeNotFound, "domain not found")
}

func (s *DomainHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *DomainHandlerSuite) TestRegister() {
	body := models.RegisterDomainRequest{Domain: "alice.shadow", OwnerPubkey: walletA, ProgramAddress: program1}

	s.Run("fresh domain is created", func() {
		s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(nil, notFound())
		s.service.EXPECT().Register(gomock.Any(), "alice.shadow", walletA, program1, nil).
			Return(record("alice.shadow", walletA, program1, false), nil)

		rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/domains", body), tokenA))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[models.DomainResponse](s.T(), rr)
		s.True(resp.Success)
		s.Equal("alice.shadow", resp.Domain.Domain)
		s.False(resp.Domain.Verified)
	})

	s.Run("registration does not consult the chain", func() {
		s.programs.EXPECT().ProgramExists(gomock.Any(), gomock.Any()).Times(0)
		s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(nil, notFound())
		s.service.EXPECT().Register(gomock.Any(), "alice.shadow", walletA, program1, nil).
			Return(record("alice.shadow", walletA, program1, false), nil)

		rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/domains", body), tokenA))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		s.False(testutil.UnmarshalResponse[models.DomainResponse](s.T(), rr).Domain.Verified)
	})

	s.Run("owner re-registers", func() {
		s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(record("alice.shadow", walletA, program2, true), nil)
		s.service.EXPECT().Register(gomock.Any(), "alice.shadow", walletA, program1, nil).
			Return(record("alice.shadow", walletA, program1, false), nil)

		rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/domains", body), tokenA))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("domain owned by someone else", func() {
		s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(record("alice.shadow", walletB, program2, true), nil)

		rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/domains", body), tokenA))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("owner must be the caller", func() {
		rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/domains", body), tokenB))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("missing token", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/domains", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("invalid domain", func() {
		bad := body
		bad.Domain = "-bad-.shadow"
		rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/domains", bad), tokenA))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("invalid program", func() {
		bad := body
		bad.ProgramAddress = "not-a-key"
		rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/domains", bad), tokenA))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("store unavailable", func() {
		s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(nil, notFound())
		s.service.EXPECT().Register(gomock.Any(), "alice.shadow", walletA, program1, nil).
			Return(nil, dErrors.Wrap(errors.New("dial tcp"), dErrors.CodeUnavailable, "store unavailable"))

		rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/domains", body), tokenA))
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
		s.NotContains(rr.Body.String(), "dial tcp")
	})
}

func (s *DomainHandlerSuite) TestUpdateKeepsOwner() {
	s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(record("alice.shadow", walletA, program1, true), nil)
	s.service.EXPECT().Register(gomock.Any(), "alice.shadow", walletA, program2, nil).
		Return(record("alice.shadow", walletA, program2, false), nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/domains/alice.shadow", models.UpdateDomainRequest{ProgramAddress: program2})
	rr := s.do(testutil.WithBearer(req, tokenA))
	testutil.AssertStatusOK(s.T(), rr)
}

func (s *DomainHandlerSuite) TestUpdateMissingDomain() {
	s.service.EXPECT().Lookup(gomock.Any(), "ghost.shadow").Return(nil, notFound())

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/domains/ghost.shadow", models.UpdateDomainRequest{ProgramAddress: program2})
	rr := s.do(testutil.WithBearer(req, tokenA))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *DomainHandlerSuite) TestVerify() {
	s.Run("program exists on chain", func() {
		s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(record("alice.shadow", walletA, program1, false), nil)
		s.programs.EXPECT().ProgramExists(gomock.Any(), program1).Return(true, nil)
		s.service.EXPECT().Verify(gomock.Any(), "alice.shadow").Return(record("alice.shadow", walletA, program1, true), nil)

		rr := s.do(testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodPost, "/api/domains/alice.shadow/verify"), tokenA))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[models.DomainResponse](s.T(), rr)
		s.True(resp.Domain.Verified)
	})

	s.Run("program missing on chain", func() {
		s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(record("alice.shadow", walletA, program1, false), nil)
		s.programs.EXPECT().ProgramExists(gomock.Any(), program1).Return(false, nil)

		rr := s.do(testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodPost, "/api/domains/alice.shadow/verify"), tokenA))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("chain unreachable", func() {
		s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(record("alice.shadow", walletA, program1, false), nil)
		s.programs.EXPECT().ProgramExists(gomock.Any(), program1).Return(false, errors.New("rpc timeout"))

		rr := s.do(testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodPost, "/api/domains/alice.shadow/verify"), tokenA))
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
	})

	s.Run("not the owner", func() {
		s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(record("alice.shadow", walletB, program1, false), nil)

		rr := s.do(testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodPost, "/api/domains/alice.shadow/verify"), tokenA))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}

func (s *DomainHandlerSuite) TestTransfer() {
	s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(record("alice.shadow", walletA, program1, true), nil)
	s.service.EXPECT().Transfer(gomock.Any(), "alice.shadow", walletB).Return(record("alice.shadow", walletB, program1, false), nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/domains/alice.shadow/transfer", models.TransferDomainRequest{NewOwner: walletB})
	rr := s.do(testutil.WithBearer(req, tokenA))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[models.DomainResponse](s.T(), rr)
	s.Equal(walletB, resp.Domain.OwnerPubkey)
	s.False(resp.Domain.Verified)
}

func (s *DomainHandlerSuite) TestLookup() {
	s.service.EXPECT().Lookup(gomock.Any(), "alice.shadow").Return(record("alice.shadow", walletA, program1, true), nil)
	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/domains/alice.shadow"))
	testutil.AssertStatusOK(s.T(), rr)
	got := testutil.UnmarshalResponse[models.NameRecord](s.T(), rr)
	s.Equal(program1, got.ProgramAddress)

	s.service.EXPECT().Lookup(gomock.Any(), "ghost.shadow").Return(nil, notFound())
	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/domains/ghost.shadow"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *DomainHandlerSuite) TestLookupByProgramAndOwner() {
	s.service.EXPECT().LookupByProgram(gomock.Any(), program1).Return(record("alice.shadow", walletA, program1, true), nil)
	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/domains/program/"+program1))
	testutil.AssertStatusOK(s.T(), rr)

	s.service.EXPECT().ListByOwner(gomock.Any(), walletA).Return(nil, nil)
	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/domains/owner/"+walletA))
	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`[]`, rr.Body.String())

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/domains/owner/nope"))
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

func (s *DomainHandlerSuite) TestSearch() {
	s.Run("default limit", func() {
		s.service.EXPECT().Search(gomock.Any(), "alice", 10).Return([]*models.NameRecord{record("alice.shadow", walletA, program1, true)}, nil)
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/domains/search?q=alice"))
		testutil.AssertStatusOK(s.T(), rr)
		got := testutil.UnmarshalResponse[[]models.NameRecord](s.T(), rr)
		s.Len(*got, 1)
	})

	s.Run("explicit limit", func() {
		s.service.EXPECT().Search(gomock.Any(), "alice", 25).Return(nil, nil)
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/domains/search?q=alice&limit=25"))
		testutil.AssertStatusOK(s.T(), rr)
	})

	for name, url := range map[string]string{
		"empty query":      "/api/domains/search?q=",
		"limit too large":  "/api/domains/search?q=alice&limit=101",
		"limit zero":       "/api/domains/search?q=alice&limit=0",
		"limit not number": "/api/domains/search?q=alice&limit=ten",
	} {
		s.Run(name, func() {
			rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, url))
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		})
	}
}
