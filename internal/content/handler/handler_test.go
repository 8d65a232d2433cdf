package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"shadow/internal/content"
	"shadow/internal/content/handler/mocks"
	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

const (
	sampleCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
	sampleTx  = "bNbA3TEQVL60xlgCcqdz4ZPHFZ711cZ3hmkpGttDt_U"
)

type UploadHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestUploadHandlerSuite(t *testing.T) {
	suite.Run(t, new(UploadHandlerSuite))
}

func (s *UploadHandlerSuite) SetupTest() {
	s.service = mocks.NewMockService(gomock.NewController(s.T()))
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *UploadHandlerSuite) upload(path, body string) *http.Request {
	return testutil.NewRequestWithBody(s.T(), http.MethodPost, path, body)
}

func (s *UploadHandlerSuite) TestIPFS() {
	s.service.EXPECT().Store(gomock.Any(), content.SchemeIPFS, []byte("<html></html>"), "upload").
		Return(content.Ref{Scheme: content.SchemeIPFS, ID: sampleCID}, nil)

	rr := testutil.DoRequest(s.router, s.upload("/api/upload/ipfs", "<html></html>"))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[UploadResponse](s.T(), rr)
	s.Equal(sampleCID, resp.CID)
	s.Equal("ipfs://"+sampleCID, resp.Ref)
	s.Equal(13, resp.Size)
}

func (s *UploadHandlerSuite) TestArweaveWithName() {
	s.service.EXPECT().Store(gomock.Any(), content.SchemeArweave, []byte("data"), "site.html").
		Return(content.Ref{Scheme: content.SchemeArweave, ID: sampleTx}, nil)

	rr := testutil.DoRequest(s.router, s.upload("/api/upload/arweave?name=site.html", "data"))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "tx_id", sampleTx)
}

func (s *UploadHandlerSuite) TestUnknownBackend() {
	rr := testutil.DoRequest(s.router, s.upload("/api/upload/ftp", "data"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *UploadHandlerSuite) TestTooLarge() {
	rr := testutil.DoRequest(s.router, s.upload("/api/upload/ipfs", strings.Repeat("x", content.MaxObjectBytes+1)))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
}

func (s *UploadHandlerSuite) TestBackendUnavailable() {
	s.service.EXPECT().Store(gomock.Any(), content.SchemeS3, gomock.Any(), gomock.Any()).
		Return(content.Ref{}, dErrors.New(dErrors.CodeUnavailable, "s3 storage is not configured"))

	rr := testutil.DoRequest(s.router, s.upload("/api/upload/s3", "data"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "unavailable")
}
