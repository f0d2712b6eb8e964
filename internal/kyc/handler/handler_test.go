package handler

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks Service

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"onekyc/internal/kyc/handler/mocks"
	"onekyc/internal/kyc/models"
	"onekyc/internal/kyc/ports"
	"onekyc/internal/kyc/service"
	id "onekyc/pkg/domain"
	dErrors "onekyc/pkg/domain-errors"
	authmw "onekyc/pkg/platform/middleware/auth"
	"onekyc/pkg/platform/sentinel"
	"onekyc/pkg/requestcontext"
	"onekyc/pkg/testutil"
)

// tokenValidator accepts "<role>:<subject>" bearer tokens.
type tokenValidator struct{}

func (tokenValidator) ValidateToken(token string) (*authmw.JWTClaims, error) {
	role, subject, ok := strings.Cut(token, ":")
	if !ok {
		return nil, errors.New("malformed token")
	}
	return &authmw.JWTClaims{Subject: subject, Role: requestcontext.Role(role)}, nil
}

type HandlerSuite struct {
	suite.Suite
	svc       *mocks.MockService
	router    chi.Router
	applicant id.ApplicantID
	kase      *models.Case
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.svc = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.svc, logger, tokenValidator{}).Register(s.router)

	s.applicant = id.NewApplicantID()
	s.kase = models.NewCase(s.applicant, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
}

func (s *HandlerSuite) do(req *http.Request, token string) (int, []byte) {
	rr := testutil.DoRequest(s.router, testutil.WithBearer(req, token))
	return rr.Code, rr.Body.Bytes()
}

func (s *HandlerSuite) applicantToken() string {
	return "applicant:" + s.applicant.String()
}

func (s *HandlerSuite) casePath(suffix string) string {
	return "/kyc/cases/" + s.kase.ID.String() + suffix
}

// =============================================================================
// Authentication and authorization
// =============================================================================

func (s *HandlerSuite) TestCaseRoutesRequireToken() {
	code, _ := s.do(testutil.NewRequest(s.T(), http.MethodGet, s.casePath("")), "")
	s.Equal(http.StatusUnauthorized, code)
}

func (s *HandlerSuite) TestReviewerRoutesRequireReviewerRole() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.casePath("/approve"), map[string]string{})
	code, _ := s.do(req, s.applicantToken())
	s.Equal(http.StatusForbidden, code)

	code, _ = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/kyc/admin/stats"), s.applicantToken())
	s.Equal(http.StatusForbidden, code)
}

// Justification: an applicant probing case ids must not learn which exist.
func (s *HandlerSuite) TestOtherApplicantsCaseIsNotFound() {
	s.svc.EXPECT().GetCase(gomock.Any(), s.kase.ID).Return(s.kase, nil)

	code, body := s.do(testutil.NewRequest(s.T(), http.MethodGet, s.casePath("")), "applicant:"+id.NewApplicantID().String())
	s.Equal(http.StatusNotFound, code)
	s.Contains(string(body), `"error":"not_found"`)
}

func (s *HandlerSuite) TestReviewerSeesAnyCase() {
	s.svc.EXPECT().GetCase(gomock.Any(), s.kase.ID).Return(s.kase, nil)

	code, body := s.do(testutil.NewRequest(s.T(), http.MethodGet, s.casePath("")), "reviewer:reviewer-7")
	s.Equal(http.StatusOK, code)
	s.Contains(string(body), `"status":"DRAFT"`)
}

// =============================================================================
// Applicant flow
// =============================================================================

func (s *HandlerSuite) TestOpenCase() {
	s.svc.EXPECT().OpenCase(gomock.Any(), s.applicant).Return(s.kase, nil)

	code, body := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/kyc/cases"), s.applicantToken())
	s.Equal(http.StatusCreated, code)
	s.Contains(string(body), s.kase.ID.String())
}

func (s *HandlerSuite) TestOpenCaseTwiceConflicts() {
	s.svc.EXPECT().OpenCase(gomock.Any(), s.applicant).
		Return(nil, dErrors.New(dErrors.CodeConflict, "applicant already has a verification case"))

	code, _ := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/kyc/cases"), s.applicantToken())
	s.Equal(http.StatusConflict, code)
}

func (s *HandlerSuite) TestReviewerCannotOpenCase() {
	code, _ := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/kyc/cases"), "reviewer:reviewer-7")
	s.Equal(http.StatusForbidden, code)
}

func (s *HandlerSuite) TestSubmitClaim() {
	s.svc.EXPECT().GetCase(gomock.Any(), s.kase.ID).Return(s.kase, nil)
	s.svc.EXPECT().SubmitClaim(gomock.Any(), s.kase.ID, models.IdentityClaim{
		FullName:    "Jane A Smith",
		DateOfBirth: "1990-05-17",
		Address:     "12 Baker Street",
	}).Return(s.kase, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.casePath("/claims"), map[string]string{
		"full_name":     "  Jane A Smith ",
		"date_of_birth": "1990-05-17",
		"address":       "12 Baker Street",
	})
	code, _ := s.do(req, s.applicantToken())
	s.Equal(http.StatusOK, code)
}

func (s *HandlerSuite) TestSubmitClaimRejectsBadDate() {
	s.svc.EXPECT().GetCase(gomock.Any(), s.kase.ID).Return(s.kase, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.casePath("/claims"), map[string]string{
		"full_name":     "Jane A Smith",
		"date_of_birth": "17/05/1990",
	})
	code, body := s.do(req, s.applicantToken())
	s.Equal(http.StatusBadRequest, code)
	s.Contains(string(body), "date_of_birth")
}

func (s *HandlerSuite) TestAddEvidenceDecodesFrames() {
	s.svc.EXPECT().GetCase(gomock.Any(), s.kase.ID).Return(s.kase, nil)
	s.svc.EXPECT().AddEvidence(gomock.Any(), s.kase.ID, service.Upload{
		Kind:         models.KindBiometricCapture,
		DocumentType: models.DocVideo,
		Frames:       [][]byte{[]byte("frame-1"), []byte("frame-2")},
	}).Return(s.kase, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.casePath("/evidence"), map[string]any{
		"kind":          "BIOMETRIC_CAPTURE",
		"document_type": "VIDEO",
		"frames": []string{
			base64.StdEncoding.EncodeToString([]byte("frame-1")),
			base64.StdEncoding.EncodeToString([]byte("frame-2")),
		},
	})
	code, _ := s.do(req, s.applicantToken())
	s.Equal(http.StatusCreated, code)
}

func (s *HandlerSuite) TestAddEvidenceRejectsMismatchedType() {
	s.svc.EXPECT().GetCase(gomock.Any(), s.kase.ID).Return(s.kase, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.casePath("/evidence"), map[string]string{
		"kind":          "IDENTITY_DOCUMENT",
		"document_type": "SELFIE",
		"content":       base64.StdEncoding.EncodeToString([]byte("x")),
	})
	code, body := s.do(req, s.applicantToken())
	s.Equal(http.StatusBadRequest, code)
	s.Contains(string(body), "invalid_input")
}

func (s *HandlerSuite) TestProcessConflictWhenAlreadyProcessed() {
	s.svc.EXPECT().GetCase(gomock.Any(), s.kase.ID).Return(s.kase, nil)
	s.svc.EXPECT().Process(gomock.Any(), s.kase.ID).
		Return(nil, dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeConflict, "case already processed"))

	code, body := s.do(testutil.NewRequest(s.T(), http.MethodPost, s.casePath("/process")), s.applicantToken())
	s.Equal(http.StatusConflict, code)
	s.Contains(string(body), "case already processed")
}

func (s *HandlerSuite) TestInternalErrorsDoNotLeak() {
	s.svc.EXPECT().GetCase(gomock.Any(), s.kase.ID).Return(s.kase, nil)
	s.svc.EXPECT().Process(gomock.Any(), s.kase.ID).Return(nil, errors.New("pq: connection reset"))

	code, body := s.do(testutil.NewRequest(s.T(), http.MethodPost, s.casePath("/process")), s.applicantToken())
	s.Equal(http.StatusInternalServerError, code)
	s.NotContains(string(body), "pq:")
}

// =============================================================================
// Reviewer flow
// =============================================================================

func (s *HandlerSuite) TestReject() {
	s.svc.EXPECT().Reject(gomock.Any(), s.kase.ID, "forged statement").Return(s.kase, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.casePath("/reject"), map[string]string{"comment": " forged statement "})
	code, _ := s.do(req, "reviewer:reviewer-7")
	s.Equal(http.StatusOK, code)
}

func (s *HandlerSuite) TestStats() {
	s.svc.EXPECT().Stats(gomock.Any()).Return(models.Stats{Total: 3, AutoApproved: 1}, nil)

	code, body := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/kyc/admin/stats"), "reviewer:reviewer-7")
	s.Equal(http.StatusOK, code)
	s.Contains(string(body), `"total":3`)
}

// =============================================================================
// Relying parties
// =============================================================================

func TestResolveIsPublic(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), tokenValidator{}).Register(r)

	testutil.Given(t, "an issued verification number", func(t *testing.T) {
		verifiedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		svc.EXPECT().ResolveUKN(gomock.Any(), "KYC-AAAA-BBBB-CCCC").Return(&service.Verification{
			UKN:           "KYC-AAAA-BBBB-CCCC",
			Status:        models.StatusVerified,
			VerifiedAt:    verifiedAt,
			ExpiresAt:     verifiedAt.AddDate(1, 0, 0),
			LedgerReceipt: "0xabc",
		}, nil)

		testutil.When(t, "a relying party resolves it without a token", func(t *testing.T) {
			rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/kyc/resolve/KYC-AAAA-BBBB-CCCC"))

			testutil.Then(t, "the verification is returned", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				resp := testutil.UnmarshalResponse[service.Verification](t, rr)
				assert.Equal(t, "0xabc", resp.LedgerReceipt)
			})
			testutil.And(t, "the expiry is one year after verification", func(t *testing.T) {
				resp := testutil.UnmarshalResponse[service.Verification](t, rr)
				assert.Equal(t, verifiedAt.AddDate(1, 0, 0), resp.ExpiresAt.UTC())
			})
		})
	})

	testutil.Given(t, "an expired verification number", func(t *testing.T) {
		svc.EXPECT().ResolveUKN(gomock.Any(), "KYC-AAAA-BBBB-DDDD").
			Return(nil, dErrors.Wrap(sentinel.ErrExpired, dErrors.CodeGone, "verification has expired"))

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/kyc/resolve/KYC-AAAA-BBBB-DDDD"))
		testutil.Then(t, "it is gone", func(t *testing.T) {
			testutil.AssertStatusAndError(t, rr, http.StatusGone, "gone")
		})
	})
}

func TestLedgerLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), tokenValidator{}).Register(r)

	svc.EXPECT().LookupLedger(gomock.Any(), "0xabc").Return(&ports.Record{
		Key:            "KYC-AAAA-BBBB-CCCC",
		TxHash:         "0xabc",
		EvidenceHashes: []string{"h1"},
		Issuer:         "onekyc",
	}, nil)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/kyc/ledger/0xabc"))
	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[LedgerResponse](t, rr)
	require.Equal(t, "KYC-AAAA-BBBB-CCCC", resp.Key)
	assert.Equal(t, []string{"h1"}, resp.EvidenceHashes)
}
