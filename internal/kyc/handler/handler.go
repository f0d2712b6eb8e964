// Package handler exposes the verification engine over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"onekyc/internal/kyc/models"
	"onekyc/internal/kyc/ports"
	"onekyc/internal/kyc/service"
	id "onekyc/pkg/domain"
	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/platform/httputil"
	authmw "onekyc/pkg/platform/middleware/auth"
	"onekyc/pkg/requestcontext"
)

// Service defines the engine operations the handler calls.
type Service interface {
	OpenCase(ctx context.Context, applicantID id.ApplicantID) (*models.Case, error)
	GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	CaseForApplicant(ctx context.Context, applicantID id.ApplicantID) (*models.Case, error)
	SubmitClaim(ctx context.Context, caseID id.CaseID, claim models.IdentityClaim) (*models.Case, error)
	AddEvidence(ctx context.Context, caseID id.CaseID, up service.Upload) (*models.Case, error)
	Process(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	Approve(ctx context.Context, caseID id.CaseID, comment string) (*models.Case, error)
	Reject(ctx context.Context, caseID id.CaseID, comment string) (*models.Case, error)
	RequestInfo(ctx context.Context, caseID id.CaseID, comment string) (*models.Case, error)
	ResolveUKN(ctx context.Context, raw string) (*service.Verification, error)
	LookupLedger(ctx context.Context, ref string) (*ports.Record, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// Handler wires verification endpoints to the engine.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator authmw.JWTValidator
}

// New constructs a handler. validator authenticates every case route;
// resolution and ledger lookups are public.
func New(service Service, logger *slog.Logger, validator authmw.JWTValidator) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator,
	}
}

// Register mounts the verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/kyc/resolve/{ukn}", h.HandleResolve)
	r.Get("/kyc/ledger/{ref}", h.HandleLedgerLookup)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(h.validator, h.logger))
		r.Post("/kyc/cases", h.HandleOpenCase)
		r.Get("/kyc/cases/me", h.HandleMyCase)
		r.Get("/kyc/cases/{caseID}", h.HandleGetCase)
		r.Post("/kyc/cases/{caseID}/claims", h.HandleSubmitClaim)
		r.Post("/kyc/cases/{caseID}/evidence", h.HandleAddEvidence)
		r.Post("/kyc/cases/{caseID}/process", h.HandleProcess)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(requestcontext.RoleReviewer, h.logger))
			r.Post("/kyc/cases/{caseID}/approve", h.HandleApprove)
			r.Post("/kyc/cases/{caseID}/reject", h.HandleReject)
			r.Post("/kyc/cases/{caseID}/request-info", h.HandleRequestInfo)
			r.Get("/kyc/admin/stats", h.HandleStats)
		})
	})
}

// HandleOpenCase handles POST /kyc/cases. The applicant is the caller.
func (h *Handler) HandleOpenCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicantID, ok := h.applicant(w, r)
	if !ok {
		return
	}
	c, err := h.service.OpenCase(ctx, applicantID)
	if err != nil {
		h.fail(ctx, w, "open case failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromCase(c))
}

// HandleMyCase handles GET /kyc/cases/me.
func (h *Handler) HandleMyCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicantID, ok := h.applicant(w, r)
	if !ok {
		return
	}
	c, err := h.service.CaseForApplicant(ctx, applicantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleGetCase handles GET /kyc/cases/{caseID}.
func (h *Handler) HandleGetCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.authorizedCase(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleSubmitClaim handles POST /kyc/cases/{caseID}/claims.
func (h *Handler) HandleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.authorizedCase(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ClaimRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.SubmitClaim(ctx, c.ID, req.Claim())
	if err != nil {
		h.fail(ctx, w, "claim submission failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleAddEvidence handles POST /kyc/cases/{caseID}/evidence.
func (h *Handler) HandleAddEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	c, ok := h.authorizedCase(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EvidenceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.AddEvidence(ctx, c.ID, req.Upload())
	if err != nil {
		h.fail(ctx, w, "evidence upload failed", err)
		return
	}
	h.logger.InfoContext(ctx, "evidence accepted",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", c.ID.String(),
		"kind", req.Kind,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromCase(c))
}

// HandleProcess handles POST /kyc/cases/{caseID}/process.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.authorizedCase(w, r)
	if !ok {
		return
	}
	c, err := h.service.Process(ctx, c.ID)
	if err != nil {
		h.fail(ctx, w, "case processing failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleApprove handles POST /kyc/cases/{caseID}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Approve)
}

// HandleReject handles POST /kyc/cases/{caseID}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Reject)
}

// HandleRequestInfo handles POST /kyc/cases/{caseID}/request-info.
func (h *Handler) HandleRequestInfo(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.RequestInfo)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, action func(context.Context, id.CaseID, string) (*models.Case, error)) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := action(ctx, caseID, req.Comment)
	if err != nil {
		h.fail(ctx, w, "reviewer action failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleStats handles GET /kyc/admin/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "stats failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

// HandleResolve handles GET /kyc/resolve/{ukn} for relying parties.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.ResolveUKN(r.Context(), chi.URLParam(r, "ukn"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// HandleLedgerLookup handles GET /kyc/ledger/{ref}, where ref is a receipt
// or a verification number.
func (h *Handler) HandleLedgerLookup(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.LookupLedger(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// applicant resolves the caller as an applicant id.
func (h *Handler) applicant(w http.ResponseWriter, r *http.Request) (id.ApplicantID, bool) {
	actor := requestcontext.Actor(r.Context())
	if actor.Role != requestcontext.RoleApplicant {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only applicants own cases"))
		return id.ApplicantID{}, false
	}
	applicantID, err := id.ParseApplicantID(actor.ID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token subject is not an applicant id"))
		return id.ApplicantID{}, false
	}
	return applicantID, true
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (id.CaseID, bool) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CaseID{}, false
	}
	return caseID, true
}

// authorizedCase loads the case in the path. Reviewers see every case,
// applicants only their own; someone else's case is reported as missing.
func (h *Handler) authorizedCase(w http.ResponseWriter, r *http.Request) (*models.Case, bool) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return nil, false
	}
	c, err := h.service.GetCase(ctx, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	actor := requestcontext.Actor(ctx)
	if actor.Role != requestcontext.RoleReviewer && actor.ID != c.ApplicantID.String() {
		h.logger.WarnContext(ctx, "case access denied",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID.String(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "case not found"))
		return nil, false
	}
	return c, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	log := h.logger.WarnContext
	if dErrors.GetCode(err) == dErrors.CodeInternal {
		log = h.logger.ErrorContext
	}
	log(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
