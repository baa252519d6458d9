// Package handler is the thin HTTP layer over the audit service. Handlers
// decode bodies, delegate, and translate results into the shared response
// envelope; business rules stay in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vulnreport/internal/audit"
	"vulnreport/internal/audit/service"
	"vulnreport/internal/platform/middleware"
	dErrors "vulnreport/pkg/domain-errors"
	"vulnreport/pkg/platform/httputil"
)

// Service is the audit operations interface consumed by the handler.
type Service interface {
	List(ctx context.Context, caller audit.Caller, filter audit.ListFilter) ([]audit.Summary, error)
	Create(ctx context.Context, caller audit.Caller, raw service.Raw) (string, error)
	Delete(ctx context.Context, caller audit.Caller, auditID string) error
	GetAudit(ctx context.Context, caller audit.Caller, auditID string) (audit.Audit, error)
	GetGeneral(ctx context.Context, caller audit.Caller, auditID string) (audit.General, error)
	UpdateGeneral(ctx context.Context, caller audit.Caller, auditID string, raw service.Raw) (audit.General, error)
	GetNetwork(ctx context.Context, caller audit.Caller, auditID string) (audit.Network, error)
	UpdateNetwork(ctx context.Context, caller audit.Caller, auditID string, raw service.Raw) (audit.Network, error)
	CreateFinding(ctx context.Context, caller audit.Caller, auditID string, raw service.Raw) (audit.Finding, error)
	ListFindingTitles(ctx context.Context, caller audit.Caller, auditID string) ([]audit.FindingTitle, error)
	GetFinding(ctx context.Context, caller audit.Caller, auditID, findingID string) (audit.Finding, error)
	UpdateFinding(ctx context.Context, caller audit.Caller, auditID, findingID string, raw service.Raw) (audit.Finding, error)
	DeleteFinding(ctx context.Context, caller audit.Caller, auditID, findingID string) error
	CreateSection(ctx context.Context, caller audit.Caller, auditID string, raw service.Raw) (audit.Section, error)
	GetSection(ctx context.Context, caller audit.Caller, auditID, sectionID string) (audit.Section, error)
	UpdateSection(ctx context.Context, caller audit.Caller, auditID, sectionID string, raw service.Raw) (audit.Section, error)
	DeleteSection(ctx context.Context, caller audit.Caller, auditID, sectionID string) error
	GetSummary(ctx context.Context, caller audit.Caller, auditID string) (string, error)
	UpdateSummary(ctx context.Context, caller audit.Caller, auditID string, raw service.Raw) error
}

// ReportBridge generates report documents.
type ReportBridge interface {
	Generate(ctx context.Context, caller audit.Caller, auditID string) (string, []byte, error)
}

// Handler serves the /api/audits routes.
type Handler struct {
	logger    *slog.Logger
	audits    Service
	reports   ReportBridge
	validator middleware.TokenValidator
}

// New creates the audit handler.
func New(audits Service, reports ReportBridge, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		audits:    audits,
		reports:   reports,
		validator: validator,
	}
}

// Register mounts the audit routes. Every route requires a valid bearer
// token; ownership checks happen in the service.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/audits", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)

		r.Route("/{auditID}", func(r chi.Router) {
			r.Get("/", h.handleGetAudit)
			r.Delete("/", h.handleDelete)
			r.Get("/generate", h.handleGenerate)

			r.Get("/general", h.handleGetGeneral)
			r.Put("/general", h.handleUpdateGeneral)
			r.Get("/network", h.handleGetNetwork)
			r.Put("/network", h.handleUpdateNetwork)
			r.Get("/summary", h.handleGetSummary)
			r.Put("/summary", h.handleUpdateSummary)

			r.Post("/findings", h.handleCreateFinding)
			r.Get("/findings", h.handleListFindings)
			r.Get("/findings/{findingID}", h.handleGetFinding)
			r.Put("/findings/{findingID}", h.handleUpdateFinding)
			r.Delete("/findings/{findingID}", h.handleDeleteFinding)

			r.Post("/sections", h.handleCreateSection)
			r.Get("/sections/{sectionID}", h.handleGetSection)
			r.Put("/sections/{sectionID}", h.handleUpdateSection)
			r.Delete("/sections/{sectionID}", h.handleDeleteSection)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := audit.ListFilter{FindingTitle: r.URL.Query().Get("findingTitle")}
	summaries, err := h.audits.List(r.Context(), caller(r), filter)
	if err != nil {
		h.fail(w, r, "list audits", err)
		return
	}
	httputil.Ok(w, summaries)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := h.audits.Create(r.Context(), caller(r), raw)
	if err != nil {
		h.fail(w, r, "create audit", err)
		return
	}
	httputil.Created(w, map[string]string{"id": id, "message": "audit created successfully"})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.audits.Delete(r.Context(), caller(r), chi.URLParam(r, "auditID")); err != nil {
		h.fail(w, r, "delete audit", err)
		return
	}
	httputil.Ok(w, "audit deleted")
}

func (h *Handler) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	a, err := h.audits.GetAudit(r.Context(), caller(r), chi.URLParam(r, "auditID"))
	if err != nil {
		h.fail(w, r, "get audit", err)
		return
	}
	httputil.Ok(w, a)
}

func (h *Handler) handleGetGeneral(w http.ResponseWriter, r *http.Request) {
	general, err := h.audits.GetGeneral(r.Context(), caller(r), chi.URLParam(r, "auditID"))
	if err != nil {
		h.fail(w, r, "get general", err)
		return
	}
	httputil.Ok(w, general)
}

func (h *Handler) handleUpdateGeneral(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	general, err := h.audits.UpdateGeneral(r.Context(), caller(r), chi.URLParam(r, "auditID"), raw)
	if err != nil {
		h.fail(w, r, "update general", err)
		return
	}
	httputil.Ok(w, general)
}

func (h *Handler) handleGetNetwork(w http.ResponseWriter, r *http.Request) {
	network, err := h.audits.GetNetwork(r.Context(), caller(r), chi.URLParam(r, "auditID"))
	if err != nil {
		h.fail(w, r, "get network", err)
		return
	}
	httputil.Ok(w, network)
}

func (h *Handler) handleUpdateNetwork(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	network, err := h.audits.UpdateNetwork(r.Context(), caller(r), chi.URLParam(r, "auditID"), raw)
	if err != nil {
		h.fail(w, r, "update network", err)
		return
	}
	httputil.Ok(w, network)
}

func (h *Handler) handleCreateFinding(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	finding, err := h.audits.CreateFinding(r.Context(), caller(r), chi.URLParam(r, "auditID"), raw)
	if err != nil {
		h.fail(w, r, "create finding", err)
		return
	}
	httputil.Ok(w, finding)
}

func (h *Handler) handleListFindings(w http.ResponseWriter, r *http.Request) {
	titles, err := h.audits.ListFindingTitles(r.Context(), caller(r), chi.URLParam(r, "auditID"))
	if err != nil {
		h.fail(w, r, "list findings", err)
		return
	}
	httputil.Ok(w, titles)
}

func (h *Handler) handleGetFinding(w http.ResponseWriter, r *http.Request) {
	finding, err := h.audits.GetFinding(r.Context(), caller(r),
		chi.URLParam(r, "auditID"), chi.URLParam(r, "findingID"))
	if err != nil {
		h.fail(w, r, "get finding", err)
		return
	}
	httputil.Ok(w, finding)
}

func (h *Handler) handleUpdateFinding(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	finding, err := h.audits.UpdateFinding(r.Context(), caller(r),
		chi.URLParam(r, "auditID"), chi.URLParam(r, "findingID"), raw)
	if err != nil {
		h.fail(w, r, "update finding", err)
		return
	}
	httputil.Ok(w, finding)
}

func (h *Handler) handleDeleteFinding(w http.ResponseWriter, r *http.Request) {
	err := h.audits.DeleteFinding(r.Context(), caller(r),
		chi.URLParam(r, "auditID"), chi.URLParam(r, "findingID"))
	if err != nil {
		h.fail(w, r, "delete finding", err)
		return
	}
	httputil.Ok(w, "finding deleted")
}

func (h *Handler) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	section, err := h.audits.CreateSection(r.Context(), caller(r), chi.URLParam(r, "auditID"), raw)
	if err != nil {
		h.fail(w, r, "create section", err)
		return
	}
	httputil.Ok(w, section)
}

func (h *Handler) handleGetSection(w http.ResponseWriter, r *http.Request) {
	section, err := h.audits.GetSection(r.Context(), caller(r),
		chi.URLParam(r, "auditID"), chi.URLParam(r, "sectionID"))
	if err != nil {
		h.fail(w, r, "get section", err)
		return
	}
	httputil.Ok(w, section)
}

func (h *Handler) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	section, err := h.audits.UpdateSection(r.Context(), caller(r),
		chi.URLParam(r, "auditID"), chi.URLParam(r, "sectionID"), raw)
	if err != nil {
		h.fail(w, r, "update section", err)
		return
	}
	httputil.Ok(w, section)
}

func (h *Handler) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	err := h.audits.DeleteSection(r.Context(), caller(r),
		chi.URLParam(r, "auditID"), chi.URLParam(r, "sectionID"))
	if err != nil {
		h.fail(w, r, "delete section", err)
		return
	}
	httputil.Ok(w, "section deleted")
}

func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.audits.GetSummary(r.Context(), caller(r), chi.URLParam(r, "auditID"))
	if err != nil {
		h.fail(w, r, "get summary", err)
		return
	}
	httputil.Ok(w, map[string]string{"summary": summary})
}

func (h *Handler) handleUpdateSummary(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	auditID := chi.URLParam(r, "auditID")
	if err := h.audits.UpdateSummary(r.Context(), caller(r), auditID, raw); err != nil {
		h.fail(w, r, "update summary", err)
		return
	}
	summary, err := h.audits.GetSummary(r.Context(), caller(r), auditID)
	if err != nil {
		h.fail(w, r, "get summary", err)
		return
	}
	httputil.Ok(w, map[string]string{"summary": summary})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	filename, doc, err := h.reports.Generate(r.Context(), caller(r), chi.URLParam(r, "auditID"))
	if err != nil {
		h.fail(w, r, "generate report", err)
		return
	}
	httputil.SendFile(w, filename, doc)
}

// caller builds the authenticated caller from the context populated by
// RequireAuth.
func caller(r *http.Request) audit.Caller {
	ctx := r.Context()
	return audit.Caller{
		Username: middleware.GetUsername(ctx),
		Role:     middleware.GetRole(ctx),
	}
}

func decodeBody(r *http.Request) (service.Raw, error) {
	var raw service.Raw
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return raw, nil
}

// fail logs server-side failures and writes the error envelope. Expected
// client errors are not logged at error level.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "audit operation failed",
			"action", action,
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
	} else {
		h.logger.WarnContext(ctx, "audit operation rejected",
			"action", action,
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
