package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/inspectrack/inspectrack/internal/domain"
	"github.com/inspectrack/inspectrack/internal/security"
	"github.com/inspectrack/inspectrack/internal/security/audit"
	"github.com/inspectrack/inspectrack/internal/security/middleware"
	"github.com/inspectrack/inspectrack/internal/service"
)

// CreateInspectionRequest represents a manual inspection request
type CreateInspectionRequest struct {
	TemplateID  string     `json:"templateId"`
	InspectorID string     `json:"inspectorId"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Force       bool       `json:"force,omitempty"`
}

// InspectionResponse is an inspection with its live classification
type InspectionResponse struct {
	ID           string     `json:"id"`
	TemplateID   string     `json:"templateId"`
	InspectorID  string     `json:"inspectorId"`
	OrgID        string     `json:"orgId"`
	DepartmentID string     `json:"departmentId,omitempty"`
	DueDate      time.Time  `json:"dueDate"`
	Status       string     `json:"status"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedBy    string     `json:"createdBy"`

	Classification string `json:"classification,omitempty"`
	DaysUntilDue   int    `json:"daysUntilDue,omitempty"`
	DaysOverdue    int    `json:"daysOverdue,omitempty"`
}

func toInspectionResponse(insp *domain.Inspection) InspectionResponse {
	return InspectionResponse{
		ID:           insp.ID,
		TemplateID:   insp.TemplateID,
		InspectorID:  insp.InspectorID,
		OrgID:        insp.OrgID,
		DepartmentID: insp.DepartmentID,
		DueDate:      insp.DueDate,
		Status:       string(insp.Status),
		CompletedAt:  insp.CompletedAt,
		CreatedBy:    insp.CreatedBy,
	}
}

// InspectionsHandler handles inspection creation, listing and transitions
type InspectionsHandler struct {
	inspectionService *service.InspectionService
	dashboardService  *service.DashboardService
	authz             *security.AuthorizationService
	auditLog          *audit.Logger
	logger            *slog.Logger
}

// NewInspectionsHandler creates a new inspections handler
func NewInspectionsHandler(
	inspectionService *service.InspectionService,
	dashboardService *service.DashboardService,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *InspectionsHandler {
	return &InspectionsHandler{
		inspectionService: inspectionService,
		dashboardService:  dashboardService,
		authz:             authz,
		auditLog:          auditLog,
		logger:            logger,
	}
}

// Create handles POST /api/inspections
func (h *InspectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	role := domain.Role(claims.Role)
	if !h.authz.HasPermission(role, security.PermCreateInspection) {
		h.auditLog.LogDenied(r.Context(), claims.OrgID, claims.UserID, "create_inspection")
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req CreateInspectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.TemplateID == "" || req.InspectorID == "" {
		writeError(w, http.StatusBadRequest, "templateId and inspectorId required")
		return
	}
	if req.Force && !h.authz.HasPermission(role, security.PermForceInspection) {
		h.auditLog.LogDenied(r.Context(), claims.OrgID, claims.UserID, "force_inspection")
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	requestedOrg := claims.OrgID
	if role == domain.RoleSuperAdmin {
		requestedOrg = ""
	}
	insp, err := h.inspectionService.CreateForTemplate(r.Context(), service.CreateOptions{
		TemplateID:   req.TemplateID,
		InspectorID:  req.InspectorID,
		DueDate:      req.DueDate,
		Force:        req.Force,
		RequestedBy:  claims.UserID,
		RequestedOrg: requestedOrg,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTemplateNotFound):
			writeError(w, http.StatusNotFound, "template not found")
		case errors.Is(err, domain.ErrInvalidInspector):
			writeError(w, http.StatusUnprocessableEntity, "user is not a schedulable inspector")
		case errors.Is(err, domain.ErrAlreadyScheduled):
			writeError(w, http.StatusConflict, "template already has an open inspection")
		default:
			h.logger.Error("failed to create inspection", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to create inspection")
		}
		return
	}

	h.auditLog.LogInspectionCreated(r.Context(), insp.OrgID, claims.UserID, insp.ID, "manual")
	h.dashboardService.Invalidate(r.Context(), insp.OrgID)

	writeJSON(w, http.StatusCreated, toInspectionResponse(insp))
}

// List handles GET /api/inspections
func (h *InspectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.authz.HasPermission(domain.Role(claims.Role), security.PermListInspections) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	orgID := claims.OrgID
	if domain.Role(claims.Role) == domain.RoleSuperAdmin {
		if q := r.URL.Query().Get("orgId"); q != "" {
			orgID = q
		}
	}

	views, err := h.inspectionService.ListWithStatus(r.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to list inspections", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list inspections")
		return
	}

	responses := make([]InspectionResponse, len(views))
	for i, v := range views {
		resp := toInspectionResponse(v.Inspection)
		resp.Classification = string(v.Classification.Status)
		resp.DaysUntilDue = v.Classification.DaysUntilDue
		resp.DaysOverdue = v.Classification.DaysOverdue
		responses[i] = resp
	}

	writeJSON(w, http.StatusOK, responses)
}

// Get handles GET /api/inspections/{id}
func (h *InspectionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	insp, err := h.inspectionService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "inspection not found")
			return
		}
		h.logger.Error("failed to load inspection", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load inspection")
		return
	}
	if insp.OrgID != claims.OrgID && domain.Role(claims.Role) != domain.RoleSuperAdmin {
		writeError(w, http.StatusNotFound, "inspection not found")
		return
	}

	writeJSON(w, http.StatusOK, toInspectionResponse(insp))
}

// Start handles POST /api/inspections/{id}/start
func (h *InspectionsHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.inspectionService.Start)
}

// Complete handles POST /api/inspections/{id}/complete
func (h *InspectionsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.inspectionService.Complete)
}

func (h *InspectionsHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id string) (*domain.Inspection, error),
) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	role := domain.Role(claims.Role)
	if !h.authz.HasPermission(role, security.PermUpdateInspection) {
		h.auditLog.LogDenied(r.Context(), claims.OrgID, claims.UserID, "update_inspection")
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	id := r.PathValue("id")
	current, err := h.inspectionService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "inspection not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load inspection")
		return
	}
	if current.OrgID != claims.OrgID && role != domain.RoleSuperAdmin {
		writeError(w, http.StatusNotFound, "inspection not found")
		return
	}
	// Inspectors may only move their own assignments.
	if role == domain.RoleInspector && current.InspectorID != claims.UserID {
		h.auditLog.LogDenied(r.Context(), claims.OrgID, claims.UserID, "update_foreign_inspection")
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	insp, err := apply(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to update inspection",
			slog.String("inspection_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update inspection")
		return
	}

	h.dashboardService.Invalidate(r.Context(), insp.OrgID)
	writeJSON(w, http.StatusOK, toInspectionResponse(insp))
}
