package handler

import (
	"log/slog"
	"net/http"

	"github.com/inspectrack/inspectrack/internal/domain"
	"github.com/inspectrack/inspectrack/internal/security"
	"github.com/inspectrack/inspectrack/internal/security/middleware"
	"github.com/inspectrack/inspectrack/internal/service"
)

// DashboardHandler serves classification summaries
type DashboardHandler struct {
	dashboardService *service.DashboardService
	authz            *security.AuthorizationService
	logger           *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	dashboardService *service.DashboardService,
	authz *security.AuthorizationService,
	logger *slog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		authz:            authz,
		logger:           logger,
	}
}

// Summary handles GET /api/dashboard/summary
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.authz.HasPermission(domain.Role(claims.Role), security.PermViewDashboard) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	orgID := claims.OrgID
	if domain.Role(claims.Role) == domain.RoleSuperAdmin {
		if q := r.URL.Query().Get("orgId"); q != "" {
			orgID = q
		}
	}

	summary, err := h.dashboardService.Summary(r.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to compute summary",
			slog.String("org_id", orgID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
