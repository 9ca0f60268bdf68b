package handler

import (
	"log/slog"
	"net/http"

	"github.com/inspectrack/inspectrack/internal/domain"
	"github.com/inspectrack/inspectrack/internal/security"
	"github.com/inspectrack/inspectrack/internal/security/audit"
	"github.com/inspectrack/inspectrack/internal/security/middleware"
	"github.com/inspectrack/inspectrack/internal/worker"
)

// SchedulerHandler triggers an on-demand scheduling pass. The pass itself
// is the same one the background worker runs; the advisory lock keeps a
// manual trigger from overlapping a ticker run.
type SchedulerHandler struct {
	worker   *worker.SchedulerWorker
	authz    *security.AuthorizationService
	auditLog *audit.Logger
	logger   *slog.Logger
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(
	w *worker.SchedulerWorker,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *SchedulerHandler {
	return &SchedulerHandler{
		worker:   w,
		authz:    authz,
		auditLog: auditLog,
		logger:   logger,
	}
}

// ServeHTTP handles POST /api/scheduler/run
func (h *SchedulerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.authz.HasPermission(domain.Role(claims.Role), security.PermRunScheduler) {
		h.auditLog.LogDenied(r.Context(), claims.OrgID, claims.UserID, "run_scheduler")
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	h.logger.Info("manual scheduler run requested",
		slog.String("user_id", claims.UserID),
		slog.String("org_id", claims.OrgID),
	)
	h.auditLog.LogSchedulerRun(r.Context(), claims.OrgID, claims.UserID)

	// The pass logs and counts its own failures; a busy lock is not an
	// error from the caller's point of view.
	h.worker.RunPass(r.Context())

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pass completed"})
}
