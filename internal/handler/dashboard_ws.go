package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/inspectrack/inspectrack/internal/domain"
	"github.com/inspectrack/inspectrack/internal/security"
	"github.com/inspectrack/inspectrack/internal/security/middleware"
	"github.com/inspectrack/inspectrack/internal/service"
)

// DashboardStreamHandler pushes summary snapshots over a WebSocket so
// wallboard dashboards update without polling. Status classifications
// drift as due dates approach, so snapshots are recomputed on an
// interval rather than only on mutation.
type DashboardStreamHandler struct {
	dashboardService *service.DashboardService
	authz            *security.AuthorizationService
	logger           *slog.Logger
	allowedOrigins   []string
	interval         time.Duration
}

// NewDashboardStreamHandler creates a new dashboard stream handler
func NewDashboardStreamHandler(
	dashboardService *service.DashboardService,
	authz *security.AuthorizationService,
	logger *slog.Logger,
	allowedOrigins []string,
) *DashboardStreamHandler {
	return &DashboardStreamHandler{
		dashboardService: dashboardService,
		authz:            authz,
		logger:           logger,
		allowedOrigins:   allowedOrigins,
		interval:         15 * time.Second,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *DashboardStreamHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/dashboard
func (h *DashboardStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	h.logger.Debug("dashboard stream opened",
		slog.String("org_id", orgID),
		slog.String("user_id", claims.UserID),
	)

	// Drain client frames so pongs and close messages are processed.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.push(ctx, ws, orgID); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.push(ctx, ws, orgID); err != nil {
				h.logger.Debug("dashboard stream ended",
					slog.String("org_id", orgID),
					slog.String("reason", err.Error()),
				)
				return
			}
		}
	}
}

func (h *DashboardStreamHandler) push(ctx context.Context, ws *websocket.Conn, orgID string) error {
	summary, err := h.dashboardService.Summary(ctx, orgID)
	if err != nil {
		h.logger.Warn("summary computation failed during stream",
			slog.String("org_id", orgID),
			slog.String("error", err.Error()),
		)
		// Keep the connection; the next tick may succeed.
		return nil
	}

	ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return ws.WriteJSON(summary)
}
