package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/services"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

// SecurityHandler backs the admin security dashboard
type SecurityHandler struct {
	service  *services.SecurityService
	ipConfig *pkghttp.IPConfig
}

// NewSecurityHandler creates a new SecurityHandler
func NewSecurityHandler(service *services.SecurityService, ipConfig *pkghttp.IPConfig) *SecurityHandler {
	return &SecurityHandler{service: service, ipConfig: ipConfig}
}

// GetConfig handles GET /admin/security/config
func (h *SecurityHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Config()
	if err != nil {
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, cfg)
}

// PutConfig handles PUT /admin/security/config
func (h *SecurityHandler) PutConfig(w http.ResponseWriter, r *http.Request) {
	var update models.SecurityConfig
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	identifier := pkghttp.ExtractClientIP(r, h.ipConfig)
	cfg, err := h.service.UpdateConfig(update, identifier, r.UserAgent())
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "validation_failed",
				"Security settings are not valid", verr.Fields)
			return
		}
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, cfg)
}

// GetLogs handles GET /admin/security/logs?limit=n
func (h *SecurityHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			pkghttp.WriteBadRequest(w, "Invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.service.RecentLogs(limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// ClearLogs handles POST /admin/security/logs/clear
func (h *SecurityHandler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	identifier := pkghttp.ExtractClientIP(r, h.ipConfig)
	if err := h.service.ClearLogs(identifier, r.UserAgent()); err != nil {
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Access log cleared"})
}

// DownloadLogs handles GET /admin/security/logs/download
func (h *SecurityHandler) DownloadLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="access_log.txt"`)
	if err := h.service.ExportLogs(w); err != nil {
		// Headers are gone already; nothing sensible left to send
		return
	}
}
