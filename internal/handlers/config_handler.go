package handlers

import (
	"net/http"

	"transparency-monitor/internal/config"
	"transparency-monitor/internal/database"
)

// ConfigHandler handles public configuration requests
type ConfigHandler struct {
	config *config.Config
	db     *database.Database
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, db *database.Database) *ConfigHandler {
	return &ConfigHandler{config: cfg, db: db}
}

// GetAppConfig returns the public app configuration for the frontend
// @Summary Get app configuration
// @Description Public application settings: name, version, evaluation cycle year
// @Tags Configuration
// @Produce json
// @Success 200 {object} map[string]interface{} "App configuration"
// @Router /config/app [get]
func (h *ConfigHandler) GetAppConfig(w http.ResponseWriter, r *http.Request) {
	appConfig := map[string]interface{}{
		"name":       h.config.App.Name,
		"version":    h.config.App.Version,
		"cycle_year": h.config.App.CycleYear,
	}
	writeJSON(w, http.StatusOK, appConfig)
}

// Health reports service liveness, including database reachability
// @Summary Health check
// @Tags Configuration
// @Produce json
// @Success 200 {object} map[string]string "Service status"
// @Failure 503 {object} map[string]string "Database unreachable"
// @Router /health [get]
func (h *ConfigHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "error",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": h.config.App.Version,
	})
}
