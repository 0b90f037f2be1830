package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/headers"
	"github.com/wonny/openscreen/internal/screening"
)

// HealthHandler reports liveness and the active profile
type HealthHandler struct {
	registry    *screening.Registry
	hub         *StreamHub
	profileID   string
	profileHash string
	sessionTTL  time.Duration
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(registry *screening.Registry, hub *StreamHub, profileID, profileHash string, sessionTTL time.Duration) *HealthHandler {
	return &HealthHandler{
		registry:    registry,
		hub:         hub,
		profileID:   profileID,
		profileHash: profileHash,
		sessionTTL:  sessionTTL,
	}
}

// Health returns server health status
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"service":      "openscreen-api",
		"datasets":     h.registry.Stats(h.sessionTTL),
		"stream":       h.hub.ClientCount(),
		"profile_id":   h.profileID,
		"profile_hash": h.profileHash,
	})
}

// Modes lists the screening modes, the column roles and the pipeline stages
// GET /api/modes
func (h *HealthHandler) Modes(w http.ResponseWriter, r *http.Request) {
	stages := make([]map[string]string, 0, len(contracts.AllStages()))
	for _, s := range contracts.AllStages() {
		stages = append(stages, map[string]string{
			"stage":       s.String(),
			"name":        s.ShortName(),
			"description": s.Description(),
		})
	}

	roles := make([]map[string]interface{}, 0, len(headers.AllRoles()))
	for _, role := range headers.AllRoles() {
		roles = append(roles, map[string]interface{}{
			"role":     string(role),
			"name":     role.DisplayName(),
			"keywords": role.Keywords(),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"modes":  contracts.AllModes(),
		"roles":  roles,
		"stages": stages,
	})
}
