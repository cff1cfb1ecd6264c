package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/services"
)

type DashboardHandler struct {
	data          *services.DatabaseService
	retentionDays int
}

func NewDashboardHandler(data *services.DatabaseService, retentionDays int) *DashboardHandler {
	return &DashboardHandler{data: data, retentionDays: retentionDays}
}

// Health godoc
// @Summary Store health per collection
// @Tags dashboard
// @Produce json
// @Success 200 {object} models.HealthStatus
// @Failure 503 {object} models.HealthStatus
// @Router /health [get]
func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.data.HealthCheck(r.Context())
	status := http.StatusOK
	if health.Status != models.HealthHealthy {
		status = http.StatusServiceUnavailable
	}
	if err := writeJSON(w, status, health, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.data.GetGlobalStats(r.Context())
	users := h.data.Users().GetUserStats(r.Context())
	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats, "users": users}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Search godoc
// @Summary Search competitions, teams and users
// @Tags dashboard
// @Security BearerAuth
// @Produce json
// @Param q query string true "query"
// @Success 200 {object} models.SearchResults
// @Router /search [get]
func (h *DashboardHandler) Search(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		badRequestResponse(w, r, errors.New("q query parameter is required"))
		return
	}
	results := h.data.GlobalSearch(r.Context(), query, actor.UserID)
	if err := writeJSON(w, http.StatusOK, results, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Cleanup runs the periodic purge on demand.
func (h *DashboardHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	report, err := h.data.Cleanup(r.Context(), h.retentionDays)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, report, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
