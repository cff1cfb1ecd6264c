package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
	"github.com/Dosada05/sports-competitions/services"
	"github.com/Dosada05/sports-competitions/storage"
)

type CompetitionHandler struct {
	competitions   repositories.CompetitionRepository
	participations repositories.ParticipationRepository
	access         *services.AccessService
	media          *services.MediaService
}

func NewCompetitionHandler(
	competitions repositories.CompetitionRepository,
	participations repositories.ParticipationRepository,
	access *services.AccessService,
	media *services.MediaService,
) *CompetitionHandler {
	return &CompetitionHandler{
		competitions:   competitions,
		participations: participations,
		access:         access,
		media:          media,
	}
}

// ListPublic godoc
// @Summary Browse public competitions
// @Tags competitions
// @Produce json
// @Param country query string false "country"
// @Param category query string false "category"
// @Param status query string false "status"
// @Param search query string false "text search"
// @Param page query int false "page (from 1)"
// @Param limit query int false "page size"
// @Success 200 {object} models.CompetitionPage
// @Router /competitions [get]
func (h *CompetitionHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page", 1, 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit", 10, 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	query := r.URL.Query()
	filters := models.CompetitionFilters{
		Country:  query.Get("country"),
		Category: models.CompetitionCategory(query.Get("category")),
		Status:   models.CompetitionStatus(query.Get("status")),
		Search:   query.Get("search"),
		Page:     page,
		Limit:    limit,
	}

	result, err := h.competitions.FindPublicCompetitions(r.Context(), filters)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByID отдаёт соревнование с деталями. Приватное видят только организатор,
// администратор и подавшие заявку.
func (h *CompetitionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	details, err := h.competitions.GetCompetitionWithDetails(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if details == nil {
		notFoundResponse(w, r)
		return
	}

	if !details.IsPublic && !actor.IsAdmin() && details.OrganizerID.Hex() != actor.UserID {
		p, err := h.participations.FindByCompetitionAndParticipant(r.Context(), id, actor.UserID)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		if p == nil {
			notFoundResponse(w, r)
			return
		}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": details}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByCode resolves an invitation code, private competitions included.
func (h *CompetitionHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		badRequestResponse(w, r, errors.New("missing code in URL path"))
		return
	}
	competition, err := h.competitions.FindByCode(r.Context(), code)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if competition == nil {
		notFoundResponse(w, r)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": competition}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Create godoc
// @Summary Create a competition
// @Tags competitions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body models.CompetitionInput true "competition"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /competitions [post]
func (h *CompetitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to create competition")
		return
	}
	if err := h.access.CanCreateCompetition(actor); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	var input models.CompetitionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if !actor.IsAdmin() || input.OrganizerID == "" {
		input.OrganizerID = actor.UserID
	}

	competition, err := h.competitions.CreateCompetition(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"competition": competition}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.managed(w, r)
	if !ok {
		return
	}

	patch, err := readPatch(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	competition, err := h.competitions.UpdateCompetition(r.Context(), id, patch)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if competition == nil {
		notFoundResponse(w, r)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": competition}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.managed(w, r)
	if !ok {
		return
	}

	var input struct {
		Status models.CompetitionStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Status == "" {
		badRequestResponse(w, r, errors.New("status is required"))
		return
	}

	competition, err := h.competitions.UpdateStatus(r.Context(), id, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": competition}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.managed(w, r)
	if !ok {
		return
	}
	deleted, err := h.competitions.DeleteByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if !deleted {
		notFoundResponse(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMine returns the caller's competitions, optionally by ?status=.
func (h *CompetitionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	status := models.CompetitionStatus(r.URL.Query().Get("status"))
	competitions, err := h.competitions.FindByOrganizer(r.Context(), actor.UserID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	stats := h.competitions.GetStatsByOrganizer(r.Context(), actor.UserID)
	if err := writeJSON(w, http.StatusOK, jsonResponse{"competitions": competitions, "stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	competition, err := h.access.ManageCompetition(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	file, contentType, err := readImage(w, r, "logo")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	url, err := h.media.ReplaceImage(r.Context(), storage.KindCompetitionLogo, id, contentType, file, competition.Logo)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	updated, err := h.competitions.SetLogo(r.Context(), id, url)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AutoUpdateStatuses is the admin trigger for the scheduled status sweep.
func (h *CompetitionHandler) AutoUpdateStatuses(w http.ResponseWriter, r *http.Request) {
	updated, err := h.competitions.AutoUpdateStatuses(r.Context(), time.Now())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"updated": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// managed проверяет, что текущий пользователь управляет соревнованием из URL.
func (h *CompetitionHandler) managed(w http.ResponseWriter, r *http.Request) (string, services.Actor, bool) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return "", services.Actor{}, false
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return "", services.Actor{}, false
	}
	if _, err := h.access.ManageCompetition(r.Context(), actor, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return "", services.Actor{}, false
	}
	return id, actor, true
}
