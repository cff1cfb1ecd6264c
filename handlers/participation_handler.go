package handlers

import (
	"fmt"
	"net/http"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
	"github.com/Dosada05/sports-competitions/services"
)

type ParticipationHandler struct {
	participations repositories.ParticipationRepository
	competitions   repositories.CompetitionRepository
	access         *services.AccessService
	notifier       *services.Notifier
}

func NewParticipationHandler(
	participations repositories.ParticipationRepository,
	competitions repositories.CompetitionRepository,
	access *services.AccessService,
	notifier *services.Notifier,
) *ParticipationHandler {
	return &ParticipationHandler{
		participations: participations,
		competitions:   competitions,
		access:         access,
		notifier:       notifier,
	}
}

// Apply godoc
// @Summary Apply to a competition
// @Tags participations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param competitionID path string true "competition id"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /competitions/{competitionID}/participations [post]
func (h *ParticipationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Message *string `json:"message,omitempty"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	participation, err := h.participations.CreateParticipation(r.Context(), competitionID, actor.UserID, input.Message)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if competition, err := h.competitions.FindByID(r.Context(), competitionID); err == nil && competition != nil {
		relatedID, relatedType := services.Related(participation.ID, models.RelatedParticipation)
		h.notifier.Notify(r.Context(), models.NotificationInput{
			UserID:      competition.OrganizerID.Hex(),
			Title:       "Nouvelle inscription",
			Message:     fmt.Sprintf("Nouvelle demande de participation à %s", competition.Name),
			Type:        models.NotificationInfo,
			Category:    models.CategoryParticipationNotice,
			RelatedID:   relatedID,
			RelatedType: relatedType,
		})
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participation": participation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByCompetition is reserved to the organizer; ?status= filters.
func (h *ParticipationHandler) ListByCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	if _, err := h.access.ManageCompetition(r.Context(), actor, competitionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := models.ParticipationStatus(r.URL.Query().Get("status"))
	participations, err := h.participations.FindByCompetition(r.Context(), competitionID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	stats := h.participations.GetParticipationStats(r.Context(), competitionID)

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participations": participations, "stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ParticipationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	participations, err := h.participations.FindByParticipant(r.Context(), actor.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participations": participations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ParticipationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	current, ok := h.decided(w, r)
	if !ok {
		return
	}

	participation, err := h.participations.ApproveParticipation(r.Context(), current.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	relatedID, relatedType := services.Related(participation.CompetitionID.Hex(), models.RelatedCompetition)
	h.notifier.Notify(r.Context(), models.NotificationInput{
		UserID:      participation.ParticipantID.Hex(),
		Title:       "Participation acceptée",
		Message:     "Votre demande de participation a été acceptée",
		Type:        models.NotificationSuccess,
		Category:    models.CategoryParticipationNotice,
		RelatedID:   relatedID,
		RelatedType: relatedType,
	})

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participation": participation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ParticipationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	current, ok := h.decided(w, r)
	if !ok {
		return
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participation, err := h.participations.RejectParticipation(r.Context(), current.ID, input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	relatedID, relatedType := services.Related(participation.CompetitionID.Hex(), models.RelatedCompetition)
	h.notifier.Notify(r.Context(), models.NotificationInput{
		UserID:      participation.ParticipantID.Hex(),
		Title:       "Participation refusée",
		Message:     "Votre demande de participation a été refusée: " + input.Reason,
		Type:        models.NotificationWarning,
		Category:    models.CategoryParticipationNotice,
		RelatedID:   relatedID,
		RelatedType: relatedType,
	})

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participation": participation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Withdraw may only be called by the participant or an administrator.
func (h *ParticipationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	current, actor, ok := h.load(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin() && current.ParticipantID.Hex() != actor.UserID {
		forbiddenResponse(w, r, services.ErrForbiddenOperation.Error())
		return
	}

	participation, err := h.participations.WithdrawParticipation(r.Context(), current.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participation": participation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// decided загружает заявку и проверяет, что решение принимает организатор.
func (h *ParticipationHandler) decided(w http.ResponseWriter, r *http.Request) (*models.Participation, bool) {
	current, actor, ok := h.load(w, r)
	if !ok {
		return nil, false
	}
	if _, err := h.access.ManageCompetition(r.Context(), actor, current.CompetitionID.Hex()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return nil, false
	}
	return current, true
}

func (h *ParticipationHandler) load(w http.ResponseWriter, r *http.Request) (*models.Participation, services.Actor, bool) {
	id, err := getIDFromURL(r, "participationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return nil, services.Actor{}, false
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return nil, services.Actor{}, false
	}
	current, err := h.participations.FindByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return nil, services.Actor{}, false
	}
	if current == nil {
		mapServiceErrorToHTTP(w, r, repositories.ErrParticipationNotFound)
		return nil, services.Actor{}, false
	}
	return current, actor, true
}
