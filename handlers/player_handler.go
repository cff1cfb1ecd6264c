package handlers

import (
	"net/http"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
	"github.com/Dosada05/sports-competitions/services"
)

type PlayerHandler struct {
	players repositories.PlayerRepository
	access  *services.AccessService
}

func NewPlayerHandler(players repositories.PlayerRepository, access *services.AccessService) *PlayerHandler {
	return &PlayerHandler{players: players, access: access}
}

// AddPlayer godoc
// @Summary Add a player to a team roster
// @Tags players
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param teamID path string true "team id"
// @Param input body models.PlayerInput true "player"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /teams/{teamID}/players [post]
func (h *PlayerHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	teamID, ok := h.managedTeam(w, r)
	if !ok {
		return
	}

	var input models.PlayerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.TeamID = teamID

	player, err := h.players.CreatePlayer(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) ListByTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	players, err := h.players.FindByTeam(r.Context(), teamID, boolQuery(r, "active"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) NextJerseyNumber(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	number, err := h.players.GetNextJerseyNumber(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"jerseyNumber": number}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	player, ok := h.managedPlayer(w, r)
	if !ok {
		return
	}
	patch, err := readPatch(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	updated, err := h.players.UpdatePlayer(r.Context(), player.ID, patch)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"player": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) SetCaptain(w http.ResponseWriter, r *http.Request) {
	player, ok := h.managedPlayer(w, r)
	if !ok {
		return
	}
	updated, err := h.players.SetCaptain(r.Context(), player.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"player": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Deactivate frees the jersey number; the player stays on record.
func (h *PlayerHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	player, ok := h.managedPlayer(w, r)
	if !ok {
		return
	}
	updated, err := h.players.Deactivate(r.Context(), player.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"player": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) managedTeam(w http.ResponseWriter, r *http.Request) (string, bool) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return "", false
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return "", false
	}
	if _, err := h.access.ManageTeam(r.Context(), actor, teamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return "", false
	}
	return teamID, true
}

func (h *PlayerHandler) managedPlayer(w http.ResponseWriter, r *http.Request) (*models.Player, bool) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return nil, false
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return nil, false
	}
	player, err := h.access.ManagePlayer(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return nil, false
	}
	return player, true
}
