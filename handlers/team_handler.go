package handlers

import (
	"net/http"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
	"github.com/Dosada05/sports-competitions/services"
	"github.com/Dosada05/sports-competitions/storage"
)

type TeamHandler struct {
	teams   repositories.TeamRepository
	matches repositories.MatchRepository
	access  *services.AccessService
	media   *services.MediaService
}

func NewTeamHandler(
	teams repositories.TeamRepository,
	matches repositories.MatchRepository,
	access *services.AccessService,
	media *services.MediaService,
) *TeamHandler {
	return &TeamHandler{teams: teams, matches: matches, access: access, media: media}
}

// CreateTeam godoc
// @Summary Register a team in a competition
// @Tags teams
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param competitionID path string true "competition id"
// @Param input body models.TeamInput true "team"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /competitions/{competitionID}/teams [post]
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to create team")
		return
	}

	var input models.TeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.CompetitionID = competitionID

	// Капитаном другого пользователя может назначить только организатор.
	if input.CaptainID == "" {
		input.CaptainID = actor.UserID
	} else if input.CaptainID != actor.UserID {
		if _, err := h.access.ManageCompetition(r.Context(), actor, competitionID); err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
	}

	team, err := h.teams.CreateTeam(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) GetTeamByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	team, err := h.teams.GetTeamWithPlayers(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if team == nil {
		notFoundResponse(w, r)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByCompetition returns the teams of a competition; ?active=true hides
// inactive ones.
func (h *TeamHandler) ListByCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teams, err := h.teams.FindByCompetition(r.Context(), competitionID, boolQuery(r, "active"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	teams, err := h.teams.FindByCaptain(r.Context(), actor.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) UpdateTeamDetails(w http.ResponseWriter, r *http.Request) {
	team, ok := h.managed(w, r)
	if !ok {
		return
	}
	patch, err := readPatch(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	updated, err := h.teams.UpdateTeam(r.Context(), team.ID, patch)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	team, ok := h.managed(w, r)
	if !ok {
		return
	}
	if _, err := h.teams.DeleteByID(r.Context(), team.ID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignGroup sets or clears (groupId: null) the team's group. Organizer only.
func (h *TeamHandler) AssignGroup(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	team, err := h.teams.FindByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if team == nil {
		notFoundResponse(w, r)
		return
	}
	if _, err := h.access.ManageCompetition(r.Context(), actor, team.CompetitionID.Hex()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	var input struct {
		GroupID *string `json:"groupId"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var updated *models.Team
	if input.GroupID == nil || *input.GroupID == "" {
		updated, err = h.teams.RemoveFromGroup(r.Context(), id)
	} else {
		updated, err = h.teams.AssignToGroup(r.Context(), id, *input.GroupID)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	team, ok := h.managed(w, r)
	if !ok {
		return
	}

	file, contentType, err := readImage(w, r, "logo")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	url, err := h.media.ReplaceImage(r.Context(), storage.KindTeamLogo, team.ID, contentType, file, team.Logo)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	updated, err := h.teams.SetLogo(r.Context(), team.ID, url)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	record, err := h.matches.GetTeamRecord(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"record": record}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) GetUpcomingMatches(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit", 10, 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matches, err := h.matches.GetUpcomingMatches(r.Context(), id, int64(limit))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) managed(w http.ResponseWriter, r *http.Request) (*models.Team, bool) {
	id, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return nil, false
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return nil, false
	}
	team, err := h.access.ManageTeam(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return nil, false
	}
	return team, true
}
