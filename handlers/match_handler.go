package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
	"github.com/Dosada05/sports-competitions/services"
)

// Fixture formats accepted by GenerateFixtures.
const (
	FixtureRoundRobin = "ROUND_ROBIN"
	FixtureKnockout   = "KNOCKOUT"
)

type MatchHandler struct {
	matches  repositories.MatchRepository
	teams    repositories.TeamRepository
	access   *services.AccessService
	notifier *services.Notifier
}

func NewMatchHandler(
	matches repositories.MatchRepository,
	teams repositories.TeamRepository,
	access *services.AccessService,
	notifier *services.Notifier,
) *MatchHandler {
	return &MatchHandler{matches: matches, teams: teams, access: access, notifier: notifier}
}

func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	competitionID, ok := h.managedCompetition(w, r)
	if !ok {
		return
	}

	var input models.MatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.CompetitionID = competitionID

	match, err := h.matches.CreateMatch(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GenerateFixtures godoc
// @Summary Generate the fixtures of a competition
// @Description ROUND_ROBIN plays every pair twice (home and away), one fixture a week; KNOCKOUT creates the first round only.
// @Tags matches
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param competitionID path string true "competition id"
// @Success 201 {object} map[string]interface{}
// @Router /competitions/{competitionID}/matches/generate [post]
func (h *MatchHandler) GenerateFixtures(w http.ResponseWriter, r *http.Request) {
	competitionID, ok := h.managedCompetition(w, r)
	if !ok {
		return
	}

	var input struct {
		Format    string           `json:"format"`
		TeamIDs   []string         `json:"teamIds,omitempty"`
		StartDate *models.FlexTime `json:"startDate,omitempty"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if len(input.TeamIDs) == 0 {
		teams, err := h.teams.FindByCompetition(r.Context(), competitionID, true)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		for _, t := range teams {
			input.TeamIDs = append(input.TeamIDs, t.ID)
		}
	}

	var start time.Time
	if input.StartDate != nil {
		start = input.StartDate.Time
	}

	var (
		matches []models.Match
		err     error
	)
	switch strings.ToUpper(input.Format) {
	case FixtureRoundRobin, "":
		matches, err = h.matches.GenerateRoundRobinMatches(r.Context(), competitionID, input.TeamIDs, start)
	case FixtureKnockout:
		matches, err = h.matches.GenerateKnockoutMatches(r.Context(), competitionID, input.TeamIDs, start)
	default:
		badRequestResponse(w, r, fmt.Errorf("unknown format %q: expected %s or %s", input.Format, FixtureRoundRobin, FixtureKnockout))
		return
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	relatedID, relatedType := services.Related(competitionID, models.RelatedCompetition)
	h.notifier.NotifyMany(r.Context(), h.captains(r.Context(), input.TeamIDs), models.NotificationInput{
		Title:       "Calendrier publié",
		Message:     fmt.Sprintf("%d matchs ont été programmés", len(matches)),
		Type:        models.NotificationInfo,
		Category:    models.CategoryMatchNotice,
		RelatedID:   relatedID,
		RelatedType: relatedType,
	})

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListByCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matches, err := h.matches.FindByCompetition(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	standings, err := h.matches.GetStandings(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatchByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matches.FindByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if match == nil {
		notFoundResponse(w, r)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMatch edits venue, referee, date and the like; status and scores
// change only through the dedicated actions.
func (h *MatchHandler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	match, ok := h.managedMatch(w, r)
	if !ok {
		return
	}
	patch, err := readPatch(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.respond(w, r)(h.matches.UpdateMatch(r.Context(), match.ID, patch))
}

func (h *MatchHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	match, ok := h.managedMatch(w, r)
	if !ok {
		return
	}
	h.respond(w, r)(h.matches.StartMatch(r.Context(), match.ID))
}

func (h *MatchHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	match, ok := h.managedMatch(w, r)
	if !ok {
		return
	}

	var input struct {
		HomeScore *int `json:"homeScore"`
		AwayScore *int `json:"awayScore"`
		Final     bool `json:"final"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	updated, err := h.matches.UpdateScore(r.Context(), match.ID, input.HomeScore, input.AwayScore, input.Final)
	if err == nil && updated != nil && input.Final {
		relatedID, relatedType := services.Related(updated.ID, models.RelatedMatch)
		h.notifier.NotifyMany(r.Context(),
			h.captains(r.Context(), []string{updated.HomeTeamID.Hex(), updated.AwayTeamID.Hex()}),
			models.NotificationInput{
				Title:       "Résultat final",
				Message:     fmt.Sprintf("Match terminé sur le score de %d - %d", *updated.HomeScore, *updated.AwayScore),
				Type:        models.NotificationInfo,
				Category:    models.CategoryMatchNotice,
				RelatedID:   relatedID,
				RelatedType: relatedType,
			})
	}
	h.respond(w, r)(updated, err)
}

func (h *MatchHandler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	match, ok := h.managedMatch(w, r)
	if !ok {
		return
	}
	var input struct {
		Reason *string `json:"reason,omitempty"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}
	h.respond(w, r)(h.matches.CancelMatch(r.Context(), match.ID, input.Reason))
}

func (h *MatchHandler) PostponeMatch(w http.ResponseWriter, r *http.Request) {
	match, ok := h.managedMatch(w, r)
	if !ok {
		return
	}
	var input struct {
		NewDate *models.FlexTime `json:"newDate"`
		Reason  *string          `json:"reason,omitempty"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.respond(w, r)(h.matches.PostponeMatch(r.Context(), match.ID, input.NewDate.TimePtr(), input.Reason))
}

// respond пишет результат мутации матча.
func (h *MatchHandler) respond(w http.ResponseWriter, r *http.Request) func(*models.Match, error) {
	return func(match *models.Match, err error) {
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		if match == nil {
			notFoundResponse(w, r)
			return
		}
		if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
	}
}

// captains returns the distinct captain ids of the given teams.
func (h *MatchHandler) captains(ctx context.Context, teamIDs []string) []string {
	seen := make(map[primitive.ObjectID]bool, len(teamIDs))
	out := make([]string, 0, len(teamIDs))
	for _, id := range teamIDs {
		team, err := h.teams.FindByID(ctx, id)
		if err != nil || team == nil || seen[team.CaptainID] {
			continue
		}
		seen[team.CaptainID] = true
		out = append(out, team.CaptainID.Hex())
	}
	return out
}

func (h *MatchHandler) managedCompetition(w http.ResponseWriter, r *http.Request) (string, bool) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return "", false
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return "", false
	}
	if _, err := h.access.ManageCompetition(r.Context(), actor, competitionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return "", false
	}
	return competitionID, true
}

func (h *MatchHandler) managedMatch(w http.ResponseWriter, r *http.Request) (*models.Match, bool) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return nil, false
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return nil, false
	}
	match, err := h.access.ManageMatch(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return nil, false
	}
	return match, true
}
