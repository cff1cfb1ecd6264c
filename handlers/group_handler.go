package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
	"github.com/Dosada05/sports-competitions/services"
)

type GroupHandler struct {
	groups repositories.GroupRepository
	access *services.AccessService
}

func NewGroupHandler(groups repositories.GroupRepository, access *services.AccessService) *GroupHandler {
	return &GroupHandler{groups: groups, access: access}
}

// CreateGroups accepts either {"name": "A"} or {"names": ["A", "B"]}.
// In batch mode names already taken are skipped.
func (h *GroupHandler) CreateGroups(w http.ResponseWriter, r *http.Request) {
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

	var input struct {
		Name  string   `json:"name,omitempty"`
		Names []string `json:"names,omitempty"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var groups []models.Group
	switch {
	case input.Name != "":
		group, err := h.groups.CreateGroup(r.Context(), competitionID, input.Name)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		groups = []models.Group{*group}
	case len(input.Names) > 0:
		groups, err = h.groups.CreateGroupsForCompetition(r.Context(), competitionID, input.Names)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
	default:
		badRequestResponse(w, r, errors.New("name or names is required"))
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"groups": groups}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GroupHandler) ListByCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	groups, err := h.groups.FindByCompetition(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"groups": groups}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteGroup removes the group and unassigns its teams and matches.
func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "groupID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	if _, err := h.access.ManageGroup(r.Context(), actor, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if _, err := h.groups.DeleteGroup(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
