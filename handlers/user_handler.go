package handlers

import (
	"net/http"

	"github.com/Dosada05/sports-competitions/middleware"
	"github.com/Dosada05/sports-competitions/repositories"
	"github.com/Dosada05/sports-competitions/services"
	"github.com/Dosada05/sports-competitions/storage"
)

type UserHandler struct {
	users repositories.UserRepository
	media *services.MediaService
}

func NewUserHandler(users repositories.UserRepository, media *services.MediaService) *UserHandler {
	return &UserHandler{users: users, media: media}
}

// GetMe godoc
// @Summary Current user profile
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /users/me [get]
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	h.writeUser(w, r, userID)
}

func (h *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.writeUser(w, r, id)
}

func (h *UserHandler) writeUser(w http.ResponseWriter, r *http.Request, id string) {
	user, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if user == nil {
		notFoundResponse(w, r)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMe применяет частичное обновление профиля. Роль меняет только администратор.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	patch, err := readPatch(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if !actor.IsAdmin() {
		delete(patch, "role")
	}

	user, err := h.users.UpdateUser(r.Context(), actor.UserID, patch)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if user == nil {
		notFoundResponse(w, r)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	current, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if current == nil {
		notFoundResponse(w, r)
		return
	}

	file, contentType, err := readImage(w, r, "avatar")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	url, err := h.media.ReplaceImage(r.Context(), storage.KindUserAvatar, userID, contentType, file, current.Image)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	user, err := h.users.SetImage(r.Context(), userID, url)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
