package handlers

import (
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
)

type AdminUserHandler struct {
	users    repositories.UserRepository
	sessions repositories.SessionRepository
}

func NewAdminUserHandler(users repositories.UserRepository, sessions repositories.SessionRepository) *AdminUserHandler {
	return &AdminUserHandler{users: users, sessions: sessions}
}

func (h *AdminUserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page", 1, 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit", 20, 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if search := r.URL.Query().Get("search"); search != "" {
		users, err := h.users.Search(r.Context(), search, "", int64(limit))
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, jsonResponse{"users": users, "total": len(users)}, nil)
		return
	}

	filter := bson.M{}
	if role := r.URL.Query().Get("role"); role != "" {
		filter["role"] = role
	}
	users, err := h.users.FindMany(r.Context(), filter, repositories.FindOptions{
		Sort:  bson.D{{Key: "createdAt", Value: -1}},
		Limit: int64(limit),
		Skip:  int64((page - 1) * limit),
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	total := h.users.Count(r.Context(), filter)

	if err := writeJSON(w, http.StatusOK, jsonResponse{"users": users, "total": total, "page": page, "limit": limit}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetRole changes a user's role and revokes the user's sessions.
func (h *AdminUserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Role models.UserRole `json:"role"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Role == "" {
		badRequestResponse(w, r, errors.New("role is required"))
		return
	}

	user, err := h.users.UpdateUser(r.Context(), id, bson.M{"role": string(input.Role)})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if user == nil {
		notFoundResponse(w, r)
		return
	}
	if _, err := h.sessions.DeleteByUser(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminUserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	deleted, err := h.users.DeleteByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if !deleted {
		notFoundResponse(w, r)
		return
	}
	if _, err := h.sessions.DeleteByUser(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
