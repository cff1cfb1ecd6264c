package handlers

import (
	"net/http"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
)

type NotificationHandler struct {
	notifications repositories.NotificationRepository
}

func NewNotificationHandler(notifications repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary Notifications of the current user, newest first
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param unread query bool false "only unread"
// @Param limit query int false "page size (default 50)"
// @Param skip query int false "offset"
// @Success 200 {object} map[string]interface{}
// @Router /notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	limit, err := intQuery(r, "limit", 50, 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	skip, err := intQuery(r, "skip", 0, 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	notifications, err := h.notifications.FindByUser(r.Context(), actor.UserID, boolQuery(r, "unread"), int64(limit), int64(skip))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	unread := h.notifications.GetUnreadCount(r.Context(), actor.UserID)

	if err := writeJSON(w, http.StatusOK, jsonResponse{"notifications": notifications, "unread": unread}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *NotificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	stats := h.notifications.GetNotificationStats(r.Context(), actor.UserID)
	if err := writeJSON(w, http.StatusOK, stats, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "notificationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	notification, err := h.notifications.MarkAsRead(r.Context(), id, actor.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"notification": notification}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	updated, err := h.notifications.MarkAllAsRead(r.Context(), actor.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"updated": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "notificationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	deleted, err := h.notifications.DeleteNotification(r.Context(), id, actor.UserID)
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

// Broadcast lets an administrator send one notification to many users.
func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserIDs      []string                 `json:"userIds"`
		Notification models.NotificationInput `json:"notification"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	created, err := h.notifications.CreateForUsers(r.Context(), input.UserIDs, input.Notification)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"created": len(created)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
