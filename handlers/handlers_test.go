package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/sports-competitions/middleware"
	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/realtime"
	"github.com/Dosada05/sports-competitions/repositories"
	"github.com/Dosada05/sports-competitions/services"
	"github.com/Dosada05/sports-competitions/validation"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &validation.ValidationError{Entity: "Team", Missing: []string{"name"}}, http.StatusUnprocessableEntity},
		{"not found", repositories.ErrMatchNotFound, http.StatusNotFound},
		{"service not found", services.ErrNotFound, http.StatusNotFound},
		{"conflict", repositories.ErrTeamNameConflict, http.StatusConflict},
		{"jersey conflict", repositories.JerseyConflict(7), http.StatusConflict},
		{"full", repositories.ErrCompetitionFull, http.StatusConflict},
		{"transition", fmt.Errorf("%w: DRAFT -> COMPLETED", repositories.ErrInvalidStatusTransition), http.StatusBadRequest},
		{"invalid input", repositories.ErrScoresRequired, http.StatusBadRequest},
		{"registration closed", repositories.ErrRegistrationClosed, http.StatusBadRequest},
		{"foreign group", repositories.ErrGroupNotFound, http.StatusNotFound},
		{"credentials", services.ErrAuthInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", services.ErrCaptainActionForbidden, http.StatusForbidden},
		{"uploads disabled", services.ErrUploadsDisabled, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestValidationResponseListsFields(t *testing.T) {
	rec := httptest.NewRecorder()
	ve := &validation.ValidationError{
		Entity:  "Player",
		Missing: []string{"name"},
		Invalid: []validation.FieldError{{Field: "jerseyNumber", Value: "120", Rule: "max=99"}},
	}
	mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil), ve)

	body := decodeBody(t, rec)
	detail, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("error = %v", body["error"])
	}
	if detail["entity"] != "Player" {
		t.Errorf("entity = %v", detail["entity"])
	}
	if missing, _ := detail["missing"].([]any); len(missing) != 1 || missing[0] != "name" {
		t.Errorf("missing = %v", detail["missing"])
	}
	if invalid, _ := detail["invalid"].([]any); len(invalid) != 1 {
		t.Errorf("invalid = %v", detail["invalid"])
	}
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"ok", `{"email":"a@b.c"}`, ""},
		{"empty", ``, "must not be empty"},
		{"unknown field", `{"email":"a@b.c","admin":true}`, "unknown key"},
		{"two values", `{"email":"a"}{"email":"b"}`, "single JSON value"},
		{"bad type", `{"email":42}`, "incorrect JSON type"},
		{"malformed", `{"email":`, "badly-formed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst struct {
				Email string `json:"email"`
			}
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := readJSON(httptest.NewRecorder(), req, &dst)
			switch {
			case tt.wantErr == "" && err != nil:
				t.Fatalf("readJSON() error = %v", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Fatalf("readJSON() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetIDFromURL(t *testing.T) {
	valid := primitive.NewObjectID().Hex()
	for value, wantErr := range map[string]bool{valid: false, "42": true, "": true} {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("teamID", value)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		id, err := getIDFromURL(req, "teamID")
		if (err != nil) != wantErr {
			t.Errorf("getIDFromURL(%q) error = %v, wantErr %v", value, err, wantErr)
		}
		if !wantErr && id != valid {
			t.Errorf("getIDFromURL(%q) = %q", value, id)
		}
	}
}

type fakeAuth struct {
	users      map[string]*models.User
	passwords  map[string]string
	registered models.CreateUserInput
}

func (f *fakeAuth) Register(_ context.Context, in models.CreateUserInput) (*models.User, *models.VerificationToken, error) {
	f.registered = in
	u := &models.User{Email: in.Email, FirstName: in.FirstName, Role: in.Role}
	u.ObjectID = primitive.NewObjectID()
	u.ID = u.ObjectID.Hex()
	return u, &models.VerificationToken{Identifier: in.Email, Token: "t", Expires: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok || f.passwords[email] != password {
		return nil, services.ErrAuthInvalidCredentials
	}
	return u, nil
}

func (f *fakeAuth) ConfirmEmail(context.Context, string, string) (*models.User, error) {
	return nil, services.ErrInvalidVerification
}

func (f *fakeAuth) ChangePassword(context.Context, string, string, string) error {
	return nil
}

func newFakeAuth() *fakeAuth {
	u := &models.User{Email: "org@example.com", Role: models.RoleOrganizer}
	u.ObjectID = primitive.NewObjectID()
	u.ID = u.ObjectID.Hex()
	return &fakeAuth{
		users:     map[string]*models.User{u.Email: u},
		passwords: map[string]string{u.Email: "secret123"},
	}
}

func TestLoginIssuesToken(t *testing.T) {
	auth := newFakeAuth()
	h := NewAuthHandler(auth, "test-secret", quietLogger())

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/signin",
		strings.NewReader(`{"email":"org@example.com","password":"secret123"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	raw, _ := decodeBody(t, rec)["token"].(string)
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}); err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims["user_id"] != auth.users["org@example.com"].ID || claims["role"] != "ORGANIZER" {
		t.Errorf("claims = %v", claims)
	}
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	h := NewAuthHandler(newFakeAuth(), "test-secret", quietLogger())

	send := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(body)))
		return rec
	}
	unknown := send(`{"email":"ghost@example.com","password":"secret123"}`)
	wrong := send(`{"email":"org@example.com","password":"nope"}`)

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d / %d, want 401", unknown.Code, wrong.Code)
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Errorf("bodies differ: %s vs %s", unknown.Body, wrong.Body)
	}
	if rec := send(`{"email":"org@example.com"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing password: status = %d", rec.Code)
	}
}

func TestRegisterDefaultsToParticipant(t *testing.T) {
	auth := newFakeAuth()
	h := NewAuthHandler(auth, "test-secret", quietLogger())

	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/signup",
		strings.NewReader(`{"email":"new@example.com","password":"secret123","firstName":"Nina","lastName":"K"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if auth.registered.Role != models.RoleParticipant {
		t.Errorf("role = %q, want PARTICIPANT", auth.registered.Role)
	}
	if strings.Contains(rec.Body.String(), "secret123") {
		t.Error("response leaks the password")
	}
}

func TestWebSocketDeliversUserNotifications(t *testing.T) {
	hub := realtime.NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	secret := []byte("ws-secret")
	ws := NewWebSocketHandler(hub, []string{"*"}, quietLogger())
	router := chi.NewRouter()
	router.With(middleware.Authenticate(secret)).Get("/ws/notifications", ws.ServeNotifications)
	server := httptest.NewServer(router)
	defer server.Close()

	user := &models.User{Role: models.RoleParticipant}
	user.ObjectID = primitive.NewObjectID()
	user.ID = user.ObjectID.Hex()
	token, err := middleware.IssueToken(secret, user)
	if err != nil {
		t.Fatal(err)
	}

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectedClients(realtime.UserRoom(user.ID)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never joined its room")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.PublishToUser(user.ID, repositories.EventNotificationCreated, map[string]string{"title": "Match terminé"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg realtime.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != repositories.EventNotificationCreated {
		t.Errorf("type = %q", msg.Type)
	}

	if _, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/notifications", nil); err == nil {
		t.Error("dial without token succeeded")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("dial without token: resp = %v", resp)
	}
}
