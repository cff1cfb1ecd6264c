package repositories

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
)

// Интеграционные тесты нуждаются в живом MongoDB (MONGODB_TEST_URI).
// Каждый тест работает в своей базе, которая удаляется по завершении.

type testStore struct {
	users          UserRepository
	competitions   CompetitionRepository
	participations ParticipationRepository
	teams          TeamRepository
	players        PlayerRepository
	matches        MatchRepository
	groups         GroupRepository
	notifications  NotificationRepository
	sessions       SessionRepository
	tokens         VerificationTokenRepository
	manager        *db.Manager
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI is not set")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := db.NewManager(db.Options{
		URI:      uri,
		Database: "sc_test_" + primitive.NewObjectID().Hex(),
	}, logger)

	ctx := context.Background()
	database, err := manager.Connect(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = manager.Close(context.Background())
	})

	s := &testStore{
		users:          NewMongoUserRepository(manager, logger),
		competitions:   NewMongoCompetitionRepository(manager, logger),
		participations: NewMongoParticipationRepository(manager, logger),
		teams:          NewMongoTeamRepository(manager, logger),
		players:        NewMongoPlayerRepository(manager, logger),
		matches:        NewMongoMatchRepository(manager, logger),
		groups:         NewMongoGroupRepository(manager, logger),
		notifications:  NewMongoNotificationRepository(manager, logger),
		sessions:       NewMongoSessionRepository(manager, logger),
		tokens:         NewMongoVerificationTokenRepository(manager, logger),
		manager:        manager,
	}
	for _, create := range []func(context.Context) error{
		s.users.CreateIndexes, s.competitions.CreateIndexes, s.participations.CreateIndexes,
		s.teams.CreateIndexes, s.players.CreateIndexes, s.matches.CreateIndexes,
		s.groups.CreateIndexes, s.notifications.CreateIndexes, s.sessions.CreateIndexes,
		s.tokens.CreateIndexes,
	} {
		if err := create(ctx); err != nil {
			t.Fatalf("create indexes: %v", err)
		}
	}
	return s
}

func (s *testStore) user(t *testing.T, email string, role models.UserRole) *models.User {
	t.Helper()
	u, err := s.users.CreateUser(context.Background(), models.CreateUserInput{
		Email:     email,
		Password:  "motdepasse",
		FirstName: "Jean",
		LastName:  "Dupont",
		Role:      role,
	})
	if err != nil || u == nil {
		t.Fatalf("CreateUser(%s) = %v, %v", email, u, err)
	}
	return u
}

func (s *testStore) competition(t *testing.T, organizer *models.User, public bool, max *int) *models.Competition {
	t.Helper()
	c, err := s.competitions.CreateCompetition(context.Background(), models.CompetitionInput{
		Name:                 "Coupe de printemps",
		Category:             models.CategoryFootball,
		Type:                 models.TypeRoundRobin,
		Status:               models.CompetitionOpen,
		OrganizerID:          organizer.ID,
		IsPublic:             &public,
		MaxParticipants:      max,
		RegistrationDeadline: &models.FlexTime{Time: time.Now().Add(7 * 24 * time.Hour)},
	})
	if err != nil || c == nil {
		t.Fatalf("CreateCompetition() = %v, %v", c, err)
	}
	return c
}

func (s *testStore) team(t *testing.T, competition *models.Competition, captain *models.User, name string) *models.Team {
	t.Helper()
	team, err := s.teams.CreateTeam(context.Background(), models.TeamInput{
		Name:          name,
		CompetitionID: competition.ID,
		CaptainID:     captain.ID,
	})
	if err != nil || team == nil {
		t.Fatalf("CreateTeam(%s) = %v, %v", name, team, err)
	}
	return team
}

func intPtr(n int) *int { return &n }

func TestCreateThenFindByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := s.user(t, "Alice@Example.com", models.RoleOrganizer)

	if u.ID == "" {
		t.Fatal("created user has no id")
	}
	if u.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalized", u.Email)
	}
	if u.CreatedAt.IsZero() || !u.CreatedAt.Equal(u.UpdatedAt) {
		t.Errorf("timestamps = %v / %v, want set and equal", u.CreatedAt, u.UpdatedAt)
	}

	found, err := s.users.FindByID(ctx, u.ID)
	if err != nil || found == nil || found.ID != u.ID {
		t.Fatalf("FindByID() = %v, %v", found, err)
	}
	if missing, err := s.users.FindByID(ctx, primitive.NewObjectID().Hex()); missing != nil || err != nil {
		t.Errorf("FindByID(unknown) = %v, %v, want nil, nil", missing, err)
	}
	if missing, err := s.users.FindByID(ctx, "not-an-id"); missing != nil || err != nil {
		t.Errorf("FindByID(malformed) = %v, %v, want nil, nil", missing, err)
	}
}

func TestUpdateAdvancesUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := s.user(t, "bob@example.com", models.RoleParticipant)

	first, err := s.users.UpdateByID(ctx, u.ID, bson.M{"firstName": "Robert", "createdAt": time.Unix(0, 0)})
	if err != nil || first == nil {
		t.Fatalf("UpdateByID() = %v, %v", first, err)
	}
	second, err := s.users.UpdateByID(ctx, u.ID, bson.M{"lastName": "Martin"})
	if err != nil || second == nil {
		t.Fatalf("UpdateByID() = %v, %v", second, err)
	}

	if !first.UpdatedAt.After(u.UpdatedAt) || !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("updatedAt did not advance: %v, %v, %v", u.UpdatedAt, first.UpdatedAt, second.UpdatedAt)
	}
	if !second.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("createdAt changed: %v -> %v", u.CreatedAt, second.CreatedAt)
	}
	if second.FirstName != "Robert" || second.LastName != "Martin" {
		t.Errorf("patch not applied: %+v", second)
	}
	if none, err := s.users.UpdateByID(ctx, primitive.NewObjectID().Hex(), bson.M{"firstName": "X"}); none != nil || err != nil {
		t.Errorf("UpdateByID(unknown) = %v, %v", none, err)
	}
}

func TestUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	organizer := s.user(t, "orga@example.com", models.RoleOrganizer)

	_, err := s.users.CreateUser(ctx, models.CreateUserInput{
		Email: "ORGA@example.com", Password: "x", FirstName: "A", LastName: "B",
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate email error = %v, want conflict", err)
	}

	c := s.competition(t, organizer, true, nil)
	team := s.team(t, c, organizer, "Les Aigles")
	if _, err := s.teams.CreateTeam(ctx, models.TeamInput{
		Name: "les AIGLES", CompetitionID: c.ID, CaptainID: organizer.ID,
	}); !errors.Is(err, ErrTeamNameConflict) {
		t.Errorf("duplicate team name error = %v", err)
	}

	if _, err := s.players.CreatePlayer(ctx, models.PlayerInput{
		FirstName: "Paul", LastName: "Durand", TeamID: team.ID, JerseyNumber: 10,
	}); err != nil {
		t.Fatalf("CreatePlayer() error = %v", err)
	}
	_, err = s.players.CreatePlayer(ctx, models.PlayerInput{
		FirstName: "Luc", LastName: "Petit", TeamID: team.ID, JerseyNumber: 10,
	})
	if !errors.Is(err, ErrConflict) || err.Error() != "Le numéro 10 est déjà utilisé" {
		t.Errorf("duplicate jersey error = %v", err)
	}
	next, err := s.players.GetNextJerseyNumber(ctx, team.ID)
	if err != nil || next != 1 {
		t.Errorf("GetNextJerseyNumber() = %d, %v, want 1", next, err)
	}
}

func TestParticipationScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	organizer := s.user(t, "a@example.com", models.RoleOrganizer)
	participant := s.user(t, "b@example.com", models.RoleParticipant)
	c := s.competition(t, organizer, true, intPtr(2))

	p, err := s.participations.CreateParticipation(ctx, c.ID, participant.ID, nil)
	if err != nil || p == nil {
		t.Fatalf("CreateParticipation() = %v, %v", p, err)
	}
	if p.Status != models.ParticipationPending {
		t.Errorf("Status = %s, want PENDING", p.Status)
	}

	approved, err := s.participations.ApproveParticipation(ctx, p.ID)
	if err != nil || approved == nil {
		t.Fatalf("ApproveParticipation() = %v, %v", approved, err)
	}
	if approved.Status != models.ParticipationApproved || approved.ApprovalDate == nil {
		t.Errorf("approved = %+v", approved)
	}

	if _, err := s.participations.CreateParticipation(ctx, c.ID, participant.ID, nil); !errors.Is(err, ErrConflict) {
		t.Errorf("second participation error = %v, want conflict", err)
	}
	if _, err := s.participations.ApproveParticipation(ctx, p.ID); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("re-approve error = %v, want transition error", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	organizer := s.user(t, "a@example.com", models.RoleOrganizer)
	participant := s.user(t, "b@example.com", models.RoleParticipant)
	c := s.competition(t, organizer, true, nil)
	p, err := s.participations.CreateParticipation(ctx, c.ID, participant.ID, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.participations.RejectParticipation(ctx, p.ID, "  "); !errors.Is(err, ErrRejectionReasonRequired) {
		t.Errorf("blank reason error = %v", err)
	}
	rejected, err := s.participations.RejectParticipation(ctx, p.ID, "Complet")
	if err != nil || rejected == nil {
		t.Fatalf("RejectParticipation() = %v, %v", rejected, err)
	}
	if rejected.Status != models.ParticipationRejected || rejected.RejectionReason == nil || *rejected.RejectionReason != "Complet" {
		t.Errorf("rejected = %+v", rejected)
	}
	if _, err := s.participations.RejectParticipation(ctx, primitive.NewObjectID().Hex(), "x"); !errors.Is(err, ErrParticipationNotFound) {
		t.Errorf("unknown id error = %v", err)
	}
}

func TestApproveRespectsCapacity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	organizer := s.user(t, "a@example.com", models.RoleOrganizer)
	c := s.competition(t, organizer, true, intPtr(1))

	var ids []string
	for _, email := range []string{"p1@example.com", "p2@example.com"} {
		u := s.user(t, email, models.RoleParticipant)
		p, err := s.participations.CreateParticipation(ctx, c.ID, u.ID, nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, p.ID)
	}
	if _, err := s.participations.ApproveParticipation(ctx, ids[0]); err != nil {
		t.Fatalf("first approval: %v", err)
	}
	if _, err := s.participations.ApproveParticipation(ctx, ids[1]); !errors.Is(err, ErrCompetitionFull) {
		t.Errorf("second approval error = %v, want ErrCompetitionFull", err)
	}
}

func TestSetCaptainKeepsOneCaptain(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	organizer := s.user(t, "a@example.com", models.RoleOrganizer)
	team := s.team(t, s.competition(t, organizer, true, nil), organizer, "Lions")

	var players []*models.Player
	for i, name := range []string{"Ana", "Bea", "Cid"} {
		p, err := s.players.CreatePlayer(ctx, models.PlayerInput{
			FirstName: name, LastName: "X", TeamID: team.ID, JerseyNumber: i + 1,
		})
		if err != nil {
			t.Fatal(err)
		}
		players = append(players, p)
	}

	if _, err := s.players.SetCaptain(ctx, players[0].ID); err != nil {
		t.Fatalf("SetCaptain(p1): %v", err)
	}
	if _, err := s.players.SetCaptain(ctx, players[1].ID); err != nil {
		t.Fatalf("SetCaptain(p2): %v", err)
	}

	roster, err := s.players.FindByTeam(ctx, team.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	captains := 0
	for _, p := range roster {
		if p.IsCaptain {
			captains++
			if p.ID != players[1].ID {
				t.Errorf("unexpected captain %s", p.Name)
			}
		}
	}
	if captains != 1 {
		t.Errorf("team has %d captains, want 1", captains)
	}
}

func TestMatchLifecycleAndRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	organizer := s.user(t, "a@example.com", models.RoleOrganizer)
	c := s.competition(t, organizer, true, nil)
	home := s.team(t, c, organizer, "Domicile")
	away := s.team(t, c, organizer, "Exterieur")

	m, err := s.matches.CreateMatch(ctx, models.MatchInput{
		CompetitionID: c.ID,
		HomeTeamID:    home.ID,
		AwayTeamID:    away.ID,
		ScheduledDate: &models.FlexTime{Time: time.Now().Add(24 * time.Hour)},
	})
	if err != nil || m == nil {
		t.Fatalf("CreateMatch() = %v, %v", m, err)
	}
	if _, err := s.matches.UpdateScore(ctx, m.ID, intPtr(1), intPtr(0), true); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("completing a scheduled match: %v", err)
	}

	live, err := s.matches.StartMatch(ctx, m.ID)
	if err != nil || live.Status != models.MatchLive || live.StartTime == nil {
		t.Fatalf("StartMatch() = %+v, %v", live, err)
	}
	if _, err := s.matches.UpdateScore(ctx, m.ID, intPtr(2), nil, true); !errors.Is(err, ErrScoresRequired) {
		t.Errorf("final score without away score: %v", err)
	}
	done, err := s.matches.UpdateScore(ctx, m.ID, intPtr(3), intPtr(1), true)
	if err != nil || done.Status != models.MatchCompleted || done.EndTime == nil {
		t.Fatalf("UpdateScore(final) = %+v, %v", done, err)
	}

	record, err := s.matches.GetTeamRecord(ctx, home.ID)
	if err != nil {
		t.Fatal(err)
	}
	if record.Played != 1 || record.Won != 1 || record.Points != models.PointsForWin || record.GoalDifference != 2 {
		t.Errorf("home record = %+v", record)
	}
	standings, err := s.matches.GetStandings(ctx, c.ID)
	if err != nil || len(standings) != 2 || standings[0].TeamID != home.ID {
		t.Errorf("GetStandings() = %+v, %v", standings, err)
	}
}

func TestGenerateRoundRobinMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	organizer := s.user(t, "a@example.com", models.RoleOrganizer)
	c := s.competition(t, organizer, true, nil)

	var ids []string
	for _, name := range []string{"A", "B", "C", "D"} {
		ids = append(ids, s.team(t, c, organizer, name).ID)
	}
	start := time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC)
	fixtures, err := s.matches.GenerateRoundRobinMatches(ctx, c.ID, ids, start)
	if err != nil {
		t.Fatal(err)
	}
	if len(fixtures) != 4*3 {
		t.Fatalf("got %d fixtures, want 12", len(fixtures))
	}
	pairs := map[[2]primitive.ObjectID]int{}
	for _, f := range fixtures {
		pairs[[2]primitive.ObjectID{f.HomeTeamID, f.AwayTeamID}]++
	}
	if len(pairs) != 12 {
		t.Errorf("expected every ordered pair exactly once, got %d distinct", len(pairs))
	}
	if _, err := s.matches.GenerateRoundRobinMatches(ctx, c.ID, ids[:1], start); !errors.Is(err, ErrNotEnoughTeams) {
		t.Errorf("single team error = %v", err)
	}
}

func TestPrivateCompetitionNeverListed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	organizer := s.user(t, "a@example.com", models.RoleOrganizer)
	public := s.competition(t, organizer, true, nil)
	private := s.competition(t, organizer, false, nil)

	for _, filters := range []models.CompetitionFilters{
		{},
		{Search: "printemps"},
		{Category: models.CategoryFootball, Status: models.CompetitionOpen},
	} {
		page, err := s.competitions.FindPublicCompetitions(ctx, filters)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range page.Competitions {
			if c.ID == private.ID {
				t.Errorf("private competition listed with %+v", filters)
			}
		}
		if page.Total != 1 || len(page.Competitions) != 1 || page.Competitions[0].ID != public.ID {
			t.Errorf("filters %+v: got %d of %d", filters, len(page.Competitions), page.Total)
		}
	}
}

type recordingPublisher struct {
	mu    sync.Mutex
	users []string
}

func (p *recordingPublisher) PublishToUser(userID, _ string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
}

func TestNotificationsReadAndPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := s.user(t, "n@example.com", models.RoleParticipant)
	publisher := &recordingPublisher{}
	s.notifications.SetPublisher(publisher)

	for _, title := range []string{"Un", "Deux", "Trois"} {
		if _, err := s.notifications.CreateNotification(ctx, models.NotificationInput{
			UserID: u.ID, Title: title, Message: "Bonjour",
		}); err != nil {
			t.Fatal(err)
		}
	}
	if len(publisher.users) != 3 || publisher.users[0] != u.ID {
		t.Errorf("published to %v", publisher.users)
	}
	if got := s.notifications.GetUnreadCount(ctx, u.ID); got != 3 {
		t.Fatalf("GetUnreadCount() = %d, want 3", got)
	}

	// Unread and ancient: must survive the purge.
	old, err := s.notifications.CreateNotification(ctx, models.NotificationInput{UserID: u.ID, Title: "Vieux", Message: "x"})
	if err != nil {
		t.Fatal(err)
	}
	coll, err := s.manager.Collection(ctx, db.CollectionNotification)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := coll.UpdateMany(ctx, bson.M{}, bson.M{"$set": bson.M{"createdAt": time.Now().AddDate(-1, 0, 0)}}); err != nil {
		t.Fatal(err)
	}
	if n, err := s.notifications.DeleteOldNotifications(ctx, 30); err != nil || n != 0 {
		t.Errorf("purge of unread = %d, %v, want 0", n, err)
	}

	if _, err := s.notifications.MarkAsRead(ctx, old.ID, primitive.NewObjectID().Hex()); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("MarkAsRead by another user = %v", err)
	}
	if n, err := s.notifications.MarkAllAsRead(ctx, u.ID); err != nil || n != 4 {
		t.Errorf("MarkAllAsRead() = %d, %v", n, err)
	}
	if got := s.notifications.GetUnreadCount(ctx, u.ID); got != 0 {
		t.Errorf("GetUnreadCount() after MarkAllAsRead = %d", got)
	}
	if n, err := s.notifications.DeleteOldNotifications(ctx, 30); err != nil || n != 4 {
		t.Errorf("purge of read = %d, %v, want 4", n, err)
	}
}

func TestVerificationTokenConsumedOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vt, err := s.tokens.Generate(ctx, "Someone@Example.com", time.Hour)
	if err != nil || vt == nil {
		t.Fatalf("Generate() = %v, %v", vt, err)
	}
	got, err := s.tokens.Consume(ctx, "someone@example.com", vt.Token)
	if err != nil || got == nil {
		t.Fatalf("Consume() = %v, %v", got, err)
	}
	if again, err := s.tokens.Consume(ctx, "someone@example.com", vt.Token); again != nil || err != nil {
		t.Errorf("second Consume() = %v, %v, want nil", again, err)
	}
}

func TestGroupsSkipDuplicatesAndUnassignOnDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	organizer := s.user(t, "a@example.com", models.RoleOrganizer)
	c := s.competition(t, organizer, true, nil)

	if _, err := s.groups.CreateGroup(ctx, c.ID, "Groupe A"); err != nil {
		t.Fatal(err)
	}
	created, err := s.groups.CreateGroupsForCompetition(ctx, c.ID, []string{"groupe a", "Groupe B", "Groupe B"})
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 || created[0].Name != "Groupe B" {
		t.Fatalf("created = %+v", created)
	}

	team := s.team(t, c, organizer, "Lions")
	if _, err := s.teams.AssignToGroup(ctx, team.ID, created[0].ID); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.groups.DeleteGroup(ctx, created[0].ID); !ok || err != nil {
		t.Fatalf("DeleteGroup() = %v, %v", ok, err)
	}
	reloaded, err := s.teams.FindByID(ctx, team.ID)
	if err != nil || reloaded == nil || reloaded.GroupID != nil {
		t.Errorf("team after group deletion = %+v, %v", reloaded, err)
	}
}
