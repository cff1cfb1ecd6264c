package repositories

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
)

// Эти тесты идут без сервера: mtest подставляет заранее заданные ответы
// в том порядке, в каком репозиторий шлёт команды.

var errStoreDown = errors.New("store unavailable")

// mockStore serves every collection from the mock client. Collections listed
// as broken fail before any command is sent.
type mockStore struct {
	database *mongo.Database
	broken   map[string]bool
}

func newMockStore(mt *mtest.T, broken ...string) *mockStore {
	s := &mockStore{database: mt.Client.Database("sc_test"), broken: map[string]bool{}}
	for _, name := range broken {
		s.broken[name] = true
	}
	return s
}

func (s *mockStore) Collection(_ context.Context, name string) (*mongo.Collection, error) {
	if s.broken[name] {
		return nil, errStoreDown
	}
	return s.database.Collection(name), nil
}

func (s *mockStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func countReply(n int64) bson.D {
	return mtest.CreateCursorResponse(0, "sc_test.count", mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func findReply(docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, "sc_test.find", mtest.FirstBatch, docs...)
}

// updateReply answers findAndModify; nil means nothing matched.
func updateReply(doc bson.D) bson.D {
	if doc == nil {
		return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})
	}
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc})
}

func commandFailure() bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized"})
}

func startedCommands(mt *mtest.T, name string) []*event.CommandStartedEvent {
	var out []*event.CommandStartedEvent
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName == name {
			out = append(out, evt)
		}
	}
	return out
}

func competitionDoc(id primitive.ObjectID, status models.CompetitionStatus, opens, deadline *time.Time) bson.D {
	doc := bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: "Coupe d'automne"},
		{Key: "category", Value: models.CategoryFootball},
		{Key: "type", Value: models.TypeRoundRobin},
		{Key: "status", Value: status},
		{Key: "organizerId", Value: primitive.NewObjectID()},
		{Key: "isPublic", Value: true},
		{Key: "requiresApproval", Value: true},
		{Key: "uniqueCode", Value: "AUTOMNE1"},
	}
	if opens != nil {
		doc = append(doc, bson.E{Key: "registrationStartDate", Value: *opens})
	}
	if deadline != nil {
		doc = append(doc, bson.E{Key: "registrationDeadline", Value: *deadline})
	}
	return doc
}

func teamDoc(id, competitionID primitive.ObjectID, groupID *primitive.ObjectID) bson.D {
	doc := bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: "Lions"},
		{Key: "competitionId", Value: competitionID},
		{Key: "captainId", Value: primitive.NewObjectID()},
		{Key: "isActive", Value: true},
	}
	if groupID != nil {
		doc = append(doc, bson.E{Key: "groupId", Value: *groupID})
	}
	return doc
}

func matchDoc(id primitive.ObjectID, status models.MatchStatus) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "competitionId", Value: primitive.NewObjectID()},
		{Key: "homeTeamId", Value: primitive.NewObjectID()},
		{Key: "awayTeamId", Value: primitive.NewObjectID()},
		{Key: "scheduledDate", Value: time.Now().UTC()},
		{Key: "status", Value: status},
	}
}

func TestCountDocumentsReportsFailures(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("command error", func(mt *mtest.T) {
		teams := NewMongoTeamRepository(newMockStore(mt), discardLogger())
		mt.AddMockResponses(commandFailure(), commandFailure())

		if n := teams.Count(ctx, nil); n != 0 {
			mt.Errorf("Count() = %d, want 0", n)
		}
		if _, err := teams.CountActive(ctx); err == nil {
			mt.Error("CountActive() hid the failure")
		}
	})

	mt.Run("unreachable collection", func(mt *mtest.T) {
		matches := NewMongoMatchRepository(newMockStore(mt, db.CollectionMatch), discardLogger())
		if _, err := matches.CountUpcoming(ctx); !errors.Is(err, errStoreDown) {
			mt.Errorf("CountUpcoming() error = %v, want %v", err, errStoreDown)
		}
	})

	mt.Run("success", func(mt *mtest.T) {
		users := NewMongoUserRepository(newMockStore(mt), discardLogger())
		mt.AddMockResponses(countReply(4))
		n, err := users.CountRecent(ctx, time.Now().Add(-time.Hour))
		if err != nil || n != 4 {
			mt.Errorf("CountRecent() = %d, %v, want 4", n, err)
		}
	})
}

func TestCreateParticipationRequiresOpenRegistration(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	past := time.Now().Add(-48 * time.Hour).UTC()
	future := time.Now().Add(48 * time.Hour).UTC()

	tests := []struct {
		name     string
		status   models.CompetitionStatus
		opens    *time.Time
		deadline *time.Time
	}{
		{"draft", models.CompetitionDraft, nil, &future},
		{"closed", models.CompetitionClosed, nil, &future},
		{"cancelled", models.CompetitionCancelled, nil, &future},
		{"completed", models.CompetitionCompleted, nil, nil},
		{"deadline passed", models.CompetitionOpen, nil, &past},
		{"not yet open", models.CompetitionOpen, &future, nil},
	}
	for _, tt := range tests {
		mt.Run(tt.name, func(mt *mtest.T) {
			participations := NewMongoParticipationRepository(newMockStore(mt), discardLogger())
			competitionID := primitive.NewObjectID()
			mt.AddMockResponses(
				countReply(0),
				findReply(competitionDoc(competitionID, tt.status, tt.opens, tt.deadline)),
			)

			p, err := participations.CreateParticipation(ctx, competitionID.Hex(), primitive.NewObjectID().Hex(), nil)
			if p != nil || !errors.Is(err, ErrRegistrationClosed) {
				mt.Fatalf("CreateParticipation() = %v, %v, want ErrRegistrationClosed", p, err)
			}
			if !errors.Is(err, ErrInvalidInput) {
				mt.Errorf("error %v does not unwrap to ErrInvalidInput", err)
			}
			if inserts := startedCommands(mt, "insert"); len(inserts) != 0 {
				mt.Errorf("%d inserts sent for a closed competition", len(inserts))
			}
		})
	}

	mt.Run("open", func(mt *mtest.T) {
		participations := NewMongoParticipationRepository(newMockStore(mt), discardLogger())
		competitionID := primitive.NewObjectID()
		participantID := primitive.NewObjectID()
		stored := bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "competitionId", Value: competitionID},
			{Key: "participantId", Value: participantID},
			{Key: "status", Value: models.ParticipationPending},
		}
		mt.AddMockResponses(
			countReply(0),
			findReply(competitionDoc(competitionID, models.CompetitionOpen, &past, &future)),
			mtest.CreateSuccessResponse(),
			findReply(stored),
		)

		p, err := participations.CreateParticipation(ctx, competitionID.Hex(), participantID.Hex(), nil)
		if err != nil || p == nil {
			mt.Fatalf("CreateParticipation() = %v, %v", p, err)
		}
		if p.Status != models.ParticipationPending || p.CompetitionID != competitionID {
			mt.Errorf("participation = %+v", p)
		}
	})
}

func TestAssignToGroupChecksCompetition(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("group of another competition", func(mt *mtest.T) {
		teams := NewMongoTeamRepository(newMockStore(mt), discardLogger())
		teamID, competitionID := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(findReply(teamDoc(teamID, competitionID, nil)), countReply(0))

		team, err := teams.AssignToGroup(ctx, teamID.Hex(), primitive.NewObjectID().Hex())
		if team != nil || !errors.Is(err, ErrGroupNotFound) {
			mt.Fatalf("AssignToGroup() = %v, %v, want ErrGroupNotFound", team, err)
		}
		counts := startedCommands(mt, "aggregate")
		if len(counts) != 1 {
			mt.Fatalf("got %d group lookups, want 1", len(counts))
		}
		scoped, err := counts[0].Command.LookupErr("pipeline", "0", "$match", "competitionId")
		if err != nil || scoped.ObjectID() != competitionID {
			mt.Errorf("group lookup not scoped to the team's competition: %v", counts[0].Command)
		}
		if updates := startedCommands(mt, "findAndModify"); len(updates) != 0 {
			mt.Error("team updated despite the foreign group")
		}
	})

	mt.Run("unknown team", func(mt *mtest.T) {
		teams := NewMongoTeamRepository(newMockStore(mt), discardLogger())
		mt.AddMockResponses(findReply())

		if _, err := teams.AssignToGroup(ctx, primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()); !errors.Is(err, ErrTeamNotFound) {
			mt.Errorf("AssignToGroup() error = %v, want ErrTeamNotFound", err)
		}
	})

	mt.Run("malformed group id", func(mt *mtest.T) {
		teams := NewMongoTeamRepository(newMockStore(mt), discardLogger())
		if _, err := teams.AssignToGroup(ctx, primitive.NewObjectID().Hex(), "groupe-a"); !errors.Is(err, ErrInvalidInput) {
			mt.Errorf("AssignToGroup() error = %v, want ErrInvalidInput", err)
		}
	})

	mt.Run("same competition", func(mt *mtest.T) {
		teams := NewMongoTeamRepository(newMockStore(mt), discardLogger())
		teamID, competitionID, groupID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(
			findReply(teamDoc(teamID, competitionID, nil)),
			countReply(1),
			updateReply(teamDoc(teamID, competitionID, &groupID)),
		)

		team, err := teams.AssignToGroup(ctx, teamID.Hex(), groupID.Hex())
		if err != nil || team == nil {
			mt.Fatalf("AssignToGroup() = %v, %v", team, err)
		}
		if team.GroupID == nil || *team.GroupID != groupID {
			mt.Errorf("GroupID = %v, want %s", team.GroupID, groupID.Hex())
		}
	})
}

func TestFixturesRequireTeamsOfTheCompetition(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	competitionID := primitive.NewObjectID().Hex()
	kickoff := &models.FlexTime{Time: time.Now().Add(24 * time.Hour)}

	mt.Run("create match with a foreign team", func(mt *mtest.T) {
		matches := NewMongoMatchRepository(newMockStore(mt), discardLogger())
		mt.AddMockResponses(countReply(1))

		m, err := matches.CreateMatch(ctx, models.MatchInput{
			CompetitionID: competitionID,
			HomeTeamID:    primitive.NewObjectID().Hex(),
			AwayTeamID:    primitive.NewObjectID().Hex(),
			ScheduledDate: kickoff,
		})
		if m != nil || !errors.Is(err, ErrTeamNotFound) {
			mt.Fatalf("CreateMatch() = %v, %v, want ErrTeamNotFound", m, err)
		}
		if inserts := startedCommands(mt, "insert"); len(inserts) != 0 {
			mt.Error("match inserted with a foreign team")
		}
	})

	mt.Run("create match with a foreign group", func(mt *mtest.T) {
		matches := NewMongoMatchRepository(newMockStore(mt), discardLogger())
		mt.AddMockResponses(countReply(2), countReply(0))
		group := primitive.NewObjectID().Hex()

		_, err := matches.CreateMatch(ctx, models.MatchInput{
			CompetitionID: competitionID,
			HomeTeamID:    primitive.NewObjectID().Hex(),
			AwayTeamID:    primitive.NewObjectID().Hex(),
			GroupID:       &group,
			ScheduledDate: kickoff,
		})
		if !errors.Is(err, ErrGroupNotFound) {
			mt.Errorf("CreateMatch() error = %v, want ErrGroupNotFound", err)
		}
	})

	mt.Run("round robin with a foreign team", func(mt *mtest.T) {
		matches := NewMongoMatchRepository(newMockStore(mt), discardLogger())
		mt.AddMockResponses(countReply(2))
		ids := []string{primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()}

		fixtures, err := matches.GenerateRoundRobinMatches(ctx, competitionID, ids, time.Time{})
		if fixtures != nil || !errors.Is(err, ErrTeamNotFound) {
			mt.Fatalf("GenerateRoundRobinMatches() = %v, %v, want ErrTeamNotFound", fixtures, err)
		}
		if inserts := startedCommands(mt, "insert"); len(inserts) != 0 {
			mt.Error("fixtures inserted with a foreign team")
		}
	})

	mt.Run("round robin inside the competition", func(mt *mtest.T) {
		matches := NewMongoMatchRepository(newMockStore(mt), discardLogger())
		mt.AddMockResponses(countReply(4), mtest.CreateSuccessResponse(), findReply())
		ids := []string{
			primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(),
			primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(),
		}

		if _, err := matches.GenerateRoundRobinMatches(ctx, competitionID, ids, time.Time{}); err != nil {
			mt.Fatalf("GenerateRoundRobinMatches() error = %v", err)
		}
		inserts := startedCommands(mt, "insert")
		if len(inserts) != 1 {
			mt.Fatalf("got %d insert commands, want 1", len(inserts))
		}
		docs, err := inserts[0].Command.Lookup("documents").Array().Values()
		if err != nil {
			mt.Fatal(err)
		}
		if len(docs) != 4*3 {
			mt.Errorf("inserted %d fixtures, want 12", len(docs))
		}
	})
}

func TestMatchLifecycleGuards(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("start a completed match", func(mt *mtest.T) {
		matches := NewMongoMatchRepository(newMockStore(mt), discardLogger())
		id := primitive.NewObjectID()
		mt.AddMockResponses(updateReply(nil), findReply(matchDoc(id, models.MatchCompleted)))

		if _, err := matches.StartMatch(ctx, id.Hex()); !errors.Is(err, ErrInvalidStatusTransition) {
			mt.Errorf("StartMatch() error = %v, want transition error", err)
		}
	})

	mt.Run("cancel an unknown match", func(mt *mtest.T) {
		matches := NewMongoMatchRepository(newMockStore(mt), discardLogger())
		mt.AddMockResponses(updateReply(nil), findReply())

		if _, err := matches.CancelMatch(ctx, primitive.NewObjectID().Hex(), nil); !errors.Is(err, ErrMatchNotFound) {
			mt.Errorf("CancelMatch() error = %v, want ErrMatchNotFound", err)
		}
	})

	mt.Run("final score needs both sides", func(mt *mtest.T) {
		matches := NewMongoMatchRepository(newMockStore(mt), discardLogger())
		home := 2
		if _, err := matches.UpdateScore(ctx, primitive.NewObjectID().Hex(), &home, nil, true); !errors.Is(err, ErrScoresRequired) {
			mt.Errorf("UpdateScore() error = %v, want ErrScoresRequired", err)
		}
		if _, err := matches.PostponeMatch(ctx, primitive.NewObjectID().Hex(), nil, nil); !errors.Is(err, ErrNewDateRequired) {
			mt.Errorf("PostponeMatch() error = %v, want ErrNewDateRequired", err)
		}
		if n := len(mt.GetAllStartedEvents()); n != 0 {
			mt.Errorf("%d commands sent for rejected input", n)
		}
	})
}

func TestDuplicateTeamNameMapsToConflict(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unique index violation", func(mt *mtest.T) {
		teams := NewMongoTeamRepository(newMockStore(mt), discardLogger())
		mt.AddMockResponses(
			countReply(0),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    11000,
				Message: "E11000 duplicate key error collection: sc_test.Team index: " + idxTeamName + " dup key: { name: \"lions\" }",
			}),
		)

		_, err := teams.CreateTeam(context.Background(), models.TeamInput{
			Name:          "Lions",
			CompetitionID: primitive.NewObjectID().Hex(),
			CaptainID:     primitive.NewObjectID().Hex(),
		})
		if !errors.Is(err, ErrTeamNameConflict) || !errors.Is(err, ErrConflict) {
			mt.Errorf("CreateTeam() error = %v, want ErrTeamNameConflict", err)
		}
	})
}

func TestVerifyPasswordUnknownEmail(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no such user", func(mt *mtest.T) {
		users := NewMongoUserRepository(newMockStore(mt), discardLogger())
		mt.AddMockResponses(findReply())

		u, err := users.VerifyPassword(context.Background(), "personne@example.com", "motdepasse")
		if u != nil || err != nil {
			mt.Errorf("VerifyPassword() = %v, %v, want nil, nil", u, err)
		}
	})
}

type indexCreator interface {
	CreateIndexes(ctx context.Context) error
}

func TestExpiringRecordsUseTTLIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	tests := []struct {
		name  string
		index string
		repo  func(Database) indexCreator
	}{
		{"sessions", idxSessionExpires, func(d Database) indexCreator {
			return NewMongoSessionRepository(d, discardLogger())
		}},
		{"verification tokens", idxVerificationExpires, func(d Database) indexCreator {
			return NewMongoVerificationTokenRepository(d, discardLogger())
		}},
	}
	for _, tt := range tests {
		mt.Run(tt.name, func(mt *mtest.T) {
			mt.AddMockResponses(mtest.CreateSuccessResponse())
			if err := tt.repo(newMockStore(mt)).CreateIndexes(context.Background()); err != nil {
				mt.Fatalf("CreateIndexes() error = %v", err)
			}
			created := startedCommands(mt, "createIndexes")
			if len(created) != 1 {
				mt.Fatalf("got %d createIndexes commands, want 1", len(created))
			}
			specs, err := created[0].Command.Lookup("indexes").Array().Values()
			if err != nil {
				mt.Fatal(err)
			}
			found := false
			for _, spec := range specs {
				doc := spec.Document()
				if doc.Lookup("name").StringValue() != tt.index {
					continue
				}
				found = true
				ttl, err := doc.LookupErr("expireAfterSeconds")
				if err != nil || ttl.AsInt64() != 0 {
					mt.Errorf("%s: expireAfterSeconds = %v, %v, want 0", tt.index, ttl, err)
				}
			}
			if !found {
				mt.Errorf("index %s not created", tt.index)
			}
		})
	}
}
