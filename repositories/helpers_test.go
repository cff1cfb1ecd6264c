package repositories

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Dosada05/sports-competitions/models"
)

func TestSetStage(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pipeline := setStage(bson.M{"name": "$where", "logo": nil}, stamp)

	if len(pipeline) != 1 || pipeline[0][0].Key != "$set" {
		t.Fatalf("unexpected pipeline: %v", pipeline)
	}
	set, ok := pipeline[0][0].Value.(bson.D)
	if !ok {
		t.Fatalf("$set value is %T, want bson.D", pipeline[0][0].Value)
	}
	fields := set.Map()

	if got := fields["name"]; got.(bson.M)["$literal"] != "$where" {
		t.Errorf("name = %v, want literal wrapper", got)
	}
	if got := fields["logo"]; got != "$$REMOVE" {
		t.Errorf("logo = %v, want $$REMOVE", got)
	}
	updatedAt, ok := fields["updatedAt"].(bson.M)
	if !ok {
		t.Fatalf("updatedAt = %v", fields["updatedAt"])
	}
	operands := updatedAt["$max"].(bson.A)
	if operands[0] != stamp {
		t.Errorf("updatedAt first operand = %v, want %v", operands[0], stamp)
	}
}

func duplicateKeyError(index string) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error collection: test.User index: " + index + " dup key: { email: \"a@b.c\" }",
	}}}
}

func TestIsDuplicateOn(t *testing.T) {
	err := duplicateKeyError(idxUserEmail)

	if !isDuplicateOn(err, idxUserEmail) {
		t.Error("expected match on the email index")
	}
	if isDuplicateOn(err, idxUserPhone) {
		t.Error("unexpected match on the phone index")
	}
	if isDuplicateOn(errors.New("index: "+idxUserEmail+" "), idxUserEmail) {
		t.Error("a plain error is not a duplicate key error")
	}
}

func TestConflictMapping(t *testing.T) {
	if got := teamConflicts(duplicateKeyError(idxTeamName)); !errors.Is(got, ErrConflict) {
		t.Errorf("teamConflicts = %v, want ErrConflict", got)
	}
	other := errors.New("boom")
	if got := teamConflicts(other); got != other {
		t.Errorf("teamConflicts changed an unrelated error: %v", got)
	}
	if got := groupConflicts(duplicateKeyError(idxGroupName)); got != ErrGroupNameConflict {
		t.Errorf("groupConflicts = %v", got)
	}
	if got := playerConflicts(duplicateKeyError(idxPlayerJersey), 7); got.Error() != "Le numéro 7 est déjà utilisé" {
		t.Errorf("playerConflicts = %v", got)
	}
}

func TestContainsFoldQuotesInput(t *testing.T) {
	re := containsFold("  a.b(c) ")
	if re.Pattern != `a\.b\(c\)` || re.Options != "i" {
		t.Fatalf("containsFold = %+v", re)
	}
}

func TestParseObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	if got, ok := parseObjectID(" " + oid.Hex() + " "); !ok || got != oid {
		t.Errorf("parseObjectID(valid) = %v, %v", got, ok)
	}
	for _, bad := range []string{"", "xyz", "123", oid.Hex() + "0"} {
		if _, ok := parseObjectID(bad); ok {
			t.Errorf("parseObjectID(%q) accepted", bad)
		}
	}
	if _, err := requireObjectID("teamId", "nope"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("requireObjectID error = %v, want ErrInvalidInput", err)
	}
	if got := parseObjectIDs([]string{oid.Hex(), "bad"}); len(got) != 1 {
		t.Errorf("parseObjectIDs kept %d ids, want 1", len(got))
	}
}

func TestPublicCompetitionFilter(t *testing.T) {
	filter := publicCompetitionFilter(models.CompetitionFilters{
		Country:  "France",
		Category: models.CategoryFootball,
		Search:   "coupe",
	})

	if filter["isPublic"] != true {
		t.Error("filter must always restrict to public competitions")
	}
	if filter["category"] != models.CategoryFootball {
		t.Errorf("category = %v", filter["category"])
	}
	country := filter["country"].(primitive.Regex)
	if country.Pattern != "^France$" || country.Options != "i" {
		t.Errorf("country = %+v", country)
	}
	if _, ok := filter["status"]; ok {
		t.Error("empty status must not be filtered")
	}
	if or, ok := filter["$or"].(bson.A); !ok || len(or) != 2 {
		t.Errorf("$or = %v", filter["$or"])
	}
}

func TestMergePatch(t *testing.T) {
	groupID := primitive.NewObjectID()
	desc := "old"
	team := &models.Team{
		Name:          "Lions",
		CompetitionID: primitive.NewObjectID(),
		GroupID:       &groupID,
		Description:   &desc,
		IsActive:      true,
	}
	team.ObjectID = primitive.NewObjectID()

	merged, err := mergePatch(team, bson.M{"name": "Tigres", "groupId": nil})
	if err != nil {
		t.Fatalf("mergePatch() error = %v", err)
	}
	if merged.Name != "Tigres" || merged.GroupID != nil {
		t.Errorf("merged = %+v", merged)
	}
	if merged.Description == nil || *merged.Description != "old" || !merged.IsActive {
		t.Errorf("untouched fields changed: %+v", merged)
	}
	if merged.ID != team.ObjectID.Hex() {
		t.Errorf("merged ID = %q, want normalized id", merged.ID)
	}
	if team.Name != "Lions" {
		t.Error("mergePatch modified its input")
	}
}

func TestBucketsToMap(t *testing.T) {
	football, blank := "FOOTBALL", ""
	got := bucketsToMap([]bucket{
		{Key: &football, Count: 3},
		{Key: nil, Count: 1},
		{Key: &blank, Count: 2},
	})
	if got["FOOTBALL"] != 3 || got["UNKNOWN"] != 3 || len(got) != 2 {
		t.Errorf("bucketsToMap = %v", got)
	}
}

func TestTransitionError(t *testing.T) {
	err := transitionError(models.MatchCompleted, models.MatchLive)
	if !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("transitionError is not ErrInvalidStatusTransition: %v", err)
	}
	if err.Error() != "invalid status transition: COMPLETED -> LIVE" {
		t.Errorf("message = %q", err.Error())
	}
	if !errors.Is(ErrScoresRequired, ErrInvalidInput) {
		t.Error("ErrScoresRequired must wrap ErrInvalidInput")
	}
}
