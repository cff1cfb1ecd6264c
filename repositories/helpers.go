package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Dosada05/sports-competitions/db"
)

// caseInsensitive is the collation used by per-competition name indexes and
// the queries that must hit them.
var caseInsensitive = &options.Collation{Locale: "fr", Strength: 2}

// parseObjectID reports false for anything that is not a 24-character hex id.
func parseObjectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// requireObjectID is parseObjectID for inputs where a malformed id is a caller error.
func requireObjectID(field, id string) (primitive.ObjectID, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("%w: %s is not a valid identifier", ErrInvalidInput, field)
	}
	return oid, nil
}

// parseObjectIDs skips malformed ids.
func parseObjectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := parseObjectID(id); ok {
			out = append(out, oid)
		}
	}
	return out
}

// now is millisecond precision, the resolution the store keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// isDuplicateOn reports whether err is a unique-index violation of the named index.
func isDuplicateOn(err error, index string) bool {
	if !mongo.IsDuplicateKeyError(err) {
		return false
	}
	return strings.Contains(err.Error(), "index: "+index+" ")
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// inCompetition reports whether every id names a document of collection
// that belongs to the competition. Duplicate ids count once.
func inCompetition(ctx context.Context, database Database, collection string, competitionID primitive.ObjectID, ids ...primitive.ObjectID) (bool, error) {
	unique := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return true, nil
	}
	coll, err := database.Collection(ctx, collection)
	if err != nil {
		return false, err
	}
	n, err := coll.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": unique}, "competitionId": competitionID})
	if err != nil {
		return false, fmt.Errorf("failed to check %s references: %w", collection, err)
	}
	return n == int64(len(unique)), nil
}

// requireTeams is ErrTeamNotFound unless every team plays in the competition.
func requireTeams(ctx context.Context, database Database, competitionID primitive.ObjectID, teamIDs ...primitive.ObjectID) error {
	ok, err := inCompetition(ctx, database, db.CollectionTeam, competitionID, teamIDs...)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTeamNotFound
	}
	return nil
}

// requireGroup is ErrGroupNotFound unless the group belongs to the competition.
func requireGroup(ctx context.Context, database Database, competitionID primitive.ObjectID, groupID primitive.ObjectID) error {
	ok, err := inCompetition(ctx, database, db.CollectionGroup, competitionID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrGroupNotFound
	}
	return nil
}

// containsFold builds a case-insensitive substring match.
func containsFold(text string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(text)), Options: "i"}
}

// ensureIndexes creates the given indexes on the collection.
func ensureIndexes(ctx context.Context, coll *mongo.Collection, indexes []mongo.IndexModel) error {
	if len(indexes) == 0 {
		return nil
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
	}
	return nil
}

// setStage turns a checked patch into an update pipeline. Values are wrapped
// in $literal so user strings starting with "$" are stored as-is, nil values
// remove the field, and updatedAt always moves forward even when two writes
// land in the same millisecond.
func setStage(patch bson.M, stamp time.Time) mongo.Pipeline {
	set := bson.D{}
	for key, value := range patch {
		if value == nil {
			set = append(set, bson.E{Key: key, Value: "$$REMOVE"})
			continue
		}
		set = append(set, bson.E{Key: key, Value: bson.M{"$literal": value}})
	}
	set = append(set, bson.E{Key: "updatedAt", Value: bson.M{
		"$max": bson.A{stamp, bson.M{"$add": bson.A{"$updatedAt", 1}}},
	}})
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

// bucket is one {_id, count} row of a group-by aggregation.
type bucket struct {
	Key   *string `bson:"_id"`
	Count int64   `bson:"count"`
}

func bucketsToMap(buckets []bucket) map[string]int64 {
	out := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		key := "UNKNOWN"
		if b.Key != nil && *b.Key != "" {
			key = *b.Key
		}
		out[key] += b.Count
	}
	return out
}

// aggregate runs a pipeline and decodes every result into V.
func aggregate[V any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline, opts ...*options.AggregateOptions) ([]V, error) {
	cursor, err := coll.Aggregate(ctx, pipeline, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []V{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// findAs runs a find and decodes every result into V, typically a projection.
func findAs[V any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]V, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []V{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
