package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/validation"
)

// FindOptions narrows FindMany. Zero values mean "no sort", "no limit", "no skip".
type FindOptions struct {
	Sort  bson.D
	Limit int64
	Skip  int64
}

// Repository is the contract every entity repository offers on top of its
// own queries.
type Repository[T any] interface {
	Name() string
	FindByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*T, error)
	FindMany(ctx context.Context, filter any, opts FindOptions) ([]T, error)
	Create(ctx context.Context, doc *T) (*T, error)
	UpdateByID(ctx context.Context, id string, patch bson.M) (*T, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, filter any) int64
	CountDocuments(ctx context.Context, filter any) (int64, error)
	CreateIndexes(ctx context.Context) error
}

// BaseRepository implements the CRUD shared by every entity. T is the entity
// struct; *T must embed models.Base.
//
// Writes go through one pipeline: validate, normalize, persist. Reads return
// nil (or an empty slice) when nothing matches; store failures are logged and
// returned.
type BaseRepository[T any] struct {
	db         Database
	collection string
	logger     *slog.Logger

	validate  func(*T) error
	conflicts func(error) error
}

func NewBaseRepository[T any](db Database, collection string, logger *slog.Logger) *BaseRepository[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseRepository[T]{
		db:         db,
		collection: collection,
		logger:     logger.With(slog.String("collection", collection)),
	}
}

// withValidation sets the check run on every Create.
func (r *BaseRepository[T]) withValidation(fn func(*T) error) *BaseRepository[T] {
	r.validate = fn
	return r
}

// withConflicts sets the translation of unique-index violations into domain
// conflicts. Unrecognized errors must be returned unchanged.
func (r *BaseRepository[T]) withConflicts(fn func(error) error) *BaseRepository[T] {
	r.conflicts = fn
	return r
}

func (r *BaseRepository[T]) Name() string {
	return r.collection
}

func (r *BaseRepository[T]) coll(ctx context.Context) (*mongo.Collection, error) {
	return r.db.Collection(ctx, r.collection)
}

func (r *BaseRepository[T]) mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if r.conflicts != nil && mongo.IsDuplicateKeyError(err) {
		return r.conflicts(err)
	}
	return err
}

func normalize[T any](doc *T) *T {
	if d, ok := any(doc).(models.Document); ok {
		d.Meta().Normalize()
	}
	return doc
}

func normalizeAll[T any](docs []T) []T {
	for i := range docs {
		normalize(&docs[i])
	}
	return docs
}

// FindByID returns nil for a malformed or unknown id.
func (r *BaseRepository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}
	return r.FindOne(ctx, bson.M{"_id": oid})
}

func (r *BaseRepository[T]) findByObjectID(ctx context.Context, oid primitive.ObjectID) (*T, error) {
	return r.FindOne(ctx, bson.M{"_id": oid})
}

func (r *BaseRepository[T]) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*T, error) {
	coll, err := r.coll(ctx)
	if err != nil {
		return nil, err
	}

	var doc T
	if err := coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		r.logger.Error("findOne failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to find %s: %w", r.collection, err)
	}
	return normalize(&doc), nil
}

func (r *BaseRepository[T]) FindMany(ctx context.Context, filter any, opts FindOptions) ([]T, error) {
	coll, err := r.coll(ctx)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		findOpts.SetSort(opts.Sort)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}

	return r.find(ctx, coll, filter, findOpts)
}

func (r *BaseRepository[T]) find(ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		r.logger.Error("find failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list %s: %w", r.collection, err)
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("decode failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to decode %s: %w", r.collection, err)
	}
	return normalizeAll(docs), nil
}

// Create drops any caller-supplied id and timestamps, stamps both timestamps
// with the same instant, validates, inserts and returns the stored document.
// It returns nil when the insert did not yield an id.
func (r *BaseRepository[T]) Create(ctx context.Context, doc *T) (*T, error) {
	d, ok := any(doc).(models.Document)
	if !ok {
		return nil, fmt.Errorf("%T does not embed models.Base", doc)
	}
	meta := d.Meta()
	meta.ObjectID = primitive.NilObjectID
	meta.ID = ""
	stamp := now()
	meta.CreatedAt = stamp
	meta.UpdatedAt = stamp

	if r.validate != nil {
		if err := r.validate(doc); err != nil {
			return nil, err
		}
	}

	coll, err := r.coll(ctx)
	if err != nil {
		return nil, err
	}
	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		if mapped := r.mapWriteErr(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create %s: %w", r.collection, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		r.logger.Warn("insert did not return an ObjectID", slog.Any("insertedId", res.InsertedID))
		return nil, nil
	}
	return r.findByObjectID(ctx, oid)
}

// UpdateByID validates and applies a partial update, then returns the updated
// document, or nil when the id matches nothing.
func (r *BaseRepository[T]) UpdateByID(ctx context.Context, id string, patch bson.M) (*T, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}
	if patch == nil {
		patch = bson.M{}
	}
	if err := validation.Patch(validation.Kind(r.collection), patch); err != nil {
		return nil, err
	}
	return r.updateOne(ctx, bson.M{"_id": oid}, patch)
}

// updateOne applies an already checked patch to the first document matching
// filter. Conditional transitions use the filter to guard the source state.
func (r *BaseRepository[T]) updateOne(ctx context.Context, filter any, patch bson.M) (*T, error) {
	coll, err := r.coll(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc T
	err = coll.FindOneAndUpdate(ctx, filter, setStage(patch, now()), opts).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		if mapped := r.mapWriteErr(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to update %s: %w", r.collection, err)
	}
	return normalize(&doc), nil
}

// updateMany applies an already checked patch to every match and returns how
// many documents changed.
func (r *BaseRepository[T]) updateMany(ctx context.Context, filter any, patch bson.M) (int64, error) {
	coll, err := r.coll(ctx)
	if err != nil {
		return 0, err
	}
	res, err := coll.UpdateMany(ctx, filter, setStage(patch, now()))
	if err != nil {
		if mapped := r.mapWriteErr(err); mapped != err {
			return 0, mapped
		}
		return 0, fmt.Errorf("failed to update %s: %w", r.collection, err)
	}
	return res.ModifiedCount, nil
}

// createMany stamps, validates and inserts docs in one ordered batch and
// returns the stored documents in insertion order.
func (r *BaseRepository[T]) createMany(ctx context.Context, docs []*T) ([]T, error) {
	if len(docs) == 0 {
		return []T{}, nil
	}
	stamp := now()
	inserts := make([]any, 0, len(docs))
	for _, doc := range docs {
		d, ok := any(doc).(models.Document)
		if !ok {
			return nil, fmt.Errorf("%T does not embed models.Base", doc)
		}
		meta := d.Meta()
		meta.ObjectID = primitive.NewObjectID()
		meta.ID = ""
		meta.CreatedAt = stamp
		meta.UpdatedAt = stamp
		if r.validate != nil {
			if err := r.validate(doc); err != nil {
				return nil, err
			}
		}
		inserts = append(inserts, doc)
	}

	coll, err := r.coll(ctx)
	if err != nil {
		return nil, err
	}
	res, err := coll.InsertMany(ctx, inserts)
	if err != nil {
		if mapped := r.mapWriteErr(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create %s: %w", r.collection, err)
	}
	return r.find(ctx, coll, bson.M{"_id": bson.M{"$in": res.InsertedIDs}}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// updateChecked is UpdateByID with an extra check run against the stored
// document and the document as it would look after the patch.
func (r *BaseRepository[T]) updateChecked(ctx context.Context, id string, patch bson.M, check func(existing, merged *T) error) (*T, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}
	if patch == nil {
		patch = bson.M{}
	}
	if err := validation.Patch(validation.Kind(r.collection), patch); err != nil {
		return nil, err
	}
	existing, err := r.findByObjectID(ctx, oid)
	if err != nil || existing == nil {
		return nil, err
	}
	if check != nil {
		merged, err := mergePatch(existing, patch)
		if err != nil {
			return nil, err
		}
		if err := check(existing, merged); err != nil {
			return nil, err
		}
	}
	return r.updateOne(ctx, bson.M{"_id": oid}, patch)
}

// mergePatch applies patch to a copy of doc the way the update pipeline will.
func mergePatch[T any](doc *T, patch bson.M) (*T, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	fields := bson.M{}
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	for key, value := range patch {
		if value == nil {
			delete(fields, key)
		} else {
			fields[key] = value
		}
	}
	raw, err = bson.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patched document: %w", err)
	}
	var merged T
	if err := bson.Unmarshal(raw, &merged); err != nil {
		return nil, fmt.Errorf("failed to decode patched document: %w", err)
	}
	return normalize(&merged), nil
}

// DeleteByID reports whether exactly one document was removed.
func (r *BaseRepository[T]) DeleteByID(ctx context.Context, id string) (bool, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return false, nil
	}
	coll, err := r.coll(ctx)
	if err != nil {
		return false, err
	}
	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.logger.Error("delete failed", slog.String("id", id), slog.Any("error", err))
		return false, fmt.Errorf("failed to delete %s: %w", r.collection, err)
	}
	return res.DeletedCount == 1, nil
}

func (r *BaseRepository[T]) deleteMany(ctx context.Context, filter any) (int64, error) {
	coll, err := r.coll(ctx)
	if err != nil {
		return 0, err
	}
	res, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", r.collection, err)
	}
	return res.DeletedCount, nil
}

// Count never fails: errors are logged and reported as zero.
func (r *BaseRepository[T]) Count(ctx context.Context, filter any) int64 {
	n, err := r.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("count failed", slog.Any("error", err))
		return 0
	}
	return n
}

// CountDocuments is Count for callers that must tell a failure from zero.
func (r *BaseRepository[T]) CountDocuments(ctx context.Context, filter any) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	coll, err := r.coll(ctx)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.collection, err)
	}
	return n, nil
}

// Exists reports whether at least one document matches filter.
func (r *BaseRepository[T]) Exists(ctx context.Context, filter any, opts ...*options.CountOptions) (bool, error) {
	coll, err := r.coll(ctx)
	if err != nil {
		return false, err
	}
	opts = append(opts, options.Count().SetLimit(1))
	n, err := coll.CountDocuments(ctx, filter, opts...)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", r.collection, err)
	}
	return n > 0, nil
}

// groupCount runs a {$group: {_id: field, count}} over the matching
// documents. Failures are logged and yield an empty map.
func (r *BaseRepository[T]) groupCount(ctx context.Context, match bson.M, field string) map[string]int64 {
	coll, err := r.coll(ctx)
	if err != nil {
		r.logger.Error("group count failed", slog.String("field", field), slog.Any("error", err))
		return map[string]int64{}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	}
	buckets, err := aggregate[bucket](ctx, coll, pipeline)
	if err != nil {
		r.logger.Error("group count failed", slog.String("field", field), slog.Any("error", err))
		return map[string]int64{}
	}
	return bucketsToMap(buckets)
}
