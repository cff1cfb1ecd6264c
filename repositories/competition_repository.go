package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/utils"
	"github.com/Dosada05/sports-competitions/validation"
)

const (
	idxCompetitionCode = "competition_code_unique"
	idxCompetitionText = "competition_text"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
	codeAttempts    = 5
)

type CompetitionRepository interface {
	Repository[models.Competition]
	CreateCompetition(ctx context.Context, in models.CompetitionInput) (*models.Competition, error)
	UpdateCompetition(ctx context.Context, id string, patch bson.M) (*models.Competition, error)
	UpdateStatus(ctx context.Context, id string, next models.CompetitionStatus) (*models.Competition, error)
	AutoUpdateStatuses(ctx context.Context, at time.Time) (int64, error)
	FindByCode(ctx context.Context, code string) (*models.Competition, error)
	FindByOrganizer(ctx context.Context, organizerID string, status models.CompetitionStatus) ([]models.Competition, error)
	FindPublicCompetitions(ctx context.Context, filters models.CompetitionFilters) (*models.CompetitionPage, error)
	GetCompetitionWithDetails(ctx context.Context, id string) (*models.CompetitionDetails, error)
	GetStatsByOrganizer(ctx context.Context, organizerID string) models.OrganizerStats
	Search(ctx context.Context, query string, limit int64) ([]models.Competition, error)
	CountActive(ctx context.Context) (int64, error)
	SetLogo(ctx context.Context, id, url string) (*models.Competition, error)
}

type mongoCompetitionRepository struct {
	*BaseRepository[models.Competition]
}

func NewMongoCompetitionRepository(database Database, logger *slog.Logger) CompetitionRepository {
	base := NewBaseRepository[models.Competition](database, db.CollectionCompetition, logger).
		withValidation(validation.Competition).
		withConflicts(competitionConflicts)
	return &mongoCompetitionRepository{BaseRepository: base}
}

func competitionConflicts(err error) error {
	if isDuplicateOn(err, idxCompetitionCode) {
		return ErrCompetitionCodeConflict
	}
	return err
}

func (r *mongoCompetitionRepository) CreateIndexes(ctx context.Context) error {
	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	return ensureIndexes(ctx, coll, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uniqueCode", Value: 1}}, Options: options.Index().SetName(idxCompetitionCode).SetUnique(true)},
		{Keys: bson.D{{Key: "organizerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "isPublic", Value: 1}, {Key: "status", Value: 1}, {Key: "startDate", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "country", Value: 1}}},
		{
			Keys:    bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}},
			Options: options.Index().SetName(idxCompetitionText).SetDefaultLanguage("french"),
		},
	})
}

// CreateCompetition fills defaults and generates the invitation code, drawing
// a new one when the store reports a collision.
func (r *mongoCompetitionRepository) CreateCompetition(ctx context.Context, in models.CompetitionInput) (*models.Competition, error) {
	competition, err := validation.NewCompetition(in)
	if err != nil {
		return nil, err
	}
	for attempt := 1; ; attempt++ {
		created, err := r.Create(ctx, competition)
		if !errors.Is(err, ErrCompetitionCodeConflict) || attempt == codeAttempts {
			return created, err
		}
		r.logger.Warn("competition code collision, retrying", slog.String("code", competition.UniqueCode))
		competition.UniqueCode = utils.GenerateInviteCode()
	}
}

// UpdateCompetition applies a patch and re-checks the whole document (date
// window, capacity, deadline of an open competition). Status changes go
// through UpdateStatus.
func (r *mongoCompetitionRepository) UpdateCompetition(ctx context.Context, id string, patch bson.M) (*models.Competition, error) {
	if _, ok := patch["status"]; ok {
		return nil, fmt.Errorf("%w: status is changed through the status transition", ErrInvalidInput)
	}
	return r.updateChecked(ctx, id, patch, func(_, merged *models.Competition) error {
		return validation.Competition(merged)
	})
}

// UpdateStatus moves a competition along its state machine. The write is
// conditional on the status read, so a concurrent change makes it fail
// instead of skipping a state.
func (r *mongoCompetitionRepository) UpdateStatus(ctx context.Context, id string, next models.CompetitionStatus) (*models.Competition, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrCompetitionNotFound
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, transitionError(current.Status, next)
	}
	if next == models.CompetitionOpen && current.RegistrationDeadline == nil {
		return nil, ErrRegistrationDeadlineRequired
	}
	if current.Status == next {
		return current, nil
	}

	updated, err := r.updateOne(ctx, bson.M{"_id": current.ObjectID, "status": current.Status}, bson.M{"status": next})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: status changed concurrently", ErrInvalidStatusTransition)
	}
	return updated, nil
}

// AutoUpdateStatuses applies the date-driven transitions: registrations close
// after the deadline, competitions start on their start date and complete
// after their end date. It returns how many competitions changed.
func (r *mongoCompetitionRepository) AutoUpdateStatuses(ctx context.Context, at time.Time) (int64, error) {
	steps := []struct {
		filter bson.M
		next   models.CompetitionStatus
	}{
		{
			filter: bson.M{"status": models.CompetitionOpen, "registrationDeadline": bson.M{"$lt": at}},
			next:   models.CompetitionClosed,
		},
		{
			filter: bson.M{
				"status":    bson.M{"$in": bson.A{models.CompetitionOpen, models.CompetitionClosed}},
				"startDate": bson.M{"$lte": at},
			},
			next: models.CompetitionInProgress,
		},
		{
			filter: bson.M{"status": models.CompetitionInProgress, "endDate": bson.M{"$lt": at}},
			next:   models.CompetitionCompleted,
		},
	}

	var total int64
	for _, step := range steps {
		n, err := r.updateMany(ctx, step.filter, bson.M{"status": step.next})
		if err != nil {
			return total, err
		}
		if n > 0 {
			r.logger.Info("competition statuses updated", slog.String("status", string(step.next)), slog.Int64("count", n))
		}
		total += n
	}
	return total, nil
}

func (r *mongoCompetitionRepository) FindByCode(ctx context.Context, code string) (*models.Competition, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	return r.FindOne(ctx, bson.M{"uniqueCode": code})
}

func (r *mongoCompetitionRepository) FindByOrganizer(ctx context.Context, organizerID string, status models.CompetitionStatus) ([]models.Competition, error) {
	oid, ok := parseObjectID(organizerID)
	if !ok {
		return []models.Competition{}, nil
	}
	filter := bson.M{"organizerId": oid}
	if status != "" {
		filter["status"] = status
	}
	return r.FindMany(ctx, filter, FindOptions{Sort: bson.D{{Key: "createdAt", Value: -1}}})
}

// FindPublicCompetitions pages through public competitions, soonest start
// first and newest first among equal starts. Private competitions never
// match, whatever the filters.
func (r *mongoCompetitionRepository) FindPublicCompetitions(ctx context.Context, filters models.CompetitionFilters) (*models.CompetitionPage, error) {
	page, limit := filters.Page, filters.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := publicCompetitionFilter(filters)

	coll, err := r.coll(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.CompetitionPage{Page: page, Limit: limit}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		opts := options.Find().
			SetSort(bson.D{{Key: "startDate", Value: 1}, {Key: "createdAt", Value: -1}}).
			SetSkip(int64((page - 1) * limit)).
			SetLimit(int64(limit))
		items, err := r.find(gctx, coll, filter, opts)
		result.Competitions = items
		return err
	})
	g.Go(func() error {
		total, err := coll.CountDocuments(gctx, filter)
		result.Total = total
		return err
	})
	if err := g.Wait(); err != nil {
		r.logger.Error("public competition listing failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list public competitions: %w", err)
	}
	return result, nil
}

func publicCompetitionFilter(filters models.CompetitionFilters) bson.M {
	filter := bson.M{"isPublic": true}
	if country := strings.TrimSpace(filters.Country); country != "" {
		filter["country"] = primitive.Regex{Pattern: "^" + containsFold(country).Pattern + "$", Options: "i"}
	}
	if filters.Category != "" {
		filter["category"] = filters.Category
	}
	if filters.Status != "" {
		filter["status"] = filters.Status
	}
	if strings.TrimSpace(filters.Search) != "" {
		pattern := containsFold(filters.Search)
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}
	return filter
}

// GetCompetitionWithDetails joins the organizer, the participations and the
// teams, and computes their counts in the same pipeline.
func (r *mongoCompetitionRepository) GetCompetitionWithDetails(ctx context.Context, id string) (*models.CompetitionDetails, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}
	coll, err := r.coll(ctx)
	if err != nil {
		return nil, err
	}

	admitted := bson.A{}
	for _, s := range models.ParticipationAdmittedStatuses {
		admitted = append(admitted, s)
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": oid}}},
		{{Key: "$lookup", Value: bson.M{
			"from":     db.CollectionUser,
			"let":      bson.M{"organizerId": "$organizerId"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$organizerId"}}}},
				bson.M{"$project": userSummaryProjection},
			},
			"as": "organizer",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.CollectionParticipation,
			"localField":   "_id",
			"foreignField": "competitionId",
			"as":           "participations",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.CollectionTeam,
			"localField":   "_id",
			"foreignField": "competitionId",
			"as":           "teams",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"organizer":          bson.M{"$arrayElemAt": bson.A{"$organizer", 0}},
			"participationCount": bson.M{"$size": "$participations"},
			"approvedCount": bson.M{"$size": bson.M{"$filter": bson.M{
				"input": "$participations",
				"as":    "p",
				"cond":  bson.M{"$in": bson.A{"$$p.status", admitted}},
			}}},
			"teamCount": bson.M{"$size": "$teams"},
		}}},
	}

	rows, err := aggregate[models.CompetitionDetails](ctx, coll, pipeline)
	if err != nil {
		r.logger.Error("competition details failed", slog.String("id", id), slog.Any("error", err))
		return nil, fmt.Errorf("failed to load competition details: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	details := &rows[0]
	details.Normalize()
	normalizeAll(details.Participations)
	normalizeAll(details.Teams)
	return details, nil
}

var userSummaryProjection = bson.M{"email": 1, "firstName": 1, "lastName": 1, "role": 1, "image": 1}

// GetStatsByOrganizer never fails; unreachable parts are reported as zero.
func (r *mongoCompetitionRepository) GetStatsByOrganizer(ctx context.Context, organizerID string) models.OrganizerStats {
	stats := models.OrganizerStats{ByStatus: map[string]int64{}, ByCategory: map[string]int64{}}
	oid, ok := parseObjectID(organizerID)
	if !ok {
		return stats
	}
	match := bson.M{"organizerId": oid}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats.TotalCompetitions = r.Count(gctx, match)
		return nil
	})
	g.Go(func() error {
		stats.ByStatus = r.groupCount(gctx, match, "status")
		return nil
	})
	g.Go(func() error {
		stats.ByCategory = r.groupCount(gctx, match, "category")
		return nil
	})
	g.Go(func() error {
		stats.TotalApprovedParticipants = r.countApprovedForOrganizer(gctx, oid)
		return nil
	})
	_ = g.Wait()
	return stats
}

func (r *mongoCompetitionRepository) countApprovedForOrganizer(ctx context.Context, organizerID primitive.ObjectID) int64 {
	coll, err := r.coll(ctx)
	if err != nil {
		r.logger.Error("organizer stats failed", slog.Any("error", err))
		return 0
	}
	ids, err := coll.Distinct(ctx, "_id", bson.M{"organizerId": organizerID})
	if err != nil {
		r.logger.Error("organizer stats failed", slog.Any("error", err))
		return 0
	}
	if len(ids) == 0 {
		return 0
	}
	participations, err := r.db.Collection(ctx, db.CollectionParticipation)
	if err != nil {
		r.logger.Error("organizer stats failed", slog.Any("error", err))
		return 0
	}
	n, err := participations.CountDocuments(ctx, bson.M{
		"competitionId": bson.M{"$in": ids},
		"status":        bson.M{"$in": models.ParticipationAdmittedStatuses},
	})
	if err != nil {
		r.logger.Error("organizer stats failed", slog.Any("error", err))
		return 0
	}
	return n
}

// Search looks through public competitions by name and description. Failures
// are logged and produce an empty result.
func (r *mongoCompetitionRepository) Search(ctx context.Context, query string, limit int64) ([]models.Competition, error) {
	if strings.TrimSpace(query) == "" {
		return []models.Competition{}, nil
	}
	items, err := r.FindMany(ctx, publicCompetitionFilter(models.CompetitionFilters{Search: query}), FindOptions{
		Sort:  bson.D{{Key: "startDate", Value: 1}, {Key: "createdAt", Value: -1}},
		Limit: limit,
	})
	if err != nil {
		return []models.Competition{}, nil
	}
	return items, nil
}

func (r *mongoCompetitionRepository) CountActive(ctx context.Context) (int64, error) {
	return r.CountDocuments(ctx, bson.M{"status": bson.M{"$in": models.ActiveCompetitionStatuses}})
}

func (r *mongoCompetitionRepository) SetLogo(ctx context.Context, id, url string) (*models.Competition, error) {
	return r.UpdateByID(ctx, id, bson.M{"logo": url})
}
