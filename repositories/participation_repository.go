package repositories

import (
	"context"
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
	"github.com/Dosada05/sports-competitions/validation"
)

const idxParticipationPair = "participation_competition_participant_unique"

const recentApplicationsWindow = 7 * 24 * time.Hour

type ParticipationRepository interface {
	Repository[models.Participation]
	CreateParticipation(ctx context.Context, competitionID, participantID string, message *string) (*models.Participation, error)
	ApproveParticipation(ctx context.Context, id string) (*models.Participation, error)
	RejectParticipation(ctx context.Context, id, reason string) (*models.Participation, error)
	WithdrawParticipation(ctx context.Context, id string) (*models.Participation, error)
	FindByCompetitionAndParticipant(ctx context.Context, competitionID, participantID string) (*models.Participation, error)
	FindByCompetition(ctx context.Context, competitionID string, status models.ParticipationStatus) ([]models.Participation, error)
	FindByParticipant(ctx context.Context, participantID string) ([]models.Participation, error)
	CountApproved(ctx context.Context, competitionID string) int64
	GetParticipationStats(ctx context.Context, competitionID string) models.ParticipationStats
}

type mongoParticipationRepository struct {
	*BaseRepository[models.Participation]
}

func NewMongoParticipationRepository(database Database, logger *slog.Logger) ParticipationRepository {
	base := NewBaseRepository[models.Participation](database, db.CollectionParticipation, logger).
		withValidation(validation.Participation).
		withConflicts(participationConflicts)
	return &mongoParticipationRepository{BaseRepository: base}
}

func participationConflicts(err error) error {
	if isDuplicateOn(err, idxParticipationPair) {
		return ErrAlreadyParticipating
	}
	return err
}

func (r *mongoParticipationRepository) CreateIndexes(ctx context.Context) error {
	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	return ensureIndexes(ctx, coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "competitionId", Value: 1}, {Key: "participantId", Value: 1}},
			Options: options.Index().SetName(idxParticipationPair).SetUnique(true),
		},
		{Keys: bson.D{{Key: "participantId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "competitionId", Value: 1}, {Key: "status", Value: 1}}},
	})
}

// CreateParticipation registers a user for a competition. Registration is
// only possible while the competition is OPEN and its deadline has not
// passed (ErrRegistrationClosed). Competitions that do not require approval admit the participant at once (ACCEPTED) as long
// as capacity remains. A second registration for the same pair is
// ErrAlreadyParticipating, from the pre-check or from the unique index.
func (r *mongoParticipationRepository) CreateParticipation(ctx context.Context, competitionID, participantID string, message *string) (*models.Participation, error) {
	competitionOID, err := requireObjectID("competitionId", competitionID)
	if err != nil {
		return nil, err
	}
	participantOID, err := requireObjectID("participantId", participantID)
	if err != nil {
		return nil, err
	}

	exists, err := r.Exists(ctx, bson.M{"competitionId": competitionOID, "participantId": participantOID})
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyParticipating
	}

	competition, err := r.loadCompetition(ctx, competitionOID)
	if err != nil {
		return nil, err
	}
	if !competition.AcceptsRegistrations(now()) {
		return nil, ErrRegistrationClosed
	}

	participation := &models.Participation{
		CompetitionID: competitionOID,
		ParticipantID: participantOID,
		Status:        models.ParticipationPending,
		Message:       message,
	}
	if competition.RequiresApproval {
		return r.Create(ctx, participation)
	}

	var created *models.Participation
	err = r.db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := r.ensureCapacity(ctx, competition); err != nil {
			return err
		}
		stamp := now()
		participation.Status = models.ParticipationAccepted
		participation.ApprovalDate = &stamp
		var err error
		created, err = r.Create(ctx, participation)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ApproveParticipation moves a PENDING participation to APPROVED and stamps
// the approval date, refusing when the competition is already full.
func (r *mongoParticipationRepository) ApproveParticipation(ctx context.Context, id string) (*models.Participation, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrParticipationNotFound
	}
	if current.Status != models.ParticipationPending {
		return nil, transitionError(current.Status, models.ParticipationApproved)
	}
	competition, err := r.loadCompetition(ctx, current.CompetitionID)
	if err != nil {
		return nil, err
	}

	var approved *models.Participation
	err = r.db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := r.ensureCapacity(ctx, competition); err != nil {
			return err
		}
		var err error
		approved, err = r.transition(ctx, current.ObjectID,
			[]models.ParticipationStatus{models.ParticipationPending},
			models.ParticipationApproved,
			bson.M{"approvalDate": now()})
		return err
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// RejectParticipation requires a reason. Any non-terminal participation can
// be rejected; the decision date is stored as the approval date.
func (r *mongoParticipationRepository) RejectParticipation(ctx context.Context, id, reason string) (*models.Participation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectionReasonRequired
	}
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, ErrParticipationNotFound
	}
	return r.transition(ctx, oid, models.ParticipationOpenStatuses, models.ParticipationRejected,
		bson.M{"approvalDate": now(), "rejectionReason": reason})
}

// WithdrawParticipation is allowed from any non-terminal status.
func (r *mongoParticipationRepository) WithdrawParticipation(ctx context.Context, id string) (*models.Participation, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, ErrParticipationNotFound
	}
	return r.transition(ctx, oid, models.ParticipationOpenStatuses, models.ParticipationWithdrawn, nil)
}

// transition is a single conditional update guarded on the source statuses.
// When it matches nothing it tells a missing participation apart from one in
// the wrong state.
func (r *mongoParticipationRepository) transition(ctx context.Context, oid primitive.ObjectID, from []models.ParticipationStatus, to models.ParticipationStatus, extra bson.M) (*models.Participation, error) {
	set := bson.M{"status": to}
	for k, v := range extra {
		set[k] = v
	}
	updated, err := r.updateOne(ctx, bson.M{"_id": oid, "status": bson.M{"$in": from}}, set)
	if err != nil || updated != nil {
		return updated, err
	}

	current, err := r.findByObjectID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrParticipationNotFound
	}
	return nil, transitionError(current.Status, to)
}

func (r *mongoParticipationRepository) loadCompetition(ctx context.Context, id primitive.ObjectID) (*models.Competition, error) {
	coll, err := r.db.Collection(ctx, db.CollectionCompetition)
	if err != nil {
		return nil, err
	}
	var competition models.Competition
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&competition); err != nil {
		if isNoDocuments(err) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}
	return normalize(&competition), nil
}

// ensureCapacity checks the admitted count against maxParticipants. Inside a
// transaction it first touches the competition so concurrent admissions to
// the same competition conflict and are retried.
func (r *mongoParticipationRepository) ensureCapacity(ctx context.Context, competition *models.Competition) error {
	if competition.MaxParticipants == nil {
		return nil
	}
	competitions, err := r.db.Collection(ctx, db.CollectionCompetition)
	if err != nil {
		return err
	}
	if _, err := competitions.UpdateOne(ctx, bson.M{"_id": competition.ObjectID}, setStage(bson.M{}, now())); err != nil {
		return err
	}

	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	admitted, err := coll.CountDocuments(ctx, bson.M{
		"competitionId": competition.ObjectID,
		"status":        bson.M{"$in": models.ParticipationAdmittedStatuses},
	})
	if err != nil {
		return err
	}
	if admitted >= int64(*competition.MaxParticipants) {
		return ErrCompetitionFull
	}
	return nil
}

func (r *mongoParticipationRepository) FindByCompetitionAndParticipant(ctx context.Context, competitionID, participantID string) (*models.Participation, error) {
	competitionOID, ok := parseObjectID(competitionID)
	if !ok {
		return nil, nil
	}
	participantOID, ok := parseObjectID(participantID)
	if !ok {
		return nil, nil
	}
	return r.FindOne(ctx, bson.M{"competitionId": competitionOID, "participantId": participantOID})
}

func (r *mongoParticipationRepository) FindByCompetition(ctx context.Context, competitionID string, status models.ParticipationStatus) ([]models.Participation, error) {
	oid, ok := parseObjectID(competitionID)
	if !ok {
		return []models.Participation{}, nil
	}
	filter := bson.M{"competitionId": oid}
	if status != "" {
		filter["status"] = status
	}
	return r.FindMany(ctx, filter, FindOptions{Sort: bson.D{{Key: "applicationDate", Value: 1}}})
}

func (r *mongoParticipationRepository) FindByParticipant(ctx context.Context, participantID string) ([]models.Participation, error) {
	oid, ok := parseObjectID(participantID)
	if !ok {
		return []models.Participation{}, nil
	}
	return r.FindMany(ctx, bson.M{"participantId": oid}, FindOptions{Sort: bson.D{{Key: "createdAt", Value: -1}}})
}

func (r *mongoParticipationRepository) CountApproved(ctx context.Context, competitionID string) int64 {
	oid, ok := parseObjectID(competitionID)
	if !ok {
		return 0
	}
	return r.Count(ctx, bson.M{"competitionId": oid, "status": bson.M{"$in": models.ParticipationAdmittedStatuses}})
}

// GetParticipationStats covers one competition, or every participation when
// competitionID is empty. It never fails.
func (r *mongoParticipationRepository) GetParticipationStats(ctx context.Context, competitionID string) models.ParticipationStats {
	match := bson.M{}
	if competitionID != "" {
		oid, ok := parseObjectID(competitionID)
		if !ok {
			return models.ParticipationStats{ByStatus: map[string]int64{}}
		}
		match["competitionId"] = oid
	}

	var stats models.ParticipationStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats.Total = r.Count(gctx, match)
		return nil
	})
	g.Go(func() error {
		stats.ByStatus = r.groupCount(gctx, match, "status")
		return nil
	})
	g.Go(func() error {
		recent := bson.M{"applicationDate": bson.M{"$gte": time.Now().Add(-recentApplicationsWindow)}}
		for k, v := range match {
			recent[k] = v
		}
		stats.RecentApplications = r.Count(gctx, recent)
		return nil
	})
	_ = g.Wait()
	return stats
}
