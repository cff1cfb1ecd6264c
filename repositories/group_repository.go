package repositories

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/validation"
)

const idxGroupName = "group_competition_name_unique"

type GroupRepository interface {
	Repository[models.Group]
	CheckNameExists(ctx context.Context, competitionID, name string) (bool, error)
	CreateGroup(ctx context.Context, competitionID, name string) (*models.Group, error)
	CreateGroupsForCompetition(ctx context.Context, competitionID string, names []string) ([]models.Group, error)
	FindByCompetition(ctx context.Context, competitionID string) ([]models.Group, error)
	DeleteGroup(ctx context.Context, id string) (bool, error)
}

type mongoGroupRepository struct {
	*BaseRepository[models.Group]
}

func NewMongoGroupRepository(database Database, logger *slog.Logger) GroupRepository {
	base := NewBaseRepository[models.Group](database, db.CollectionGroup, logger).
		withValidation(validation.Group).
		withConflicts(groupConflicts)
	return &mongoGroupRepository{BaseRepository: base}
}

func groupConflicts(err error) error {
	if isDuplicateOn(err, idxGroupName) {
		return ErrGroupNameConflict
	}
	return err
}

func (r *mongoGroupRepository) CreateIndexes(ctx context.Context) error {
	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	return ensureIndexes(ctx, coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "competitionId", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName(idxGroupName).SetUnique(true).SetCollation(caseInsensitive),
		},
	})
}

// CheckNameExists compares names case-insensitively within one competition.
func (r *mongoGroupRepository) CheckNameExists(ctx context.Context, competitionID, name string) (bool, error) {
	oid, ok := parseObjectID(competitionID)
	if !ok {
		return false, nil
	}
	return r.Exists(ctx,
		bson.M{"competitionId": oid, "name": strings.TrimSpace(name)},
		options.Count().SetCollation(caseInsensitive))
}

func (r *mongoGroupRepository) CreateGroup(ctx context.Context, competitionID, name string) (*models.Group, error) {
	oid, err := requireObjectID("competitionId", competitionID)
	if err != nil {
		return nil, err
	}
	exists, err := r.CheckNameExists(ctx, competitionID, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrGroupNameConflict
	}
	return r.Create(ctx, &models.Group{Name: strings.TrimSpace(name), CompetitionID: oid})
}

// CreateGroupsForCompetition creates the named groups that do not exist yet.
// Names already taken, including by an earlier entry of names, are skipped.
func (r *mongoGroupRepository) CreateGroupsForCompetition(ctx context.Context, competitionID string, names []string) ([]models.Group, error) {
	if _, err := requireObjectID("competitionId", competitionID); err != nil {
		return nil, err
	}
	created := []models.Group{}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		group, err := r.CreateGroup(ctx, competitionID, name)
		if errors.Is(err, ErrGroupNameConflict) {
			r.logger.Debug("group already exists, skipped",
				slog.String("competitionId", competitionID),
				slog.String("name", name))
			continue
		}
		if err != nil {
			return created, err
		}
		if group != nil {
			created = append(created, *group)
		}
	}
	return created, nil
}

func (r *mongoGroupRepository) FindByCompetition(ctx context.Context, competitionID string) ([]models.Group, error) {
	oid, ok := parseObjectID(competitionID)
	if !ok {
		return []models.Group{}, nil
	}
	return r.FindMany(ctx, bson.M{"competitionId": oid}, FindOptions{Sort: bson.D{{Key: "name", Value: 1}}})
}

// DeleteGroup removes the group and clears it from its teams and matches.
func (r *mongoGroupRepository) DeleteGroup(ctx context.Context, id string) (bool, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return false, nil
	}
	var deleted bool
	err := r.db.WithTransaction(ctx, func(ctx context.Context) error {
		deleted = false
		for _, name := range []string{db.CollectionTeam, db.CollectionMatch} {
			coll, err := r.db.Collection(ctx, name)
			if err != nil {
				return err
			}
			if _, err := coll.UpdateMany(ctx,
				bson.M{"groupId": oid},
				setStage(bson.M{"groupId": nil}, now()),
			); err != nil {
				return err
			}
		}
		coll, err := r.coll(ctx)
		if err != nil {
			return err
		}
		res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount == 1
		return nil
	})
	if err != nil {
		r.logger.Error("delete group failed", slog.String("id", id), slog.Any("error", err))
		return false, err
	}
	return deleted, nil
}
