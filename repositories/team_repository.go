package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/validation"
)

const idxTeamName = "team_competition_name_unique"

type TeamRepository interface {
	Repository[models.Team]
	CreateTeam(ctx context.Context, in models.TeamInput) (*models.Team, error)
	UpdateTeam(ctx context.Context, id string, patch bson.M) (*models.Team, error)
	CheckNameExists(ctx context.Context, competitionID, name, excludeID string) (bool, error)
	GetTeamWithPlayers(ctx context.Context, id string) (*models.TeamWithPlayers, error)
	AssignToGroup(ctx context.Context, teamID, groupID string) (*models.Team, error)
	RemoveFromGroup(ctx context.Context, teamID string) (*models.Team, error)
	FindByCompetition(ctx context.Context, competitionID string, activeOnly bool) ([]models.Team, error)
	FindByCaptain(ctx context.Context, captainID string) ([]models.Team, error)
	Search(ctx context.Context, query string, limit int64) ([]models.Team, error)
	CountActive(ctx context.Context) (int64, error)
	SetLogo(ctx context.Context, id, url string) (*models.Team, error)
}

type mongoTeamRepository struct {
	*BaseRepository[models.Team]
}

func NewMongoTeamRepository(database Database, logger *slog.Logger) TeamRepository {
	base := NewBaseRepository[models.Team](database, db.CollectionTeam, logger).
		withValidation(validation.Team).
		withConflicts(teamConflicts)
	return &mongoTeamRepository{BaseRepository: base}
}

func teamConflicts(err error) error {
	if isDuplicateOn(err, idxTeamName) {
		return ErrTeamNameConflict
	}
	return err
}

// CreateIndexes makes team names unique per competition regardless of case.
func (r *mongoTeamRepository) CreateIndexes(ctx context.Context) error {
	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	return ensureIndexes(ctx, coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "competitionId", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName(idxTeamName).SetUnique(true).SetCollation(caseInsensitive),
		},
		{Keys: bson.D{{Key: "captainId", Value: 1}}},
		{Keys: bson.D{{Key: "groupId", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}}},
	})
}

func (r *mongoTeamRepository) CheckNameExists(ctx context.Context, competitionID, name, excludeID string) (bool, error) {
	competitionOID, ok := parseObjectID(competitionID)
	if !ok {
		return false, nil
	}
	filter := bson.M{"competitionId": competitionOID, "name": strings.TrimSpace(name)}
	if oid, ok := parseObjectID(excludeID); ok {
		filter["_id"] = bson.M{"$ne": oid}
	}
	return r.Exists(ctx, filter, options.Count().SetCollation(caseInsensitive))
}

func (r *mongoTeamRepository) CreateTeam(ctx context.Context, in models.TeamInput) (*models.Team, error) {
	team, err := validation.NewTeam(in)
	if err != nil {
		return nil, err
	}
	exists, err := r.CheckNameExists(ctx, team.CompetitionID.Hex(), team.Name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrTeamNameConflict
	}
	if team.GroupID != nil {
		if err := requireGroup(ctx, r.db, team.CompetitionID, *team.GroupID); err != nil {
			return nil, err
		}
	}
	return r.Create(ctx, team)
}

// UpdateTeam re-checks name uniqueness when the name changes and keeps the
// team inside its own competition's groups.
func (r *mongoTeamRepository) UpdateTeam(ctx context.Context, id string, patch bson.M) (*models.Team, error) {
	return r.updateChecked(ctx, id, patch, func(existing, merged *models.Team) error {
		if err := validation.Team(merged); err != nil {
			return err
		}
		if merged.GroupID != nil && (existing.GroupID == nil || *existing.GroupID != *merged.GroupID) {
			if err := requireGroup(ctx, r.db, merged.CompetitionID, *merged.GroupID); err != nil {
				return err
			}
		}
		if strings.EqualFold(existing.Name, merged.Name) {
			return nil
		}
		exists, err := r.CheckNameExists(ctx, merged.CompetitionID.Hex(), merged.Name, existing.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrTeamNameConflict
		}
		return nil
	})
}

// GetTeamWithPlayers joins the roster (by jersey number), the captain, the
// competition and the group.
func (r *mongoTeamRepository) GetTeamWithPlayers(ctx context.Context, id string) (*models.TeamWithPlayers, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}
	coll, err := r.coll(ctx)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": oid}}},
		{{Key: "$lookup", Value: bson.M{
			"from":     db.CollectionPlayer,
			"let":      bson.M{"teamId": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$teamId", "$$teamId"}}}},
				bson.M{"$sort": bson.D{{Key: "jerseyNumber", Value: 1}}},
			},
			"as": "players",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":     db.CollectionUser,
			"let":      bson.M{"captainId": "$captainId"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$captainId"}}}},
				bson.M{"$project": userSummaryProjection},
			},
			"as": "captain",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":     db.CollectionCompetition,
			"let":      bson.M{"competitionId": "$competitionId"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$competitionId"}}}},
				bson.M{"$project": competitionSummaryProjection},
			},
			"as": "competition",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.CollectionGroup,
			"localField":   "groupId",
			"foreignField": "_id",
			"as":           "group",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"captain":     bson.M{"$arrayElemAt": bson.A{"$captain", 0}},
			"competition": bson.M{"$arrayElemAt": bson.A{"$competition", 0}},
			"group":       bson.M{"$arrayElemAt": bson.A{"$group", 0}},
		}}},
	}

	rows, err := aggregate[models.TeamWithPlayers](ctx, coll, pipeline)
	if err != nil {
		r.logger.Error("team with players failed", slog.String("id", id), slog.Any("error", err))
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	team := &rows[0]
	team.Normalize()
	normalizeAll(team.Players)
	if team.Group != nil {
		team.Group.Normalize()
	}
	return team, nil
}

var competitionSummaryProjection = bson.M{"name": 1, "category": 1, "status": 1}

// AssignToGroup places a team in one of its competition's groups. A group of
// another competition is reported as ErrGroupNotFound.
func (r *mongoTeamRepository) AssignToGroup(ctx context.Context, teamID, groupID string) (*models.Team, error) {
	groupOID, err := requireObjectID("groupId", groupID)
	if err != nil {
		return nil, err
	}
	teamOID, ok := parseObjectID(teamID)
	if !ok {
		return nil, ErrTeamNotFound
	}
	team, err := r.findByObjectID(ctx, teamOID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}
	if err := requireGroup(ctx, r.db, team.CompetitionID, groupOID); err != nil {
		return nil, err
	}
	return r.updateOne(ctx, bson.M{"_id": teamOID}, bson.M{"groupId": groupOID})
}

func (r *mongoTeamRepository) RemoveFromGroup(ctx context.Context, teamID string) (*models.Team, error) {
	return r.UpdateByID(ctx, teamID, bson.M{"groupId": nil})
}

func (r *mongoTeamRepository) FindByCompetition(ctx context.Context, competitionID string, activeOnly bool) ([]models.Team, error) {
	oid, ok := parseObjectID(competitionID)
	if !ok {
		return []models.Team{}, nil
	}
	filter := bson.M{"competitionId": oid}
	if activeOnly {
		filter["isActive"] = true
	}
	return r.FindMany(ctx, filter, FindOptions{Sort: bson.D{{Key: "name", Value: 1}}})
}

func (r *mongoTeamRepository) FindByCaptain(ctx context.Context, captainID string) ([]models.Team, error) {
	oid, ok := parseObjectID(captainID)
	if !ok {
		return []models.Team{}, nil
	}
	return r.FindMany(ctx, bson.M{"captainId": oid}, FindOptions{Sort: bson.D{{Key: "createdAt", Value: -1}}})
}

// Search matches active teams by name or description. Failures are logged
// and produce an empty result.
func (r *mongoTeamRepository) Search(ctx context.Context, query string, limit int64) ([]models.Team, error) {
	if strings.TrimSpace(query) == "" {
		return []models.Team{}, nil
	}
	pattern := containsFold(query)
	filter := bson.M{
		"isActive": true,
		"$or": bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		},
	}
	items, err := r.FindMany(ctx, filter, FindOptions{Sort: bson.D{{Key: "name", Value: 1}}, Limit: limit})
	if err != nil {
		return []models.Team{}, nil
	}
	return items, nil
}

func (r *mongoTeamRepository) CountActive(ctx context.Context) (int64, error) {
	return r.CountDocuments(ctx, bson.M{"isActive": true})
}

func (r *mongoTeamRepository) SetLogo(ctx context.Context, id, url string) (*models.Team, error) {
	return r.UpdateByID(ctx, id, bson.M{"logo": url})
}
