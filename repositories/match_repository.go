package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Dosada05/sports-competitions/brackets"
	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/validation"
)

// fixtureSpacing separates consecutive generated fixtures.
const fixtureSpacing = 7 * 24 * time.Hour

const defaultUpcomingLimit = 10

type MatchRepository interface {
	Repository[models.Match]
	CreateMatch(ctx context.Context, in models.MatchInput) (*models.Match, error)
	UpdateMatch(ctx context.Context, id string, patch bson.M) (*models.Match, error)
	StartMatch(ctx context.Context, id string) (*models.Match, error)
	UpdateScore(ctx context.Context, id string, home, away *int, final bool) (*models.Match, error)
	CancelMatch(ctx context.Context, id string, reason *string) (*models.Match, error)
	PostponeMatch(ctx context.Context, id string, newDate *time.Time, reason *string) (*models.Match, error)
	GenerateRoundRobinMatches(ctx context.Context, competitionID string, teamIDs []string, start time.Time) ([]models.Match, error)
	GenerateKnockoutMatches(ctx context.Context, competitionID string, teamIDs []string, start time.Time) ([]models.Match, error)
	GetTeamRecord(ctx context.Context, teamID string) (*models.TeamRecord, error)
	GetStandings(ctx context.Context, competitionID string) ([]models.TeamRecord, error)
	GetUpcomingMatches(ctx context.Context, teamID string, limit int64) ([]models.MatchWithTeams, error)
	FindByCompetition(ctx context.Context, competitionID string) ([]models.Match, error)
	CountUpcoming(ctx context.Context) (int64, error)
}

type mongoMatchRepository struct {
	*BaseRepository[models.Match]
	roundRobin brackets.BracketGenerator
	knockout   brackets.BracketGenerator
}

func NewMongoMatchRepository(database Database, logger *slog.Logger) MatchRepository {
	base := NewBaseRepository[models.Match](database, db.CollectionMatch, logger).
		withValidation(validation.Match)
	return &mongoMatchRepository{
		BaseRepository: base,
		roundRobin:     brackets.NewRoundRobinGenerator(),
		knockout:       brackets.NewSingleEliminationGenerator(),
	}
}

func (r *mongoMatchRepository) CreateIndexes(ctx context.Context) error {
	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	return ensureIndexes(ctx, coll, []mongo.IndexModel{
		{Keys: bson.D{{Key: "competitionId", Value: 1}, {Key: "round", Value: 1}, {Key: "matchNumber", Value: 1}}},
		{Keys: bson.D{{Key: "homeTeamId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "awayTeamId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduledDate", Value: 1}}},
		{Keys: bson.D{{Key: "groupId", Value: 1}}},
	})
}

// CreateMatch schedules a single fixture. Both teams and the group, if any,
// must belong to the match's competition.
func (r *mongoMatchRepository) CreateMatch(ctx context.Context, in models.MatchInput) (*models.Match, error) {
	match, err := validation.NewMatch(in)
	if err != nil {
		return nil, err
	}
	if err := r.checkReferences(ctx, match); err != nil {
		return nil, err
	}
	return r.Create(ctx, match)
}

func (r *mongoMatchRepository) checkReferences(ctx context.Context, m *models.Match) error {
	if err := requireTeams(ctx, r.db, m.CompetitionID, m.HomeTeamID, m.AwayTeamID); err != nil {
		return err
	}
	if m.GroupID != nil {
		return requireGroup(ctx, r.db, m.CompetitionID, *m.GroupID)
	}
	return nil
}

// UpdateMatch edits fixture details. Status and scores change through the
// lifecycle methods.
func (r *mongoMatchRepository) UpdateMatch(ctx context.Context, id string, patch bson.M) (*models.Match, error) {
	for _, key := range []string{"status", "homeScore", "awayScore", "startTime", "endTime"} {
		if _, ok := patch[key]; ok {
			return nil, fmt.Errorf("%w: %s is changed through the match lifecycle", ErrInvalidInput, key)
		}
	}
	return r.updateChecked(ctx, id, patch, func(_, merged *models.Match) error {
		if err := validation.Match(merged); err != nil {
			return err
		}
		_, home := patch["homeTeamId"]
		_, away := patch["awayTeamId"]
		_, group := patch["groupId"]
		if home || away || group {
			return r.checkReferences(ctx, merged)
		}
		return nil
	})
}

// StartMatch moves a SCHEDULED or POSTPONED match to LIVE.
func (r *mongoMatchRepository) StartMatch(ctx context.Context, id string) (*models.Match, error) {
	return r.transition(ctx, id,
		[]models.MatchStatus{models.MatchScheduled, models.MatchPostponed},
		models.MatchLive,
		bson.M{"startTime": now()})
}

// UpdateScore records the score of a LIVE match. With final set both scores
// are required and the match becomes COMPLETED.
func (r *mongoMatchRepository) UpdateScore(ctx context.Context, id string, home, away *int, final bool) (*models.Match, error) {
	if (home != nil && *home < 0) || (away != nil && *away < 0) {
		return nil, fmt.Errorf("%w: scores cannot be negative", ErrInvalidInput)
	}
	set := bson.M{}
	if home != nil {
		set["homeScore"] = *home
	}
	if away != nil {
		set["awayScore"] = *away
	}

	if final {
		if home == nil || away == nil {
			return nil, ErrScoresRequired
		}
		set["endTime"] = now()
		return r.transition(ctx, id, []models.MatchStatus{models.MatchLive}, models.MatchCompleted, set)
	}
	if len(set) == 0 {
		return nil, ErrScoresRequired
	}
	return r.transition(ctx, id, []models.MatchStatus{models.MatchLive}, models.MatchLive, set)
}

// CancelMatch is allowed until the match is completed.
func (r *mongoMatchRepository) CancelMatch(ctx context.Context, id string, reason *string) (*models.Match, error) {
	set := bson.M{}
	if reason != nil && strings.TrimSpace(*reason) != "" {
		set["reason"] = strings.TrimSpace(*reason)
	}
	return r.transition(ctx, id,
		[]models.MatchStatus{models.MatchScheduled, models.MatchLive, models.MatchPostponed},
		models.MatchCancelled, set)
}

// PostponeMatch moves a SCHEDULED match to a new date.
func (r *mongoMatchRepository) PostponeMatch(ctx context.Context, id string, newDate *time.Time, reason *string) (*models.Match, error) {
	if newDate == nil || newDate.IsZero() {
		return nil, ErrNewDateRequired
	}
	set := bson.M{"scheduledDate": newDate.UTC()}
	if reason != nil && strings.TrimSpace(*reason) != "" {
		set["reason"] = strings.TrimSpace(*reason)
	}
	return r.transition(ctx, id, []models.MatchStatus{models.MatchScheduled}, models.MatchPostponed, set)
}

func (r *mongoMatchRepository) transition(ctx context.Context, id string, from []models.MatchStatus, to models.MatchStatus, extra bson.M) (*models.Match, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, ErrMatchNotFound
	}
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
		return nil, ErrMatchNotFound
	}
	return nil, transitionError(current.Status, to)
}

// GenerateRoundRobinMatches schedules a double round robin: every pair meets
// twice with home and away swapped, one fixture a week starting at start.
func (r *mongoMatchRepository) GenerateRoundRobinMatches(ctx context.Context, competitionID string, teamIDs []string, start time.Time) ([]models.Match, error) {
	return r.generate(ctx, r.roundRobin, false, competitionID, teamIDs, start, func(first time.Time, i int) time.Time {
		return first.Add(time.Duration(i) * fixtureSpacing)
	})
}

// GenerateKnockoutMatches schedules the playable first round of a single
// elimination bracket on start. Teams drawn against a bye get no fixture.
func (r *mongoMatchRepository) GenerateKnockoutMatches(ctx context.Context, competitionID string, teamIDs []string, start time.Time) ([]models.Match, error) {
	return r.generate(ctx, r.knockout, true, competitionID, teamIDs, start, func(first time.Time, _ int) time.Time {
		return first
	})
}

func (r *mongoMatchRepository) generate(ctx context.Context, gen brackets.BracketGenerator, firstRoundOnly bool, competitionID string, teamIDs []string, start time.Time, dateFor func(first time.Time, i int) time.Time) ([]models.Match, error) {
	competitionOID, err := requireObjectID("competitionId", competitionID)
	if err != nil {
		return nil, err
	}
	valid := make([]string, 0, len(teamIDs))
	seen := make(map[primitive.ObjectID]bool, len(teamIDs))
	for _, oid := range parseObjectIDs(teamIDs) {
		if !seen[oid] {
			seen[oid] = true
			valid = append(valid, oid.Hex())
		}
	}
	if len(valid) < 2 {
		return nil, ErrNotEnoughTeams
	}
	if err := requireTeams(ctx, r.db, competitionOID, parseObjectIDs(valid)...); err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = now()
	}

	bracket, err := gen.GenerateBracket(ctx, brackets.GenerateBracketParams{CompetitionID: competitionID, TeamIDs: valid})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEnoughTeams, err)
	}
	fixtures := bracket
	if firstRoundOnly {
		fixtures = brackets.FirstRound(bracket)
	}

	docs := make([]*models.Match, 0, len(fixtures))
	for i, f := range fixtures {
		home, _ := primitive.ObjectIDFromHex(*f.HomeTeamID)
		away, _ := primitive.ObjectIDFromHex(*f.AwayTeamID)
		round, number := f.Round, i+1
		docs = append(docs, &models.Match{
			CompetitionID: competitionOID,
			HomeTeamID:    home,
			AwayTeamID:    away,
			Round:         &round,
			MatchNumber:   &number,
			ScheduledDate: dateFor(start, i).UTC(),
			Status:        models.MatchScheduled,
		})
	}
	created, err := r.createMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	r.logger.Info("fixtures generated",
		slog.String("competitionId", competitionID),
		slog.String("generator", gen.GetName()),
		slog.Int("count", len(created)))
	return created, nil
}

func (r *mongoMatchRepository) completedMatches(ctx context.Context, filter bson.M) ([]models.Match, error) {
	filter["status"] = models.MatchCompleted
	return r.FindMany(ctx, filter, FindOptions{})
}

// GetTeamRecord tallies the team's COMPLETED matches with 3/1/0 points.
func (r *mongoMatchRepository) GetTeamRecord(ctx context.Context, teamID string) (*models.TeamRecord, error) {
	oid, ok := parseObjectID(teamID)
	if !ok {
		return nil, nil
	}
	matches, err := r.completedMatches(ctx, bson.M{"$or": bson.A{
		bson.M{"homeTeamId": oid},
		bson.M{"awayTeamId": oid},
	}})
	if err != nil {
		return nil, err
	}
	record := brackets.TallyTeamRecord(oid.Hex(), matches)
	return &record, nil
}

// GetStandings ranks every team of the competition on its completed matches.
func (r *mongoMatchRepository) GetStandings(ctx context.Context, competitionID string) ([]models.TeamRecord, error) {
	oid, ok := parseObjectID(competitionID)
	if !ok {
		return []models.TeamRecord{}, nil
	}
	teamsColl, err := r.db.Collection(ctx, db.CollectionTeam)
	if err != nil {
		return nil, err
	}
	teams, err := findAs[models.Team](ctx, teamsColl, bson.M{"competitionId": oid})
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	matches, err := r.completedMatches(ctx, bson.M{"competitionId": oid})
	if err != nil {
		return nil, err
	}
	return brackets.Standings(teams, matches), nil
}

// GetUpcomingMatches lists SCHEDULED matches still to come, soonest first,
// with both teams and the competition joined. An empty teamID covers every
// team.
func (r *mongoMatchRepository) GetUpcomingMatches(ctx context.Context, teamID string, limit int64) ([]models.MatchWithTeams, error) {
	if limit <= 0 {
		limit = defaultUpcomingLimit
	}
	match := bson.M{"status": models.MatchScheduled, "scheduledDate": bson.M{"$gt": time.Now()}}
	if teamID != "" {
		oid, ok := parseObjectID(teamID)
		if !ok {
			return []models.MatchWithTeams{}, nil
		}
		match["$or"] = bson.A{bson.M{"homeTeamId": oid}, bson.M{"awayTeamId": oid}}
	}

	coll, err := r.coll(ctx)
	if err != nil {
		return nil, err
	}
	teamProjection := bson.M{"name": 1, "logo": 1}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "scheduledDate", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		lookupOne(db.CollectionTeam, "homeTeamId", "homeTeam", teamProjection),
		lookupOne(db.CollectionTeam, "awayTeamId", "awayTeam", teamProjection),
		lookupOne(db.CollectionCompetition, "competitionId", "competition", competitionSummaryProjection),
		{{Key: "$addFields", Value: bson.M{
			"homeTeam":    bson.M{"$arrayElemAt": bson.A{"$homeTeam", 0}},
			"awayTeam":    bson.M{"$arrayElemAt": bson.A{"$awayTeam", 0}},
			"competition": bson.M{"$arrayElemAt": bson.A{"$competition", 0}},
		}}},
	}

	rows, err := aggregate[models.MatchWithTeams](ctx, coll, pipeline)
	if err != nil {
		r.logger.Error("upcoming matches failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list upcoming matches: %w", err)
	}
	for i := range rows {
		rows[i].Normalize()
	}
	return rows, nil
}

func (r *mongoMatchRepository) FindByCompetition(ctx context.Context, competitionID string) ([]models.Match, error) {
	oid, ok := parseObjectID(competitionID)
	if !ok {
		return []models.Match{}, nil
	}
	return r.FindMany(ctx, bson.M{"competitionId": oid}, FindOptions{Sort: bson.D{
		{Key: "round", Value: 1},
		{Key: "matchNumber", Value: 1},
		{Key: "scheduledDate", Value: 1},
	}})
}

func (r *mongoMatchRepository) CountUpcoming(ctx context.Context) (int64, error) {
	return r.CountDocuments(ctx, bson.M{"status": models.MatchScheduled, "scheduledDate": bson.M{"$gt": time.Now()}})
}

// lookupOne joins the document referenced by localField, projected.
func lookupOne(from, localField, as string, projection bson.M) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.M{
		"from":     from,
		"let":      bson.M{"ref": "$" + localField},
		"pipeline": bson.A{
			bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$ref"}}}},
			bson.M{"$project": projection},
		},
		"as": as,
	}}}
}
