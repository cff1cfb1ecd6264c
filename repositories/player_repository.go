package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Dosada05/sports-competitions/brackets"
	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/validation"
)

const (
	idxPlayerJersey  = "player_team_jersey_active_unique"
	idxPlayerCaptain = "player_team_captain_unique"
)

type PlayerRepository interface {
	Repository[models.Player]
	CreatePlayer(ctx context.Context, in models.PlayerInput) (*models.Player, error)
	UpdatePlayer(ctx context.Context, id string, patch bson.M) (*models.Player, error)
	CheckJerseyNumberExists(ctx context.Context, teamID string, number int, excludeID string) (bool, error)
	GetNextJerseyNumber(ctx context.Context, teamID string) (int, error)
	SetCaptain(ctx context.Context, playerID string) (*models.Player, error)
	Deactivate(ctx context.Context, id string) (*models.Player, error)
	FindByTeam(ctx context.Context, teamID string, activeOnly bool) ([]models.Player, error)
	FindCaptain(ctx context.Context, teamID string) (*models.Player, error)
}

type mongoPlayerRepository struct {
	*BaseRepository[models.Player]
}

func NewMongoPlayerRepository(database Database, logger *slog.Logger) PlayerRepository {
	base := NewBaseRepository[models.Player](database, db.CollectionPlayer, logger).
		withValidation(validation.Player)
	return &mongoPlayerRepository{BaseRepository: base}
}

// playerConflicts needs the jersey number for the message, so it is applied
// by the callers that know it.
func playerConflicts(err error, jersey int) error {
	switch {
	case isDuplicateOn(err, idxPlayerJersey):
		return JerseyConflict(jersey)
	case isDuplicateOn(err, idxPlayerCaptain):
		return ErrCaptainConflict
	}
	return err
}

// CreateIndexes keeps jersey numbers unique among a team's active players and
// allows at most one captain per team.
func (r *mongoPlayerRepository) CreateIndexes(ctx context.Context) error {
	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	return ensureIndexes(ctx, coll, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "teamId", Value: 1}, {Key: "jerseyNumber", Value: 1}},
			Options: options.Index().SetName(idxPlayerJersey).SetUnique(true).
				SetPartialFilterExpression(bson.M{"isActive": true}),
		},
		{
			Keys: bson.D{{Key: "teamId", Value: 1}},
			Options: options.Index().SetName(idxPlayerCaptain).SetUnique(true).
				SetPartialFilterExpression(bson.M{"isCaptain": true}),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	})
}

func (r *mongoPlayerRepository) CheckJerseyNumberExists(ctx context.Context, teamID string, number int, excludeID string) (bool, error) {
	teamOID, ok := parseObjectID(teamID)
	if !ok {
		return false, nil
	}
	filter := bson.M{"teamId": teamOID, "jerseyNumber": number, "isActive": true}
	if oid, ok := parseObjectID(excludeID); ok {
		filter["_id"] = bson.M{"$ne": oid}
	}
	return r.Exists(ctx, filter)
}

// GetNextJerseyNumber returns the lowest number from 1 to 99 no active player
// of the team wears, or ErrJerseyNumbersExhausted.
func (r *mongoPlayerRepository) GetNextJerseyNumber(ctx context.Context, teamID string) (int, error) {
	teamOID, err := requireObjectID("teamId", teamID)
	if err != nil {
		return 0, err
	}
	coll, err := r.coll(ctx)
	if err != nil {
		return 0, err
	}
	raw, err := coll.Distinct(ctx, "jerseyNumber", bson.M{"teamId": teamOID, "isActive": true})
	if err != nil {
		return 0, fmt.Errorf("failed to list jersey numbers: %w", err)
	}

	used := make([]int, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case int32:
			used = append(used, int(n))
		case int64:
			used = append(used, int(n))
		case float64:
			used = append(used, int(n))
		}
	}
	number, ok := brackets.LowestFreeNumber(used, models.MaxJerseyNumber)
	if !ok {
		return 0, ErrJerseyNumbersExhausted
	}
	return number, nil
}

// CreatePlayer allocates the next free jersey number when none is given.
// A taken number is reported as a jersey conflict by the pre-check and by
// the unique index.
func (r *mongoPlayerRepository) CreatePlayer(ctx context.Context, in models.PlayerInput) (*models.Player, error) {
	player, err := validation.NewPlayer(in)
	if err != nil {
		return nil, err
	}
	teamID := player.TeamID.Hex()

	if player.JerseyNumber == 0 {
		next, err := r.GetNextJerseyNumber(ctx, teamID)
		if err != nil {
			return nil, err
		}
		player.JerseyNumber = next
	} else {
		taken, err := r.CheckJerseyNumberExists(ctx, teamID, player.JerseyNumber, "")
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, JerseyConflict(player.JerseyNumber)
		}
	}

	created, err := r.Create(ctx, player)
	if err != nil {
		return nil, playerConflicts(err, player.JerseyNumber)
	}
	return created, nil
}

// UpdatePlayer re-checks the jersey number when it changes or when an
// inactive player is reactivated. Captaincy only changes through SetCaptain.
func (r *mongoPlayerRepository) UpdatePlayer(ctx context.Context, id string, patch bson.M) (*models.Player, error) {
	if _, ok := patch["isCaptain"]; ok {
		return nil, fmt.Errorf("%w: captaincy is changed through SetCaptain", ErrInvalidInput)
	}
	var jersey int
	updated, err := r.updateChecked(ctx, id, patch, func(existing, merged *models.Player) error {
		if err := validation.Player(merged); err != nil {
			return err
		}
		jersey = merged.JerseyNumber
		if !merged.IsActive {
			return nil
		}
		if merged.JerseyNumber == existing.JerseyNumber && existing.IsActive && merged.TeamID == existing.TeamID {
			return nil
		}
		taken, err := r.CheckJerseyNumberExists(ctx, merged.TeamID.Hex(), merged.JerseyNumber, existing.ID)
		if err != nil {
			return err
		}
		if taken {
			return JerseyConflict(merged.JerseyNumber)
		}
		return nil
	})
	if err != nil {
		return nil, playerConflicts(err, jersey)
	}
	return updated, nil
}

// SetCaptain is the only way captaincy changes: within one transaction every
// other captain of the team is cleared, then the target is set. The partial
// unique index on isCaptain backs this on deployments without transactions.
func (r *mongoPlayerRepository) SetCaptain(ctx context.Context, playerID string) (*models.Player, error) {
	oid, ok := parseObjectID(playerID)
	if !ok {
		return nil, ErrPlayerNotFound
	}

	var captain *models.Player
	err := r.db.WithTransaction(ctx, func(ctx context.Context) error {
		player, err := r.findByObjectID(ctx, oid)
		if err != nil {
			return err
		}
		if player == nil {
			return ErrPlayerNotFound
		}
		if !player.IsActive {
			return ErrPlayerInactive
		}
		if _, err := r.updateMany(ctx,
			bson.M{"teamId": player.TeamID, "isCaptain": true, "_id": bson.M{"$ne": oid}},
			bson.M{"isCaptain": false},
		); err != nil {
			return err
		}
		captain, err = r.updateOne(ctx, bson.M{"_id": oid}, bson.M{"isCaptain": true})
		if err != nil {
			return err
		}
		if captain == nil {
			return ErrPlayerNotFound
		}
		return nil
	})
	if err != nil {
		return nil, playerConflicts(err, 0)
	}
	return captain, nil
}

// Deactivate takes a player off the active roster, which frees the jersey
// number and drops the captaincy.
func (r *mongoPlayerRepository) Deactivate(ctx context.Context, id string) (*models.Player, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}
	return r.updateOne(ctx, bson.M{"_id": oid}, bson.M{"isActive": false, "isCaptain": false})
}

func (r *mongoPlayerRepository) FindByTeam(ctx context.Context, teamID string, activeOnly bool) ([]models.Player, error) {
	oid, ok := parseObjectID(teamID)
	if !ok {
		return []models.Player{}, nil
	}
	filter := bson.M{"teamId": oid}
	if activeOnly {
		filter["isActive"] = true
	}
	return r.FindMany(ctx, filter, FindOptions{Sort: bson.D{{Key: "jerseyNumber", Value: 1}}})
}

func (r *mongoPlayerRepository) FindCaptain(ctx context.Context, teamID string) (*models.Player, error) {
	oid, ok := parseObjectID(teamID)
	if !ok {
		return nil, nil
	}
	return r.FindOne(ctx, bson.M{"teamId": oid, "isCaptain": true})
}
