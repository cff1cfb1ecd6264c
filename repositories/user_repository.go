package repositories

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/utils"
	"github.com/Dosada05/sports-competitions/validation"
)

const (
	idxUserEmail = "user_email_unique"
	idxUserPhone = "user_phone_unique"
)

const recentUsersWindow = 30 * 24 * time.Hour

type UserRepository interface {
	Repository[models.User]
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, in models.CreateUserInput) (*models.User, error)
	VerifyPassword(ctx context.Context, email, password string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, patch bson.M) (*models.User, error)
	UpdatePassword(ctx context.Context, id, password string) error
	MarkEmailVerified(ctx context.Context, id string) (*models.User, error)
	SetImage(ctx context.Context, id, url string) (*models.User, error)
	Search(ctx context.Context, query, excludeID string, limit int64) ([]models.UserSummary, error)
	CountRecent(ctx context.Context, since time.Time) (int64, error)
	GetUserStats(ctx context.Context) models.UserStats
}

type mongoUserRepository struct {
	*BaseRepository[models.User]
}

func NewMongoUserRepository(database Database, logger *slog.Logger) UserRepository {
	base := NewBaseRepository[models.User](database, db.CollectionUser, logger).
		withValidation(validation.User).
		withConflicts(userConflicts)
	return &mongoUserRepository{BaseRepository: base}
}

func userConflicts(err error) error {
	switch {
	case isDuplicateOn(err, idxUserEmail):
		return ErrUserEmailConflict
	case isDuplicateOn(err, idxUserPhone):
		return ErrUserPhoneConflict
	}
	return err
}

func (r *mongoUserRepository) CreateIndexes(ctx context.Context) error {
	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	return ensureIndexes(ctx, coll, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(idxUserEmail).SetUnique(true)},
		{Keys: bson.D{{Key: "phoneNumber", Value: 1}}, Options: options.Index().SetName(idxUserPhone).SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	return r.FindOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.Exists(ctx, bson.M{"email": utils.NormalizeEmail(email)})
}

// CreateUser hashes the password and defaults the role to PARTICIPANT.
// A taken email is reported as ErrUserEmailConflict both by the pre-check and
// by the unique index.
func (r *mongoUserRepository) CreateUser(ctx context.Context, in models.CreateUserInput) (*models.User, error) {
	user := &models.User{
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		Role:        in.Role,
		Country:     in.Country,
		City:        in.City,
		Commune:     in.Commune,
	}
	// Validate before hashing so a missing password is reported with the
	// other fields instead of being hashed as an empty string.
	if in.Password != "" {
		user.Password = "pending"
	}
	if err := validation.User(user); err != nil {
		return nil, err
	}

	exists, err := r.EmailExists(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserEmailConflict
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user.Password = hashed
	return r.Create(ctx, user)
}

// VerifyPassword returns the user only when the password matches. An unknown
// email and a wrong password both yield nil, nil after a full bcrypt compare.
func (r *mongoUserRepository) VerifyPassword(ctx context.Context, email, password string) (*models.User, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		utils.BurnPasswordCheck(password)
		return nil, nil
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, nil
	}
	return user, nil
}

// UpdateUser applies a profile patch. The password only changes through
// UpdatePassword.
func (r *mongoUserRepository) UpdateUser(ctx context.Context, id string, patch bson.M) (*models.User, error) {
	delete(patch, "password")
	delete(patch, "emailVerified")
	return r.UpdateByID(ctx, id, patch)
}

func (r *mongoUserRepository) UpdatePassword(ctx context.Context, id, password string) error {
	if strings.TrimSpace(password) == "" {
		return validation.Patch(validation.KindUser, bson.M{"password": ""})
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	user, err := r.UpdateByID(ctx, id, bson.M{"password": hashed})
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoUserRepository) MarkEmailVerified(ctx context.Context, id string) (*models.User, error) {
	return r.UpdateByID(ctx, id, bson.M{"emailVerified": now()})
}

func (r *mongoUserRepository) SetImage(ctx context.Context, id, url string) (*models.User, error) {
	return r.UpdateByID(ctx, id, bson.M{"image": url})
}

// Search matches first name, last name and email. Failures are logged and
// produce an empty result.
func (r *mongoUserRepository) Search(ctx context.Context, query, excludeID string, limit int64) ([]models.UserSummary, error) {
	if strings.TrimSpace(query) == "" {
		return []models.UserSummary{}, nil
	}
	pattern := containsFold(query)
	filter := bson.M{"$or": bson.A{
		bson.M{"firstName": pattern},
		bson.M{"lastName": pattern},
		bson.M{"email": pattern},
	}}
	if oid, ok := parseObjectID(excludeID); ok {
		filter["_id"] = bson.M{"$ne": oid}
	}

	coll, err := r.coll(ctx)
	if err != nil {
		r.logger.Error("user search failed", slog.Any("error", err))
		return []models.UserSummary{}, nil
	}
	opts := options.Find().
		SetProjection(bson.M{"email": 1, "firstName": 1, "lastName": 1, "role": 1, "image": 1}).
		SetSort(bson.D{{Key: "lastName", Value: 1}, {Key: "firstName", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	users, err := findAs[models.UserSummary](ctx, coll, filter, opts)
	if err != nil {
		r.logger.Error("user search failed", slog.Any("error", err))
		return []models.UserSummary{}, nil
	}
	return users, nil
}

func (r *mongoUserRepository) CountRecent(ctx context.Context, since time.Time) (int64, error) {
	return r.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": since}})
}

// GetUserStats never fails; unreachable parts are reported as zero.
func (r *mongoUserRepository) GetUserStats(ctx context.Context) models.UserStats {
	var stats models.UserStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats.Total = r.Count(gctx, bson.M{})
		return nil
	})
	g.Go(func() error {
		stats.ByRole = r.groupCount(gctx, bson.M{}, "role")
		return nil
	})
	g.Go(func() error {
		stats.ByCountry = r.groupCount(gctx, bson.M{}, "country")
		return nil
	})
	g.Go(func() error {
		stats.RecentUsers = r.Count(gctx, bson.M{"createdAt": bson.M{"$gte": time.Now().Add(-recentUsersWindow)}})
		return nil
	})
	_ = g.Wait()
	return stats
}
