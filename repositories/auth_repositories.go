package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/utils"
	"github.com/Dosada05/sports-competitions/validation"
)

// Account, Session и VerificationToken обслуживают внешний провайдер
// аутентификации. Ядро хранит их и чистит просроченные записи.

const (
	idxAccountProvider = "account_provider_unique"
	idxSessionToken    = "session_token_unique"
	idxVerification    = "verification_identifier_token_unique"

	idxSessionExpires      = "session_expires_ttl"
	idxVerificationExpires = "verification_expires_ttl"
)

// expiryIndex is a TTL index: the server drops a record once expires passes.
// DeleteExpired stays for callers that need the count right away.
func expiryIndex(name string) mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "expires", Value: 1}},
		Options: options.Index().SetName(name).SetExpireAfterSeconds(0),
	}
}

type AccountRepository interface {
	Repository[models.Account]
	FindByProvider(ctx context.Context, provider, providerAccountID string) (*models.Account, error)
	FindByUserID(ctx context.Context, userID string) ([]models.Account, error)
	LinkAccount(ctx context.Context, account *models.Account) (*models.Account, error)
	Unlink(ctx context.Context, provider, providerAccountID string) (bool, error)
}

type mongoAccountRepository struct {
	*BaseRepository[models.Account]
}

func NewMongoAccountRepository(database Database, logger *slog.Logger) AccountRepository {
	base := NewBaseRepository[models.Account](database, db.CollectionAccount, logger).
		withValidation(validation.Account).
		withConflicts(func(err error) error {
			if isDuplicateOn(err, idxAccountProvider) {
				return ErrAccountConflict
			}
			return err
		})
	return &mongoAccountRepository{BaseRepository: base}
}

func (r *mongoAccountRepository) CreateIndexes(ctx context.Context) error {
	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	return ensureIndexes(ctx, coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "providerAccountId", Value: 1}},
			Options: options.Index().SetName(idxAccountProvider).SetUnique(true),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	})
}

func (r *mongoAccountRepository) FindByProvider(ctx context.Context, provider, providerAccountID string) (*models.Account, error) {
	return r.FindOne(ctx, bson.M{"provider": provider, "providerAccountId": providerAccountID})
}

func (r *mongoAccountRepository) FindByUserID(ctx context.Context, userID string) ([]models.Account, error) {
	oid, ok := parseObjectID(userID)
	if !ok {
		return []models.Account{}, nil
	}
	return r.FindMany(ctx, bson.M{"userId": oid}, FindOptions{})
}

func (r *mongoAccountRepository) LinkAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account == nil {
		return nil, fmt.Errorf("%w: account is required", ErrInvalidInput)
	}
	return r.Create(ctx, account)
}

func (r *mongoAccountRepository) Unlink(ctx context.Context, provider, providerAccountID string) (bool, error) {
	n, err := r.deleteMany(ctx, bson.M{"provider": provider, "providerAccountId": providerAccountID})
	return n > 0, err
}

type SessionRepository interface {
	Repository[models.Session]
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*models.Session, error)
	FindValidByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) (bool, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type mongoSessionRepository struct {
	*BaseRepository[models.Session]
}

func NewMongoSessionRepository(database Database, logger *slog.Logger) SessionRepository {
	base := NewBaseRepository[models.Session](database, db.CollectionSession, logger).
		withValidation(validation.Session).
		withConflicts(func(err error) error {
			if isDuplicateOn(err, idxSessionToken) {
				return ErrSessionConflict
			}
			return err
		})
	return &mongoSessionRepository{BaseRepository: base}
}

func (r *mongoSessionRepository) CreateIndexes(ctx context.Context) error {
	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	return ensureIndexes(ctx, coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionToken", Value: 1}},
			Options: options.Index().SetName(idxSessionToken).SetUnique(true),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		expiryIndex(idxSessionExpires),
	})
}

func (r *mongoSessionRepository) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*models.Session, error) {
	oid, err := requireObjectID("userId", userID)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: session lifetime must be positive", ErrInvalidInput)
	}
	return r.Create(ctx, &models.Session{
		SessionToken: utils.GenerateToken(),
		UserID:       oid,
		Expires:      now().Add(ttl),
	})
}

// FindValidByToken ignores sessions whose expiry has passed.
func (r *mongoSessionRepository) FindValidByToken(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	return r.FindOne(ctx, bson.M{"sessionToken": token, "expires": bson.M{"$gt": time.Now()}})
}

func (r *mongoSessionRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	n, err := r.deleteMany(ctx, bson.M{"sessionToken": token})
	return n > 0, err
}

func (r *mongoSessionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	oid, ok := parseObjectID(userID)
	if !ok {
		return 0, nil
	}
	return r.deleteMany(ctx, bson.M{"userId": oid})
}

func (r *mongoSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return r.deleteMany(ctx, bson.M{"expires": bson.M{"$lt": time.Now()}})
}

type VerificationTokenRepository interface {
	Repository[models.VerificationToken]
	Generate(ctx context.Context, identifier string, ttl time.Duration) (*models.VerificationToken, error)
	Consume(ctx context.Context, identifier, token string) (*models.VerificationToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type mongoVerificationTokenRepository struct {
	*BaseRepository[models.VerificationToken]
}

func NewMongoVerificationTokenRepository(database Database, logger *slog.Logger) VerificationTokenRepository {
	base := NewBaseRepository[models.VerificationToken](database, db.CollectionVerificationToken, logger).
		withValidation(validation.VerificationToken).
		withConflicts(func(err error) error {
			if isDuplicateOn(err, idxVerification) {
				return ErrTokenConflict
			}
			return err
		})
	return &mongoVerificationTokenRepository{BaseRepository: base}
}

func (r *mongoVerificationTokenRepository) CreateIndexes(ctx context.Context) error {
	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	return ensureIndexes(ctx, coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "identifier", Value: 1}, {Key: "token", Value: 1}},
			Options: options.Index().SetName(idxVerification).SetUnique(true),
		},
		expiryIndex(idxVerificationExpires),
	})
}

// Generate issues a fresh token for identifier (usually an email address).
func (r *mongoVerificationTokenRepository) Generate(ctx context.Context, identifier string, ttl time.Duration) (*models.VerificationToken, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || ttl <= 0 {
		return nil, fmt.Errorf("%w: identifier and a positive lifetime are required", ErrInvalidInput)
	}
	if strings.Contains(identifier, "@") {
		identifier = utils.NormalizeEmail(identifier)
	}
	return r.Create(ctx, &models.VerificationToken{
		Identifier: identifier,
		Token:      utils.GenerateToken(),
		Expires:    now().Add(ttl),
	})
}

// Consume deletes and returns the token when it is still valid. A token can be
// consumed once; nil means unknown, already used or expired.
func (r *mongoVerificationTokenRepository) Consume(ctx context.Context, identifier, token string) (*models.VerificationToken, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		identifier = utils.NormalizeEmail(identifier)
	}
	coll, err := r.coll(ctx)
	if err != nil {
		return nil, err
	}
	var vt models.VerificationToken
	err = coll.FindOneAndDelete(ctx, bson.M{
		"identifier": identifier,
		"token":      token,
		"expires":    bson.M{"$gt": time.Now()},
	}).Decode(&vt)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		r.logger.Error("consume token failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}
	return normalize(&vt), nil
}

func (r *mongoVerificationTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return r.deleteMany(ctx, bson.M{"expires": bson.M{"$lt": time.Now()}})
}
