package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/validation"
)

const defaultNotificationPage = 50

// Publisher delivers a freshly stored notification to its recipient's live
// connections. Delivery is best effort.
type Publisher interface {
	PublishToUser(userID string, eventType string, payload any)
}

const EventNotificationCreated = "notification.created"

type NotificationRepository interface {
	Repository[models.Notification]
	CreateNotification(ctx context.Context, in models.NotificationInput) (*models.Notification, error)
	CreateForUsers(ctx context.Context, userIDs []string, in models.NotificationInput) ([]models.Notification, error)
	FindByUser(ctx context.Context, userID string, unreadOnly bool, limit, skip int64) ([]models.Notification, error)
	GetUnreadCount(ctx context.Context, userID string) int64
	MarkAsRead(ctx context.Context, id, userID string) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, id, userID string) (bool, error)
	DeleteOldNotifications(ctx context.Context, daysOld int) (int64, error)
	GetNotificationStats(ctx context.Context, userID string) models.NotificationStats
	SetPublisher(p Publisher)
}

type mongoNotificationRepository struct {
	*BaseRepository[models.Notification]
	publisher Publisher
}

func NewMongoNotificationRepository(database Database, logger *slog.Logger) NotificationRepository {
	base := NewBaseRepository[models.Notification](database, db.CollectionNotification, logger).
		withValidation(validation.Notification)
	return &mongoNotificationRepository{BaseRepository: base}
}

// SetPublisher must be called before the repository is shared.
func (r *mongoNotificationRepository) SetPublisher(p Publisher) {
	r.publisher = p
}

// CreateIndexes includes a TTL index: the store drops a notification once
// its expiresAt has passed.
func (r *mongoNotificationRepository) CreateIndexes(ctx context.Context) error {
	coll, err := r.coll(ctx)
	if err != nil {
		return err
	}
	return ensureIndexes(ctx, coll, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isRead", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "isRead", Value: 1}, {Key: "createdAt", Value: 1}}},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("notification_expires_ttl").SetExpireAfterSeconds(0),
		},
	})
}

func (r *mongoNotificationRepository) CreateNotification(ctx context.Context, in models.NotificationInput) (*models.Notification, error) {
	n, err := validation.NewNotification(in)
	if err != nil {
		return nil, err
	}
	created, err := r.Create(ctx, n)
	if err != nil || created == nil {
		return created, err
	}
	r.publish(*created)
	return created, nil
}

// CreateForUsers stores one copy of the message per distinct user.
func (r *mongoNotificationRepository) CreateForUsers(ctx context.Context, userIDs []string, in models.NotificationInput) ([]models.Notification, error) {
	docs := make([]*models.Notification, 0, len(userIDs))
	seen := make(map[string]bool, len(userIDs))
	for _, userID := range userIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		in.UserID = userID
		n, err := validation.NewNotification(in)
		if err != nil {
			return nil, err
		}
		docs = append(docs, n)
	}

	created, err := r.createMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	for _, n := range created {
		r.publish(n)
	}
	return created, nil
}

func (r *mongoNotificationRepository) publish(n models.Notification) {
	if r.publisher == nil {
		return
	}
	r.publisher.PublishToUser(n.UserID.Hex(), EventNotificationCreated, n)
}

// FindByUser pages through the user's notifications, newest first.
func (r *mongoNotificationRepository) FindByUser(ctx context.Context, userID string, unreadOnly bool, limit, skip int64) ([]models.Notification, error) {
	oid, ok := parseObjectID(userID)
	if !ok {
		return []models.Notification{}, nil
	}
	if limit <= 0 {
		limit = defaultNotificationPage
	}
	filter := bson.M{"userId": oid}
	if unreadOnly {
		filter["isRead"] = false
	}
	return r.FindMany(ctx, filter, FindOptions{
		Sort:  bson.D{{Key: "createdAt", Value: -1}},
		Limit: limit,
		Skip:  skip,
	})
}

func (r *mongoNotificationRepository) GetUnreadCount(ctx context.Context, userID string) int64 {
	oid, ok := parseObjectID(userID)
	if !ok {
		return 0
	}
	return r.Count(ctx, bson.M{"userId": oid, "isRead": false})
}

// MarkAsRead only touches a notification owned by userID; anything else is
// reported as not found.
func (r *mongoNotificationRepository) MarkAsRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, ErrNotificationNotFound
	}
	owner, ok := parseObjectID(userID)
	if !ok {
		return nil, ErrNotificationNotFound
	}

	filter := bson.M{"_id": oid, "userId": owner}
	updated, err := r.updateOne(ctx, bson.M{"_id": oid, "userId": owner, "isRead": false},
		bson.M{"isRead": true, "readAt": now()})
	if err != nil || updated != nil {
		return updated, err
	}
	// Already read: return it unchanged.
	existing, err := r.FindOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotificationNotFound
	}
	return existing, nil
}

func (r *mongoNotificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	oid, ok := parseObjectID(userID)
	if !ok {
		return 0, nil
	}
	return r.updateMany(ctx, bson.M{"userId": oid, "isRead": false}, bson.M{"isRead": true, "readAt": now()})
}

func (r *mongoNotificationRepository) DeleteNotification(ctx context.Context, id, userID string) (bool, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return false, nil
	}
	owner, ok := parseObjectID(userID)
	if !ok {
		return false, nil
	}
	n, err := r.deleteMany(ctx, bson.M{"_id": oid, "userId": owner})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteOldNotifications removes read notifications created more than
// daysOld days ago. Unread notifications are kept whatever their age.
func (r *mongoNotificationRepository) DeleteOldNotifications(ctx context.Context, daysOld int) (int64, error) {
	if daysOld < 0 {
		return 0, fmt.Errorf("%w: daysOld must not be negative", ErrInvalidInput)
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -daysOld)
	n, err := r.deleteMany(ctx, bson.M{"isRead": true, "createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		r.logger.Error("purge of old notifications failed", slog.Any("error", err))
		return 0, err
	}
	return n, nil
}

// GetNotificationStats never fails; unreachable parts are reported as zero.
func (r *mongoNotificationRepository) GetNotificationStats(ctx context.Context, userID string) models.NotificationStats {
	stats := models.NotificationStats{ByType: map[string]int64{}, ByCategory: map[string]int64{}}
	oid, ok := parseObjectID(userID)
	if !ok {
		return stats
	}
	match := bson.M{"userId": oid}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats.Total = r.Count(gctx, match)
		return nil
	})
	g.Go(func() error {
		stats.Unread = r.Count(gctx, bson.M{"userId": oid, "isRead": false})
		return nil
	})
	g.Go(func() error {
		stats.ByType = r.groupCount(gctx, match, "type")
		return nil
	})
	g.Go(func() error {
		stats.ByCategory = r.groupCount(gctx, match, "category")
		return nil
	})
	_ = g.Wait()
	return stats
}
