package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var (
	// ErrConfiguration означает отсутствие обязательной настройки подключения.
	ErrConfiguration = errors.New("database configuration error")
	// ErrConnection означает, что хранилище недоступно. Повторных попыток не делаем.
	ErrConnection = errors.New("database connection error")
)

// Collection names, one logical collection per entity.
const (
	CollectionUser              = "User"
	CollectionCompetition       = "Competition"
	CollectionParticipation     = "Participation"
	CollectionTeam              = "Team"
	CollectionPlayer            = "Player"
	CollectionMatch             = "Match"
	CollectionGroup             = "Group"
	CollectionNotification      = "Notification"
	CollectionAccount           = "Account"
	CollectionSession           = "Session"
	CollectionVerificationToken = "VerificationToken"
)

// CollectionNames lists every collection the application owns.
var CollectionNames = []string{
	CollectionUser,
	CollectionCompetition,
	CollectionParticipation,
	CollectionTeam,
	CollectionPlayer,
	CollectionMatch,
	CollectionGroup,
	CollectionNotification,
	CollectionAccount,
	CollectionSession,
	CollectionVerificationToken,
}

const DefaultDatabaseName = "sports_competitions"

type Options struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Manager lazily opens one shared client for the life of the process.
// It is built once at start-up and handed to every repository.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu                   sync.Mutex
	client               *mongo.Client
	database             *mongo.Database
	supportsTransactions bool
}

func NewManager(opts Options, logger *slog.Logger) *Manager {
	if opts.Database == "" {
		opts.Database = DefaultDatabaseName
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{opts: opts, logger: logger}
}

// Connect returns the memoized database handle, connecting on first use.
func (m *Manager) Connect(ctx context.Context) (*mongo.Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.database != nil {
		return m.database, nil
	}
	if m.opts.URI == "" {
		return nil, fmt.Errorf("%w: MONGODB_URI is not set", ErrConfiguration)
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(m.opts.URI).
		SetServerSelectionTimeout(m.opts.ConnectTimeout)
	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		if discErr := client.Disconnect(context.Background()); discErr != nil {
			m.logger.Error("failed to disconnect after ping error", slog.Any("error", discErr))
		}
		return nil, fmt.Errorf("%w: ping failed within %v: %v", ErrConnection, m.opts.ConnectTimeout, err)
	}

	database := client.Database(m.opts.Database)
	m.supportsTransactions = detectTransactions(connectCtx, database)
	m.client = client
	m.database = database

	m.logger.Info("connected to MongoDB",
		slog.String("database", m.opts.Database),
		slog.Bool("transactions", m.supportsTransactions),
	)
	return database, nil
}

// Collection returns a handle scoped to the named collection.
func (m *Manager) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	database, err := m.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return database.Collection(name), nil
}

// WithTransaction runs fn in a multi-document transaction when the deployment
// supports one. On a standalone server fn runs directly and the unique
// indexes are the only guard.
func (m *Manager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, err := m.Connect(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	client, supported := m.client, m.supportsTransactions
	m.mu.Unlock()

	if !supported {
		return fn(ctx)
	}

	session, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().SetWriteConcern(writeconcern.Majority())
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	}, txnOpts)
	return err
}

// Close disconnects the client; a later Connect opens a fresh one.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(ctx)
	m.client = nil
	m.database = nil
	m.supportsTransactions = false
	return err
}

// detectTransactions checks for a replica set or a mongos router.
func detectTransactions(ctx context.Context, database *mongo.Database) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := database.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}
