package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
)

const (
	searchLimit  = 10
	recentWindow = 30 * 24 * time.Hour
)

// DatabaseService groups every repository behind one object and adds the
// operations that span several collections.
type DatabaseService struct {
	database repositories.Database
	logger   *slog.Logger

	users              repositories.UserRepository
	competitions       repositories.CompetitionRepository
	participations     repositories.ParticipationRepository
	teams              repositories.TeamRepository
	players            repositories.PlayerRepository
	matches            repositories.MatchRepository
	groups             repositories.GroupRepository
	notifications      repositories.NotificationRepository
	accounts           repositories.AccountRepository
	sessions           repositories.SessionRepository
	verificationTokens repositories.VerificationTokenRepository
}

func NewDatabaseService(database repositories.Database, logger *slog.Logger) *DatabaseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatabaseService{
		database:           database,
		logger:             logger.With(slog.String("component", "database_service")),
		users:              repositories.NewMongoUserRepository(database, logger),
		competitions:       repositories.NewMongoCompetitionRepository(database, logger),
		participations:     repositories.NewMongoParticipationRepository(database, logger),
		teams:              repositories.NewMongoTeamRepository(database, logger),
		players:            repositories.NewMongoPlayerRepository(database, logger),
		matches:            repositories.NewMongoMatchRepository(database, logger),
		groups:             repositories.NewMongoGroupRepository(database, logger),
		notifications:      repositories.NewMongoNotificationRepository(database, logger),
		accounts:           repositories.NewMongoAccountRepository(database, logger),
		sessions:           repositories.NewMongoSessionRepository(database, logger),
		verificationTokens: repositories.NewMongoVerificationTokenRepository(database, logger),
	}
}

func (s *DatabaseService) Users() repositories.UserRepository                   { return s.users }
func (s *DatabaseService) Competitions() repositories.CompetitionRepository     { return s.competitions }
func (s *DatabaseService) Participations() repositories.ParticipationRepository { return s.participations }
func (s *DatabaseService) Teams() repositories.TeamRepository                   { return s.teams }
func (s *DatabaseService) Players() repositories.PlayerRepository               { return s.players }
func (s *DatabaseService) Matches() repositories.MatchRepository                { return s.matches }
func (s *DatabaseService) Groups() repositories.GroupRepository                 { return s.groups }
func (s *DatabaseService) Notifications() repositories.NotificationRepository   { return s.notifications }
func (s *DatabaseService) Accounts() repositories.AccountRepository             { return s.accounts }
func (s *DatabaseService) Sessions() repositories.SessionRepository             { return s.sessions }
func (s *DatabaseService) VerificationTokens() repositories.VerificationTokenRepository {
	return s.verificationTokens
}

type indexed interface {
	Name() string
	CreateIndexes(ctx context.Context) error
}

func (s *DatabaseService) all() []indexed {
	return []indexed{
		s.users, s.competitions, s.participations, s.teams, s.players, s.matches,
		s.groups, s.notifications, s.accounts, s.sessions, s.verificationTokens,
	}
}

// Initialize creates the indexes of every collection in parallel.
func (s *DatabaseService) Initialize(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, repo := range s.all() {
		repo := repo
		g.Go(func() error {
			if err := repo.CreateIndexes(gctx); err != nil {
				return fmt.Errorf("%s: %w", repo.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("index initialization failed", slog.Any("error", err))
		return err
	}
	s.logger.Info("indexes initialized", slog.Int("collections", len(s.all())))
	return nil
}

// CleanupReport counts the documents each purge removed.
type CleanupReport struct {
	Sessions      int64 `json:"sessions"`
	Tokens        int64 `json:"tokens"`
	Notifications int64 `json:"notifications"`
}

// Cleanup purges expired sessions, expired verification tokens and read
// notifications older than retentionDays. A failing purge does not stop the
// others; the first error is returned with the partial report.
func (s *DatabaseService) Cleanup(ctx context.Context, retentionDays int) (CleanupReport, error) {
	var report CleanupReport
	var g errgroup.Group
	g.Go(func() (err error) {
		report.Sessions, err = s.sessions.DeleteExpired(ctx)
		return err
	})
	g.Go(func() (err error) {
		report.Tokens, err = s.verificationTokens.DeleteExpired(ctx)
		return err
	})
	g.Go(func() (err error) {
		report.Notifications, err = s.notifications.DeleteOldNotifications(ctx, retentionDays)
		return err
	})
	err := g.Wait()

	s.logger.Info("cleanup finished",
		slog.Int64("sessions", report.Sessions),
		slog.Int64("tokens", report.Tokens),
		slog.Int64("notifications", report.Notifications),
		slog.Any("error", err))
	return report, err
}

// HealthCheck reports document and index counts for every collection. The
// status is healthy only when every collection answered.
func (s *DatabaseService) HealthCheck(ctx context.Context) models.HealthStatus {
	results := make([]models.CollectionHealth, len(db.CollectionNames))
	errs := make([]error, len(db.CollectionNames))

	var wg sync.WaitGroup
	for i, name := range db.CollectionNames {
		i, name := i, name
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.collectionHealth(ctx, name)
		}()
	}
	wg.Wait()

	status := models.HealthStatus{Status: models.HealthHealthy, Collections: []models.CollectionHealth{}}
	for i, err := range errs {
		if err != nil {
			status.Status = models.HealthUnhealthy
			status.Errors = append(status.Errors, fmt.Sprintf("%s: %v", db.CollectionNames[i], err))
			continue
		}
		status.Collections = append(status.Collections, results[i])
	}
	if status.Status == models.HealthUnhealthy {
		s.logger.Warn("health check failed", slog.Any("errors", status.Errors))
	}
	return status
}

func (s *DatabaseService) collectionHealth(ctx context.Context, name string) (models.CollectionHealth, error) {
	coll, err := s.database.Collection(ctx, name)
	if err != nil {
		return models.CollectionHealth{}, err
	}
	count, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return models.CollectionHealth{}, err
	}
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return models.CollectionHealth{}, err
	}
	var indexes []bson.M
	if err := cursor.All(ctx, &indexes); err != nil {
		return models.CollectionHealth{}, err
	}
	return models.CollectionHealth{Name: name, Documents: count, Indexes: len(indexes)}, nil
}

type documentCounter interface {
	CountDocuments(ctx context.Context, filter any) (int64, error)
}

// GetGlobalStats never fails. Either every counter is read or the whole
// result is zero: a half-filled snapshot is never returned.
func (s *DatabaseService) GetGlobalStats(ctx context.Context) models.GlobalStats {
	var stats models.GlobalStats
	since := time.Now().Add(-recentWindow)

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, fn func(context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	total := func(r documentCounter) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) { return r.CountDocuments(ctx, nil) }
	}

	count(&stats.Users.Total, total(s.users))
	count(&stats.Users.Subset, func(ctx context.Context) (int64, error) { return s.users.CountRecent(ctx, since) })
	count(&stats.Competitions.Total, total(s.competitions))
	count(&stats.Competitions.Subset, s.competitions.CountActive)
	count(&stats.Teams.Total, total(s.teams))
	count(&stats.Teams.Subset, s.teams.CountActive)
	count(&stats.Matches.Total, total(s.matches))
	count(&stats.Matches.Subset, s.matches.CountUpcoming)

	if err := g.Wait(); err != nil {
		s.logger.Error("global stats failed", slog.Any("error", err))
		return models.GlobalStats{}
	}
	return stats
}

// GlobalSearch looks for query in public competitions, active teams and
// users other than userID, at most ten of each. Failing parts come back
// empty.
func (s *DatabaseService) GlobalSearch(ctx context.Context, query, userID string) models.SearchResults {
	results := models.SearchResults{
		Competitions: []models.Competition{},
		Teams:        []models.Team{},
		Users:        []models.UserSummary{},
	}
	if query == "" {
		return results
	}

	var g errgroup.Group
	g.Go(func() error {
		if found, err := s.competitions.Search(ctx, query, searchLimit); err == nil {
			results.Competitions = found
		}
		return nil
	})
	g.Go(func() error {
		if found, err := s.teams.Search(ctx, query, searchLimit); err == nil {
			results.Teams = found
		}
		return nil
	})
	g.Go(func() error {
		if found, err := s.users.Search(ctx, query, userID, searchLimit); err == nil {
			results.Users = found
		}
		return nil
	})
	_ = g.Wait()
	return results
}
