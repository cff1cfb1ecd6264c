package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Dosada05/sports-competitions/db"
	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
)

var errStoreDown = errors.New("store unavailable")

// downDatabase fails every collection lookup.
type downDatabase struct{}

func (downDatabase) Collection(context.Context, string) (*mongo.Collection, error) {
	return nil, errStoreDown
}

func (downDatabase) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type statsUsers struct {
	repositories.UserRepository
	total, recent int64
	err           error
}

func (f statsUsers) CountDocuments(context.Context, any) (int64, error) { return f.total, f.err }
func (f statsUsers) CountRecent(context.Context, time.Time) (int64, error) {
	return f.recent, f.err
}

type statsCompetitions struct {
	repositories.CompetitionRepository
	total, active int64
	err           error
}

func (f statsCompetitions) CountDocuments(context.Context, any) (int64, error) { return f.total, f.err }
func (f statsCompetitions) CountActive(context.Context) (int64, error)         { return f.active, f.err }

type statsTeams struct {
	repositories.TeamRepository
	total, active int64
	err           error
}

func (f statsTeams) CountDocuments(context.Context, any) (int64, error) { return f.total, f.err }
func (f statsTeams) CountActive(context.Context) (int64, error)         { return f.active, f.err }

type statsMatches struct {
	repositories.MatchRepository
	total, upcoming int64
	err             error
}

func (f statsMatches) CountDocuments(context.Context, any) (int64, error) { return f.total, f.err }
func (f statsMatches) CountUpcoming(context.Context) (int64, error)       { return f.upcoming, f.err }

func TestGetGlobalStatsIsAllOrNothing(t *testing.T) {
	full := models.GlobalStats{
		Users:        models.CountPair{Total: 10, Subset: 2},
		Competitions: models.CountPair{Total: 5, Subset: 3},
		Teams:        models.CountPair{Total: 8, Subset: 6},
		Matches:      models.CountPair{Total: 20, Subset: 4},
	}
	tests := []struct {
		name       string
		usersErr   error
		teamsErr   error
		matchesErr error
		want       models.GlobalStats
	}{
		{name: "every counter answers", want: full},
		{name: "teams unavailable", teamsErr: errStoreDown},
		{name: "users unavailable", usersErr: errStoreDown},
		{name: "matches unavailable", matchesErr: errStoreDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &DatabaseService{
				logger:       quietLogger(),
				users:        statsUsers{total: 10, recent: 2, err: tt.usersErr},
				competitions: statsCompetitions{total: 5, active: 3},
				teams:        statsTeams{total: 8, active: 6, err: tt.teamsErr},
				matches:      statsMatches{total: 20, upcoming: 4, err: tt.matchesErr},
			}
			if got := s.GetGlobalStats(context.Background()); got != tt.want {
				t.Errorf("GetGlobalStats() = %+v, want %+v", got, tt.want)
			}
		})
	}

	t.Run("store down", func(t *testing.T) {
		s := NewDatabaseService(downDatabase{}, quietLogger())
		if got := s.GetGlobalStats(context.Background()); got != (models.GlobalStats{}) {
			t.Errorf("GetGlobalStats() = %+v, want zero", got)
		}
	})
}

type purgingSessions struct {
	repositories.SessionRepository
	n   int64
	err error
}

func (f purgingSessions) DeleteExpired(context.Context) (int64, error) { return f.n, f.err }

type purgingTokens struct {
	repositories.VerificationTokenRepository
	n int64
}

func (f purgingTokens) DeleteExpired(context.Context) (int64, error) { return f.n, nil }

type purgingNotifications struct {
	repositories.NotificationRepository
	n    int64
	days *int
}

func (f purgingNotifications) DeleteOldNotifications(_ context.Context, days int) (int64, error) {
	*f.days = days
	return f.n, nil
}

func TestCleanupKeepsPurgingAfterAFailure(t *testing.T) {
	var days int
	s := &DatabaseService{
		logger:             quietLogger(),
		sessions:           purgingSessions{err: errStoreDown},
		verificationTokens: purgingTokens{n: 3},
		notifications:      purgingNotifications{n: 5, days: &days},
	}

	report, err := s.Cleanup(context.Background(), 30)
	if !errors.Is(err, errStoreDown) {
		t.Errorf("Cleanup() error = %v, want %v", err, errStoreDown)
	}
	if report != (CleanupReport{Tokens: 3, Notifications: 5}) {
		t.Errorf("report = %+v", report)
	}
	if days != 30 {
		t.Errorf("retention = %d days, want 30", days)
	}
}

func TestFacadeWithStoreDown(t *testing.T) {
	s := NewDatabaseService(downDatabase{}, quietLogger())
	ctx := context.Background()

	t.Run("initialize", func(t *testing.T) {
		err := s.Initialize(ctx)
		if !errors.Is(err, errStoreDown) {
			t.Fatalf("Initialize() error = %v, want %v", err, errStoreDown)
		}
	})

	t.Run("health check", func(t *testing.T) {
		status := s.HealthCheck(ctx)
		if status.Status != models.HealthUnhealthy {
			t.Errorf("Status = %q, want %q", status.Status, models.HealthUnhealthy)
		}
		if len(status.Errors) != len(db.CollectionNames) {
			t.Errorf("got %d errors, want one per collection (%d)", len(status.Errors), len(db.CollectionNames))
		}
		if status.Collections == nil || len(status.Collections) != 0 {
			t.Errorf("Collections = %v, want empty", status.Collections)
		}
		for i, msg := range status.Errors {
			if !strings.HasPrefix(msg, db.CollectionNames[i]+": ") {
				t.Errorf("error %d = %q, want it prefixed with %s", i, msg, db.CollectionNames[i])
			}
		}
	})

	t.Run("search", func(t *testing.T) {
		for _, query := range []string{"", "lions"} {
			got := s.GlobalSearch(ctx, query, "")
			if got.Competitions == nil || got.Teams == nil || got.Users == nil {
				t.Fatalf("GlobalSearch(%q) returned nil slices: %+v", query, got)
			}
			if len(got.Competitions)+len(got.Teams)+len(got.Users) != 0 {
				t.Errorf("GlobalSearch(%q) = %+v, want empty", query, got)
			}
		}
	})
}
