package services

import (
	"context"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID string
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// AccessService answers ownership questions the data layer leaves open:
// a competition and everything in it belong to its organizer, a team to its
// captain. Administrators may act on anything.
type AccessService struct {
	competitions repositories.CompetitionRepository
	teams        repositories.TeamRepository
	players      repositories.PlayerRepository
	matches      repositories.MatchRepository
	groups       repositories.GroupRepository
}

// NewAccessService builds the checks on top of the repositories of data.
func NewAccessService(data *DatabaseService) *AccessService {
	return NewAccessServiceFrom(data.Competitions(), data.Teams(), data.Players(), data.Matches(), data.Groups())
}

func NewAccessServiceFrom(
	competitions repositories.CompetitionRepository,
	teams repositories.TeamRepository,
	players repositories.PlayerRepository,
	matches repositories.MatchRepository,
	groups repositories.GroupRepository,
) *AccessService {
	return &AccessService{
		competitions: competitions,
		teams:        teams,
		players:      players,
		matches:      matches,
		groups:       groups,
	}
}

// CanCreateCompetition allows organizers and administrators.
func (s *AccessService) CanCreateCompetition(actor Actor) error {
	if actor.Role == models.RoleOrganizer || actor.IsAdmin() {
		return nil
	}
	return ErrOrganizerRoleRequired
}

// ManageCompetition returns the competition when actor may modify it.
func (s *AccessService) ManageCompetition(ctx context.Context, actor Actor, competitionID string) (*models.Competition, error) {
	competition, err := s.competitions.FindByID(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if competition == nil {
		return nil, repositories.ErrCompetitionNotFound
	}
	if actor.IsAdmin() || competition.OrganizerID.Hex() == actor.UserID {
		return competition, nil
	}
	return nil, ErrForbiddenOperation
}

// ManageTeam returns the team when actor is its captain, the organizer of
// its competition or an administrator.
func (s *AccessService) ManageTeam(ctx context.Context, actor Actor, teamID string) (*models.Team, error) {
	team, err := s.teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, repositories.ErrTeamNotFound
	}
	if actor.IsAdmin() || team.CaptainID.Hex() == actor.UserID {
		return team, nil
	}
	if _, err := s.ManageCompetition(ctx, actor, team.CompetitionID.Hex()); err != nil {
		return nil, ErrCaptainActionForbidden
	}
	return team, nil
}

func (s *AccessService) ManagePlayer(ctx context.Context, actor Actor, playerID string) (*models.Player, error) {
	player, err := s.players.FindByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, repositories.ErrPlayerNotFound
	}
	if _, err := s.ManageTeam(ctx, actor, player.TeamID.Hex()); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *AccessService) ManageMatch(ctx context.Context, actor Actor, matchID string) (*models.Match, error) {
	match, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, repositories.ErrMatchNotFound
	}
	if _, err := s.ManageCompetition(ctx, actor, match.CompetitionID.Hex()); err != nil {
		return nil, err
	}
	return match, nil
}

func (s *AccessService) ManageGroup(ctx context.Context, actor Actor, groupID string) (*models.Group, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, repositories.ErrGroupNotFound
	}
	if _, err := s.ManageCompetition(ctx, actor, group.CompetitionID.Hex()); err != nil {
		return nil, err
	}
	return group, nil
}
