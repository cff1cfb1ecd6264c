package validation

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/utils"
)

func User(u *models.User) error {
	ve := newError("User")
	user(u, ve)
	return ve.orNil()
}

func user(u *models.User, ve *ValidationError) {
	u.Email = utils.NormalizeEmail(u.Email)
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.PhoneNumber = trimOptional(u.PhoneNumber)
	if u.Role == "" {
		u.Role = models.RoleParticipant
	}
	ve.collect(instance().Struct(u))
}

// Competition fills the status and the invitation code when absent and checks
// the date window and capacity bounds.
func Competition(c *models.Competition) error {
	ve := newError("Competition")
	competition(c, ve)
	return ve.orNil()
}

func competition(c *models.Competition, ve *ValidationError) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Status == "" {
		c.Status = models.CompetitionDraft
	}
	if c.UniqueCode == "" {
		c.UniqueCode = utils.GenerateInviteCode()
	}
	ve.collect(instance().Struct(c))

	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		ve.invalid("endDate", c.EndDate.Format(time.RFC3339), "endDate >= startDate")
	}
	if c.RegistrationStartDate != nil && c.RegistrationDeadline != nil &&
		c.RegistrationDeadline.Before(*c.RegistrationStartDate) {
		ve.invalid("registrationDeadline", c.RegistrationDeadline.Format(time.RFC3339), "registrationDeadline >= registrationStartDate")
	}
	if c.Status == models.CompetitionOpen && c.RegistrationDeadline == nil {
		ve.missing("registrationDeadline")
	}
	if c.MinParticipants != nil && c.MaxParticipants != nil && *c.MaxParticipants < *c.MinParticipants {
		ve.invalid("maxParticipants", *c.MaxParticipants, "maxParticipants >= minParticipants")
	}
}

// NewCompetition builds a competition from request input. Public visibility
// and approval are on unless the input says otherwise.
func NewCompetition(in models.CompetitionInput) (*models.Competition, error) {
	ve := newError("Competition")
	c := &models.Competition{
		Name:                  in.Name,
		Description:           trimOptional(in.Description),
		Category:              in.Category,
		Type:                  in.Type,
		Status:                in.Status,
		OrganizerID:           ve.objectID("organizerId", in.OrganizerID),
		Venue:                 trimOptional(in.Venue),
		Address:               trimOptional(in.Address),
		City:                  trimOptional(in.City),
		Country:               trimOptional(in.Country),
		StartDate:             in.StartDate.TimePtr(),
		EndDate:               in.EndDate.TimePtr(),
		RegistrationStartDate: in.RegistrationStartDate.TimePtr(),
		RegistrationDeadline:  in.RegistrationDeadline.TimePtr(),
		MinParticipants:       in.MinParticipants,
		MaxParticipants:       in.MaxParticipants,
		IsPublic:              boolOr(in.IsPublic, true),
		RequiresApproval:      boolOr(in.RequiresApproval, true),
		Rules:                 in.Rules,
		Logo:                  trimOptional(in.Logo),
	}
	competition(c, ve)
	if err := ve.orNil(); err != nil {
		return nil, err
	}
	return c, nil
}

func Participation(p *models.Participation) error {
	ve := newError("Participation")
	if p.Status == "" {
		p.Status = models.ParticipationPending
	}
	if p.ApplicationDate.IsZero() {
		p.ApplicationDate = time.Now().UTC()
	}
	p.Message = trimOptional(p.Message)
	p.RejectionReason = trimOptional(p.RejectionReason)
	ve.collect(instance().Struct(p))
	if p.Status == models.ParticipationRejected && p.RejectionReason == nil {
		ve.missing("rejectionReason")
	}
	return ve.orNil()
}

func Team(t *models.Team) error {
	ve := newError("Team")
	team(t, ve)
	return ve.orNil()
}

func team(t *models.Team, ve *ValidationError) {
	t.Name = strings.TrimSpace(t.Name)
	t.Description = trimOptional(t.Description)
	ve.collect(instance().Struct(t))
}

// NewTeam builds an active team from request input.
func NewTeam(in models.TeamInput) (*models.Team, error) {
	ve := newError("Team")
	t := &models.Team{
		Name:          in.Name,
		CompetitionID: ve.objectID("competitionId", in.CompetitionID),
		CaptainID:     ve.objectID("captainId", in.CaptainID),
		GroupID:       ve.optionalObjectID("groupId", in.GroupID),
		Description:   in.Description,
		Logo:          trimOptional(in.Logo),
		IsActive:      true,
	}
	team(t, ve)
	if err := ve.orNil(); err != nil {
		return nil, err
	}
	return t, nil
}

// Player derives the display name from first and last name when it is
// missing and defaults the position to OTHER.
func Player(p *models.Player) error {
	ve := newError("Player")
	player(p, ve)
	return ve.orNil()
}

func player(p *models.Player, ve *ValidationError) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = strings.TrimSpace(p.FirstName + " " + p.LastName)
	}
	if p.Position == "" {
		p.Position = models.PositionOther
	}
	ve.collect(instance().Struct(p))
}

// NewPlayer builds an active, non-captain player. A zero jersey number is
// left for the repository to allocate, so it is not checked here.
func NewPlayer(in models.PlayerInput) (*models.Player, error) {
	ve := newError("Player")
	p := &models.Player{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Name:         in.Name,
		TeamID:       ve.objectID("teamId", in.TeamID),
		UserID:       ve.optionalObjectID("userId", in.UserID),
		JerseyNumber: in.JerseyNumber,
		Position:     in.Position,
		IsActive:     true,
		BirthDate:    in.BirthDate.TimePtr(),
		Nationality:  trimOptional(in.Nationality),
		Height:       in.Height,
		Weight:       in.Weight,
		Photo:        trimOptional(in.Photo),
	}
	player(p, ve)
	if p.JerseyNumber == 0 {
		ve.Invalid = dropField(ve.Invalid, "jerseyNumber")
	}
	if err := ve.orNil(); err != nil {
		return nil, err
	}
	return p, nil
}

func Match(m *models.Match) error {
	ve := newError("Match")
	match(m, ve)
	return ve.orNil()
}

func match(m *models.Match, ve *ValidationError) {
	if m.Status == "" {
		m.Status = models.MatchScheduled
	}
	ve.collect(instance().Struct(m))
	if !m.HomeTeamID.IsZero() && m.HomeTeamID == m.AwayTeamID {
		ve.invalid("awayTeamId", m.AwayTeamID.Hex(), "awayTeamId != homeTeamId")
	}
	if m.Status == models.MatchCompleted {
		if m.HomeScore == nil {
			ve.missing("homeScore")
		}
		if m.AwayScore == nil {
			ve.missing("awayScore")
		}
	}
	if m.StartTime != nil && m.EndTime != nil && m.EndTime.Before(*m.StartTime) {
		ve.invalid("endTime", m.EndTime.Format(time.RFC3339), "endTime >= startTime")
	}
}

func NewMatch(in models.MatchInput) (*models.Match, error) {
	ve := newError("Match")
	m := &models.Match{
		CompetitionID: ve.objectID("competitionId", in.CompetitionID),
		HomeTeamID:    ve.objectID("homeTeamId", in.HomeTeamID),
		AwayTeamID:    ve.objectID("awayTeamId", in.AwayTeamID),
		GroupID:       ve.optionalObjectID("groupId", in.GroupID),
		Round:         in.Round,
		MatchNumber:   in.MatchNumber,
		Venue:         trimOptional(in.Venue),
		Referee:       trimOptional(in.Referee),
		Notes:         trimOptional(in.Notes),
	}
	if t := in.ScheduledDate.TimePtr(); t != nil {
		m.ScheduledDate = *t
	}
	match(m, ve)
	if err := ve.orNil(); err != nil {
		return nil, err
	}
	return m, nil
}

func Group(g *models.Group) error {
	ve := newError("Group")
	g.Name = strings.TrimSpace(g.Name)
	ve.collect(instance().Struct(g))
	return ve.orNil()
}

// Notification always stores the message as unread.
func Notification(n *models.Notification) error {
	ve := newError("Notification")
	notification(n, ve)
	return ve.orNil()
}

func notification(n *models.Notification, ve *ValidationError) {
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
	if n.Category == "" {
		n.Category = models.CategorySystemNotice
	}
	n.IsRead = false
	n.ReadAt = nil
	n.RelatedID = trimOptional(n.RelatedID)
	ve.collect(instance().Struct(n))
}

func NewNotification(in models.NotificationInput) (*models.Notification, error) {
	ve := newError("Notification")
	n := &models.Notification{
		UserID:      ve.objectID("userId", in.UserID),
		Title:       strings.TrimSpace(in.Title),
		Message:     strings.TrimSpace(in.Message),
		Type:        in.Type,
		Category:    in.Category,
		RelatedID:   in.RelatedID,
		RelatedType: in.RelatedType,
		ActionURL:   trimOptional(in.ActionURL),
		ExpiresAt:   in.ExpiresAt.TimePtr(),
	}
	notification(n, ve)
	if err := ve.orNil(); err != nil {
		return nil, err
	}
	return n, nil
}

func Account(a *models.Account) error {
	ve := newError("Account")
	ve.collect(instance().Struct(a))
	return ve.orNil()
}

func Session(s *models.Session) error {
	ve := newError("Session")
	ve.collect(instance().Struct(s))
	return ve.orNil()
}

func VerificationToken(t *models.VerificationToken) error {
	ve := newError("VerificationToken")
	t.Identifier = strings.TrimSpace(t.Identifier)
	ve.collect(instance().Struct(t))
	return ve.orNil()
}

// objectID parses a required reference; an empty value is left zero so the
// struct rules report it as missing.
func (e *ValidationError) objectID(field, hex string) primitive.ObjectID {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return primitive.NilObjectID
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		e.invalid(field, hex, "objectid")
		return primitive.NilObjectID
	}
	return id
}

func (e *ValidationError) optionalObjectID(field string, hex *string) *primitive.ObjectID {
	if hex == nil || strings.TrimSpace(*hex) == "" {
		return nil
	}
	id := e.objectID(field, *hex)
	if id.IsZero() {
		return nil
	}
	return &id
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

func dropField(errs []FieldError, field string) []FieldError {
	out := errs[:0]
	for _, fe := range errs {
		if fe.Field != field {
			out = append(out, fe)
		}
	}
	return out
}
