package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleOrganizer   UserRole = "ORGANIZER"
	RoleParticipant UserRole = "PARTICIPANT"
)

type User struct {
	Base `bson:",inline"`

	Email         string     `bson:"email" json:"email" validate:"required,email"`
	Password      string     `bson:"password" json:"-" validate:"required"`
	FirstName     string     `bson:"firstName" json:"firstName" validate:"required"`
	LastName      string     `bson:"lastName" json:"lastName" validate:"required"`
	PhoneNumber   *string    `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	Role          UserRole   `bson:"role" json:"role" validate:"required,oneof=ADMIN ORGANIZER PARTICIPANT"`
	Country       *string    `bson:"country,omitempty" json:"country,omitempty"`
	City          *string    `bson:"city,omitempty" json:"city,omitempty"`
	Commune       *string    `bson:"commune,omitempty" json:"commune,omitempty"`
	EmailVerified *time.Time `bson:"emailVerified,omitempty" json:"emailVerified,omitempty"`
	Image         *string    `bson:"image,omitempty" json:"image,omitempty"`
}

// FullName склеивает имя и фамилию для отображения.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// CreateUserInput is what a sign-up flow hands to the core; the password is plaintext.
type CreateUserInput struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	PhoneNumber *string  `json:"phoneNumber,omitempty"`
	Role        UserRole `json:"role,omitempty"`
	Country     *string  `json:"country,omitempty"`
	City        *string  `json:"city,omitempty"`
	Commune     *string  `json:"commune,omitempty"`
}

// UserSummary is the public projection joined into "with details" views.
type UserSummary struct {
	ObjectID  primitive.ObjectID `bson:"_id" json:"id"`
	Email     string             `bson:"email" json:"email"`
	FirstName string             `bson:"firstName" json:"firstName"`
	LastName  string             `bson:"lastName" json:"lastName"`
	Role      UserRole           `bson:"role" json:"role"`
	Image     *string            `bson:"image,omitempty" json:"image,omitempty"`
}

type UserStats struct {
	Total       int64            `json:"total"`
	ByRole      map[string]int64 `json:"byRole"`
	ByCountry   map[string]int64 `json:"byCountry"`
	RecentUsers int64            `json:"recentUsers"`
}
