package models

import "time"

// Identity is the credential-bearing capability the auth layer works with.
type Identity interface {
	GetID() uint
	GetUsername() string
	Staff() bool
}

// User represents a user of the store.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(150);not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(254);not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	IsStaff   bool      `json:"is_staff" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) GetID() uint         { return u.ID }
func (u *User) GetUsername() string { return u.Username }
func (u *User) Staff() bool         { return u.IsStaff }

// UserSummary is the minimal user view returned by login endpoints.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}

// Summarize builds a UserSummary from any identity.
func Summarize(id Identity) UserSummary {
	return UserSummary{ID: id.GetID(), Username: id.GetUsername(), IsStaff: id.Staff()}
}
