package models

import "gorm.io/gorm"

// User represents an account that can author recipes and follow other cooks.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PasswordHash string `gorm:"not null" json:"-"`
	Avatar       string `json:"avatar,omitempty"`
}

// FullName joins the first and last name the way the shopping list prints authors.
func (u User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Username
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}
