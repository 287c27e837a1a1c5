// Package models contains data structures for the application's domain models.
package models

import "time"

// User represents an account in the social network. Email is the login identifier.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username       string    `gorm:"size:150" json:"username"`
	Bio            string    `gorm:"type:text" json:"bio"`
	Password       string    `gorm:"not null" json:"-"`
	ProfilePicture string    `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
