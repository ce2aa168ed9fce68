package models

import "time"

// Subscription is a directed follow from one user to another. A row with
// FollowerID == FolloweeID is never written; the store rejects it before
// touching the table. Rows are hard-deleted so unsubscribing frees the pair.
type Subscription struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_subscription_identity" json:"follower_id"`
	FolloweeID uint      `gorm:"not null;uniqueIndex:idx_subscription_identity;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`

	Followee *User `gorm:"foreignKey:FolloweeID" json:"followee,omitempty"`
}
