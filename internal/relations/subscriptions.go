package relations

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"foodgram/internal/apperr"
	"foodgram/models"
)

// Subscriptions manages directed follow rows between users.
type Subscriptions struct {
	db *gorm.DB
}

// NewSubscriptions wraps a database handle.
func NewSubscriptions(db *gorm.DB) *Subscriptions {
	return &Subscriptions{db: db}
}

// Add creates a follow from follower to followee. Self-subscription is
// rejected before the uniqueness check, so it fails the same way on an empty
// store. Duplicates fail with apperr.ErrConflict.
func (s *Subscriptions) Add(ctx context.Context, followerID, followeeID uint) (*models.Subscription, error) {
	if followerID == followeeID {
		return nil, apperr.ErrSelfSubscription
	}

	subscription := &models.Subscription{FollowerID: followerID, FolloweeID: followeeID}
	if err := s.db.WithContext(ctx).Create(subscription).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("subscribe %d -> %d: %w", followerID, followeeID, apperr.ErrConflict)
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return subscription, nil
}

// Remove deletes the follow row, failing with apperr.ErrNotFound when absent.
func (s *Subscriptions) Remove(ctx context.Context, followerID, followeeID uint) error {
	result := s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Subscription{})
	if result.Error != nil {
		return fmt.Errorf("unsubscribe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("unsubscribe %d -> %d: %w", followerID, followeeID, apperr.ErrNotFound)
	}
	return nil
}

// Exists reports whether follower currently follows followee.
func (s *Subscriptions) Exists(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return count > 0, nil
}

// Followees returns the users the follower subscribes to, ordered by username.
func (s *Subscriptions) Followees(ctx context.Context, followerID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.followee_id = users.id").
		Where("subscriptions.follower_id = ?", followerID).
		Order("users.username asc").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list followees for user %d: %w", followerID, err)
	}
	return users, nil
}
