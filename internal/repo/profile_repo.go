// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the UserProfile
// model and its associated memory facts.
//
// The profile read path is deliberately forgiving: GetProfile returns an
// empty profile (not an error) when no row exists, because a missing profile
// must never block a chat turn. Memory facts are stored in their own table
// and capped at domain.MaxMemoryFacts per user, oldest evicted first.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adilkhanna/scratch-meal/internal/domain"
)

// GetProfile fetches the profile for userID. When no row exists it returns a
// zero-value profile carrying only the user id, so callers can apply their
// own defaults without branching on ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	switch {
	case err == nil:
		return &p, nil
	case err == gorm.ErrRecordNotFound:
		return &domain.UserProfile{UserID: userID}, nil
	default:
		return nil, err
	}
}

// UpsertProfile creates or updates the editable profile fields (display name,
// dietary preferences, pantry basics). Memory facts are not touched here.
func UpsertProfile(ctx context.Context, db *gorm.DB, p *domain.UserProfile) error {
	p.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "dietary_preferences", "pantry_basics", "updated_at",
		}),
	}).Create(p).Error
}

// ListMemoryFacts returns all memory facts for userID in insertion order
// (oldest first, ties broken by id for determinism).
func ListMemoryFacts(ctx context.Context, db *gorm.DB, userID string) ([]domain.MemoryFact, error) {
	var out []domain.MemoryFact
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// AppendMemoryFacts inserts new facts for userID and truncates the user's
// fact list to domain.MaxMemoryFacts, deleting the oldest rows first. It also
// stamps the profile's MemoryUpdatedAt. The whole operation is transactional
// so a concurrent turn observes either the old or the new fact set.
func AppendMemoryFacts(ctx context.Context, db *gorm.DB, userID string, facts []domain.MemoryFact) error {
	if len(facts) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&facts).Error; err != nil {
			return err
		}

		var total int64
		if err := tx.Model(&domain.MemoryFact{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
			return err
		}
		if overflow := total - domain.MaxMemoryFacts; overflow > 0 {
			var oldest []domain.MemoryFact
			if err := tx.Where("user_id = ?", userID).
				Order("created_at ASC, id ASC").
				Limit(int(overflow)).
				Find(&oldest).Error; err != nil {
				return err
			}
			ids := make([]string, len(oldest))
			for i, f := range oldest {
				ids[i] = f.ID
			}
			if err := tx.Where("id IN ?", ids).Delete(&domain.MemoryFact{}).Error; err != nil {
				return err
			}
		}

		// Stamp the profile; create a stub row when the user has none yet.
		res := tx.Model(&domain.UserProfile{}).
			Where("user_id = ?", userID).
			Update("memory_updated_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tx.Create(&domain.UserProfile{UserID: userID, MemoryUpdatedAt: &now, CreatedAt: now}).Error
		}
		return nil
	})
}
