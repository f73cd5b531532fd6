// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Recipe
// model: batch insertion at the end of a generation turn, paginated history
// listing, and the rating/favorite mutations.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/adilkhanna/scratch-meal/internal/domain"
)

// CreateRecipes inserts a batch of recipes in one transaction. The caller has
// already stamped ids, timestamps, and generation metadata.
func CreateRecipes(ctx context.Context, db *gorm.DB, recipes []domain.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&recipes).Error
}

// GetRecipe fetches a recipe by id, enforcing user ownership.
// Returns ErrNotFound when missing.
func GetRecipe(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Recipe, error) {
	var r domain.Recipe
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CountRecipes returns the total number of recipes owned by userID,
// optionally restricted to favorites.
func CountRecipes(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Recipe{}).Where("user_id = ?", userID)
	if favoritesOnly {
		q = q.Where("is_favorite = ?", true)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListRecipesPage returns a paginated slice of recipes for userID, newest
// first, optionally restricted to favorites.
func ListRecipesPage(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool, offset, limit int) ([]domain.Recipe, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if favoritesOnly {
		q = q.Where("is_favorite = ?", true)
	}
	var out []domain.Recipe
	err := q.Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateRecipeRating sets the star rating (0–5) on a recipe owned by userID.
// Returns ErrNotFound if no row matched.
func UpdateRecipeRating(ctx context.Context, db *gorm.DB, id, userID string, rating int) error {
	res := db.WithContext(ctx).
		Model(&domain.Recipe{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("rating", rating)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRecipeFavorite sets or clears the favorite flag on a recipe owned by
// userID. Returns ErrNotFound if no row matched.
func SetRecipeFavorite(ctx context.Context, db *gorm.DB, id, userID string, favorite bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Recipe{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_favorite", favorite)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
