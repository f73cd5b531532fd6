// Package services – LibraryService
//
// This file implements LibraryService, which governs the user's saved recipe
// library: listing generated recipes, rating them (1..5 stars), and marking
// favorites. It enforces ownership and rating bounds and returns the
// service-level sentinel errors (ErrRecipeNotFound, ErrInvalidRating) for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/repo"
)

// LibraryService implements the use-cases around the saved recipe library.
type LibraryService struct {
	// DB is the database handle used for all library operations.
	DB *gorm.DB
}

// List returns one page of the user's recipes, newest first, with the total
// count. When favoritesOnly is set, both the page and the count cover
// favorites alone.
func (s *LibraryService) List(ctx context.Context, userID string, favoritesOnly bool, offset, limit int) ([]domain.Recipe, int64, error) {
	tr := otel.Tracer("services/LibraryService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Bool("favorites_only", favoritesOnly),
		),
	)
	defer span.End()

	total, err := repo.CountRecipes(ctx, s.DB, userID, favoritesOnly)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Recipe{}, 0, nil
	}
	items, err := repo.ListRecipesPage(ctx, s.DB, userID, favoritesOnly, offset, limit)
	return items, total, err
}

// Get returns a single recipe owned by the user.
func (s *LibraryService) Get(ctx context.Context, userID, recipeID string) (*domain.Recipe, error) {
	r, err := repo.GetRecipe(ctx, s.DB, recipeID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return r, nil
}

// Rate records a star rating for a recipe on behalf of userID.
//
// Semantics and validation:
//   - rating must be 1..5; otherwise ErrInvalidRating. A stored 0 means
//     "never rated" and cannot be set through this operation.
//   - recipeID must exist and belong to userID; otherwise ErrRecipeNotFound.
//   - Re-rating overwrites the previous value.
func (s *LibraryService) Rate(ctx context.Context, userID, recipeID string, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	err := repo.UpdateRecipeRating(ctx, s.DB, recipeID, userID, rating)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrRecipeNotFound
	}
	return err
}

// SetFavorite toggles the favorite flag on a recipe owned by userID.
func (s *LibraryService) SetFavorite(ctx context.Context, userID, recipeID string, favorite bool) error {
	err := repo.SetRecipeFavorite(ctx, s.DB, recipeID, userID, favorite)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrRecipeNotFound
	}
	return err
}
