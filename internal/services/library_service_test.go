package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/repo"
)

func seedRecipes(t *testing.T, db *gorm.DB, userID string, n int) []domain.Recipe {
	t.Helper()
	recipes := make([]domain.Recipe, n)
	for i := range recipes {
		recipes[i] = domain.Recipe{
			ID:           uuid.NewString(),
			UserID:       userID,
			Name:         fmt.Sprintf("Recipe %d", i),
			Difficulty:   "Easy",
			Instructions: []string{"cook it"},
		}
	}
	if err := repo.CreateRecipes(context.Background(), db, recipes); err != nil {
		t.Fatalf("CreateRecipes: %v", err)
	}
	return recipes
}

func TestLibraryService_ListAndFavoritesFilter(t *testing.T) {
	db := newServicesDB(t)
	svc := &LibraryService{DB: db}
	ctx := context.Background()

	recipes := seedRecipes(t, db, "u1", 4)
	seedRecipes(t, db, "u2", 2)

	if err := svc.SetFavorite(ctx, "u1", recipes[1].ID, true); err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}

	all, total, err := svc.List(ctx, "u1", false, 0, 20)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 4 || len(all) != 4 {
		t.Fatalf("all: total=%d len=%d", total, len(all))
	}

	favs, total, err := svc.List(ctx, "u1", true, 0, 20)
	if err != nil {
		t.Fatalf("List favorites: %v", err)
	}
	if total != 1 || len(favs) != 1 || favs[0].ID != recipes[1].ID {
		t.Fatalf("favorites: total=%d favs=%+v", total, favs)
	}
}

func TestLibraryService_Get(t *testing.T) {
	db := newServicesDB(t)
	svc := &LibraryService{DB: db}
	ctx := context.Background()

	recipes := seedRecipes(t, db, "u1", 1)

	got, err := svc.Get(ctx, "u1", recipes[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Recipe 0" {
		t.Fatalf("recipe = %+v", got)
	}

	if _, err := svc.Get(ctx, "u2", recipes[0].ID); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("cross-user get: err = %v", err)
	}
	if _, err := svc.Get(ctx, "u1", uuid.NewString()); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("missing recipe: err = %v", err)
	}
}

func TestLibraryService_Rate(t *testing.T) {
	db := newServicesDB(t)
	svc := &LibraryService{DB: db}
	ctx := context.Background()

	recipes := seedRecipes(t, db, "u1", 1)
	id := recipes[0].ID

	for _, bad := range []int{0, -1, 6} {
		if err := svc.Rate(ctx, "u1", id, bad); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("Rate(%d): err = %v", bad, err)
		}
	}

	if err := svc.Rate(ctx, "u1", id, 4); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	got, _ := svc.Get(ctx, "u1", id)
	if got.Rating != 4 {
		t.Fatalf("rating = %d", got.Rating)
	}

	if err := svc.Rate(ctx, "u2", id, 3); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("cross-user rate: err = %v", err)
	}
}

func TestLibraryService_SetFavorite_Toggle(t *testing.T) {
	db := newServicesDB(t)
	svc := &LibraryService{DB: db}
	ctx := context.Background()

	recipes := seedRecipes(t, db, "u1", 1)
	id := recipes[0].ID

	if err := svc.SetFavorite(ctx, "u1", id, true); err != nil {
		t.Fatalf("SetFavorite(true): %v", err)
	}
	got, _ := svc.Get(ctx, "u1", id)
	if !got.IsFavorite {
		t.Fatalf("favorite not set")
	}

	if err := svc.SetFavorite(ctx, "u1", id, false); err != nil {
		t.Fatalf("SetFavorite(false): %v", err)
	}
	got, _ = svc.Get(ctx, "u1", id)
	if got.IsFavorite {
		t.Fatalf("favorite not cleared")
	}

	if err := svc.SetFavorite(ctx, "u1", uuid.NewString(), true); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("missing recipe favorite: err = %v", err)
	}
}
