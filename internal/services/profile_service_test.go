package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/repo"
)

func TestProfileService_Get_MissingProfileIsZeroValue(t *testing.T) {
	db := newServicesDB(t)
	svc := &ProfileService{DB: db}

	profile, facts, err := svc.Get(context.Background(), "fresh-user")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if profile == nil || profile.DisplayName != "" {
		t.Fatalf("profile = %+v, want zero-value", profile)
	}
	if len(facts) != 0 {
		t.Fatalf("facts = %d, want 0", len(facts))
	}
}

func TestProfileService_UpdateAndGet(t *testing.T) {
	db := newServicesDB(t)
	svc := &ProfileService{DB: db}
	ctx := context.Background()

	updated, err := svc.Update(ctx, "u1", "  Adil  ",
		[]string{"vegetarian", " Vegetarian ", "", "no nuts"},
		[]string{"Salt", "salt", "Olive Oil"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.DisplayName != "Adil" {
		t.Fatalf("display name = %q", updated.DisplayName)
	}
	if len(updated.DietaryPreferences) != 2 {
		t.Fatalf("dietary preferences = %v", updated.DietaryPreferences)
	}
	if len(updated.PantryBasics) != 2 {
		t.Fatalf("pantry basics = %v", updated.PantryBasics)
	}

	// Second update overwrites rather than merges.
	updated, err = svc.Update(ctx, "u1", "Adil", []string{"vegan"}, nil)
	if err != nil {
		t.Fatalf("Update overwrite: %v", err)
	}
	if len(updated.DietaryPreferences) != 1 || updated.DietaryPreferences[0] != "vegan" {
		t.Fatalf("dietary preferences after overwrite = %v", updated.DietaryPreferences)
	}

	// Memory facts ride along on Get.
	if err := repo.AppendMemoryFacts(ctx, db, "u1", []domain.MemoryFact{{
		ID: "f1", UserID: "u1", Fact: "Likes spicy food", Category: domain.FactTaste, Confidence: 0.8, Source: "conversation",
	}}); err != nil {
		t.Fatalf("AppendMemoryFacts: %v", err)
	}
	_, facts, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(facts) != 1 || facts[0].Fact != "Likes spicy food" {
		t.Fatalf("facts = %+v", facts)
	}
}

func Test_normalizeList_Cap(t *testing.T) {
	var items []string
	for i := 0; i < maxProfileListEntries+10; i++ {
		items = append(items, fmt.Sprintf("item-%d", i))
	}
	got := normalizeList(items)
	if len(got) != maxProfileListEntries {
		t.Fatalf("normalized length = %d, want %d", len(got), maxProfileListEntries)
	}
}
