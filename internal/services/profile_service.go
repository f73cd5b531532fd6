// Package services – ProfileService
//
// This file implements ProfileService, which owns the user profile: display
// name, saved dietary preferences, pantry basics, and the extracted memory
// facts. Reads never fail on absence; a user who has not saved anything gets
// a zero-value profile so the dialogue can treat new and returning users
// uniformly.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/repo"
)

// maxProfileListEntries bounds the dietary preference and pantry lists.
const maxProfileListEntries = 30

// ProfileService implements the use-cases around the user profile.
type ProfileService struct {
	DB *gorm.DB
}

// Get returns the profile and memory facts for userID. Users with no saved
// profile get a zero-value profile and empty memory.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.UserProfile, []domain.MemoryFact, error) {
	profile, err := repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		return nil, nil, err
	}
	facts, err := repo.ListMemoryFacts(ctx, s.DB, userID)
	if err != nil {
		return nil, nil, err
	}
	return profile, facts, nil
}

// Update upserts the user-editable profile fields. List entries are trimmed,
// deduplicated case-insensitively, and capped; empty entries are dropped.
func (s *ProfileService) Update(ctx context.Context, userID, displayName string, dietaryPreferences, pantryBasics []string) (*domain.UserProfile, error) {
	p := &domain.UserProfile{
		UserID:             userID,
		DisplayName:        strings.TrimSpace(displayName),
		DietaryPreferences: normalizeList(dietaryPreferences),
		PantryBasics:       normalizeList(pantryBasics),
	}
	if err := repo.UpsertProfile(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return repo.GetProfile(ctx, s.DB, userID)
}

func normalizeList(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		key := strings.ToLower(it)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
		if len(out) == maxProfileListEntries {
			break
		}
	}
	return out
}
