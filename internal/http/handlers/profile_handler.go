// Profile and ingredient-extraction HTTP handlers.
//
// This file exposes REST endpoints for the user profile and the standalone
// photo ingredient extraction:
//   - GET  /profile               (profile plus memory facts)
//   - PUT  /profile               (update editable fields)
//   - POST /ingredients/extract   (identify food items in a photo)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adilkhanna/scratch-meal/internal/domain"
)

// ProfileResponse bundles the profile with the extracted memory facts.
type ProfileResponse struct {
	Profile *domain.UserProfile `json:"profile"`
	Memory  []domain.MemoryFact `json:"memory"`
}

// UpdateProfileRequest is the JSON payload for editing the profile.
type UpdateProfileRequest struct {
	DisplayName        string   `json:"display_name"`
	DietaryPreferences []string `json:"dietary_preferences"`
	PantryBasics       []string `json:"pantry_basics"`
}

// ExtractIngredientsRequest is the JSON payload for photo extraction.
type ExtractIngredientsRequest struct {
	// PhotoData is a base64-encoded image.
	PhotoData string `json:"photoData" binding:"required,min=1"`
}

// ExtractIngredientsResponse lists the food items found in the photo.
type ExtractIngredientsResponse struct {
	Ingredients []string `json:"ingredients"`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Get the user profile
// @Description Returns the profile and memory facts for the current user.
// @Description Users with nothing saved get a zero-value profile.
// @Tags        Profile
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object} handlers.ProfileResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	profile, facts, err := h.profileSvc.Get(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ProfileResponse{Profile: profile, Memory: facts})
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update the user profile
// @Description Upserts display name, dietary preferences, and pantry basics.
// @Description List entries are trimmed, deduplicated, and capped server-side.
// @Tags        Profile
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.UpdateProfileRequest  true  "Profile payload"
//
// @Success     200  {object} domain.UserProfile
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /profile [put]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	profile, err := h.profileSvc.Update(c.Request.Context(), userID(c), req.DisplayName, req.DietaryPreferences, req.PantryBasics)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, profile)
}

// ExtractIngredients godoc
// @ID          extractIngredients
// @Summary     Identify ingredients in a food photo
// @Description Runs vision extraction over a base64-encoded photo and returns
// @Description the recognized food items. Non-food photos yield an empty list.
// @Tags        Ingredients
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.ExtractIngredientsRequest  true  "Photo payload"
//
// @Success     200  {object} handlers.ExtractIngredientsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Extraction failed"
// @Router      /ingredients/extract [post]
func (h *Handlers) ExtractIngredients(c *gin.Context) {
	var req ExtractIngredientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "photoData required")
		return
	}

	ingredients, err := h.extractor.ExtractIngredients(c.Request.Context(), req.PhotoData)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeExtractionFailed, "could not analyze photo")
		return
	}
	if ingredients == nil {
		ingredients = []string{}
	}
	ok(c, http.StatusOK, ExtractIngredientsResponse{Ingredients: ingredients})
}
