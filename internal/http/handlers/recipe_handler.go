// Recipe library HTTP handlers.
//
// This file exposes REST endpoints for the saved recipe library:
//   - GET  /recipes                 (list, paginated, optional favorites filter)
//   - GET  /recipes/{id}            (fetch one)
//   - POST /recipes/{id}/rating     (rate 1..5)
//   - POST /recipes/{id}/favorite   (toggle favorite)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/services"
)

// ListRecipesResponse wraps a page of recipes and pagination information.
type ListRecipesResponse struct {
	Recipes    []domain.Recipe `json:"recipes"`
	Pagination Pagination      `json:"pagination"`
}

// RateRecipeRequest is the JSON payload for rating a recipe.
type RateRecipeRequest struct {
	// Rating is the star value, 1..5.
	Rating int `json:"rating" binding:"required,min=1,max=5"`
}

// FavoriteRecipeRequest is the JSON payload for toggling a favorite.
type FavoriteRecipeRequest struct {
	Favorite *bool `json:"favorite" binding:"required"`
}

// ListRecipes godoc
// @ID          listRecipes
// @Summary     List saved recipes (paginated)
// @Description Returns a page of the user's generated recipes, newest first.
// @Description Pass favorites=true to list favorites only.
// @Tags        Recipes
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       favorites  query   bool    false "Favorites only"         default(false)
// @Param       page       query   int     false "Page number"            minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"         minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListRecipesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /recipes [get]
func (h *Handlers) ListRecipes(c *gin.Context) {
	uid := userID(c)
	page, pageSize := clampPagination(c)
	favoritesOnly := c.Query("favorites") == "true"

	items, total, err := h.librarySvc.List(c.Request.Context(), uid, favoritesOnly, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListRecipesResponse{
		Recipes:    items,
		Pagination: paginationFor(page, pageSize, total),
	})
}

// GetRecipe godoc
// @ID          getRecipe
// @Summary     Get a saved recipe
// @Description Returns one recipe owned by the current user.
// @Tags        Recipes
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Recipe ID (UUID)"       format(uuid)
//
// @Success     200  {object} domain.Recipe
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Recipe not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id} [get]
func (h *Handlers) GetRecipe(c *gin.Context) {
	recipeID := c.Param("id")
	if _, err := uuid.Parse(recipeID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipe id must be a UUID")
		return
	}

	r, err := h.librarySvc.Get(c.Request.Context(), userID(c), recipeID)
	if err != nil {
		if errors.Is(err, services.ErrRecipeNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "recipe not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, r)
}

// RateRecipe godoc
// @ID          rateRecipe
// @Summary     Rate a recipe
// @Description Records a 1..5 star rating. Re-rating overwrites the previous value.
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Recipe ID (UUID)"       format(uuid)
// @Param       body       body    handlers.RateRecipeRequest  true  "Rating payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Recipe not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id}/rating [post]
func (h *Handlers) RateRecipe(c *gin.Context) {
	recipeID := c.Param("id")
	if _, err := uuid.Parse(recipeID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipe id must be a UUID")
		return
	}

	var req RateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating must be an integer 1..5")
		return
	}

	if err := h.librarySvc.Rate(c.Request.Context(), userID(c), recipeID, req.Rating); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRating):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating must be an integer 1..5")
		case errors.Is(err, services.ErrRecipeNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "recipe not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	noContent(c)
}

// FavoriteRecipe godoc
// @ID          favoriteRecipe
// @Summary     Mark or unmark a recipe as favorite
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Recipe ID (UUID)"       format(uuid)
// @Param       body       body    handlers.FavoriteRecipeRequest  true  "Favorite payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Recipe not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id}/favorite [post]
func (h *Handlers) FavoriteRecipe(c *gin.Context) {
	recipeID := c.Param("id")
	if _, err := uuid.Parse(recipeID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipe id must be a UUID")
		return
	}

	var req FavoriteRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Favorite == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "favorite (boolean) required")
		return
	}

	if err := h.librarySvc.SetFavorite(c.Request.Context(), userID(c), recipeID, *req.Favorite); err != nil {
		if errors.Is(err, services.ErrRecipeNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "recipe not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		return
	}
	noContent(c)
}
