// Handler wiring and shared transport helpers.
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to application services, and translate results into HTTP responses
// (including conditional responses and SSE streams).
package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/services"
	"github.com/adilkhanna/scratch-meal/internal/utils"
)

//
// Service contracts (context-aware)
//

// TurnRunner drives one conversational turn and streams its events.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TurnRunner interface {
	// Run validates the turn and returns the live event stream. Validation
	// and ownership errors are returned synchronously.
	Run(ctx context.Context, userID string, in services.TurnInput) (<-chan services.TurnEvent, error)
}

// ConversationReader defines conversation listing and history operations.
type ConversationReader interface {
	List(ctx context.Context, userID string, offset, limit int) ([]domain.Conversation, int64, error)
	ListMessages(ctx context.Context, userID, conversationID string, offset, limit int) ([]domain.Message, int64, error)
	Rename(ctx context.Context, userID, conversationID, title string) error
	Complete(ctx context.Context, userID, conversationID string) error
}

// Library defines operations on the saved recipe library.
type Library interface {
	List(ctx context.Context, userID string, favoritesOnly bool, offset, limit int) ([]domain.Recipe, int64, error)
	Get(ctx context.Context, userID, recipeID string) (*domain.Recipe, error)
	Rate(ctx context.Context, userID, recipeID string, rating int) error
	SetFavorite(ctx context.Context, userID, recipeID string, favorite bool) error
}

// Profile defines read/write access to the user profile and memory.
type Profile interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, []domain.MemoryFact, error)
	Update(ctx context.Context, userID, displayName string, dietaryPreferences, pantryBasics []string) (*domain.UserProfile, error)
}

// IngredientExtractor identifies food items in an uploaded photo.
type IngredientExtractor interface {
	ExtractIngredients(ctx context.Context, photoBase64 string) ([]string, error)
}

// Handlers groups HTTP endpoints for turns, conversations, recipes, and the
// user profile. It depends on abstract service interfaces to keep transport
// concerns separate from business logic. DB is used for best-effort ETag
// stats only.
type Handlers struct {
	turnSvc    TurnRunner
	convSvc    ConversationReader
	librarySvc Library
	profileSvc Profile
	extractor  IngredientExtractor
	db         *gorm.DB
}

// New constructs and returns a Handlers instance bound to the given services.
func New(turnSvc TurnRunner, convSvc ConversationReader, librarySvc Library, profileSvc Profile, extractor IngredientExtractor, db *gorm.DB) *Handlers {
	return &Handlers{
		turnSvc:    turnSvc,
		convSvc:    convSvc,
		librarySvc: librarySvc,
		profileSvc: profileSvc,
		extractor:  extractor,
		db:         db,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to the "X-User-ID" header, and
// finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func paginationFor(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}
