package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/services"
)

// --- fakes for the service contracts ---

type fakeTurnRunner struct {
	events []services.TurnEvent
	err    error

	gotUser  string
	gotInput services.TurnInput
}

func (f *fakeTurnRunner) Run(ctx context.Context, userID string, in services.TurnInput) (<-chan services.TurnEvent, error) {
	f.gotUser = userID
	f.gotInput = in
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan services.TurnEvent, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type fakeConversations struct {
	convs []domain.Conversation
	msgs  []domain.Message
	total int64
	err   error

	renamedTo string
	completed string
}

func (f *fakeConversations) List(ctx context.Context, userID string, offset, limit int) ([]domain.Conversation, int64, error) {
	return f.convs, f.total, f.err
}

func (f *fakeConversations) ListMessages(ctx context.Context, userID, conversationID string, offset, limit int) ([]domain.Message, int64, error) {
	return f.msgs, f.total, f.err
}

func (f *fakeConversations) Rename(ctx context.Context, userID, conversationID, title string) error {
	f.renamedTo = title
	return f.err
}

func (f *fakeConversations) Complete(ctx context.Context, userID, conversationID string) error {
	f.completed = conversationID
	return f.err
}

type fakeLibrary struct {
	recipes []domain.Recipe
	recipe  *domain.Recipe
	total   int64
	err     error

	gotRating   int
	gotFavorite bool
}

func (f *fakeLibrary) List(ctx context.Context, userID string, favoritesOnly bool, offset, limit int) ([]domain.Recipe, int64, error) {
	return f.recipes, f.total, f.err
}

func (f *fakeLibrary) Get(ctx context.Context, userID, recipeID string) (*domain.Recipe, error) {
	return f.recipe, f.err
}

func (f *fakeLibrary) Rate(ctx context.Context, userID, recipeID string, rating int) error {
	f.gotRating = rating
	return f.err
}

func (f *fakeLibrary) SetFavorite(ctx context.Context, userID, recipeID string, favorite bool) error {
	f.gotFavorite = favorite
	return f.err
}

type fakeProfile struct {
	profile *domain.UserProfile
	facts   []domain.MemoryFact
	err     error
}

func (f *fakeProfile) Get(ctx context.Context, userID string) (*domain.UserProfile, []domain.MemoryFact, error) {
	return f.profile, f.facts, f.err
}

func (f *fakeProfile) Update(ctx context.Context, userID, displayName string, dietaryPreferences, pantryBasics []string) (*domain.UserProfile, error) {
	return f.profile, f.err
}

type fakeExtractor struct {
	out []string
	err error
}

func (f *fakeExtractor) ExtractIngredients(ctx context.Context, photoBase64 string) ([]string, error) {
	return f.out, f.err
}

// newHandlerRouter mounts the handlers on a bare engine, mirroring the
// application's route layout without the middleware stack.
func newHandlerRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/chat/turn", h.PostTurn)
	r.GET("/conversations", h.ListConversations)
	r.GET("/conversations/:id/messages", h.ListConversationMessages)
	r.PUT("/conversations/:id/title", h.RenameConversation)
	r.POST("/conversations/:id/complete", h.CompleteConversation)
	r.GET("/recipes", h.ListRecipes)
	r.GET("/recipes/:id", h.GetRecipe)
	r.POST("/recipes/:id/rating", h.RateRecipe)
	r.POST("/recipes/:id/favorite", h.FavoriteRecipe)
	r.GET("/profile", h.GetProfile)
	r.PUT("/profile", h.UpdateProfile)
	r.POST("/ingredients/extract", h.ExtractIngredients)
	return r
}

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Conversation{}, &domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func Test_userID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Context value wins.
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-User-ID", "header-user")
	c.Set("userID", "ctx-user")
	if got := userID(c); got != "ctx-user" {
		t.Fatalf("userID = %q, want ctx-user", got)
	}

	// Header is the fallback.
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-User-ID", "  header-user  ")
	if got := userID(c); got != "header-user" {
		t.Fatalf("userID = %q, want header-user", got)
	}

	// Neither set: demo default.
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := userID(c); got != "demo-user" {
		t.Fatalf("userID = %q, want demo-user", got)
	}
}

func Test_paginationFor(t *testing.T) {
	p := paginationFor(1, 20, 45)
	if p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("pagination = %+v", p)
	}
	p = paginationFor(3, 20, 45)
	if p.HasNext {
		t.Fatalf("last page HasNext = true: %+v", p)
	}
	p = paginationFor(1, 20, 0)
	if p.TotalPages != 0 || p.HasNext {
		t.Fatalf("empty pagination = %+v", p)
	}
}

func Test_clampPagination(t *testing.T) {
	cases := []struct {
		query        string
		page, size   int
	}{
		{"", 1, 20},
		{"page=3&page_size=50", 3, 50},
		{"page=0&page_size=0", 1, 1},
		{"page=-2&page_size=1000", 1, 100},
		{"page=abc&page_size=xyz", 1, 20},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		page, size := clampPagination(c)
		if page != tc.page || size != tc.size {
			t.Fatalf("clampPagination(%q) = (%d, %d), want (%d, %d)", tc.query, page, size, tc.page, tc.size)
		}
	}
}
