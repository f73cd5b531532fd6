// Package domain defines the persistence models for user profiles, memory
// facts, conversations, messages, and generated recipes. These types are
// mapped with GORM and form the core data layer of the cooking assistant.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Conversation statuses.
const (
	ConversationActive    = "active"
	ConversationCompleted = "completed"

	// Message roles.
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Memory fact categories accepted from the extractor.
const (
	FactPreference = "preference"
	FactHousehold  = "household"
	FactHealth     = "health"
	FactTaste      = "taste"
	FactFeedback   = "feedback"
)

// MaxMemoryFacts caps how many facts a profile retains; the oldest facts are
// evicted first when the cap is exceeded.
const MaxMemoryFacts = 50

// UserProfile holds per-user personalization data consumed by the dialogue
// engine when building the system prompt. Dietary preferences and pantry
// basics are stored as JSON-serialized string lists; memory facts live in
// their own table (see MemoryFact) because they are appended and truncated
// independently of profile edits.
type UserProfile struct {
	UserID             string         `json:"user_id"             gorm:"type:varchar(64);primaryKey"`
	DisplayName        string         `json:"display_name"        gorm:"type:varchar(128)"`
	DietaryPreferences []string       `json:"dietary_preferences" gorm:"serializer:json;type:text"`
	PantryBasics       []string       `json:"pantry_basics"       gorm:"serializer:json;type:text"`
	MemoryUpdatedAt    *time.Time     `json:"memory_updated_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for UserProfile.
func (UserProfile) TableName() string { return "user_profiles" }

// MemoryFact is a durable, categorized, confidence-scored statement about a
// user, accumulated across conversations by the background extractor.
//
// Invariants:
//   - Confidence is in [0,1] (defaulted to 0.7 when the model omits it).
//   - A user keeps at most MaxMemoryFacts rows; overflow evicts oldest-first.
type MemoryFact struct {
	ID         string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"-"          gorm:"type:varchar(64);not null;index:idx_user_facts,priority:1"`
	Fact       string    `json:"fact"       gorm:"type:text;not null"`
	Category   string    `json:"category"   gorm:"type:varchar(16);not null;check:category IN ('preference','household','health','taste','feedback')"`
	Confidence float64   `json:"confidence" gorm:"not null;default:0.7"`
	Source     string    `json:"source"     gorm:"type:varchar(16);not null;check:source IN ('conversation','rating','profile')"`
	CreatedAt  time.Time `json:"created_at" gorm:"index:idx_user_facts,priority:2"`
}

// TableName returns the database table name for MemoryFact.
func (MemoryFact) TableName() string { return "memory_facts" }

// Conversation represents one chat thread owned by a user. A conversation is
// created implicitly on the first turn when the client does not supply an id,
// and is touched on every subsequent turn.
type Conversation struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       string         `json:"user_id"       gorm:"type:varchar(64);not null;index:idx_user_convs"`
	Title        string         `json:"title"         gorm:"type:varchar(255);not null;default:'New conversation'"`
	Status       string         `json:"status"        gorm:"type:varchar(16);not null;default:'active';check:status IN ('active','completed')"`
	RecipeIDs    []string       `json:"recipe_ids"    gorm:"serializer:json;type:text"`
	MessageCount int            `json:"message_count" gorm:"not null;default:0"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is a single utterance within a conversation, authored either by the
// "user" or the "assistant". Messages are append-only: once written they are
// never mutated. PhotoAttached records that the user message carried an image
// whose extracted ingredients were inlined into Content.
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	Role           string         `json:"role"            gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content        string         `json:"content"         gorm:"type:text;not null"`
	PhotoAttached  bool           `json:"photo_attached,omitempty"`
	CreatedAt      time.Time      `json:"created_at" gorm:"index:idx_conv_msgs,priority:2"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Conversation is the parent thread. Messages are cascade-deleted if
	// their conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// RecipeIngredient is one structured entry of a recipe's ingredient list.
type RecipeIngredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
}

// NutritionInfo is the optional per-recipe nutrition summary.
type NutritionInfo struct {
	Servings int    `json:"servings"`
	Calories int    `json:"calories"`
	Protein  string `json:"protein"`
	Carbs    string `json:"carbs"`
	Fat      string `json:"fat"`
}

// SourceRecipe records provenance for recipes produced by the grounded path:
// the real recipe the model adapted, with its external id and URL.
type SourceRecipe struct {
	Title         string `json:"title"`
	SourceURL     string `json:"sourceUrl"`
	SpoonacularID int64  `json:"spoonacularId"`
}

// Recipe is a generated recipe persisted for the owning user. Content fields
// are immutable after creation; only Rating and IsFavorite are mutated later
// through the recipe endpoints. The Searched*/Requested* fields capture the
// originating generation request so history can be filtered by query.
type Recipe struct {
	ID           string             `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID       string             `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_user_recipes,priority:1"`
	Name         string             `json:"name"           gorm:"type:varchar(255);not null"`
	Description  string             `json:"description"    gorm:"type:text"`
	CookTime     string             `json:"cookTime"       gorm:"type:varchar(64)"`
	Difficulty   string             `json:"difficulty"     gorm:"type:varchar(16);check:difficulty IN ('Easy','Medium','Hard')"`
	KeyIngreds   []string           `json:"keyIngredients" gorm:"serializer:json;type:text"`
	Ingredients  []RecipeIngredient `json:"ingredients"    gorm:"serializer:json;type:text"`
	Instructions []string           `json:"instructions"   gorm:"serializer:json;type:text"`
	Tips         []string           `json:"tips"           gorm:"serializer:json;type:text"`
	Nutrition    *NutritionInfo     `json:"nutritionInfo,omitempty" gorm:"serializer:json;type:text"`
	Source       *SourceRecipe      `json:"sourceRecipe,omitempty"  gorm:"serializer:json;type:text"`

	Rating     int  `json:"rating"      gorm:"not null;default:0;check:rating BETWEEN 0 AND 5"`
	IsFavorite bool `json:"is_favorite" gorm:"not null;default:false"`

	SearchedIngredients []string `json:"searched_ingredients" gorm:"serializer:json;type:text"`
	DietaryConditions   []string `json:"dietary_conditions"   gorm:"serializer:json;type:text"`
	RequestedTimeRange  string   `json:"requested_time_range" gorm:"type:varchar(8)"`

	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_user_recipes,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Recipe.
func (Recipe) TableName() string { return "recipes" }
