package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/llm"
	"github.com/adilkhanna/scratch-meal/internal/spoonacular"
)

// RecipeBatchSize is the number of recipes a generation run produces.
const RecipeBatchSize = 5

// groundedSearchLimit is how many candidates the grounded strategy asks the
// recipe database for before narrowing to RecipeBatchSize.
const groundedSearchLimit = 10

// GenerationRequest carries the constraints parsed from the dialogue's
// generation payload, after pantry merging and normalization.
type GenerationRequest struct {
	Ingredients       []string `json:"ingredients"`
	DietaryConditions []string `json:"dietaryConditions"`
	TimeRange         string   `json:"timeRange"`
}

// ChatModel is the slice of the language-model client the services layer
// depends on. *llm.Client satisfies it.
type ChatModel interface {
	StreamChat(ctx context.Context, messages []llm.Message) (<-chan string, <-chan error)
	CompleteJSON(ctx context.Context, messages []llm.Message, maxTokens int, temperature float32) (string, error)
	ExtractIngredients(ctx context.Context, photoBase64 string) ([]string, error)
}

// RecipeSource is the external recipe database the grounded strategy draws
// from. *spoonacular.Client satisfies it.
type RecipeSource interface {
	Configured() bool
	SearchByIngredients(ctx context.Context, ingredients []string, count int) ([]spoonacular.SearchResult, error)
	GetRecipeDetails(ctx context.Context, ids []int64) ([]spoonacular.RecipeDetail, error)
}

// RecipeGenerator produces a batch of recipes for a generation request by
// walking an ordered list of strategies. A strategy that cannot gather
// enough material reports ErrInsufficientCandidates and the next one runs;
// any other failure is terminal.
type RecipeGenerator struct {
	model  ChatModel
	source RecipeSource
}

func NewRecipeGenerator(model ChatModel, source RecipeSource) *RecipeGenerator {
	return &RecipeGenerator{model: model, source: source}
}

type generationStrategy struct {
	name string
	run  func(ctx context.Context, req GenerationRequest) ([]domain.Recipe, error)
}

// Generate runs the strategies in order and returns the first successful
// batch, stamped with identity and provenance but not persisted. The caller
// owns persistence and event emission.
func (g *RecipeGenerator) Generate(ctx context.Context, userID string, req GenerationRequest) ([]domain.Recipe, error) {
	tr := otel.Tracer("services/RecipeGenerator")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("ingredients", len(req.Ingredients)),
			attribute.String("time_range", req.TimeRange),
		),
	)
	defer span.End()

	strategies := []generationStrategy{
		{name: "grounded", run: g.generateGrounded},
		{name: "invented", run: g.generateInvented},
	}

	var recipes []domain.Recipe
	var err error
	for _, s := range strategies {
		recipes, err = s.run(ctx, req)
		if err == nil {
			break
		}
		if errors.Is(err, ErrInsufficientCandidates) {
			log.Debug().Str("strategy", s.name).Msg("recipe strategy yielded insufficient candidates, trying next")
			continue
		}
		return nil, err
	}
	if err != nil {
		return nil, ErrGenerationFailed
	}

	now := time.Now().UTC()
	for i := range recipes {
		recipes[i].ID = uuid.NewString()
		recipes[i].UserID = userID
		recipes[i].Rating = 0
		recipes[i].IsFavorite = false
		recipes[i].SearchedIngredients = req.Ingredients
		recipes[i].DietaryConditions = req.DietaryConditions
		recipes[i].RequestedTimeRange = req.TimeRange
		recipes[i].CreatedAt = now
	}
	return recipes, nil
}

// generateGrounded searches the external recipe database for real recipes
// matching the ingredients and has the model adapt them to the constraints.
// Shortfalls anywhere in the pipeline (source not configured, too few
// matches, source unreachable) surface as ErrInsufficientCandidates so the
// invention strategy gets its turn.
func (g *RecipeGenerator) generateGrounded(ctx context.Context, req GenerationRequest) ([]domain.Recipe, error) {
	if g.source == nil || !g.source.Configured() {
		return nil, ErrInsufficientCandidates
	}

	results, err := g.source.SearchByIngredients(ctx, req.Ingredients, groundedSearchLimit)
	if err != nil {
		log.Warn().Err(err).Msg("recipe database search failed")
		return nil, fmt.Errorf("%w: search: %v", ErrInsufficientCandidates, err)
	}
	if len(results) < RecipeBatchSize {
		return nil, ErrInsufficientCandidates
	}

	ids := make([]int64, RecipeBatchSize)
	for i := 0; i < RecipeBatchSize; i++ {
		ids[i] = results[i].ID
	}
	details, err := g.source.GetRecipeDetails(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Msg("recipe database detail fetch failed")
		return nil, fmt.Errorf("%w: details: %v", ErrInsufficientCandidates, err)
	}
	if len(details) < RecipeBatchSize {
		return nil, ErrInsufficientCandidates
	}
	details = details[:RecipeBatchSize]

	raw, err := g.model.CompleteJSON(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: buildAdaptPrompt(req, details)},
	}, 4000, 0.7)
	if err != nil {
		return nil, fmt.Errorf("grounded generation: %w", err)
	}
	return parseRecipeBatch(raw)
}

// generateInvented asks the model to compose the batch from scratch. This is
// the last strategy; its failures are terminal.
func (g *RecipeGenerator) generateInvented(ctx context.Context, req GenerationRequest) ([]domain.Recipe, error) {
	raw, err := g.model.CompleteJSON(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: buildInventPrompt(req)},
	}, 4000, 0.8)
	if err != nil {
		return nil, fmt.Errorf("invented generation: %w", err)
	}
	return parseRecipeBatch(raw)
}

// recipePayload mirrors the JSON shape the generation prompts demand.
type recipePayload struct {
	Name           string                    `json:"name"`
	Description    string                    `json:"description"`
	CookTime       string                    `json:"cookTime"`
	Difficulty     string                    `json:"difficulty"`
	KeyIngredients []string                  `json:"keyIngredients"`
	Ingredients    []domain.RecipeIngredient `json:"ingredients"`
	Instructions   []string                  `json:"instructions"`
	Tips           []string                  `json:"tips"`
	NutritionInfo  *domain.NutritionInfo     `json:"nutritionInfo"`
	SourceRecipe   *domain.SourceRecipe      `json:"sourceRecipe"`
}

func parseRecipeBatch(raw string) ([]domain.Recipe, error) {
	var payload struct {
		Recipes []recipePayload `json:"recipes"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(payload.Recipes) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrGenerationFailed)
	}
	if len(payload.Recipes) > RecipeBatchSize {
		payload.Recipes = payload.Recipes[:RecipeBatchSize]
	}

	recipes := make([]domain.Recipe, 0, len(payload.Recipes))
	for _, p := range payload.Recipes {
		if strings.TrimSpace(p.Name) == "" || len(p.Instructions) == 0 {
			return nil, fmt.Errorf("%w: recipe missing name or instructions", ErrGenerationFailed)
		}
		recipes = append(recipes, domain.Recipe{
			Name:         strings.TrimSpace(p.Name),
			Description:  p.Description,
			CookTime:     p.CookTime,
			Difficulty:   normalizeDifficulty(p.Difficulty),
			KeyIngreds:   p.KeyIngredients,
			Ingredients:  p.Ingredients,
			Instructions: p.Instructions,
			Tips:         p.Tips,
			Nutrition:    p.NutritionInfo,
			Source:       p.SourceRecipe,
		})
	}
	return recipes, nil
}

func normalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "easy":
		return "Easy"
	case "hard":
		return "Hard"
	default:
		return "Medium"
	}
}
