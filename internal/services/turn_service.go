package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/llm"
	"github.com/adilkhanna/scratch-meal/internal/repo"
	"github.com/adilkhanna/scratch-meal/internal/tasks"
)

// MaxMessageLen bounds a single turn's text input, in runes.
const MaxMessageLen = 4000

// maxGenerationIngredients caps the ingredient list handed to the recipe
// generator after pantry merging.
const maxGenerationIngredients = 50

// historyWindow is how many recent messages are replayed to the model as
// conversation context.
const historyWindow = 20

// generatingMessage is the status text carried by the generating event.
const generatingMessage = "Generating your recipes..."

// generationFallback is spoken to the user when recipe generation could not
// complete after the model asked for it.
const generationFallback = "I had trouble generating recipes. Could you tell me your ingredients and how much time you have again?"

// generationNote is appended to the stored assistant message when a batch
// was produced, so replayed history tells the model generation happened.
const generationNote = "[Generated 5 recipes]"

// Turn event types, delivered in stream order. Every turn ends with exactly
// one of EventDone or EventError.
const (
	EventText       = "text"
	EventGenerating = "generating"
	EventRecipes    = "recipes"
	EventDone       = "done"
	EventError      = "error"
)

// TurnEvent is one unit of the turn's output stream.
type TurnEvent struct {
	Type string
	Data interface{}
}

// TurnInput is one user turn: free text, an optional base64-encoded food
// photo, and the conversation to continue. An empty ConversationID starts a
// new conversation.
type TurnInput struct {
	Message        string
	PhotoData      string
	ConversationID string
}

// TurnDone is the payload of the terminal done event.
type TurnDone struct {
	ConversationID string `json:"conversationId"`
	MessageCount   int    `json:"messageCount"`
}

// TurnService drives one conversational turn end to end: it persists the
// user message, streams the model's reply while watching for the in-band
// generation trigger, runs recipe generation when asked, persists the
// assistant message, and kicks off memory extraction in the background.
type TurnService struct {
	db            *gorm.DB
	model         ChatModel
	generator     *RecipeGenerator
	memory        *MemoryService
	runner        *tasks.Runner
	turnTimeout   time.Duration
	recipeTimeout time.Duration
}

func NewTurnService(db *gorm.DB, model ChatModel, generator *RecipeGenerator, memory *MemoryService, runner *tasks.Runner, turnTimeout, recipeTimeout time.Duration) *TurnService {
	return &TurnService{
		db:            db,
		model:         model,
		generator:     generator,
		memory:        memory,
		runner:        runner,
		turnTimeout:   turnTimeout,
		recipeTimeout: recipeTimeout,
	}
}

// Run validates the turn, resolves the conversation, and returns the event
// stream. Validation and ownership errors are returned synchronously; after
// that, failures travel on the channel as an error event. The channel is
// closed after the terminal event.
func (s *TurnService) Run(ctx context.Context, userID string, in TurnInput) (<-chan TurnEvent, error) {
	if strings.TrimSpace(in.Message) == "" && in.PhotoData == "" {
		return nil, ErrEmptyTurn
	}
	if len([]rune(in.Message)) > MaxMessageLen {
		return nil, ErrTooLong
	}

	var conv *domain.Conversation
	var err error
	if in.ConversationID != "" {
		conv, err = repo.GetConversation(ctx, s.db, in.ConversationID, userID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrConversationNotFound
			}
			return nil, err
		}
	} else {
		conv, err = repo.CreateConversation(ctx, s.db, userID, conversationTitleFrom(in.Message))
		if err != nil {
			return nil, err
		}
	}

	events := make(chan TurnEvent, 16)
	go func() {
		defer close(events)
		turnCtx, cancel := context.WithTimeout(ctx, s.turnTimeout)
		defer cancel()
		if err := s.runTurn(turnCtx, userID, conv, in, events); err != nil {
			log.Error().Err(err).Str("conversation_id", conv.ID).Msg("turn failed")
			events <- TurnEvent{Type: EventError, Data: map[string]string{"message": "Something went wrong. Please try again."}}
		}
	}()
	return events, nil
}

func (s *TurnService) runTurn(ctx context.Context, userID string, conv *domain.Conversation, in TurnInput, events chan<- TurnEvent) error {
	tr := otel.Tracer("services/TurnService")
	ctx, span := tr.Start(ctx, "runTurn",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("conversation.id", conv.ID),
			attribute.Bool("turn.photo", in.PhotoData != ""),
		),
	)
	defer span.End()

	userContent := strings.TrimSpace(in.Message)

	if in.PhotoData != "" {
		ingredients, err := s.model.ExtractIngredients(ctx, in.PhotoData)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("photo ingredient extraction failed")
			if userContent == "" {
				userContent = "[Photo uploaded]"
			}
		case len(ingredients) > 0:
			marker := "[PHOTO_INGREDIENTS: " + strings.Join(ingredients, ", ") + "]"
			if userContent == "" {
				userContent = marker
			} else {
				userContent += "\n\n" + marker
			}
		case userContent == "":
			userContent = "[Photo uploaded]"
		}
	}

	if _, err := repo.CreateMessage(ctx, s.db, conv.ID, domain.RoleUser, userContent, in.PhotoData != ""); err != nil {
		return err
	}

	profile, err := repo.GetProfile(ctx, s.db, userID)
	if err != nil {
		return err
	}
	facts, err := repo.ListMemoryFacts(ctx, s.db, userID)
	if err != nil {
		return err
	}
	history, err := repo.ListRecentMessages(ctx, s.db, conv.ID, historyWindow)
	if err != nil {
		return err
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: buildSystemPrompt(profile.DisplayName, profile.DietaryPreferences, profile.PantryBasics, facts),
	})
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == domain.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}

	chunks, errs := s.model.StreamChat(ctx, messages)
	scanner := newSentinelScanner()

	for chunk := range chunks {
		if out := scanner.Feed(chunk); out != "" {
			events <- TurnEvent{Type: EventText, Data: out}
		}
	}
	if err := <-errs; err != nil {
		return err
	}
	if out := scanner.Flush(); out != "" {
		events <- TurnEvent{Type: EventText, Data: out}
	}

	assistantContent := strings.TrimSpace(scanner.Prose())

	if scanner.Triggered() {
		// The generating event is only announced once the trigger payload has
		// parsed; a garbled payload skips straight to the fallback text.
		req, parseErr := parseGenerationRequest(scanner.Payload())
		var recipes []domain.Recipe
		genErr := parseErr
		if parseErr == nil {
			events <- TurnEvent{Type: EventGenerating, Data: map[string]string{"message": generatingMessage}}
			recipes, genErr = s.generate(ctx, userID, profile, req)
		}
		if genErr != nil {
			log.Warn().Err(genErr).Str("conversation_id", conv.ID).Msg("recipe generation failed")
			events <- TurnEvent{Type: EventText, Data: generationFallback}
			if assistantContent != "" {
				assistantContent += "\n\n"
			}
			assistantContent += generationFallback
		} else {
			if err := repo.CreateRecipes(ctx, s.db, recipes); err != nil {
				return err
			}
			ids := make([]string, len(recipes))
			for i, r := range recipes {
				ids[i] = r.ID
			}
			if err := repo.AppendConversationRecipes(ctx, s.db, conv.ID, ids); err != nil {
				return err
			}
			events <- TurnEvent{Type: EventRecipes, Data: recipes}
			if assistantContent != "" {
				assistantContent += "\n\n"
			}
			assistantContent += generationNote
		}
	}

	if assistantContent == "" {
		assistantContent = "..."
	}
	if _, err := repo.CreateMessage(ctx, s.db, conv.ID, domain.RoleAssistant, assistantContent, false); err != nil {
		return err
	}
	if err := repo.TouchConversation(ctx, s.db, conv.ID, 2); err != nil {
		return err
	}

	s.runner.Submit("memory-extraction", func(taskCtx context.Context) error {
		return s.memory.Extract(taskCtx, userID, conv.ID)
	})

	events <- TurnEvent{Type: EventDone, Data: TurnDone{
		ConversationID: conv.ID,
		MessageCount:   conv.MessageCount + 2,
	}}
	return nil
}

// parseGenerationRequest decodes the trigger payload. A request without at
// least one ingredient is as unusable as malformed JSON.
func parseGenerationRequest(payload string) (GenerationRequest, error) {
	var req GenerationRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return req, ErrGenerationFailed
	}
	if len(req.Ingredients) == 0 {
		return req, ErrGenerationFailed
	}
	return req, nil
}

// generate merges the user's pantry basics into the ingredient list and runs
// the generator under its own deadline independent of the (already consumed)
// stream budget.
func (s *TurnService) generate(ctx context.Context, userID string, profile *domain.UserProfile, req GenerationRequest) ([]domain.Recipe, error) {
	pantry := profile.PantryBasics
	if len(pantry) == 0 {
		pantry = defaultPantry
	}
	req.Ingredients = mergeIngredients(req.Ingredients, pantry)

	genCtx, cancel := context.WithTimeout(ctx, s.recipeTimeout)
	defer cancel()
	return s.generator.Generate(genCtx, userID, req)
}

// mergeIngredients appends pantry items not already present, comparing
// case-insensitively, and caps the combined list.
func mergeIngredients(ingredients, pantry []string) []string {
	seen := make(map[string]bool, len(ingredients)+len(pantry))
	merged := make([]string, 0, len(ingredients)+len(pantry))
	for _, in := range append(append([]string{}, ingredients...), pantry...) {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		key := strings.ToLower(in)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, in)
		if len(merged) == maxGenerationIngredients {
			break
		}
	}
	return merged
}
