package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/llm"
	"github.com/adilkhanna/scratch-meal/internal/repo"
	"github.com/adilkhanna/scratch-meal/internal/spoonacular"
	"github.com/adilkhanna/scratch-meal/internal/tasks"
)

// --- shared test fixtures for the services package ---

func newServicesDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svcdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Conversation{}, &domain.Message{}, &domain.Recipe{}, &domain.UserProfile{}, &domain.MemoryFact{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fakeModel scripts the language model: a fixed chunk stream for StreamChat
// and a queue of canned JSON replies for CompleteJSON.
type fakeModel struct {
	mu sync.Mutex

	chunks     []string
	streamErr  error
	streamSize int // number of messages handed to the last StreamChat call

	jsonReplies []string // popped per CompleteJSON call; last one repeats
	jsonErr     error
	jsonCalls   int
	jsonPrompts []string

	extractOut []string
	extractErr error
}

func (f *fakeModel) StreamChat(ctx context.Context, messages []llm.Message) (<-chan string, <-chan error) {
	f.mu.Lock()
	f.streamSize = len(messages)
	f.mu.Unlock()
	chunks := make(chan string, len(f.chunks))
	errs := make(chan error, 1)
	for _, c := range f.chunks {
		chunks <- c
	}
	close(chunks)
	if f.streamErr != nil {
		errs <- f.streamErr
	}
	close(errs)
	return chunks, errs
}

func (f *fakeModel) CompleteJSON(ctx context.Context, messages []llm.Message, maxTokens int, temperature float32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jsonCalls++
	if len(messages) > 0 {
		f.jsonPrompts = append(f.jsonPrompts, messages[len(messages)-1].Content)
	}
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	if len(f.jsonReplies) == 0 {
		return "{}", nil
	}
	reply := f.jsonReplies[0]
	if len(f.jsonReplies) > 1 {
		f.jsonReplies = f.jsonReplies[1:]
	}
	return reply, nil
}

func (f *fakeModel) ExtractIngredients(ctx context.Context, photoBase64 string) ([]string, error) {
	return f.extractOut, f.extractErr
}

func (f *fakeModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jsonCalls
}

// fakeSource scripts the external recipe database.
type fakeSource struct {
	configured bool
	results    []spoonacular.SearchResult
	searchErr  error
	details    []spoonacular.RecipeDetail
	detailsErr error

	searchCalls int
}

func (f *fakeSource) Configured() bool { return f.configured }

func (f *fakeSource) SearchByIngredients(ctx context.Context, ingredients []string, count int) ([]spoonacular.SearchResult, error) {
	f.searchCalls++
	return f.results, f.searchErr
}

func (f *fakeSource) GetRecipeDetails(ctx context.Context, ids []int64) ([]spoonacular.RecipeDetail, error) {
	return f.details, f.detailsErr
}

// inventedBatch is a minimal valid generation reply.
const inventedBatch = `{"recipes":[
  {"name":"Egg Fried Rice","description":"Quick weeknight fry-up","cookTime":"20 minutes","difficulty":"easy",
   "keyIngredients":["eggs","rice"],
   "ingredients":[{"name":"eggs","quantity":"2","unit":""},{"name":"rice","quantity":"2","unit":"cups"}],
   "instructions":["Beat the eggs","Fry the rice","Combine"],"tips":["Day-old rice works best"]},
  {"name":"Rice Omelette","difficulty":"HARD","instructions":["Whisk","Fold"]}
]}`

func newTurnService(t *testing.T, db *gorm.DB, model *fakeModel, source RecipeSource) (*TurnService, *tasks.Runner) {
	t.Helper()
	runner := tasks.NewRunner(5 * time.Second)
	gen := NewRecipeGenerator(model, source)
	mem := NewMemoryService(db, model)
	return NewTurnService(db, model, gen, mem, runner, 10*time.Second, 5*time.Second), runner
}

func drain(t *testing.T, events <-chan TurnEvent) []TurnEvent {
	t.Helper()
	var out []TurnEvent
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("timed out draining events; got %d so far", len(out))
		}
	}
}

func eventTypes(events []TurnEvent) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

// --- tests ---

func TestTurnService_Run_Validation(t *testing.T) {
	db := newServicesDB(t)
	svc, _ := newTurnService(t, db, &fakeModel{}, &fakeSource{})
	ctx := context.Background()

	if _, err := svc.Run(ctx, "u1", TurnInput{Message: "   "}); !errors.Is(err, ErrEmptyTurn) {
		t.Fatalf("blank turn: err = %v, want ErrEmptyTurn", err)
	}
	if _, err := svc.Run(ctx, "u1", TurnInput{Message: strings.Repeat("x", MaxMessageLen+1)}); !errors.Is(err, ErrTooLong) {
		t.Fatalf("oversized turn: err = %v, want ErrTooLong", err)
	}
	if _, err := svc.Run(ctx, "u1", TurnInput{Message: "hi", ConversationID: uuid.NewString()}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("unknown conversation: err = %v, want ErrConversationNotFound", err)
	}
}

func TestTurnService_PlainProseTurn(t *testing.T) {
	db := newServicesDB(t)
	model := &fakeModel{chunks: []string{"Happy to help! ", "What's in your fridge?"}}
	svc, runner := newTurnService(t, db, model, &fakeSource{})
	ctx := context.Background()

	events, err := svc.Run(ctx, "u1", TurnInput{Message: "hello there"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	evs := drain(t, events)
	runner.Wait()

	last := evs[len(evs)-1]
	if last.Type != EventDone {
		t.Fatalf("terminal event = %v, want done (all: %v)", last.Type, eventTypes(evs))
	}
	done := last.Data.(TurnDone)
	if done.ConversationID == "" || done.MessageCount != 2 {
		t.Fatalf("done payload = %+v", done)
	}

	var prose strings.Builder
	for _, ev := range evs {
		switch ev.Type {
		case EventText:
			prose.WriteString(ev.Data.(string))
		case EventGenerating, EventRecipes:
			t.Fatalf("unexpected %s event in prose turn", ev.Type)
		}
	}
	if prose.String() != "Happy to help! What's in your fridge?" {
		t.Fatalf("streamed prose = %q", prose.String())
	}

	msgs, err := repo.ListRecentMessages(ctx, db, done.ConversationID, 10)
	if err != nil {
		t.Fatalf("ListRecentMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("persisted messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[0].Content != "hello there" {
		t.Fatalf("first message = %+v", msgs[0])
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].Content != "Happy to help! What's in your fridge?" {
		t.Fatalf("second message = %+v", msgs[1])
	}

	conv, err := repo.GetConversation(ctx, db, done.ConversationID, "u1")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv.MessageCount != 2 {
		t.Fatalf("conversation MessageCount = %d, want 2", conv.MessageCount)
	}
	if conv.Title == "" {
		t.Fatalf("new conversation has empty title")
	}
}

func TestTurnService_TriggerGeneratesRecipes(t *testing.T) {
	db := newServicesDB(t)
	model := &fakeModel{
		chunks: []string{
			"Sounds tasty! ",
			"[GENERATE_",
			`RECIPES] {"ingredients":["eggs","rice"],"timeRange":"30"}`,
		},
		jsonReplies: []string{inventedBatch},
	}
	svc, runner := newTurnService(t, db, model, &fakeSource{configured: false})
	ctx := context.Background()

	events, err := svc.Run(ctx, "u1", TurnInput{Message: "eggs and rice, 30 min"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	evs := drain(t, events)
	runner.Wait()

	types := eventTypes(evs)
	var sawGenerating, sawRecipes bool
	for i, typ := range types {
		switch typ {
		case EventGenerating:
			sawGenerating = true
			if sawRecipes {
				t.Fatalf("generating after recipes: %v", types)
			}
			payload := evs[i].Data.(map[string]string)
			if payload["message"] == "" {
				t.Fatalf("generating payload = %+v, want a message field", payload)
			}
		case EventRecipes:
			sawRecipes = true
			recipes := evs[i].Data.([]domain.Recipe)
			if len(recipes) != 2 {
				t.Fatalf("recipes event carried %d recipes", len(recipes))
			}
			for _, r := range recipes {
				if r.ID == "" || r.UserID != "u1" || r.Rating != 0 || r.IsFavorite {
					t.Fatalf("recipe not stamped: %+v", r)
				}
				if r.RequestedTimeRange != "30" {
					t.Fatalf("time range = %q", r.RequestedTimeRange)
				}
			}
		case EventError:
			t.Fatalf("error event: %v", evs[i].Data)
		}
	}
	if !sawGenerating || !sawRecipes {
		t.Fatalf("missing generating/recipes events: %v", types)
	}
	if types[len(types)-1] != EventDone {
		t.Fatalf("terminal event = %v", types)
	}

	// Exactly one generation call; the grounded path was skipped because the
	// source is unconfigured.
	if got := model.calls(); got != 1 {
		t.Fatalf("CompleteJSON calls = %d, want 1", got)
	}

	done := evs[len(evs)-1].Data.(TurnDone)
	conv, err := repo.GetConversation(ctx, db, done.ConversationID, "u1")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(conv.RecipeIDs) != 2 {
		t.Fatalf("conversation RecipeIDs = %v", conv.RecipeIDs)
	}

	total, err := repo.CountRecipes(ctx, db, "u1", false)
	if err != nil {
		t.Fatalf("CountRecipes: %v", err)
	}
	if total != 2 {
		t.Fatalf("persisted recipes = %d, want 2", total)
	}

	msgs, _ := repo.ListRecentMessages(ctx, db, done.ConversationID, 10)
	assistant := msgs[len(msgs)-1]
	if assistant.Role != domain.RoleAssistant || !strings.Contains(assistant.Content, generationNote) {
		t.Fatalf("assistant message = %+v", assistant)
	}
}

func TestTurnService_MalformedPayloadFallsBack(t *testing.T) {
	db := newServicesDB(t)
	model := &fakeModel{
		chunks: []string{"On it! [GENERATE_RECIPES] this is not json"},
	}
	svc, runner := newTurnService(t, db, model, &fakeSource{})
	ctx := context.Background()

	events, err := svc.Run(ctx, "u1", TurnInput{Message: "make me food"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	evs := drain(t, events)
	runner.Wait()

	var sawFallback bool
	for _, ev := range evs {
		if ev.Type == EventRecipes {
			t.Fatalf("recipes event despite malformed payload")
		}
		if ev.Type == EventGenerating {
			t.Fatalf("generating event despite malformed payload: %v", eventTypes(evs))
		}
		if ev.Type == EventText && ev.Data.(string) == generationFallback {
			sawFallback = true
		}
	}
	if !sawFallback {
		t.Fatalf("fallback text not streamed: %v", eventTypes(evs))
	}
	if evs[len(evs)-1].Type != EventDone {
		t.Fatalf("terminal event = %v", eventTypes(evs))
	}

	// Payload never reached the generator, so the model was not asked for
	// a batch.
	if got := model.calls(); got != 0 {
		t.Fatalf("CompleteJSON calls = %d, want 0", got)
	}

	total, _ := repo.CountRecipes(ctx, db, "u1", false)
	if total != 0 {
		t.Fatalf("persisted recipes = %d, want 0", total)
	}

	done := evs[len(evs)-1].Data.(TurnDone)
	msgs, _ := repo.ListRecentMessages(ctx, db, done.ConversationID, 10)
	assistant := msgs[len(msgs)-1]
	if !strings.Contains(assistant.Content, generationFallback) {
		t.Fatalf("assistant message missing fallback: %q", assistant.Content)
	}
}

func TestTurnService_PhotoTurn(t *testing.T) {
	db := newServicesDB(t)
	model := &fakeModel{
		chunks:     []string{"Nice haul!"},
		extractOut: []string{"eggs", "milk"},
	}
	svc, runner := newTurnService(t, db, model, &fakeSource{})
	ctx := context.Background()

	events, err := svc.Run(ctx, "u1", TurnInput{PhotoData: "base64data"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	evs := drain(t, events)
	runner.Wait()

	done := evs[len(evs)-1].Data.(TurnDone)
	msgs, _ := repo.ListRecentMessages(ctx, db, done.ConversationID, 10)
	user := msgs[0]
	if user.Content != "[PHOTO_INGREDIENTS: eggs, milk]" {
		t.Fatalf("user message = %q", user.Content)
	}
	if !user.PhotoAttached {
		t.Fatalf("PhotoAttached not set")
	}
}

func TestTurnService_PhotoExtractionFailure(t *testing.T) {
	db := newServicesDB(t)
	model := &fakeModel{
		chunks:     []string{"Got your photo."},
		extractErr: errors.New("vision unavailable"),
	}
	svc, runner := newTurnService(t, db, model, &fakeSource{})
	ctx := context.Background()

	events, err := svc.Run(ctx, "u1", TurnInput{PhotoData: "base64data"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	evs := drain(t, events)
	runner.Wait()

	// Extraction failure degrades to a placeholder, never fails the turn.
	if evs[len(evs)-1].Type != EventDone {
		t.Fatalf("terminal event = %v", eventTypes(evs))
	}
	done := evs[len(evs)-1].Data.(TurnDone)
	msgs, _ := repo.ListRecentMessages(ctx, db, done.ConversationID, 10)
	if msgs[0].Content != "[Photo uploaded]" {
		t.Fatalf("user message = %q", msgs[0].Content)
	}
}

func TestTurnService_StreamErrorEmitsErrorEvent(t *testing.T) {
	db := newServicesDB(t)
	model := &fakeModel{
		chunks:    []string{"partial"},
		streamErr: errors.New("upstream reset"),
	}
	svc, runner := newTurnService(t, db, model, &fakeSource{})
	ctx := context.Background()

	events, err := svc.Run(ctx, "u1", TurnInput{Message: "hello"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	evs := drain(t, events)
	runner.Wait()

	last := evs[len(evs)-1]
	if last.Type != EventError {
		t.Fatalf("terminal event = %v, want error (all: %v)", last.Type, eventTypes(evs))
	}

	// The user message was persisted before streaming began; no assistant
	// message follows a failed stream.
	var convs []domain.Conversation
	if err := db.Find(&convs).Error; err != nil || len(convs) != 1 {
		t.Fatalf("conversations: %v (%d)", err, len(convs))
	}
	msgs, _ := repo.ListRecentMessages(ctx, db, convs[0].ID, 10)
	if len(msgs) != 1 || msgs[0].Role != domain.RoleUser {
		t.Fatalf("persisted messages = %+v", msgs)
	}
}

func TestTurnService_ContinuesExistingConversation(t *testing.T) {
	db := newServicesDB(t)
	ctx := context.Background()
	conv, err := repo.CreateConversation(ctx, db, "u1", "Dinner Ideas")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	model := &fakeModel{chunks: []string{"Sure thing."}}
	svc, runner := newTurnService(t, db, model, &fakeSource{})

	events, err := svc.Run(ctx, "u1", TurnInput{Message: "more ideas", ConversationID: conv.ID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	evs := drain(t, events)
	runner.Wait()

	done := evs[len(evs)-1].Data.(TurnDone)
	if done.ConversationID != conv.ID {
		t.Fatalf("done conversation = %s, want %s", done.ConversationID, conv.ID)
	}

	// Ownership enforced: another user cannot continue this conversation.
	if _, err := svc.Run(ctx, "u2", TurnInput{Message: "hi", ConversationID: conv.ID}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("cross-user continue: err = %v", err)
	}
}

func TestTurnService_HistoryWindowIsBounded(t *testing.T) {
	db := newServicesDB(t)
	ctx := context.Background()
	conv, err := repo.CreateConversation(ctx, db, "u1", "Long Chat")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	for i := 0; i < 25; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		if _, err := repo.CreateMessage(ctx, db, conv.ID, role, fmt.Sprintf("msg %d", i), false); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}

	model := &fakeModel{chunks: []string{"Noted."}}
	svc, runner := newTurnService(t, db, model, &fakeSource{})

	events, err := svc.Run(ctx, "u1", TurnInput{Message: "one more", ConversationID: conv.ID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	drain(t, events)
	runner.Wait()

	// One system prompt plus the 20 most recent messages; the older ones
	// fall out of the context window.
	model.mu.Lock()
	got := model.streamSize
	model.mu.Unlock()
	if got != 1+historyWindow {
		t.Fatalf("model received %d messages, want %d", got, 1+historyWindow)
	}
}

func Test_mergeIngredients(t *testing.T) {
	got := mergeIngredients([]string{"Eggs", " rice ", "eggs", ""}, []string{"Salt", "RICE", "Oil"})
	want := []string{"Eggs", "rice", "Salt", "Oil"}
	if len(got) != len(want) {
		t.Fatalf("merged = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("merged[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Cap holds even with a huge pantry.
	var pantry []string
	for i := 0; i < 100; i++ {
		pantry = append(pantry, fmt.Sprintf("item-%d", i))
	}
	capped := mergeIngredients([]string{"eggs"}, pantry)
	if len(capped) != maxGenerationIngredients {
		t.Fatalf("capped length = %d, want %d", len(capped), maxGenerationIngredients)
	}
}
