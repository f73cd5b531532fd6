package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/llm"
	"github.com/adilkhanna/scratch-meal/internal/repo"
)

// memoryTranscriptLimit bounds how much conversation the extractor reads.
const memoryTranscriptLimit = 30

// memoryMinMessages is the minimum conversation length worth mining; shorter
// exchanges have nothing durable in them.
const memoryMinMessages = 4

// memoryMaxFacts caps how many facts a single extraction may add.
const memoryMaxFacts = 5

// MemoryService mines finished conversation turns for durable user facts.
// It runs detached from the request path: every failure is logged and
// swallowed so a memory hiccup never surfaces to the user.
type MemoryService struct {
	db    *gorm.DB
	model ChatModel
}

func NewMemoryService(db *gorm.DB, model ChatModel) *MemoryService {
	return &MemoryService{db: db, model: model}
}

// Extract reads the head of a conversation, asks the model for new facts
// about the user, and appends them to the user's memory. Extraction is
// idempotent in effect: already-known facts are listed in the prompt so the
// model does not repeat them, and the store evicts oldest entries beyond
// the cap. A malformed model response is a silent no-op.
func (s *MemoryService) Extract(ctx context.Context, userID, conversationID string) error {
	tr := otel.Tracer("services/MemoryService")
	ctx, span := tr.Start(ctx, "Extract",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("conversation.id", conversationID),
		),
	)
	defer span.End()

	messages, err := repo.ListEarliestMessages(ctx, s.db, conversationID, memoryTranscriptLimit)
	if err != nil {
		return fmt.Errorf("memory extraction: load transcript: %w", err)
	}
	if len(messages) < memoryMinMessages {
		log.Debug().Str("conversation_id", conversationID).Int("messages", len(messages)).
			Msg("conversation too short for memory extraction")
		return nil
	}

	existing, err := repo.ListMemoryFacts(ctx, s.db, userID)
	if err != nil {
		return fmt.Errorf("memory extraction: load facts: %w", err)
	}

	var transcript strings.Builder
	for _, m := range messages {
		transcript.WriteString(m.Role)
		transcript.WriteString(": ")
		transcript.WriteString(m.Content)
		transcript.WriteString("\n")
	}

	raw, err := s.model.CompleteJSON(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: buildMemoryPrompt(existing)},
		{Role: llm.RoleUser, Content: transcript.String()},
	}, 600, 0.3)
	if err != nil {
		return fmt.Errorf("memory extraction: completion: %w", err)
	}

	facts := parseMemoryFacts(userID, raw)
	if len(facts) == 0 {
		return nil
	}
	if err := repo.AppendMemoryFacts(ctx, s.db, userID, facts); err != nil {
		return fmt.Errorf("memory extraction: store facts: %w", err)
	}
	log.Info().Str("user_id", userID).Int("facts", len(facts)).Msg("memory facts extracted")
	return nil
}

// rawMemoryFact is one fact as the model emits it, before stamping.
type rawMemoryFact struct {
	Fact       string  `json:"fact"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// parseMemoryFacts validates the model output and stamps each fact with
// identity and defaults. The model is asked for {"facts": [...]} but a bare
// top-level array is accepted too. It never returns an error: unusable
// output means no facts.
func parseMemoryFacts(userID, raw string) []domain.MemoryFact {
	var items []rawMemoryFact
	var wrapper struct {
		Facts []rawMemoryFact `json:"facts"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err == nil && wrapper.Facts != nil {
		items = wrapper.Facts
	} else if arrErr := json.Unmarshal([]byte(raw), &items); arrErr != nil {
		log.Warn().Err(arrErr).Msg("memory extraction produced unparseable output")
		return nil
	}
	if len(items) > memoryMaxFacts {
		items = items[:memoryMaxFacts]
	}

	facts := make([]domain.MemoryFact, 0, len(items))
	for _, f := range items {
		text := strings.TrimSpace(f.Fact)
		if text == "" {
			continue
		}
		confidence := f.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 0.7
		}
		facts = append(facts, domain.MemoryFact{
			ID:         uuid.NewString(),
			UserID:     userID,
			Fact:       text,
			Category:   normalizeFactCategory(f.Category),
			Confidence: confidence,
			Source:     "conversation",
		})
	}
	return facts
}

func normalizeFactCategory(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case domain.FactHousehold:
		return domain.FactHousehold
	case domain.FactHealth:
		return domain.FactHealth
	case domain.FactTaste:
		return domain.FactTaste
	case domain.FactFeedback:
		return domain.FactFeedback
	default:
		return domain.FactPreference
	}
}
