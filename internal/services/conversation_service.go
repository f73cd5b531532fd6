// Package services – ConversationService
//
// This file implements ConversationService, the application-level component
// that owns read access to conversations and their message history. Writes
// to conversations happen through the turn pipeline; this service covers
// listing, history paging, renaming, and closing.
//
// Conversation titles are derived from the opening user message: stopwords
// are dropped, the remainder is title-cased, and the result clipped to a
// display-friendly length.

package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/repo"
)

const (
	defaultConversationTitle = "New conversation"
	titleMaxRunes            = 60
	titleMaxWords            = 8
)

var titleWordRE = regexp.MustCompile(`[\p{L}\p{N}']+`)

// titleStopWords are filler words dropped when deriving a conversation title.
var titleStopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "i": {}, "i'm": {}, "ive": {}, "i've": {},
	"my": {}, "me": {}, "we": {}, "have": {}, "has": {}, "had": {}, "got": {},
	"some": {}, "and": {}, "or": {}, "to": {}, "of": {}, "for": {}, "with": {},
	"can": {}, "could": {}, "would": {}, "like": {}, "want": {}, "need": {},
	"please": {}, "hi": {}, "hey": {}, "hello": {}, "what": {}, "whats": {},
	"make": {}, "cook": {}, "do": {}, "you": {},
}

// ConversationService coordinates conversation listing and history access.
type ConversationService struct {
	DB *gorm.DB
}

// List returns one page of the user's conversations, most recently active
// first, together with the total count for pagination headers.
func (s *ConversationService) List(ctx context.Context, userID string, offset, limit int) ([]domain.Conversation, int64, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page.offset", offset),
			attribute.Int("page.limit", limit),
		),
	)
	defer span.End()

	total, err := repo.CountConversations(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Conversation{}, 0, nil
	}
	items, err := repo.ListConversationsPage(ctx, s.DB, userID, offset, limit)
	return items, total, err
}

// ListMessages returns one page of a conversation's messages in
// chronological order. The conversation must belong to the user.
func (s *ConversationService) ListMessages(ctx context.Context, userID, conversationID string, offset, limit int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "ListMessages",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("conversation.id", conversationID),
		),
	)
	defer span.End()

	if _, err := repo.GetConversation(ctx, s.DB, conversationID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrConversationNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}
	items, err := repo.ListMessagesPage(ctx, s.DB, conversationID, offset, limit)
	return items, total, err
}

// Rename sets a user-chosen title on a conversation.
func (s *ConversationService) Rename(ctx context.Context, userID, conversationID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTurn
	}
	title = clipTitle(title)
	err := repo.UpdateConversationTitle(ctx, s.DB, conversationID, userID, title)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrConversationNotFound
	}
	return err
}

// Complete marks a conversation as finished. Completed conversations remain
// readable but the client stops offering them as the active thread.
func (s *ConversationService) Complete(ctx context.Context, userID, conversationID string) error {
	err := repo.UpdateConversationStatus(ctx, s.DB, conversationID, userID, domain.ConversationCompleted)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrConversationNotFound
	}
	return err
}

// conversationTitleFrom derives a concise title from the opening message.
// Photo-only openings fall back to the default title.
func conversationTitleFrom(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return defaultConversationTitle
	}
	toks := titleWordRE.FindAllString(strings.ToLower(message), -1)
	if len(toks) == 0 {
		return defaultConversationTitle
	}

	titleCaser := cases.Title(language.English)
	out := make([]string, 0, titleMaxWords)
	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= titleMaxWords {
			break
		}
	}
	if len(out) == 0 {
		return defaultConversationTitle
	}
	return clipTitle(strings.Join(out, " "))
}

func clipTitle(title string) string {
	if utf8.RuneCountInString(title) > titleMaxRunes {
		return string([]rune(title)[:titleMaxRunes])
	}
	return title
}
