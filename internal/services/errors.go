// Package services defines the business logic for dialogue turns, recipe
// generation, memory extraction, and the supporting profile/conversation/
// recipe operations. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import "errors"

var (
	// ErrConversationNotFound indicates that the requested conversation does
	// not exist or is not accessible to the current user.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrRecipeNotFound indicates that the requested recipe does not exist or
	// is not accessible to the current user.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrEmptyTurn is returned when a turn request carries neither a text
	// message nor a photo.
	ErrEmptyTurn = errors.New("message or photo is required")

	// ErrTooLong is returned when a turn message exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("message too long")

	// ErrInvalidRating is returned when a recipe rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrGenerationFailed is returned when the generation model produced no
	// usable recipe batch (empty completion or malformed JSON). It is a hard
	// error: the orchestrator never retries the model.
	ErrGenerationFailed = errors.New("recipe generation failed")

	// ErrInsufficientCandidates is returned by the grounded strategy when the
	// recipe source yields fewer usable candidates than a full batch needs.
	// The orchestrator treats it as a signal to try the next strategy.
	ErrInsufficientCandidates = errors.New("not enough grounded candidates")
)
