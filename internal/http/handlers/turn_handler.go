// Turn HTTP handler.
//
// This file exposes the streaming endpoint that drives one conversational
// turn:
//   - POST /chat/turn   (SSE stream of text/generating/recipes/done/error)
//
// The handler validates the payload, opens the event stream from the turn
// service, and relays each event as a named SSE frame. Once streaming has
// begun, failures are delivered in-band as an `error` event because the
// status line is already on the wire.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adilkhanna/scratch-meal/internal/http/middleware"
	"github.com/adilkhanna/scratch-meal/internal/services"
)

// sseHeartbeat keeps idle proxies from closing the stream between model
// chunks and the generation phase.
const sseHeartbeat = 15 * time.Second

// TurnRequest is the JSON payload for one conversational turn.
type TurnRequest struct {
	// Message is the user's text. Optional when PhotoData is present.
	Message string `json:"message"`
	// PhotoData is an optional base64-encoded food photo.
	PhotoData string `json:"photoData,omitempty"`
	// ConversationID continues an existing conversation; empty starts one.
	ConversationID string `json:"conversationId,omitempty"`
}

// PostTurn godoc
// @ID          postTurn
// @Summary     Run a conversational turn (SSE)
// @Description Sends a user message (and optionally a photo) and streams the
// @Description assistant's reply as Server-Sent Events. Event types: text,
// @Description generating, recipes, done, error.
// @Tags        Chat
// @Accept      json
// @Produce     text/event-stream
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.TurnRequest  true  "Turn payload"
//
// @Success     200  {string} string "SSE stream"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chat/turn [post]
func (h *Handlers) PostTurn(c *gin.Context) {
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID != "" {
		if _, err := uuid.Parse(req.ConversationID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
			return
		}
	}

	events, err := h.turnSvc.Run(c.Request.Context(), userID(c), services.TurnInput{
		Message:        req.Message,
		PhotoData:      req.PhotoData,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyTurn):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message or photo is required")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("message too long: max %d runes", services.MaxMessageLen))
		case errors.Is(err, services.ErrConversationNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeTurnFailed, err.Error())
		}
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind nginx
	c.Status(http.StatusOK)

	flusher, canFlush := c.Writer.(http.Flusher)
	if !canFlush {
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"streaming unsupported\"}\n\n")
		return
	}

	writeEvent := func(event string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\n", event)
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
		middleware.CountSSEEvent(event)
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			switch ev.Type {
			case services.EventText:
				writeEvent(services.EventText, gin.H{"content": ev.Data})
			case services.EventRecipes:
				writeEvent(services.EventRecipes, gin.H{"recipes": ev.Data})
			default:
				writeEvent(ev.Type, ev.Data)
			}
			if ev.Type == services.EventDone || ev.Type == services.EventError {
				return
			}
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			flusher.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
