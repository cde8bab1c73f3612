// README: Booking assistant conversation handlers.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"skyplan/internal/flow"
	"skyplan/internal/http/middleware"
	"skyplan/internal/modules/aiusage"
	"skyplan/internal/modules/assistant"
)

type AssistantHandler struct {
	sessions *assistant.Sessions
	call     flowCall
}

func NewAssistantHandler(sessions *assistant.Sessions, usage *aiusage.Service, timeout time.Duration) *AssistantHandler {
	return &AssistantHandler{sessions: sessions, call: flowCall{usage: usage, timeout: timeout}}
}

// Create handles POST /api/assistant/conversations.
func (h *AssistantHandler) Create(c *gin.Context) {
	conv, err := h.sessions.Start(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusServiceUnavailable, "conversation store unavailable")
		return
	}
	writeJSON(c, http.StatusCreated, conv)
}

// Get handles GET /api/assistant/conversations/:id.
func (h *AssistantHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid conversation id")
		return
	}
	conv, err := h.sessions.Get(c.Request.Context(), id, middleware.CallerUID(c))
	if err != nil {
		writeConversationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, conv)
}

type messageReq struct {
	Message string `json:"message"`
}

type messageResp struct {
	assistant.Outcome
	Conversation *assistant.Conversation `json:"conversation,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

// Message handles POST /api/assistant/conversations/:id/messages.
func (h *AssistantHandler) Message(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid conversation id")
		return
	}
	var req messageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	uid := middleware.CallerUID(c)
	ctx, cancel := h.call.context(c, uid)
	defer cancel()

	out, conv, err := h.sessions.Send(ctx, id, uid, req.Message)
	switch {
	case err == nil:
		writeJSON(c, http.StatusOK, messageResp{Outcome: out, Conversation: conv})
	case errors.Is(err, aiusage.ErrInsufficientTokens):
		writeFlowError(c, err)
	case out.Failed:
		// The turn was rolled back; the client shows the apology and may retry.
		_ = c.Error(err)
		writeJSON(c, http.StatusBadGateway, messageResp{Outcome: out, Error: "assistant unavailable"})
	default:
		writeConversationError(c, err)
	}
}

func writeConversationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, assistant.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, assistant.ErrConversationBusy):
		writeError(c, http.StatusConflict, err.Error())
	case flow.IsValidation(err):
		writeFlowError(c, err)
	default:
		_ = c.Error(err)
		writeError(c, http.StatusServiceUnavailable, "conversation store unavailable")
	}
}
