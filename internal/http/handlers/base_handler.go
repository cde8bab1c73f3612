// README: Base handler utilities (JSON helpers, error mapping, quota gate).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skyplan/internal/flow"
	"skyplan/internal/modules/aiusage"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// isValidID accepts the UUIDs issued for conversations and itineraries.
func isValidID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeFlowError maps flow and quota failures to HTTP status codes.
func writeFlowError(c *gin.Context, err error) {
	_ = c.Error(err)
	var verr *flow.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, aiusage.ErrInsufficientTokens):
		writeError(c, http.StatusTooManyRequests, err.Error())
	case flow.IsOutputContract(err):
		writeError(c, http.StatusBadGateway, "model returned an unusable answer")
	case flow.IsAdapter(err):
		writeError(c, http.StatusBadGateway, "model unavailable")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// flowCall bounds one flow-backed request.
type flowCall struct {
	usage   *aiusage.Service
	timeout time.Duration
}

// context derives the request context. For a signed-in caller it carries a
// flow gate that takes one quota token at the first model call that passes
// validation; later calls in the same request are free. Guests are not
// metered.
func (f flowCall) context(c *gin.Context, uid string) (context.Context, context.CancelFunc) {
	ctx := c.Request.Context()
	if f.usage.Enabled() && uid != "" {
		ctx = flow.WithGate(ctx, f.chargeOnce(uid))
	}
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}

func (f flowCall) chargeOnce(uid string) flow.Gate {
	var (
		once sync.Once
		err  error
	)
	return func(ctx context.Context) error {
		once.Do(func() { err = f.usage.UseToken(ctx, uid) })
		return err
	}
}
