// README: Itinerary generation and saved-itinerary handlers.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"skyplan/internal/http/middleware"
	"skyplan/internal/modules/aiusage"
	"skyplan/internal/modules/itinerary"
)

type ItineraryHandler struct {
	itineraries *itinerary.Service
	call        flowCall
}

func NewItineraryHandler(svc *itinerary.Service, usage *aiusage.Service, timeout time.Duration) *ItineraryHandler {
	return &ItineraryHandler{itineraries: svc, call: flowCall{usage: usage, timeout: timeout}}
}

type itineraryResp struct {
	itinerary.Itinerary
	Saved bool `json:"saved"`
}

// Create handles POST /api/itineraries. Signed-in callers get the result saved.
func (h *ItineraryHandler) Create(c *gin.Context) {
	var prefs itinerary.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	uid := middleware.CallerUID(c)
	ctx, cancel := h.call.context(c, uid)
	defer cancel()

	it, err := h.itineraries.Generate(ctx, uid, prefs)
	if err != nil {
		writeFlowError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, itineraryResp{Itinerary: it, Saved: it.ID != ""})
}

// List handles GET /api/itineraries?limit=.
func (h *ItineraryHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	items, err := h.itineraries.List(c.Request.Context(), middleware.CallerUID(c), limit)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []itinerary.Itinerary{}
	}
	writeJSON(c, http.StatusOK, gin.H{"itineraries": items})
}

// Get handles GET /api/itineraries/:id.
func (h *ItineraryHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid itinerary id")
		return
	}
	it, err := h.itineraries.Get(c.Request.Context(), middleware.CallerUID(c), id)
	switch {
	case errors.Is(err, itinerary.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case err != nil:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(c, http.StatusOK, it)
	}
}
