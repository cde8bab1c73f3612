// README: Flight query parsing and canned flight search handlers.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"skyplan/internal/http/middleware"
	"skyplan/internal/modules/aiusage"
	"skyplan/internal/modules/queryparse"
	"skyplan/internal/modules/search"
)

type FlightHandler struct {
	parser   *queryparse.Service
	provider search.Provider
	call     flowCall
}

func NewFlightHandler(parser *queryparse.Service, provider search.Provider, usage *aiusage.Service, timeout time.Duration) *FlightHandler {
	return &FlightHandler{parser: parser, provider: provider, call: flowCall{usage: usage, timeout: timeout}}
}

type parseReq struct {
	Query string `json:"query"`
}

type parseResp struct {
	queryparse.Result
	Empty bool `json:"empty"`
}

// Parse handles POST /api/flights/parse.
func (h *FlightHandler) Parse(c *gin.Context) {
	var req parseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.call.context(c, middleware.CallerUID(c))
	defer cancel()

	res, err := h.parser.Parse(ctx, req.Query)
	if err != nil {
		writeFlowError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, parseResp{Result: res, Empty: res.Empty()})
}

type searchResp struct {
	Query   string            `json:"query"`
	Parsed  queryparse.Result `json:"parsed"`
	Sort    search.SortOrder  `json:"sort"`
	Flights []search.Flight   `json:"flights"`
	Picks   search.Picks      `json:"picks"`
}

// Search handles GET /api/flights?q=&sort=. The query is parsed by the model
// before the search runs.
func (h *FlightHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		writeError(c, http.StatusBadRequest, "missing q")
		return
	}
	order := search.ParseSortOrder(c.Query("sort"))

	ctx, cancel := h.call.context(c, middleware.CallerUID(c))
	defer cancel()

	parsed, err := h.parser.Parse(ctx, q)
	if err != nil {
		writeFlowError(c, err)
		return
	}
	flights, err := h.provider.Search(ctx, q)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "flight search failed")
		return
	}
	if flights == nil {
		flights = []search.Flight{}
	}

	writeJSON(c, http.StatusOK, searchResp{
		Query:   q,
		Parsed:  parsed,
		Sort:    order,
		Flights: search.SortBy(flights, order),
		Picks:   search.SelectPicks(flights),
	})
}
