// README: API gateway; registers gin routes and delegates to module services.
package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skyplan/internal/http/handlers"
	"skyplan/internal/http/middleware"
	"skyplan/internal/infra"
	"skyplan/internal/modules/aiusage"
	"skyplan/internal/modules/assistant"
	"skyplan/internal/modules/auth"
	"skyplan/internal/modules/itinerary"
	"skyplan/internal/modules/queryparse"
	"skyplan/internal/modules/search"
)

type RouterDeps struct {
	Logger   *zap.Logger
	Verifier infra.TokenVerifier

	CORSOrigins []string
	RatePerMin  int
	FlowTimeout time.Duration

	Parser      *queryparse.Service
	Flights     search.Provider
	Itineraries *itinerary.Service
	Sessions    *assistant.Sessions
	Auth        *auth.Service
	Usage       *aiusage.Service
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logging(logger), cors.New(corsConfig(deps.CORSOrigins)))
	if deps.RatePerMin > 0 {
		r.Use(middleware.NewRateLimiter(deps.RatePerMin).Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")
	optional := middleware.OptionalAuth(deps.Verifier)
	required := middleware.Auth(deps.Verifier)

	flights := handlers.NewFlightHandler(deps.Parser, deps.Flights, deps.Usage, deps.FlowTimeout)
	api.POST("/flights/parse", optional, flights.Parse)
	api.GET("/flights", optional, flights.Search)

	itineraries := handlers.NewItineraryHandler(deps.Itineraries, deps.Usage, deps.FlowTimeout)
	api.POST("/itineraries", optional, itineraries.Create)
	api.GET("/itineraries", required, itineraries.List)
	api.GET("/itineraries/:id", required, itineraries.Get)

	conversations := handlers.NewAssistantHandler(deps.Sessions, deps.Usage, deps.FlowTimeout)
	api.POST("/assistant/conversations", optional, conversations.Create)
	api.GET("/assistant/conversations/:id", optional, conversations.Get)
	api.POST("/assistant/conversations/:id/messages", optional, conversations.Message)

	accounts := handlers.NewAuthHandler(deps.Auth, deps.Usage)
	api.POST("/auth/signup", accounts.SignUp)
	api.POST("/auth/signin", accounts.SignIn)
	api.POST("/auth/google", accounts.Google)
	api.POST("/auth/signout", required, accounts.SignOut)
	api.GET("/auth/me", required, accounts.Me)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
