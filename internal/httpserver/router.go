package httpserver

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// timeNow stamps normalized records; swapped in tests.
var timeNow = time.Now

// Deps carries the wired components the routes dispatch into.
type Deps struct {
	Engine lifecycleEngine
	// WebhookSecret is the Shopify app API secret the HMAC header is
	// computed with.
	WebhookSecret string
	// AllowedOrigins enables CORS for the browser-facing read endpoints.
	// Empty leaves CORS off; webhooks are server-to-server and unaffected.
	AllowedOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: deps.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &webhookHandler{engine: deps.Engine, secret: deps.WebhookSecret, logger: logger}
	hooks := router.Group("/webhooks")
	hooks.POST("/orders/create", h.ordersCreate)
	hooks.POST("/orders/updated", h.ordersUpdated)
	hooks.POST("/orders/fulfilled", h.ordersFulfilled)
	hooks.POST("/carts/create", h.cartsCreate)
	hooks.POST("/checkouts/create", h.checkoutsCreate)
	hooks.POST("/checkouts/update", h.checkoutsUpdate)
	hooks.POST("/compliance", h.compliance)

	return router
}
