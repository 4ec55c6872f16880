package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"solana-token-exchange/internal/notify"
	"solana-token-exchange/internal/observability"
	"solana-token-exchange/internal/panel"
	"solana-token-exchange/internal/session"
	"solana-token-exchange/internal/storage"
	"solana-token-exchange/internal/storage/postgres"
	"solana-token-exchange/internal/wallet"
)

const requestIDHeader = "X-Request-ID"

// Deps aggregates shared dependencies required to wire routes.
// DB and Cache are optional and only used by the health check.
type Deps struct {
	Session *session.Provider
	Panels  *panel.Panels
	Feed    notify.Feed
	Journal *storage.Journal
	DB      *postgres.Pool
	Cache   *redis.Client
	// DefaultAdapter is used when a connect request names no adapter.
	DefaultAdapter string
	// Wallet holds the configured wallet secrets. Connect requests never
	// choose a keypair file; they may only supply a mnemonic.
	Wallet wallet.ConnectParams
	// AccessLog enables the plain text request log.
	AccessLog bool
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Session == nil || d.Panels == nil {
		return errors.New("session and panels are required")
	}
	if d.Feed == nil {
		d.Feed = notify.NewMemoryFeed(notify.DefaultTTL)
	}
	if d.DefaultAdapter == "" {
		d.DefaultAdapter = wallet.KeypairAdapter{}.Name()
	}

	app.Use(recover.New())
	app.Use(requestID())
	if d.AccessLog {
		// [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}

	h := &handler{deps: d}

	app.Get("/health", h.health)
	app.Get("/metrics", adaptor.HTTPHandler(observability.Handler()))

	api := app.Group("/api")
	api.Get("/page", h.page)

	sess := api.Group("/session")
	sess.Get("/", h.getSession)
	sess.Post("/connect", h.connect)
	sess.Post("/disconnect", h.disconnect)
	sess.Put("/network", h.setNetwork)
	sess.Post("/refresh", h.refreshBalance)
	sess.Post("/airdrop", h.airdrop)

	panels := api.Group("/panels")
	panels.Get("/create", h.getCreate)
	panels.Post("/create", h.submitCreate)
	panels.Post("/create/reset", h.resetCreate)
	panels.Get("/mint", h.getMint)
	panels.Post("/mint", h.submitMint)
	panels.Get("/send", h.getSend)
	panels.Post("/send", h.submitSend)
	panels.Post("/send/check", h.checkBalance)
	panels.Get("/balances", h.getBalances)
	panels.Post("/balances/refresh", h.refreshBalances)
	panels.Get("/wallet", h.getWallet)

	api.Get("/notifications", h.notifications)
	api.Get("/activity", h.activity)

	return nil
}

// requestID ensures each request has a stable request identifier.
func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Locals(requestIDHeader, reqID)
		return c.Next()
	}
}
