package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"bhiv/hr-platform/internal/services"
)

const (
	ServiceName    = "BHIV HR Platform Gateway"
	ServiceVersion = "3.1.0"
)

// Dependencies is everything the HTTP layer needs from the service layer.
type Dependencies struct {
	APIKeySecret   string
	Matcher        services.MatcherService
	Runner         services.WorkflowRunner
	Tracker        services.WorkflowTracker
	Notifier       services.NotificationService
	Hub            *services.ProgressHub
	Log            *zap.Logger
	RequestLogging bool
}

func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      ServiceName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    1 << 20,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	if deps.RequestLogging {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	matchHandler := NewMatchHandler(deps.Matcher, deps.Log)
	workflowHandler := NewWorkflowHandler(deps.Runner, deps.Tracker, deps.Log)
	notificationHandler := NewNotificationHandler(deps.Notifier, deps.Log)
	progressHandler := NewProgressHandler(deps.Tracker, deps.Hub, deps.Log)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":            "healthy",
			"service":           ServiceName,
			"version":           ServiceVersion,
			"time":              time.Now().UTC(),
			"notification_mode": deps.Notifier.Mode(),
		})
	})

	auth := NewAuthMiddleware(deps.APIKeySecret, "header:"+fiber.HeaderAuthorization)

	match := app.Group("/v1/match", auth)
	match.Get("/:job_id/top", matchHandler.HandleTopMatches)
	match.Post("/batch", matchHandler.HandleBatch)

	workflows := app.Group("/workflows", auth)
	workflows.Post("/application/start", workflowHandler.HandleStartApplication)
	workflows.Get("/", workflowHandler.HandleList)
	workflows.Get("/:id/status", workflowHandler.HandleGetStatus)
	workflows.Post("/:id/cancel", workflowHandler.HandleCancel)

	tools := app.Group("/tools", auth)
	tools.Post("/send-notification", notificationHandler.HandleSend)

	// Browsers cannot set headers on a websocket handshake.
	app.Get("/ws/workflows/:id",
		NewAuthMiddleware(deps.APIKeySecret, "query:token"),
		progressHandler.RequireUpgrade,
		progressHandler.HandleStream(),
	)

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
