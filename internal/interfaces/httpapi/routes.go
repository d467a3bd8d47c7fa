package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"whereis/internal/infrastructure/metrics"
)

type Dependencies struct {
	Resolver PositionResolver
	Linker   Linker
	Metrics  *metrics.Collector
	Chat     ChatOptions
	Name     string
	Version  string
	Now      func() time.Time
}

type Handlers struct {
	Health   *HealthHandler
	Position *PositionHandler
	Chat     *ChatHandler
	Stream   *StreamHandler
}

func NewHandlers(deps *Dependencies) *Handlers {
	positions := NewPositionHandler(deps.Resolver, deps.Linker, deps.Now)
	return &Handlers{
		Health:   NewHealthHandler(deps.Name, deps.Version),
		Position: positions,
		Chat:     NewChatHandler(deps.Resolver, deps.Linker, deps.Chat, deps.Now),
		Stream:   NewStreamHandler(positions),
	}
}

// NewServer builds an echo instance with middleware and all routes.
// chatEnabled controls whether the webhook route is registered.
func NewServer(deps *Dependencies, chatEnabled bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	SetupMiddleware(e, deps.Metrics)
	RegisterRoutes(e, NewHandlers(deps), deps.Metrics, chatEnabled)
	return e
}

func RegisterRoutes(e *echo.Echo, h *Handlers, m *metrics.Collector, chatEnabled bool) {
	e.GET("/health", h.Health.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	v1 := e.Group("/v1")
	v1.GET("/assets/:id/position", h.Position.HandleGetPosition)
	v1.GET("/stream", h.Stream.HandleStream)
	if chatEnabled {
		v1.POST("/chat/webhook", h.Chat.HandleWebhook)
	}
}

func SetupMiddleware(e *echo.Echo, m *metrics.Collector) {
	e.HTTPErrorHandler = ErrorHandler
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(m.Middleware())
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			res := c.Response()
			log.Info().
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", res.Status).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
			return nil
		}
	}
}
