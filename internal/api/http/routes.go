package httpapi

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/i474232898/weather-proxy/internal/weather"
	"github.com/i474232898/weather-proxy/internal/weather/providers"
)

var validate = validator.New()

// Options configures the HTTP surface.
type Options struct {
	SecretAPIKey  string
	CacheTime     time.Duration
	RateLimitMax  int
	RateLimitTime time.Duration
	StaticIndex   string // served at "/" when set
}

// NewApp builds the Fiber app with global middleware and all routes.
func NewApp(service *weather.Service, opts Options, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "weather-proxy",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(limiter.New(limiter.Config{
		Max:        opts.RateLimitMax,
		Expiration: opts.RateLimitTime,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status": fiber.StatusTooManyRequests,
				"error":  "Too many requests, please try again later.",
			})
		},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-proxy",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if opts.StaticIndex != "" {
		app.Get("/", func(c *fiber.Ctx) error {
			return c.SendFile(opts.StaticIndex)
		})
	}

	RegisterRoutes(app, service, opts)
	return app
}

// RegisterRoutes wires the authenticated weather handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, opts Options) {
	auth := authenticate(opts.SecretAPIKey)

	responseCache := cache.New(cache.Config{
		Expiration: opts.CacheTime,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.CopyString(c.OriginalURL())
		},
	})

	app.Get("/getWeather", auth, responseCache, func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return err
		}

		result, err := service.Current(c.UserContext(), q.City)
		if err != nil {
			return upstreamError(err)
		}

		return c.JSON(result)
	})

	app.Get("/getSummary", auth, func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return err
		}

		summary, ok := service.Summary(q.City)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "No summary available for this city")
		}

		return c.JSON(fiber.Map{"summary": summary})
	})

	app.Get("/getAllSummaries", auth, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"summaries": service.AllSummaries()})
	})

	app.Get("/getAlerts", auth, func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{"alerts": service.Alerts(q.City)})
	})
}

// authenticate rejects requests whose x-api-key header does not match secret.
func authenticate(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("x-api-key")
		if key == "" || secret == "" || subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: Invalid API key")
		}
		return c.Next()
	}
}

// cityQuery holds the q query parameter naming a city.
type cityQuery struct {
	City string `validate:"required"`
}

func parseCityQuery(c *fiber.Ctx) (cityQuery, error) {
	// c.Query aliases the pooled request buffer; the city outlives the request.
	q := cityQuery{City: strings.TrimSpace(utils.CopyString(c.Query("q")))}
	if err := validate.Struct(q); err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, "City is required")
	}
	return q, nil
}

// upstreamError maps a failed fetch to the response the client sees.
func upstreamError(err error) error {
	var se *providers.StatusError
	switch {
	case errors.As(err, &se) && se.StatusCode == fiber.StatusTooManyRequests:
		return fiber.NewError(fiber.StatusTooManyRequests, "Weather API rate limit exceeded. Please try again later.")
	case errors.As(err, &se):
		msg := se.Message
		if msg == "" {
			msg = "An error occurred while fetching weather data."
		}
		return fiber.NewError(se.StatusCode, msg)
	case errors.Is(err, providers.ErrCircuitOpen):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Weather provider temporarily unavailable, try again later.")
	case errors.Is(err, weather.ErrInvalidPayload):
		return fiber.NewError(fiber.StatusBadGateway, "Weather provider returned an unusable response.")
	default:
		return fiber.NewError(fiber.StatusBadGateway, "Failed to fetch weather data.")
	}
}

// errorHandler renders every error as {"error": message} and logs server faults.
func errorHandler(log *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Something went wrong, try again later!"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Errorw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"request_id", c.Locals(requestid.ConfigDefault.ContextKey),
				"error", err,
			)
		}

		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
