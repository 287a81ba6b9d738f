package server

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	apperrors "github.com/prismspecs/pi-captive/internal/errors"
)

// Visitors that go quiet are forgotten after this long; captive-portal
// clients churn constantly as people join and leave the network.
const visitorExpiry = 5 * time.Minute

// newRateLimiter caps request rates per client IP. Denied requests get the
// same error-response shape the rest of the API serves.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: visitorExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			limited := apperrors.RateLimitedError("rate limit exceeded")
			return c.JSON(limited.HTTPStatus(), limited.ToResponse())
		},
	})
}
