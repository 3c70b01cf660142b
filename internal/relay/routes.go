package relay

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/artranslate/relay/internal/auth"
)

// InitRoutes initializes the relay HTTP surface: health, metrics, and the
// /translate WebSocket endpoint. A nil authenticator leaves /translate open;
// otherwise clients must present a valid token query parameter.
func InitRoutes(e *echo.Echo, hub *Hub, authenticator *auth.Authenticator, gatherer prometheus.Gatherer, logger *zap.Logger) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "translation-relay",
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	e.GET("/translate", func(c echo.Context) error {
		if authenticator != nil {
			token := c.QueryParam("token")
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "missing token",
				})
			}
			if _, err := authenticator.ValidateToken(token); err != nil {
				logger.Warn("Rejected connection with invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "invalid token",
				})
			}
		}
		return HandleWebSocket(hub, c, logger)
	})
}
