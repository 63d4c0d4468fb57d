package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func (s *Server) cacheStats(c echo.Context) error {
	if s.cache == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "cache not configured")
	}
	return c.JSON(http.StatusOK, s.cache.Stats(c.Request().Context()))
}

// clearCache drops every entry whose key contains the pattern; an absent
// pattern clears everything.
func (s *Server) clearCache(c echo.Context) error {
	if s.cache == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "cache not configured")
	}
	pattern := c.QueryParam("pattern")
	if pattern == "" {
		pattern = "*"
	}
	s.cache.Clear(c.Request().Context(), pattern)
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"pattern": pattern, "request_id": c.Response().Header().Get(echo.HeaderXRequestID)}).Info("cache cleared")
	}
	return c.JSON(http.StatusOK, map[string]string{"cleared": pattern})
}
