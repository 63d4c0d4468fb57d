package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	listings := api.Group("/listings")
	listings.GET("", s.searchListings)
	listings.POST("", s.createListing)
	listings.GET("/:id", s.getListing)
	listings.PUT("/:id", s.updateListing)
	listings.DELETE("/:id", s.deleteListing)
	listings.PATCH("/:id/status", s.updateListingStatus)

	api.GET("/filters", s.getFilterOptions)

	cache := api.Group("/cache")
	cache.GET("/stats", s.cacheStats)
	cache.DELETE("", s.clearCache)
}
