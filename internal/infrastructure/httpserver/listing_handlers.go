package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/avatarctic/car-marketplace/internal/core/domain/listing"
)

// serviceError maps domain errors onto HTTP responses. Anything unexpected
// is logged and reported as a 500 without leaking details.
func (s *Server) serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, listing.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "listing not found")
	case errors.Is(err, listing.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, listing.ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if s.logger != nil {
		s.logger.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func parseListingID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid listing ID")
	}
	return id, nil
}

func (s *Server) searchListings(c echo.Context) error {
	var filter listing.Filter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if raw := c.QueryParam("seller_id"); raw != "" {
		sellerID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid seller ID")
		}
		filter.SellerID = sellerID
	}
	page, err := s.listingSvc.SearchListings(c.Request().Context(), &filter)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) getListing(c echo.Context) error {
	id, err := parseListingID(c)
	if err != nil {
		return err
	}
	l, err := s.listingSvc.GetListing(c.Request().Context(), id)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (s *Server) createListing(c echo.Context) error {
	var req listing.CreateListingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	l, err := s.listingSvc.CreateListing(c.Request().Context(), &req)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (s *Server) updateListing(c echo.Context) error {
	id, err := parseListingID(c)
	if err != nil {
		return err
	}
	var req listing.UpdateListingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	l, err := s.listingSvc.UpdateListing(c.Request().Context(), id, &req)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (s *Server) updateListingStatus(c echo.Context) error {
	id, err := parseListingID(c)
	if err != nil {
		return err
	}
	var req listing.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}
	l, err := s.listingSvc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (s *Server) deleteListing(c echo.Context) error {
	id, err := parseListingID(c)
	if err != nil {
		return err
	}
	if err := s.listingSvc.DeleteListing(c.Request().Context(), id); err != nil {
		return s.serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getFilterOptions(c echo.Context) error {
	opts, err := s.listingSvc.GetFilterOptions(c.Request().Context())
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, opts)
}
