package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/car-marketplace/internal/core/domain/listing"
	"github.com/avatarctic/car-marketplace/internal/core/ports"
)

type ListingService struct {
	repo   ports.ListingRepository
	logger *logrus.Logger
	now    func() time.Time
}

func NewListingService(repo ports.ListingRepository, logger *logrus.Logger) ports.ListingService {
	return &ListingService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *ListingService) CreateListing(ctx context.Context, req *listing.CreateListingRequest) (*listing.Listing, error) {
	now := s.now().UTC()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	images := req.ImageURLs
	if images == nil {
		images = []string{}
	}
	l := &listing.Listing{
		ID:           uuid.New(),
		SellerID:     req.SellerID,
		Title:        req.Title,
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		PriceCents:   req.PriceCents,
		Mileage:      req.Mileage,
		FuelType:     req.FuelType,
		Transmission: req.Transmission,
		BodyType:     req.BodyType,
		Color:        req.Color,
		Location:     req.Location,
		Description:  req.Description,
		ImageURLs:    pq.StringArray(images),
		Status:       listing.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"seller_id": req.SellerID, "make": req.Make, "model": req.Model}).WithError(err).Error("failed to create listing in repo")
		}
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"id": l.ID, "seller_id": l.SellerID}).Info("listing created")
	}
	return l, nil
}

func (s *ListingService) GetListing(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ListingService) UpdateListing(ctx context.Context, id uuid.UUID, req *listing.UpdateListingRequest) (*listing.Listing, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.Apply(l, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, l); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"id": id}).WithError(err).Error("failed to update listing in repo")
		}
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"id": id}).Info("listing updated")
	}
	return l, nil
}

func (s *ListingService) UpdateStatus(ctx context.Context, id uuid.UUID, status listing.Status) (*listing.Listing, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", listing.ErrInvalid, status)
	}
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status == status {
		return l, nil
	}
	if !l.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", listing.ErrInvalidTransition, l.Status, status)
	}

	previous := l.Status
	l.Status = status
	l.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to update listing status: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"id": id, "from": previous, "to": status}).Info("listing status changed")
	}
	return l, nil
}

func (s *ListingService) DeleteListing(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"id": id}).Info("listing deleted")
	}
	return nil
}

func (s *ListingService) SearchListings(ctx context.Context, filter *listing.Filter) (*listing.Page, error) {
	if filter == nil {
		filter = &listing.Filter{}
	}
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	return s.repo.Search(ctx, filter)
}

func (s *ListingService) GetFilterOptions(ctx context.Context) (*listing.FilterOptions, error) {
	return s.repo.FilterOptions(ctx)
}
