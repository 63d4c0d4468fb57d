package ports

import (
	"context"

	"github.com/avatarctic/car-marketplace/internal/core/domain/listing"
	"github.com/google/uuid"
)

// ListingRepository defines the interface for listing data operations
type ListingRepository interface {
	Create(ctx context.Context, l *listing.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error)
	Update(ctx context.Context, l *listing.Listing) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Search returns one page of listings matching a normalized filter plus the total match count.
	Search(ctx context.Context, filter *listing.Filter) (*listing.Page, error)
	FilterOptions(ctx context.Context) (*listing.FilterOptions, error)
}

// ListingService defines the interface for listing business logic
type ListingService interface {
	CreateListing(ctx context.Context, req *listing.CreateListingRequest) (*listing.Listing, error)
	GetListing(ctx context.Context, id uuid.UUID) (*listing.Listing, error)
	UpdateListing(ctx context.Context, id uuid.UUID, req *listing.UpdateListingRequest) (*listing.Listing, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status listing.Status) (*listing.Listing, error)
	DeleteListing(ctx context.Context, id uuid.UUID) error
	SearchListings(ctx context.Context, filter *listing.Filter) (*listing.Page, error)
	GetFilterOptions(ctx context.Context) (*listing.FilterOptions, error)
}
