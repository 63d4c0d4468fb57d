package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/avatarctic/car-marketplace/internal/core/domain/listing"
	"github.com/avatarctic/car-marketplace/internal/core/ports"
)

// ListingRepositoryMock is a lightweight mock for ListingRepository that counts calls
type ListingRepositoryMock struct {
	CreateFn        func(ctx context.Context, l *listing.Listing) error
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*listing.Listing, error)
	UpdateFn        func(ctx context.Context, l *listing.Listing) error
	DeleteFn        func(ctx context.Context, id uuid.UUID) error
	SearchFn        func(ctx context.Context, f *listing.Filter) (*listing.Page, error)
	FilterOptionsFn func(ctx context.Context) (*listing.FilterOptions, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ ports.ListingRepository = (*ListingRepositoryMock)(nil)

func (m *ListingRepositoryMock) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[name]++
}

// Calls returns how many times the named method was invoked
func (m *ListingRepositoryMock) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *ListingRepositoryMock) Create(ctx context.Context, l *listing.Listing) error {
	m.record("Create")
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}
func (m *ListingRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	m.record("GetByID")
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("listing %s: %w", id, listing.ErrNotFound)
}
func (m *ListingRepositoryMock) Update(ctx context.Context, l *listing.Listing) error {
	m.record("Update")
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, l)
	}
	return nil
}
func (m *ListingRepositoryMock) Delete(ctx context.Context, id uuid.UUID) error {
	m.record("Delete")
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}
func (m *ListingRepositoryMock) Search(ctx context.Context, f *listing.Filter) (*listing.Page, error) {
	m.record("Search")
	if m.SearchFn != nil {
		return m.SearchFn(ctx, f)
	}
	return &listing.Page{Listings: []*listing.Listing{}, Page: f.Page, Limit: f.Limit}, nil
}
func (m *ListingRepositoryMock) FilterOptions(ctx context.Context) (*listing.FilterOptions, error) {
	m.record("FilterOptions")
	if m.FilterOptionsFn != nil {
		return m.FilterOptionsFn(ctx)
	}
	return &listing.FilterOptions{}, nil
}

// ListingServiceMock mocks ports.ListingService
type ListingServiceMock struct {
	CreateListingFn    func(ctx context.Context, req *listing.CreateListingRequest) (*listing.Listing, error)
	GetListingFn       func(ctx context.Context, id uuid.UUID) (*listing.Listing, error)
	UpdateListingFn    func(ctx context.Context, id uuid.UUID, req *listing.UpdateListingRequest) (*listing.Listing, error)
	UpdateStatusFn     func(ctx context.Context, id uuid.UUID, status listing.Status) (*listing.Listing, error)
	DeleteListingFn    func(ctx context.Context, id uuid.UUID) error
	SearchListingsFn   func(ctx context.Context, f *listing.Filter) (*listing.Page, error)
	GetFilterOptionsFn func(ctx context.Context) (*listing.FilterOptions, error)
}

var _ ports.ListingService = (*ListingServiceMock)(nil)

func (m *ListingServiceMock) CreateListing(ctx context.Context, req *listing.CreateListingRequest) (*listing.Listing, error) {
	if m.CreateListingFn != nil {
		return m.CreateListingFn(ctx, req)
	}
	return &listing.Listing{ID: uuid.New()}, nil
}
func (m *ListingServiceMock) GetListing(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	if m.GetListingFn != nil {
		return m.GetListingFn(ctx, id)
	}
	return nil, listing.ErrNotFound
}
func (m *ListingServiceMock) UpdateListing(ctx context.Context, id uuid.UUID, req *listing.UpdateListingRequest) (*listing.Listing, error) {
	if m.UpdateListingFn != nil {
		return m.UpdateListingFn(ctx, id, req)
	}
	return &listing.Listing{ID: id}, nil
}
func (m *ListingServiceMock) UpdateStatus(ctx context.Context, id uuid.UUID, status listing.Status) (*listing.Listing, error) {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status)
	}
	return &listing.Listing{ID: id, Status: status}, nil
}
func (m *ListingServiceMock) DeleteListing(ctx context.Context, id uuid.UUID) error {
	if m.DeleteListingFn != nil {
		return m.DeleteListingFn(ctx, id)
	}
	return nil
}
func (m *ListingServiceMock) SearchListings(ctx context.Context, f *listing.Filter) (*listing.Page, error) {
	if m.SearchListingsFn != nil {
		return m.SearchListingsFn(ctx, f)
	}
	return &listing.Page{Listings: []*listing.Listing{}}, nil
}
func (m *ListingServiceMock) GetFilterOptions(ctx context.Context) (*listing.FilterOptions, error) {
	if m.GetFilterOptionsFn != nil {
		return m.GetFilterOptionsFn(ctx)
	}
	return &listing.FilterOptions{}, nil
}
