package repositories_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"github.com/avatarctic/car-marketplace/configs"
	"github.com/avatarctic/car-marketplace/internal/core/domain/listing"
	"github.com/avatarctic/car-marketplace/internal/core/ports"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/db"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/repositories"
)

// ListingRepositorySuite runs against a real Postgres. It is skipped unless
// TEST_DATABASE_DSN points at a disposable database.
type ListingRepositorySuite struct {
	suite.Suite
	database *db.Database
	repo     ports.ListingRepository
	seller   uuid.UUID
}

func (s *ListingRepositorySuite) SetupSuite() {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		s.T().Skip("TEST_DATABASE_DSN not set")
	}
	database, err := db.Open(context.Background(), &configs.DatabaseConfig{DSN: dsn, MaxOpenConns: 4}, nil)
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate("../../../migrations"))
	s.database = database
	s.repo = repositories.NewListingRepository(database, nil)
}

func (s *ListingRepositorySuite) TearDownSuite() {
	if s.database != nil {
		_ = s.database.Close()
	}
}

func (s *ListingRepositorySuite) SetupTest() {
	s.seller = uuid.New()
}

func (s *ListingRepositorySuite) TearDownTest() {
	if s.database != nil {
		_, _ = s.database.DB.Exec(`DELETE FROM listings WHERE seller_id = $1`, s.seller)
	}
}

func (s *ListingRepositorySuite) insert(brand, model string, year int, price int64, status listing.Status) *listing.Listing {
	now := time.Now().UTC().Truncate(time.Microsecond)
	l := &listing.Listing{
		ID:           uuid.New(),
		SellerID:     s.seller,
		Title:        brand + " " + model,
		Make:         brand,
		Model:        model,
		Year:         year,
		PriceCents:   price,
		FuelType:     listing.FuelDiesel,
		Transmission: listing.TransmissionManual,
		BodyType:     listing.BodyWagon,
		ImageURLs:    pq.StringArray{"https://img.example/1.jpg"},
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.repo.Create(context.Background(), l))
	return l
}

func (s *ListingRepositorySuite) TestCreateGetUpdateDelete() {
	ctx := context.Background()
	l := s.insert("Volvo", "V70", 2008, 350000, listing.StatusActive)

	got, err := s.repo.GetByID(ctx, l.ID)
	s.Require().NoError(err)
	s.Equal("V70", got.Model)
	s.Equal(pq.StringArray{"https://img.example/1.jpg"}, got.ImageURLs)

	got.PriceCents = 330000
	got.Status = listing.StatusSold
	s.Require().NoError(s.repo.Update(ctx, got))
	got, err = s.repo.GetByID(ctx, l.ID)
	s.Require().NoError(err)
	s.Equal(int64(330000), got.PriceCents)
	s.Equal(listing.StatusSold, got.Status)

	s.Require().NoError(s.repo.Delete(ctx, l.ID))
	_, err = s.repo.GetByID(ctx, l.ID)
	s.ErrorIs(err, listing.ErrNotFound)
	s.ErrorIs(s.repo.Delete(ctx, l.ID), listing.ErrNotFound)
	s.ErrorIs(s.repo.Update(ctx, l), listing.ErrNotFound)
}

func (s *ListingRepositorySuite) TestSearchFiltersSortsAndPages() {
	ctx := context.Background()
	s.insert("Volvo", "V70", 2008, 350000, listing.StatusActive)
	s.insert("Volvo", "XC90", 2019, 4200000, listing.StatusActive)
	s.insert("Skoda", "Octavia", 2016, 1100000, listing.StatusActive)
	s.insert("Volvo", "240", 1990, 200000, listing.StatusSold)

	f := &listing.Filter{SellerID: s.seller, Make: "volvo", Sort: listing.SortPriceAsc, Limit: 1}
	s.Require().NoError(f.Normalize())
	page, err := s.repo.Search(ctx, f)
	s.Require().NoError(err)
	s.Equal(2, page.Total)
	s.Require().Len(page.Listings, 1)
	s.Equal("V70", page.Listings[0].Model)

	f.Page = 2
	page, err = s.repo.Search(ctx, f)
	s.Require().NoError(err)
	s.Require().Len(page.Listings, 1)
	s.Equal("XC90", page.Listings[0].Model)

	f = &listing.Filter{SellerID: s.seller, Query: "octa", MinYear: 2010}
	s.Require().NoError(f.Normalize())
	page, err = s.repo.Search(ctx, f)
	s.Require().NoError(err)
	s.Equal(1, page.Total)
}

func (s *ListingRepositorySuite) TestFilterOptionsIncludeActiveListings() {
	s.insert("Lada", "Niva", 2021, 900000, listing.StatusActive)

	opts, err := s.repo.FilterOptions(context.Background())
	s.Require().NoError(err)
	s.Contains(opts.Makes, "Lada")
	s.Contains(opts.BodyTypes, string(listing.BodyWagon))
	s.LessOrEqual(opts.MinPrice, int64(900000))
	s.GreaterOrEqual(opts.MaxYear, 2021)
}

func TestListingRepositorySuite(t *testing.T) {
	suite.Run(t, new(ListingRepositorySuite))
}
