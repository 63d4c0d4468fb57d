package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/car-marketplace/internal/core/domain/listing"
	"github.com/avatarctic/car-marketplace/internal/core/ports"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/db"
)

const listingColumns = `id, seller_id, title, make, model, year, price_cents, mileage, fuel_type,
		transmission, body_type, color, location, description, image_urls, status, created_at, updated_at`

// ListingRepository implements the listing repository interface on PostgreSQL
type ListingRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewListingRepository creates a new listing repository
func NewListingRepository(database *db.Database, logger *logrus.Logger) ports.ListingRepository {
	return &ListingRepository{
		db:     database,
		logger: logger,
	}
}

// Create inserts a new listing
func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	query := `
		INSERT INTO listings (id, seller_id, title, make, model, year, price_cents, mileage, fuel_type,
			transmission, body_type, color, location, description, image_urls, status, created_at, updated_at)
		VALUES (:id, :seller_id, :title, :make, :model, :year, :price_cents, :mileage, :fuel_type,
			:transmission, :body_type, :color, :location, :description, :image_urls, :status, :created_at, :updated_at)`

	if _, err := r.db.DB.NamedExecContext(ctx, query, l); err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// GetByID retrieves a listing by ID
func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	var l listing.Listing
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	if err := r.db.DB.GetContext(ctx, &l, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing %s: %w", id, listing.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get listing by ID: %w", err)
	}
	return &l, nil
}

// Update overwrites every mutable column of an existing listing
func (r *ListingRepository) Update(ctx context.Context, l *listing.Listing) error {
	query := `
		UPDATE listings
		SET title = :title, make = :make, model = :model, year = :year, price_cents = :price_cents,
		    mileage = :mileage, fuel_type = :fuel_type, transmission = :transmission, body_type = :body_type,
		    color = :color, location = :location, description = :description, image_urls = :image_urls,
		    status = :status, updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.DB.NamedExecContext(ctx, query, l)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return expectAffected(result, l.ID)
}

// Delete removes a listing by ID
func (r *ListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return expectAffected(result, id)
}

func expectAffected(result sql.Result, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("listing %s: %w", id, listing.ErrNotFound)
	}
	return nil
}

// Search returns one page of listings plus the total number of matches
func (r *ListingRepository) Search(ctx context.Context, f *listing.Filter) (*listing.Page, error) {
	where, args := buildSearchWhere(f)

	var total int
	if err := r.db.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM listings`+where, args...); err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM listings%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		listingColumns, where, orderBy(f.Sort), len(args)+1, len(args)+2)
	listings := []*listing.Listing{}
	if err := r.db.DB.SelectContext(ctx, &listings, query, append(args, f.Limit, f.Offset())...); err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}

	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"total": total, "returned": len(listings), "page": f.Page}).Debug("listing search executed")
	}
	return &listing.Page{Listings: listings, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// FilterOptions aggregates the distinct values present in active listings
func (r *ListingRepository) FilterOptions(ctx context.Context) (*listing.FilterOptions, error) {
	opts := &listing.FilterOptions{}
	distinct := []struct {
		column string
		dest   *[]string
	}{
		{"make", &opts.Makes},
		{"body_type", &opts.BodyTypes},
		{"fuel_type", &opts.FuelTypes},
		{"transmission", &opts.Transmissions},
	}
	for _, d := range distinct {
		values := []string{}
		query := fmt.Sprintf(`SELECT DISTINCT %[1]s FROM listings WHERE status = $1 ORDER BY %[1]s`, d.column)
		if err := r.db.DB.SelectContext(ctx, &values, query, listing.StatusActive); err != nil {
			return nil, fmt.Errorf("failed to load %s options: %w", d.column, err)
		}
		*d.dest = values
	}

	var ranges struct {
		MinPrice int64 `db:"min_price"`
		MaxPrice int64 `db:"max_price"`
		MinYear  int   `db:"min_year"`
		MaxYear  int   `db:"max_year"`
	}
	query := `
		SELECT COALESCE(MIN(price_cents), 0) AS min_price, COALESCE(MAX(price_cents), 0) AS max_price,
		       COALESCE(MIN(year), 0) AS min_year, COALESCE(MAX(year), 0) AS max_year
		FROM listings WHERE status = $1`
	if err := r.db.DB.GetContext(ctx, &ranges, query, listing.StatusActive); err != nil {
		return nil, fmt.Errorf("failed to load filter ranges: %w", err)
	}
	opts.MinPrice, opts.MaxPrice = ranges.MinPrice, ranges.MaxPrice
	opts.MinYear, opts.MaxYear = ranges.MinYear, ranges.MaxYear
	return opts, nil
}

// buildSearchWhere renders the filter as a WHERE clause with positional arguments.
func buildSearchWhere(f *listing.Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.Query != "" {
		add("(title ILIKE ? OR description ILIKE ? OR make ILIKE ? OR model ILIKE ?)", "%"+likeEscaper.Replace(f.Query)+"%")
	}
	if f.Make != "" {
		add("LOWER(make) = LOWER(?)", f.Make)
	}
	if f.Model != "" {
		add("LOWER(model) = LOWER(?)", f.Model)
	}
	if f.BodyType != "" {
		add("body_type = ?", f.BodyType)
	}
	if f.FuelType != "" {
		add("fuel_type = ?", f.FuelType)
	}
	if f.Transmission != "" {
		add("transmission = ?", f.Transmission)
	}
	if f.SellerID != uuid.Nil {
		add("seller_id = ?", f.SellerID)
	}
	if f.MinPrice > 0 {
		add("price_cents >= ?", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		add("price_cents <= ?", f.MaxPrice)
	}
	if f.MinYear > 0 {
		add("year >= ?", f.MinYear)
	}
	if f.MaxYear > 0 {
		add("year <= ?", f.MaxYear)
	}
	if f.MaxMileage > 0 {
		add("mileage <= ?", f.MaxMileage)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func orderBy(s listing.SortOrder) string {
	switch s {
	case listing.SortPriceAsc:
		return "price_cents ASC, created_at DESC"
	case listing.SortPriceDesc:
		return "price_cents DESC, created_at DESC"
	case listing.SortMileageAsc:
		return "mileage ASC, created_at DESC"
	case listing.SortYearDesc:
		return "year DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}
