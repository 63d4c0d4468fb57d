package listing

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*limit well inside the range of an int.
	MaxPage = 100_000
)

type SortOrder string

const (
	SortNewest     SortOrder = "newest"
	SortPriceAsc   SortOrder = "price_asc"
	SortPriceDesc  SortOrder = "price_desc"
	SortMileageAsc SortOrder = "mileage_asc"
	SortYearDesc   SortOrder = "year_desc"
)

// Filter narrows a listing search. Zero values mean "no constraint".
type Filter struct {
	Query        string       `query:"q"`
	Make         string       `query:"make"`
	Model        string       `query:"model"`
	BodyType     BodyType     `query:"body_type"`
	FuelType     FuelType     `query:"fuel_type"`
	Transmission Transmission `query:"transmission"`
	SellerID     uuid.UUID    `query:"-"`
	Status       Status       `query:"status"`
	MinPrice     int64        `query:"min_price"`
	MaxPrice     int64        `query:"max_price"`
	MinYear      int          `query:"min_year"`
	MaxYear      int          `query:"max_year"`
	MaxMileage   int          `query:"max_mileage"`
	Sort         SortOrder    `query:"sort"`
	Page         int          `query:"page"`
	Limit        int          `query:"limit"`
}

// Normalize fills paging and sort defaults and rejects contradictory ranges.
// Searches default to active listings.
func (f *Filter) Normalize() error {
	f.Query = strings.TrimSpace(f.Query)
	f.Make = strings.TrimSpace(f.Make)
	f.Model = strings.TrimSpace(f.Model)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		return fmt.Errorf("%w: page cannot exceed %d", ErrInvalid, MaxPage)
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	switch f.Sort {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortMileageAsc, SortYearDesc:
	default:
		return fmt.Errorf("%w: unknown sort %q", ErrInvalid, f.Sort)
	}
	if f.Status == "" {
		f.Status = StatusActive
	} else if !f.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, f.Status)
	}
	if f.BodyType != "" && !f.BodyType.Valid() {
		return fmt.Errorf("%w: unknown body type %q", ErrInvalid, f.BodyType)
	}
	if f.FuelType != "" && !f.FuelType.Valid() {
		return fmt.Errorf("%w: unknown fuel type %q", ErrInvalid, f.FuelType)
	}
	if f.Transmission != "" && !f.Transmission.Valid() {
		return fmt.Errorf("%w: unknown transmission %q", ErrInvalid, f.Transmission)
	}
	if f.MinPrice < 0 || f.MaxPrice < 0 || f.MaxMileage < 0 {
		return fmt.Errorf("%w: price and mileage bounds cannot be negative", ErrInvalid)
	}
	if f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return fmt.Errorf("%w: min_price exceeds max_price", ErrInvalid)
	}
	if f.MaxYear > 0 && f.MinYear > f.MaxYear {
		return fmt.Errorf("%w: min_year exceeds max_year", ErrInvalid)
	}
	return nil
}

// Offset returns the row offset for the current page.
func (f *Filter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	page := f.Page
	if page > MaxPage {
		page = MaxPage
	}
	return (page - 1) * f.Limit
}

// CacheKey renders the filter as a stable, order-independent string.
func (f *Filter) CacheKey() string {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("q", strings.ToLower(f.Query))
	set("make", strings.ToLower(f.Make))
	set("model", strings.ToLower(f.Model))
	set("body_type", string(f.BodyType))
	set("fuel_type", string(f.FuelType))
	set("transmission", string(f.Transmission))
	if f.SellerID != uuid.Nil {
		set("seller_id", f.SellerID.String())
	}
	set("status", string(f.Status))
	if f.MinPrice > 0 {
		set("min_price", strconv.FormatInt(f.MinPrice, 10))
	}
	if f.MaxPrice > 0 {
		set("max_price", strconv.FormatInt(f.MaxPrice, 10))
	}
	if f.MinYear > 0 {
		set("min_year", strconv.Itoa(f.MinYear))
	}
	if f.MaxYear > 0 {
		set("max_year", strconv.Itoa(f.MaxYear))
	}
	if f.MaxMileage > 0 {
		set("max_mileage", strconv.Itoa(f.MaxMileage))
	}
	set("sort", string(f.Sort))
	set("page", strconv.Itoa(f.Page))
	set("limit", strconv.Itoa(f.Limit))
	// Encode sorts by key.
	return v.Encode()
}

// Page is one page of search results.
type Page struct {
	Listings []*Listing `json:"listings"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}

// FilterOptions feeds the search sidebar with the values present in active listings.
type FilterOptions struct {
	Makes         []string `json:"makes"`
	BodyTypes     []string `json:"body_types"`
	FuelTypes     []string `json:"fuel_types"`
	Transmissions []string `json:"transmissions"`
	MinPrice      int64    `json:"min_price"`
	MaxPrice      int64    `json:"max_price"`
	MinYear       int      `json:"min_year"`
	MaxYear       int      `json:"max_year"`
}
