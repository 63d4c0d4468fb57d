package repositories

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/avatarctic/car-marketplace/internal/core/domain/listing"
)

func TestBuildSearchWhere_Empty(t *testing.T) {
	where, args := buildSearchWhere(&listing.Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildSearchWhere_NumbersPlaceholdersInOrder(t *testing.T) {
	seller := uuid.New()
	f := &listing.Filter{
		Status:     listing.StatusActive,
		Query:      "50%_off",
		Make:       "BMW",
		SellerID:   seller,
		MinPrice:   100,
		MaxYear:    2020,
		MaxMileage: 90000,
	}
	where, args := buildSearchWhere(f)

	assert.Equal(t,
		" WHERE status = $1"+
			" AND (title ILIKE $2 OR description ILIKE $2 OR make ILIKE $2 OR model ILIKE $2)"+
			" AND LOWER(make) = LOWER($3)"+
			" AND seller_id = $4"+
			" AND price_cents >= $5"+
			" AND year <= $6"+
			" AND mileage <= $7",
		where)
	assert.Equal(t, []any{listing.StatusActive, `%50\%\_off%`, "BMW", seller, int64(100), 2020, 90000}, args)
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "created_at DESC", orderBy(listing.SortNewest))
	assert.Equal(t, "price_cents ASC, created_at DESC", orderBy(listing.SortPriceAsc))
	assert.Equal(t, "year DESC, created_at DESC", orderBy(listing.SortYearDesc))
	assert.Equal(t, "created_at DESC", orderBy("unknown"))
}
