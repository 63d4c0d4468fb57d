package listing

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("listing not found")
	ErrInvalid           = errors.New("invalid listing")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// MinYear is the year of the first production automobile.
const MinYear = 1886

type Listing struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	SellerID     uuid.UUID      `json:"seller_id" db:"seller_id"`
	Title        string         `json:"title" db:"title"`
	Make         string         `json:"make" db:"make"`
	Model        string         `json:"model" db:"model"`
	Year         int            `json:"year" db:"year"`
	PriceCents   int64          `json:"price_cents" db:"price_cents"`
	Mileage      int            `json:"mileage" db:"mileage"`
	FuelType     FuelType       `json:"fuel_type" db:"fuel_type"`
	Transmission Transmission   `json:"transmission" db:"transmission"`
	BodyType     BodyType       `json:"body_type" db:"body_type"`
	Color        string         `json:"color" db:"color"`
	Location     string         `json:"location" db:"location"`
	Description  string         `json:"description" db:"description"`
	ImageURLs    pq.StringArray `json:"image_urls" db:"image_urls"`
	Status       Status         `json:"status" db:"status"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusActive   Status = "active"
	StatusSold     Status = "sold"
	StatusArchived Status = "archived"
)

// ValidTransitions returns the statuses reachable from s.
func (s Status) ValidTransitions() []Status {
	switch s {
	case StatusActive:
		return []Status{StatusSold, StatusArchived}
	case StatusSold:
		return []Status{StatusArchived}
	case StatusArchived:
		return []Status{StatusActive}
	default:
		return []Status{}
	}
}

func (s Status) IsValidTransition(next Status) bool {
	return slices.Contains(s.ValidTransitions(), next)
}

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusSold || s == StatusArchived
}

type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
	FuelLPG      FuelType = "lpg"
)

var fuelTypes = []FuelType{FuelPetrol, FuelDiesel, FuelHybrid, FuelElectric, FuelLPG}

func (f FuelType) Valid() bool { return slices.Contains(fuelTypes, f) }

type Transmission string

const (
	TransmissionManual    Transmission = "manual"
	TransmissionAutomatic Transmission = "automatic"
)

func (t Transmission) Valid() bool {
	return t == TransmissionManual || t == TransmissionAutomatic
}

type BodyType string

const (
	BodySedan       BodyType = "sedan"
	BodyHatchback   BodyType = "hatchback"
	BodySUV         BodyType = "suv"
	BodyCoupe       BodyType = "coupe"
	BodyConvertible BodyType = "convertible"
	BodyWagon       BodyType = "wagon"
	BodyPickup      BodyType = "pickup"
	BodyVan         BodyType = "van"
)

var bodyTypes = []BodyType{BodySedan, BodyHatchback, BodySUV, BodyCoupe, BodyConvertible, BodyWagon, BodyPickup, BodyVan}

func (b BodyType) Valid() bool { return slices.Contains(bodyTypes, b) }

// IsAvailable reports whether the car can still be bought.
func (l *Listing) IsAvailable() bool {
	return l.Status == StatusActive
}

// CanTransitionTo checks if the listing can move to a new status
func (l *Listing) CanTransitionTo(next Status) bool {
	return l.Status.IsValidTransition(next)
}

// CreateListingRequest represents the request to publish a new listing
type CreateListingRequest struct {
	SellerID     uuid.UUID    `json:"seller_id" validate:"required"`
	Title        string       `json:"title" validate:"required"`
	Make         string       `json:"make" validate:"required"`
	Model        string       `json:"model" validate:"required"`
	Year         int          `json:"year" validate:"required"`
	PriceCents   int64        `json:"price_cents" validate:"required"`
	Mileage      int          `json:"mileage"`
	FuelType     FuelType     `json:"fuel_type" validate:"required"`
	Transmission Transmission `json:"transmission" validate:"required"`
	BodyType     BodyType     `json:"body_type" validate:"required"`
	Color        string       `json:"color"`
	Location     string       `json:"location"`
	Description  string       `json:"description"`
	ImageURLs    []string     `json:"image_urls"`
}

// Validate checks a new listing; now bounds the model year.
func (r *CreateListingRequest) Validate(now time.Time) error {
	if r.SellerID == uuid.Nil {
		return fmt.Errorf("%w: seller_id is required", ErrInvalid)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if strings.TrimSpace(r.Make) == "" || strings.TrimSpace(r.Model) == "" {
		return fmt.Errorf("%w: make and model are required", ErrInvalid)
	}
	if err := validateYear(r.Year, now); err != nil {
		return err
	}
	if r.PriceCents <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalid)
	}
	if r.Mileage < 0 {
		return fmt.Errorf("%w: mileage cannot be negative", ErrInvalid)
	}
	if !r.FuelType.Valid() {
		return fmt.Errorf("%w: unknown fuel type %q", ErrInvalid, r.FuelType)
	}
	if !r.Transmission.Valid() {
		return fmt.Errorf("%w: unknown transmission %q", ErrInvalid, r.Transmission)
	}
	if !r.BodyType.Valid() {
		return fmt.Errorf("%w: unknown body type %q", ErrInvalid, r.BodyType)
	}
	return nil
}

// UpdateListingRequest represents a partial update; nil fields are left unchanged.
type UpdateListingRequest struct {
	Title        *string       `json:"title,omitempty"`
	Make         *string       `json:"make,omitempty"`
	Model        *string       `json:"model,omitempty"`
	Year         *int          `json:"year,omitempty"`
	PriceCents   *int64        `json:"price_cents,omitempty"`
	Mileage      *int          `json:"mileage,omitempty"`
	FuelType     *FuelType     `json:"fuel_type,omitempty"`
	Transmission *Transmission `json:"transmission,omitempty"`
	BodyType     *BodyType     `json:"body_type,omitempty"`
	Color        *string       `json:"color,omitempty"`
	Location     *string       `json:"location,omitempty"`
	Description  *string       `json:"description,omitempty"`
	ImageURLs    *[]string     `json:"image_urls,omitempty"`
}

// Apply copies the non-nil fields onto l, validating each one.
func (r *UpdateListingRequest) Apply(l *Listing, now time.Time) error {
	if r.Title != nil {
		if strings.TrimSpace(*r.Title) == "" {
			return fmt.Errorf("%w: title cannot be empty", ErrInvalid)
		}
		l.Title = *r.Title
	}
	if r.Make != nil {
		if strings.TrimSpace(*r.Make) == "" {
			return fmt.Errorf("%w: make cannot be empty", ErrInvalid)
		}
		l.Make = *r.Make
	}
	if r.Model != nil {
		if strings.TrimSpace(*r.Model) == "" {
			return fmt.Errorf("%w: model cannot be empty", ErrInvalid)
		}
		l.Model = *r.Model
	}
	if r.Year != nil {
		if err := validateYear(*r.Year, now); err != nil {
			return err
		}
		l.Year = *r.Year
	}
	if r.PriceCents != nil {
		if *r.PriceCents <= 0 {
			return fmt.Errorf("%w: price must be positive", ErrInvalid)
		}
		l.PriceCents = *r.PriceCents
	}
	if r.Mileage != nil {
		if *r.Mileage < 0 {
			return fmt.Errorf("%w: mileage cannot be negative", ErrInvalid)
		}
		l.Mileage = *r.Mileage
	}
	if r.FuelType != nil {
		if !r.FuelType.Valid() {
			return fmt.Errorf("%w: unknown fuel type %q", ErrInvalid, *r.FuelType)
		}
		l.FuelType = *r.FuelType
	}
	if r.Transmission != nil {
		if !r.Transmission.Valid() {
			return fmt.Errorf("%w: unknown transmission %q", ErrInvalid, *r.Transmission)
		}
		l.Transmission = *r.Transmission
	}
	if r.BodyType != nil {
		if !r.BodyType.Valid() {
			return fmt.Errorf("%w: unknown body type %q", ErrInvalid, *r.BodyType)
		}
		l.BodyType = *r.BodyType
	}
	if r.Color != nil {
		l.Color = *r.Color
	}
	if r.Location != nil {
		l.Location = *r.Location
	}
	if r.Description != nil {
		l.Description = *r.Description
	}
	if r.ImageURLs != nil {
		l.ImageURLs = pq.StringArray(*r.ImageURLs)
	}
	l.UpdatedAt = now
	return nil
}

// UpdateStatusRequest moves a listing through its lifecycle.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

// validateYear accepts model years up to one year ahead of now.
func validateYear(year int, now time.Time) error {
	if year < MinYear || year > now.Year()+1 {
		return fmt.Errorf("%w: year must be between %d and %d", ErrInvalid, MinYear, now.Year()+1)
	}
	return nil
}
