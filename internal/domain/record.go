package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Record represents one scraped catalog entry. Records are immutable inputs
// to the engine; merges produce new field sets instead of editing them.
type Record struct {
	ID            string    `json:"id" validate:"notblank"`
	Name          string    `json:"name" validate:"notblank"`
	Brand         string    `json:"brand,omitempty"`
	Type          string    `json:"type,omitempty"`
	Category      string    `json:"category,omitempty"`
	ABV           float64   `json:"abv,omitempty" validate:"gte=0,lte=100"`
	Price         float64   `json:"price,omitempty"`
	Volume        string    `json:"volume,omitempty"`
	Description   string    `json:"description,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	SourceURL     string    `json:"source_url,omitempty"`
	OriginCountry string    `json:"origin_country,omitempty"`
	Region        string    `json:"region,omitempty"`
	FlavorProfile []string  `json:"flavor_profile,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	// Age and IsLiqueur are explicit attribute overrides supplied by the
	// upstream extractor. When zero they are derived from the name.
	Age       int  `json:"age,omitempty" validate:"gte=0"`
	IsLiqueur bool `json:"is_liqueur,omitempty"`
}

// HasPrice reports whether the record carries a usable price
func (r *Record) HasPrice() bool {
	return r.Price > 0
}

// DisplayName returns "brand name" for reports
func (r *Record) DisplayName() string {
	if r.Brand == "" {
		return r.Name
	}
	return strings.TrimSpace(r.Brand + " " + r.Name)
}

// Completeness scores how many optional fields are populated.
// Weights favour name, brand and long descriptions.
func (r *Record) Completeness() int {
	score := 0
	if r.Name != "" {
		score += 2
	}
	if r.Brand != "" {
		score += 2
	}
	if len(r.Description) > 50 {
		score += 3
	}
	if r.ABV > 0 {
		score++
	}
	if r.Type != "" {
		score++
	}
	if r.Category != "" {
		score++
	}
	if r.OriginCountry != "" {
		score++
	}
	if r.Region != "" {
		score++
	}
	if r.Price > 0 {
		score++
	}
	if r.ImageURL != "" {
		score++
	}
	if len(r.FlavorProfile) > 0 {
		score++
	}
	return score
}

// InvalidRecord describes a record rejected at the engine boundary
type InvalidRecord struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

var recordValidator = newRecordValidator()

func newRecordValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	return v
}

// ValidateRecord checks the boundary contract for a record.
// The returned error wraps ErrInvalidRecord.
func ValidateRecord(r *Record) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	err := recordValidator.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		reasons := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			reasons = append(reasons, describeFieldError(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(reasons, "; "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank":
		return fmt.Sprintf("%s is required", strings.ToLower(fe.Field()))
	case "gte", "lte":
		return fmt.Sprintf("%s out of range (%v)", strings.ToLower(fe.Field()), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag())
	}
}
