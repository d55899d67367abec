// Package catalog fetches spirit records from the upstream catalog API.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spiritlens/backend/internal/domain"
)

// pageResponse is one page of GET /v1/spirits
type pageResponse struct {
	Spirits []spiritDTO `json:"spirits"`
	Page    int         `json:"page"`
	HasMore *bool       `json:"has_more,omitempty"`
}

// spiritDTO is the upstream record. Numeric fields arrive either as JSON
// numbers or as display strings ("$29.99", "45%").
type spiritDTO struct {
	ID            json.RawMessage `json:"id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Type          string          `json:"type"`
	Category      string          `json:"category"`
	ABV           json.RawMessage `json:"abv"`
	Price         json.RawMessage `json:"price"`
	Volume        string          `json:"volume"`
	Description   string          `json:"description"`
	ImageURL      string          `json:"image_url"`
	URL           string          `json:"url"`
	OriginCountry string          `json:"origin_country"`
	Region        string          `json:"region"`
	FlavorProfile []string        `json:"flavor_profile"`
	Age           int             `json:"age"`
	IsLiqueur     bool            `json:"is_liqueur"`
	CreatedAt     string          `json:"created_at"`
}

// MapToRecord converts an upstream record. Fields that cannot be parsed are
// left at their zero value and reported in the returned error; the record
// itself is always usable.
func MapToRecord(dto *spiritDTO) (domain.Record, error) {
	rec := domain.Record{
		ID:            rawString(dto.ID),
		Name:          strings.TrimSpace(dto.Name),
		Brand:         strings.TrimSpace(dto.Brand),
		Type:          dto.Type,
		Category:      dto.Category,
		Volume:        dto.Volume,
		Description:   dto.Description,
		ImageURL:      dto.ImageURL,
		SourceURL:     dto.URL,
		OriginCountry: dto.OriginCountry,
		Region:        dto.Region,
		FlavorProfile: dto.FlavorProfile,
		Age:           dto.Age,
		IsLiqueur:     dto.IsLiqueur,
	}

	var errs []error
	if price, err := ParseAmount(dto.Price); err != nil {
		errs = append(errs, fmt.Errorf("price: %w", err))
	} else {
		rec.Price = price.Round(2).InexactFloat64()
	}
	if abv, err := ParseAmount(dto.ABV); err != nil {
		errs = append(errs, fmt.Errorf("abv: %w", err))
	} else {
		rec.ABV = abv.InexactFloat64()
	}
	if dto.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, dto.CreatedAt); err != nil {
			errs = append(errs, fmt.Errorf("created_at: %w", err))
		} else {
			rec.CreatedAt = t
		}
	}
	return rec, errors.Join(errs...)
}

// ParseAmount reads a JSON number or a display string such as "$1,299.00"
// or "45%". Null and empty values are zero.
func ParseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, nil
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, err
		}
		s = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)
		if s == "" {
			return decimal.Zero, nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrInvalidRecord, string(raw))
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %s", domain.ErrInvalidRecord, d)
	}
	return d, nil
}

// rawString reads an id sent as a string or a number
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
