package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiritlens/backend/internal/domain"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: `29.99`, want: "29.99"},
		{raw: `"$29.99"`, want: "29.99"},
		{raw: `"$1,299.00"`, want: "1299"},
		{raw: `"45%"`, want: "45"},
		{raw: `null`, want: "0"},
		{raw: `""`, want: "0"},
		{raw: ``, want: "0"},
		{raw: `"call for price"`, wantErr: true},
		{raw: `-5`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidRecord)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestMapToRecord(t *testing.T) {
	var dto spiritDTO
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 42,
		"name": "  Eagle Rare 10 Year ",
		"brand": "Eagle Rare",
		"type": "Bourbon",
		"abv": 45,
		"price": "$39.999",
		"volume": "750ml",
		"url": "https://shop.example/eagle-rare",
		"flavor_profile": ["toffee", "oak"],
		"created_at": "2024-05-01T10:00:00Z"
	}`), &dto))

	rec, err := MapToRecord(&dto)
	require.NoError(t, err)
	assert.Equal(t, "42", rec.ID)
	assert.Equal(t, "Eagle Rare 10 Year", rec.Name)
	assert.Equal(t, 40.0, rec.Price)
	assert.Equal(t, 45.0, rec.ABV)
	assert.Equal(t, "https://shop.example/eagle-rare", rec.SourceURL)
	assert.Equal(t, []string{"toffee", "oak"}, rec.FlavorProfile)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestMapToRecord_BadFieldsKeepRecord(t *testing.T) {
	dto := spiritDTO{
		ID:        json.RawMessage(`"x1"`),
		Name:      "Weller",
		Price:     json.RawMessage(`"sold out"`),
		CreatedAt: "yesterday",
	}

	rec, err := MapToRecord(&dto)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
	assert.Equal(t, "x1", rec.ID)
	assert.Equal(t, "Weller", rec.Name)
	assert.Zero(t, rec.Price)
	assert.True(t, rec.CreatedAt.IsZero())
}
