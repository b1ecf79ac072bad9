package service

import (
	"testing"
	"time"

	"songgift_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingGenerator_Format(t *testing.T) {
	gen := NewTrackingGenerator(nil)
	for i := 0; i < 1000; i++ {
		code := gen.Generate()
		if !TrackingIDPattern.MatchString(code) {
			t.Fatalf("Generate() = %q, want match %s", code, TrackingIDPattern)
		}
	}
}

func TestTrackingGenerator_InjectedSource(t *testing.T) {
	gen := NewTrackingGenerator(sequenceIntN(0, 1, 2, 25, 26, 35, 0, 0))
	assert.Equal(t, "SG-ABCZ09AA", gen.Generate())
}

func TestIsValidTrackingID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"SG-ABCD1234", true},
		{"SG-abcd1234", false},
		{"SG-ABCD123", false},
		{"SG-ABCD12345", false},
		{"XX-ABCD1234", false},
		{"SG-ABCD-234", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidTrackingID(tt.id); got != tt.want {
			t.Errorf("IsValidTrackingID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestExpectedDelivery(t *testing.T) {
	tests := []struct {
		name  string
		from  time.Time
		speed string
		want  time.Time
	}{
		{"express 跨年", time.Date(2026, 12, 31, 15, 0, 0, 0, time.UTC), model.DeliveryExpress, time.Date(2027, 1, 1, 15, 0, 0, 0, time.UTC)},
		{"standard 跨年", time.Date(2026, 12, 31, 15, 0, 0, 0, time.UTC), model.DeliveryStandard, time.Date(2027, 1, 2, 15, 0, 0, 0, time.UTC)},
		{"standard 跨月", time.Date(2026, 1, 30, 8, 0, 0, 0, time.UTC), model.DeliveryStandard, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)},
		{"express 二月末", time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC), model.DeliveryExpress, time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)},
		{"express 闰年", time.Date(2028, 2, 28, 12, 0, 0, 0, time.UTC), model.DeliveryExpress, time.Date(2028, 2, 29, 12, 0, 0, 0, time.UTC)},
		{"standard 闰年", time.Date(2028, 2, 28, 12, 0, 0, 0, time.UTC), model.DeliveryStandard, time.Date(2028, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpectedDelivery(tt.from, tt.speed)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}

	_, err := ExpectedDelivery(testNow, "rush")
	assert.ErrorIs(t, err, model.ErrUnknownDeliverySpeed)
}

func TestQuoteFor(t *testing.T) {
	q, err := QuoteFor("standard")
	require.NoError(t, err)
	assert.Equal(t, int64(7900), q.Total)
	assert.Len(t, q.LineItems, 1)
	assert.Equal(t, model.DeliveryStandard, q.StoredDeliverySpeed)

	q, err = QuoteFor("rush")
	require.NoError(t, err)
	assert.Equal(t, BasePrice+RushSurcharge, q.Total)
	assert.Equal(t, int64(11800), q.Total)
	assert.Len(t, q.LineItems, 2)
	assert.Equal(t, model.DeliveryExpress, q.StoredDeliverySpeed)
	assert.Equal(t, "usd", q.Currency)

	_, err = QuoteFor("express")
	assert.Error(t, err)
}

func TestValidationError(t *testing.T) {
	err := error(&ValidationError{Field: "email", Message: "bad"})
	ve, ok := IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "email: bad", ve.Error())

	wrapped := upstream("op", assert.AnError)
	assert.ErrorIs(t, wrapped, ErrUpstream)
	assert.ErrorIs(t, wrapped, assert.AnError)
	_, ok = IsValidationError(wrapped)
	assert.False(t, ok)
}
