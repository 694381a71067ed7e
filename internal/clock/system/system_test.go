package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricescout/internal/pricing"
)

func TestClock_SatisfiesPricingClock(t *testing.T) {
	var clk pricing.Clock = New()
	require.NotNil(t, clk)
	assert.False(t, clk.Now().IsZero())
}

func TestClock_NowIsUTC(t *testing.T) {
	now := Clock{}.Now()
	assert.Equal(t, time.UTC, now.Location())
}

func TestClock_TimestampsUsableAsExtractedAt(t *testing.T) {
	clk := New()

	first := pricing.PriceRecord{URL: "https://shop.example/item/1", ExtractedAt: clk.Now()}
	second := pricing.PriceRecord{URL: "https://shop.example/item/2", ExtractedAt: clk.Now()}

	// Records stamped later never sort before earlier ones.
	assert.False(t, second.ExtractedAt.Before(first.ExtractedAt))
	assert.WithinDuration(t, time.Now().UTC(), second.ExtractedAt, time.Minute)
}
