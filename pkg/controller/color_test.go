package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spotswitch/spotswitch/pkg/prices"
)

func TestColorForPrice(t *testing.T) {
	colors := []string{"0,100,0", "100,100,0", "100,0,100", "100,0,0"}
	agg := prices.Aggregates{Min: 0.10, Max: 0.50}

	tests := []struct {
		name  string
		price float64
		want  string
	}{
		{"cheapest", 0.10, "0,100,0"},
		{"just under second band", 0.19, "0,100,0"},
		{"second band", 0.20, "100,100,0"},
		{"third band", 0.30, "100,0,100"},
		{"most expensive", 0.50, "100,0,0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorForPrice(tt.price, agg, 0.05, colors))
		})
	}

	t.Run("always-on price gets the cheapest color", func(t *testing.T) {
		assert.Equal(t, "0,100,0", ColorForPrice(0.30, agg, 0.30, colors))
	})

	t.Run("flat day falls back to the default", func(t *testing.T) {
		flat := prices.Aggregates{Min: 0.10, Max: 0.10}
		assert.Equal(t, "0,0,100", ColorForPrice(0.10, flat, 0.05, colors))
	})

	t.Run("no colors configured", func(t *testing.T) {
		assert.Equal(t, "0,0,100", ColorForPrice(0.10, agg, 0.05, nil))
	})
}
