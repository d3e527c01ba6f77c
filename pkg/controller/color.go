package controller

import (
	"math"

	"github.com/spotswitch/spotswitch/pkg/prices"
)

// defaultColor is used when the price does not scale into any band, for
// example when every price of the day is identical.
const defaultColor = "0,0,100"

// ColorForPrice maps the current price to an "r,g,b" triple from colors,
// which is ordered cheapest to most expensive. The price is scaled to a
// percentage between the day's minimum and maximum and each color covers an
// equal band of that range. A price at or under alwaysOnMaxPrice always gets
// the cheapest color.
func ColorForPrice(price float64, agg prices.Aggregates, alwaysOnMaxPrice float64, colors []string) string {
	if len(colors) == 0 {
		return defaultColor
	}
	percent := math.Round(100 * (price - agg.Min) / (agg.Max - agg.Min))
	interval := 100 / float64(len(colors))
	color := defaultColor
	for i, c := range colors {
		if percent >= float64(i)*interval {
			color = c
		}
	}
	if price <= alwaysOnMaxPrice {
		color = colors[0]
	}
	return color
}
