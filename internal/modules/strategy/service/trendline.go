package service

import (
	"math"

	"breakout_bot/internal/models"
)

// FitTrendline fits price over candle index: exact through two points,
// least squares through more.
func FitTrendline(symbol string, role models.LineRole, points []models.SwingPoint) (models.Trendline, bool) {
	if len(points) < 2 {
		return models.Trendline{}, false
	}

	var slope, intercept float64
	if len(points) == 2 {
		p1, p2 := points[0], points[1]
		if p1.Index == p2.Index {
			return models.Trendline{}, false
		}
		slope = (p2.Price - p1.Price) / float64(p2.Index-p1.Index)
		intercept = p1.Price - slope*float64(p1.Index)
	} else {
		n := float64(len(points))
		var sumX, sumY, sumXY, sumX2 float64
		for _, p := range points {
			x := float64(p.Index)
			sumX += x
			sumY += p.Price
			sumXY += x * p.Price
			sumX2 += x * x
		}
		den := n*sumX2 - sumX*sumX
		if math.Abs(den) < 1e-12 {
			return models.Trendline{}, false
		}
		slope = (n*sumXY - sumX*sumY) / den
		intercept = (sumY - slope*sumX) / n
	}

	anchors := make([]models.SwingPoint, len(points))
	copy(anchors, points)

	last := anchors[0]
	for _, p := range anchors[1:] {
		if p.Index > last.Index {
			last = p
		}
	}

	return models.Trendline{
		Symbol:        symbol,
		Role:          role,
		Slope:         slope,
		Intercept:     intercept,
		Anchors:       anchors,
		DefinedAt:     last.Index,
		DefinedAtTime: last.Time,
	}, true
}
