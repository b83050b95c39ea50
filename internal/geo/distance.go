// Package geo scores map guesses by great-circle distance.
package geo

import (
	"math"

	"hanzi-quiz-service/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine distance between a and b.
func DistanceKm(a, b domain.Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if h > 1 {
		h = 1
	}
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Thresholds is the accepted error radius per level, in kilometres.
type Thresholds struct {
	Beginner     float64 `yaml:"beginner"`
	Intermediate float64 `yaml:"intermediate"`
	Advanced     float64 `yaml:"advanced"`
}

// DefaultThresholds loosens the radius for easier locations.
func DefaultThresholds() Thresholds {
	return Thresholds{Beginner: 200, Intermediate: 150, Advanced: 100}
}

// For returns the radius for level. Unknown levels get the strictest radius.
func (t Thresholds) For(level domain.Level) float64 {
	switch level {
	case domain.LevelBeginner:
		return t.Beginner
	case domain.LevelIntermediate:
		return t.Intermediate
	}
	return t.Advanced
}

// Within reports whether guess is close enough to target and the distance between them.
func (t Thresholds) Within(target, guess domain.Coordinate, level domain.Level) (bool, float64) {
	d := DistanceKm(target, guess)
	return d <= t.For(level), d
}
