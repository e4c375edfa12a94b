// Package geo provides pure great-circle distance math and proximity
// ranking for request discovery. It performs no I/O.
package geo

import (
	"math"
	"sort"
)

// earthRadiusKm is the spherical-Earth approximation radius.
const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Locatable is anything that may carry a coordinate. A nil result means
// the candidate cannot be proximity-ranked.
type Locatable interface {
	Location() *Point
}

// Ranked pairs a candidate index with its computed distance.
type Ranked struct {
	Index      int
	DistanceKm float64
}

// RankByDistance orders the candidates that have a coordinate by ascending
// distance to ref. Candidates without a coordinate are excluded. The sort is
// stable so equidistant candidates keep their input order. An empty input
// yields an empty result.
func RankByDistance[T Locatable](ref Point, candidates []T) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for i, c := range candidates {
		p := c.Location()
		if p == nil {
			continue
		}
		ranked = append(ranked, Ranked{Index: i, DistanceKm: HaversineKm(ref, *p)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}
