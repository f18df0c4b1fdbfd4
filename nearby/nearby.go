package nearby

import (
	"math"
	"sort"

	"city-samadhan/types"
)

const (
	earthRadiusKM   = 6371.0
	DefaultRadiusKM = 5.0
	MaxRadiusKM     = 50.0
)

type Result struct {
	types.Report
	DistanceKM float64 `json:"distanceKm"`
}

// Find returns the reports within radiusKM of origin, nearest first.
// Reports without a location are skipped.
func Find(reports []types.Report, origin types.Position, radiusKM float64) []Result {
	var results []Result
	for _, r := range reports {
		if r.Location == nil {
			continue
		}
		dist := HaversineKM(origin.Latitude, origin.Longitude, r.Location.Latitude, r.Location.Longitude)
		if dist <= radiusKM {
			results = append(results, Result{Report: r, DistanceKM: dist})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKM < results[j].DistanceKM
	})
	return results
}

// HaversineKM is the great-circle distance between two points given in decimal degrees.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	radLat1 := lat1 * math.Pi / 180
	radLon1 := lon1 * math.Pi / 180
	radLat2 := lat2 * math.Pi / 180
	radLon2 := lon2 * math.Pi / 180

	deltaLat := radLat2 - radLat1
	deltaLon := radLon2 - radLon1

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(radLat1)*math.Cos(radLat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}
