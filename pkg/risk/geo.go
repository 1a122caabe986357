package risk

import (
	"context"
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance between two points in kilometers.
func haversineKm(a, b Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func speedDetail(speed float64) string {
	return fmt.Sprintf("%.0f km/h (observed %.0f km/h)", maxTravelSpeedKmh, speed)
}

// StaticGeoResolver resolves IPs from a fixed table. Suitable for tests and
// for deployments that sync a geo database into memory out of band.
type StaticGeoResolver struct {
	locations map[string]Location
}

// NewStaticGeoResolver creates a resolver over the given IP-to-location table.
func NewStaticGeoResolver(locations map[string]Location) *StaticGeoResolver {
	table := make(map[string]Location, len(locations))
	for ip, loc := range locations {
		table[ip] = loc
	}
	return &StaticGeoResolver{locations: table}
}

func (r *StaticGeoResolver) Resolve(ctx context.Context, ip string) (*Location, error) {
	loc, ok := r.locations[ip]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

var _ GeoResolver = (*StaticGeoResolver)(nil)
