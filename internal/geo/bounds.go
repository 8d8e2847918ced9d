package geo

import "math"

// boxMargin widens pre-filter boxes so rounding never drops a candidate that
// the exact haversine check would keep.
const boxMargin = 1.01

// Box is a latitude/longitude rectangle. When the box crosses the
// antimeridian MinLng is greater than MaxLng.
type Box struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// BoundingBox returns a box containing every point within radiusKm of center.
// It is a pre-filter only; callers still compare Distance against the radius.
func BoundingBox(center Point, radiusKm float64) Box {
	angular := radiusKm * boxMargin / EarthRadiusKm
	latDelta := angular * 180 / math.Pi

	box := Box{
		MinLat: center.Lat - latDelta,
		MaxLat: center.Lat + latDelta,
	}

	// Boxes touching a pole cover every longitude.
	if box.MaxLat >= 90 || box.MinLat <= -90 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		box.MinLng = -180
		box.MaxLng = 180
		return box
	}

	lngDelta := math.Asin(math.Sin(angular)/math.Cos(toRadians(center.Lat))) * 180 / math.Pi
	box.MinLng = normalizeLng(center.Lng - lngDelta)
	box.MaxLng = normalizeLng(center.Lng + lngDelta)
	return box
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.CrossesAntimeridian() {
		return p.Lng >= b.MinLng || p.Lng <= b.MaxLng
	}
	return p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

func (b Box) CrossesAntimeridian() bool {
	return b.MinLng > b.MaxLng
}

func normalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
