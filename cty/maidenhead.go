package cty

import (
	"math"
	"strings"
)

const earthRadiusKm = 6371.0

// Grid4FromLatLon returns the 4-character Maidenhead grid for a lat/lon pair
// (east-positive longitude). It returns false when coordinates are out of
// range or non-finite.
func Grid4FromLatLon(lat, lon float64) (string, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return "", false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", false
	}
	if lat == 90 {
		lat = 89.999999
	}
	if lon == 180 {
		lon = 179.999999
	}
	adjLon := lon + 180
	adjLat := lat + 90
	fieldLon := int(adjLon / 20)
	fieldLat := int(adjLat / 10)
	squareLon := int((adjLon - float64(fieldLon)*20) / 2)
	squareLat := int(adjLat - float64(fieldLat)*10)
	return string([]byte{
		byte('A' + fieldLon),
		byte('A' + fieldLat),
		byte('0' + squareLon),
		byte('0' + squareLat),
	}), true
}

// LatLonFromGrid returns the centre of a 4- or 6-character Maidenhead locator.
func LatLonFromGrid(grid string) (float64, float64, bool) {
	g := strings.ToUpper(strings.TrimSpace(grid))
	if len(g) != 4 && len(g) != 6 {
		return 0, 0, false
	}
	if g[0] < 'A' || g[0] > 'R' || g[1] < 'A' || g[1] > 'R' {
		return 0, 0, false
	}
	if g[2] < '0' || g[2] > '9' || g[3] < '0' || g[3] > '9' {
		return 0, 0, false
	}
	lon := float64(g[0]-'A')*20 + float64(g[2]-'0')*2 - 180
	lat := float64(g[1]-'A')*10 + float64(g[3]-'0') - 90
	if len(g) == 4 {
		return lat + 0.5, lon + 1, true
	}
	if g[4] < 'A' || g[4] > 'X' || g[5] < 'A' || g[5] > 'X' {
		return 0, 0, false
	}
	lon += float64(g[4]-'A')*(2.0/24) + 1.0/24
	lat += float64(g[5]-'A')*(1.0/24) + 0.5/24
	return lat, lon, true
}

// DistanceBearing returns the great-circle distance in km and the initial
// bearing in degrees from point 1 to point 2.
func DistanceBearing(lat1, lon1, lat2, lon2 float64) (float64, float64) {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	dφ := (lat2 - lat1) * math.Pi / 180
	dλ := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dφ/2)*math.Sin(dφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	dist := 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	y := math.Sin(dλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(dλ)
	bearing := math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
	return dist, bearing
}
