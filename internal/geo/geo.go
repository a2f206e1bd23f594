// Package geo converts between geodetic coordinates, the local flat-earth
// frame the simulation integrates in, and the projected geometries written
// to flight logs.
package geo

import (
	"errors"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrShortTrack is returned when a track has fewer than two fixes.
var ErrShortTrack = errors.New("track needs at least 2 fixes")

const metersPerDegLat = 111_320.0

// Ref anchors the local east/north frame at a geodetic origin. Valid for the
// small distances a VTOL pattern covers; not for long cross-country legs.
type Ref struct {
	OriginLat float64
	OriginLon float64
}

func (r Ref) metersPerDegLon() float64 {
	return metersPerDegLat * math.Cos(r.OriginLat*math.Pi/180.0)
}

// ToLocal converts a geodetic fix to local east/north meters and altitude.
func (r Ref) ToLocal(lat, lon, alt float64) (east, north, up float64) {
	east = (lon - r.OriginLon) * r.metersPerDegLon()
	north = (lat - r.OriginLat) * metersPerDegLat
	up = alt
	return
}

// ToGeodetic converts local east/north meters back to a geodetic fix.
func (r Ref) ToGeodetic(east, north, up float64) (lat, lon, alt float64) {
	lat = r.OriginLat + north/metersPerDegLat
	lon = r.OriginLon + east/r.metersPerDegLon()
	alt = up
	return
}

// HeadingDeg returns the compass heading of an east/north vector.
// 0 is north, 90 is east. A zero vector yields 0.
func HeadingDeg(east, north float64) float64 {
	if math.Abs(east) < 1e-9 && math.Abs(north) < 1e-9 {
		return 0
	}
	deg := math.Atan2(east, north) * 180.0 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// WrapHeading normalizes a heading in degrees to [0, 360).
func WrapHeading(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// WebMercator projects a geodetic fix to EPSG:3857. Flight log geometries
// are stored projected so map frontends can render them without a
// spatially-aware database.
func WebMercator(lon, lat float64) geom.Point {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(lon, lat, 0)
	return geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
			Z:  0,
		},
	)
}

// TrackLineString builds a LineString from successive lon/lat fixes.
func TrackLineString(fixes []geom.XY) (geom.LineString, error) {
	if len(fixes) < 2 {
		return geom.LineString{}, ErrShortTrack
	}
	flat := make([]float64, 0, len(fixes)*2)
	for _, f := range fixes {
		flat = append(flat, f.X, f.Y)
	}
	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// TrackWKT renders a track as WKT for the flight log export.
func TrackWKT(fixes []geom.XY) (string, error) {
	ls, err := TrackLineString(fixes)
	if err != nil {
		return "", err
	}
	return ls.AsText(), nil
}
