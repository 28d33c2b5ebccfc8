// Package geo provides WGS-84 coordinates and great-circle distance.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// SRID is the spatial reference used for stored points (WGS-84).
const SRID = 4326

// ErrInvalidCoordinate is returned for latitudes outside [-90,90] or
// longitudes outside [-180,180].
var ErrInvalidCoordinate = eris.New("geo: invalid coordinate")

// Coordinate is a WGS-84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lng" yaml:"lng"`
}

// NewCoordinate builds a validated Coordinate.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate reports ErrInvalidCoordinate when either axis is out of range or NaN.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return eris.Wrapf(ErrInvalidCoordinate, "latitude %v out of range", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return eris.Wrapf(ErrInvalidCoordinate, "longitude %v out of range", c.Longitude)
	}
	return nil
}

// Point converts the coordinate to a go-geom point (X=lng, Y=lat) tagged
// with SRID 4326.
func (c Coordinate) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Longitude, c.Latitude}).SetSRID(SRID)
}

// FromPoint converts a go-geom point back into a validated Coordinate.
func FromPoint(p *geom.Point) (Coordinate, error) {
	if p == nil || p.Empty() {
		return Coordinate{}, eris.Wrap(ErrInvalidCoordinate, "empty point")
	}
	return NewCoordinate(p.Y(), p.X())
}
