// Package geo converts survey coordinates from the RGF93 conic conformal
// zone CC44 (EPSG:3944) to WGS84 longitude/latitude (EPSG:4326).
//
// The formulas follow the IGN algorithm notes for Lambert projections
// (isometric latitude, its inverse, secant cone constants and the inverse
// Lambert projection). RGF93 and WGS84 are treated as coincident, which is
// how EPSG defines the transformation between them.
package geo

import (
	"math"

	"arboretum/models"
)

const (
	latitudeTolerance = 1e-12
	maxIterations     = 64
)

// Ellipsoid is defined by its semi-major axis and inverse flattening.
type Ellipsoid struct {
	A    float64
	InvF float64
}

// GRS80 is the ellipsoid of RGF93.
var GRS80 = Ellipsoid{A: 6378137.0, InvF: 298.257222101}

// Eccentricity returns the first eccentricity of the ellipsoid.
func (el Ellipsoid) Eccentricity() float64 {
	f := 1 / el.InvF
	return math.Sqrt(2*f - f*f)
}

// Lambert is a secant Lambert Conformal Conic projection with its
// constants already derived.
type Lambert struct {
	Name string

	ellipsoid Ellipsoid
	e         float64
	n         float64
	c         float64
	xs        float64
	ys        float64
	lambda0   float64
}

// CC44 is RGF93 / CC44 (EPSG:3944):
// +proj=lcc +lat_1=43.199291 +lat_2=44.800709 +lat_0=44 +lon_0=3 +x_0=1700000 +y_0=3200000 +ellps=GRS80
var CC44 = newSecantLambert("EPSG:3944", GRS80, 43.199291, 44.800709, 44, 3, 1700000, 3200000)

// newSecantLambert derives n, c, Xs and Ys from two standard parallels
// (IGN ALG0054). Angles are in degrees.
func newSecantLambert(name string, el Ellipsoid, lat1, lat2, lat0, lon0, x0, y0 float64) *Lambert {
	e := el.Eccentricity()
	phi1, phi2, phi0 := radians(lat1), radians(lat2), radians(lat0)

	n1 := normalRadius(el.A, e, phi1) * math.Cos(phi1)
	n2 := normalRadius(el.A, e, phi2) * math.Cos(phi2)
	n := math.Log(n2/n1) / (isometricLatitude(phi1, e) - isometricLatitude(phi2, e))
	c := n1 / n * math.Exp(n*isometricLatitude(phi1, e))

	return &Lambert{
		Name:      name,
		ellipsoid: el,
		e:         e,
		n:         n,
		c:         c,
		xs:        x0,
		ys:        y0 + c*math.Exp(-n*isometricLatitude(phi0, e)),
		lambda0:   radians(lon0),
	}
}

// ToGeographic converts projected easting/northing (meters) to latitude and
// longitude in degrees (IGN ALG0004). Results are not clamped; NaN or
// infinite input propagates to the output.
func (p *Lambert) ToGeographic(easting, northing float64) models.GeoPoint {
	dx := easting - p.xs
	dy := p.ys - northing

	r := math.Hypot(dx, dy)
	gamma := math.Atan2(dx, dy)

	lambda := p.lambda0 + gamma/p.n
	iso := -1 / p.n * math.Log(math.Abs(r/p.c))
	phi := latitudeFromIsometric(iso, p.e)

	return models.GeoPoint{Lat: degrees(phi), Lng: degrees(lambda)}
}

// FromGeographic converts latitude and longitude in degrees to projected
// coordinates (IGN ALG0003).
func (p *Lambert) FromGeographic(lat, lng float64) models.ProjectedPoint {
	iso := isometricLatitude(radians(lat), p.e)
	r := p.c * math.Exp(-p.n*iso)
	gamma := p.n * (radians(lng) - p.lambda0)

	return models.ProjectedPoint{
		Easting:  p.xs + r*math.Sin(gamma),
		Northing: p.ys - r*math.Cos(gamma),
	}
}

// ToWGS84 projects a CC44 survey point to WGS84.
func ToWGS84(easting, northing float64) models.GeoPoint {
	return CC44.ToGeographic(easting, northing)
}

// isometricLatitude implements IGN ALG0001.
func isometricLatitude(phi, e float64) float64 {
	es := e * math.Sin(phi)
	return math.Log(math.Tan(math.Pi/4+phi/2) * math.Pow((1-es)/(1+es), e/2))
}

// latitudeFromIsometric implements IGN ALG0002 by fixed-point iteration.
func latitudeFromIsometric(iso, e float64) float64 {
	expIso := math.Exp(iso)
	phi := 2*math.Atan(expIso) - math.Pi/2
	for i := 0; i < maxIterations; i++ {
		es := e * math.Sin(phi)
		next := 2*math.Atan(math.Pow((1+es)/(1-es), e/2)*expIso) - math.Pi/2
		if math.Abs(next-phi) < latitudeTolerance {
			return next
		}
		phi = next
	}
	return phi
}

func normalRadius(a, e, phi float64) float64 {
	s := e * math.Sin(phi)
	return a / math.Sqrt(1-s*s)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
