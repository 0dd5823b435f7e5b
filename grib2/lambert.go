package grib2

import (
	"encoding/binary"
	"fmt"
	"math"
)

const earthRadiusM = 6371229.0 // shape-of-earth=6 (sphere), NCEP standard

// LambertGrid holds parsed GDT 3.30 (Lambert conformal) parameters.
type LambertGrid struct {
	Ni, Nj         int
	La1, Lo1       float64 // first grid point, degrees (La1 is the SW corner)
	LoV            float64 // central meridian, degrees
	Latin1, Latin2 float64 // standard parallels, degrees
	Dx, Dy         float64 // grid spacing, metres
	ScanMode       byte
}

func (g *LambertGrid) Template() int      { return 30 }
func (g *LambertGrid) Dims() (ni, nj int) { return g.Ni, g.Nj }

func parseLambertGrid(sec []byte) (*LambertGrid, error) {
	if len(sec) < 14+67 {
		return nil, fmt.Errorf("section 3 GDT 3.30: too short (%d bytes)", len(sec))
	}
	t := sec[14:]
	u32 := func(off int) uint32 { return binary.BigEndian.Uint32(t[off : off+4]) }
	angle := func(off int) float64 { return float64(signMag32(u32(off))) / 1e6 }

	ni, nj := int(u32(16)), int(u32(20))
	if ni <= 0 || ni > maxGridDim || nj <= 0 || nj > maxGridDim {
		return nil, fmt.Errorf("section 3: invalid grid dimensions %dx%d (max %d)", ni, nj, maxGridDim)
	}

	// t[32]: resolution flags, t[33:37]: LaD, t[49]: projection centre
	scan := t[50]
	// Projection math assumes i eastward, j northward.
	if scan != scanPositiveJ {
		return nil, fmt.Errorf("section 3: unsupported scan mode 0x%02X for Lambert grid (only 0x40 supported)", scan)
	}

	return &LambertGrid{
		Ni:       ni,
		Nj:       nj,
		La1:      angle(24),
		Lo1:      angle(28),
		LoV:      angle(37),
		Dx:       float64(u32(41)) / 1e3, // mm → m
		Dy:       float64(u32(45)) / 1e3,
		Latin1:   angle(51),
		Latin2:   angle(55),
		ScanMode: scan,
	}, nil
}

func (g *LambertGrid) n() float64 {
	if g.Latin1 == g.Latin2 {
		return math.Sin(toRad(g.Latin1))
	}
	φ1, φ2 := toRad(g.Latin1), toRad(g.Latin2)
	return math.Log(math.Cos(φ1)/math.Cos(φ2)) /
		math.Log(math.Tan(math.Pi/4+φ2/2)/math.Tan(math.Pi/4+φ1/2))
}

func (g *LambertGrid) bigF() float64 {
	n := g.n()
	φ1 := toRad(g.Latin1)
	return math.Cos(φ1) * math.Pow(math.Tan(math.Pi/4+φ1/2), n) / n
}

// rho is the cone distance (metres) from the pole at latitude latDeg.
func (g *LambertGrid) rho(latDeg float64) float64 {
	return earthRadiusM * g.bigF() / math.Pow(math.Tan(math.Pi/4+toRad(latDeg)/2), g.n())
}

// project returns Lambert x (east-positive) and y (north-positive) in metres.
func (g *LambertGrid) project(lat, lon float64) (x, y float64) {
	ρ := g.rho(lat)
	θ := g.n() * toRad(NormLon(lon)-NormLon(g.LoV))
	return ρ * math.Sin(θ), -ρ * math.Cos(θ)
}

// LatLonToFrac maps (lat°N, lon°E) to fractional grid indices; i grows
// eastward, j northward. Integral results sit exactly on grid points.
func (g *LambertGrid) LatLonToFrac(lat, lon float64) (fi, fj float64) {
	x, y := g.project(lat, lon)
	x0, y0 := g.project(g.La1, g.Lo1)
	return (x - x0) / g.Dx, (y - y0) / g.Dy
}

// IjToLatLon maps grid indices (i,j) to (lat°N, lon°E signed).
func (g *LambertGrid) IjToLatLon(i, j int) (lat, lon float64) {
	n := g.n()
	x0, y0 := g.project(g.La1, g.Lo1)
	x := x0 + float64(i)*g.Dx
	y := y0 + float64(j)*g.Dy

	ρ := math.Sqrt(x*x + y*y)
	if ρ == 0 {
		return 90, NormLon(g.LoV)
	}
	// x = ρ·sin(θ), -y = ρ·cos(θ)
	θ := math.Atan2(x, -y)
	φ := 2*math.Atan(math.Pow(earthRadiusM*g.bigF()/ρ, 1/n)) - math.Pi/2
	return toDeg(φ), NormLon(g.LoV) + toDeg(θ)/n
}

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }

// NormLon converts a 0-360 longitude to -180..+180.
func NormLon(lon float64) float64 {
	if lon > 180 {
		return lon - 360
	}
	return lon
}
