package geotiff

import (
	"fmt"
	"strings"
)

// GeoKey IDs.
const (
	keyModelType      = 1024
	keyRasterType     = 1025
	keyCitation       = 1026
	keyGeographicType = 2048
	keyProjectedType  = 3072
)

// Raster type values of GTRasterTypeGeoKey.
const (
	RasterPixelIsArea  = 1
	RasterPixelIsPoint = 2
)

// GeoKeys is the subset of the GeoKey directory this package reads.
type GeoKeys struct {
	ModelType  int
	RasterType int
	// EPSG is the projected or geographic CRS code, 0 when absent or
	// user-defined.
	EPSG     int
	Citation string
}

func parseGeoKeys(d *ifd) (GeoKeys, error) {
	gk := GeoKeys{RasterType: RasterPixelIsArea}
	if !d.has(tagGeoKeyDirectory) {
		return gk, nil
	}
	dir, err := d.uints(tagGeoKeyDirectory)
	if err != nil {
		return gk, fmt.Errorf("GeoKeyDirectory: %w", err)
	}
	if len(dir) < 4 {
		return gk, fmt.Errorf("GeoKeyDirectory: %d values, need at least 4", len(dir))
	}
	n := int(dir[3])
	if 4+n*4 > len(dir) {
		return gk, fmt.Errorf("GeoKeyDirectory: %d keys overflow %d values", n, len(dir))
	}
	asciiParams, _ := d.ascii(tagGeoASCIIParams)

	for i := 0; i < n; i++ {
		k := dir[4+i*4 : 8+i*4]
		id, loc, count, val := k[0], k[1], k[2], k[3]
		switch {
		case loc == 0:
			switch id {
			case keyModelType:
				gk.ModelType = int(val)
			case keyRasterType:
				gk.RasterType = int(val)
			case keyGeographicType:
				if gk.EPSG == 0 && val != 32767 {
					gk.EPSG = int(val)
				}
			case keyProjectedType:
				// A projected CRS takes precedence over its base geographic CRS.
				if val != 32767 {
					gk.EPSG = int(val)
				}
			}
		case loc == tagGeoASCIIParams && id == keyCitation:
			if val+count <= uint64(len(asciiParams)) {
				gk.Citation = strings.TrimRight(asciiParams[val:val+count], "|\x00")
			}
		}
	}
	return gk, nil
}

// parseTransform builds the pixel-to-model transform from either
// ModelTransformation or ModelTiepoint with ModelPixelScale. The second
// result is false when the raster carries no georeferencing; the transform
// is then the identity.
func parseTransform(d *ifd, gk GeoKeys) (Affine, bool, error) {
	var t Affine
	switch {
	case d.has(tagModelTransformation):
		m, err := d.floats(tagModelTransformation)
		if err != nil {
			return Identity, false, err
		}
		if len(m) < 16 {
			return Identity, false, fmt.Errorf("ModelTransformation: %d values, need 16", len(m))
		}
		t = Affine{A: m[0], B: m[1], C: m[3], D: m[4], E: m[5], F: m[7]}
	case d.has(tagModelTiepoint) && d.has(tagModelPixelScale):
		tp, err := d.floats(tagModelTiepoint)
		if err != nil {
			return Identity, false, err
		}
		sc, err := d.floats(tagModelPixelScale)
		if err != nil {
			return Identity, false, err
		}
		if len(tp) < 6 || len(sc) < 2 {
			return Identity, false, fmt.Errorf("ModelTiepoint/ModelPixelScale: %d/%d values", len(tp), len(sc))
		}
		i, j, x, y := tp[0], tp[1], tp[3], tp[4]
		t = Affine{A: sc[0], C: x - i*sc[0], E: -sc[1], F: y + j*sc[1]}
	default:
		return Identity, false, nil
	}
	if gk.RasterType == RasterPixelIsPoint {
		// Tie points name pixel centres; move the origin to the corner.
		t = t.Mul(Translation(-0.5, -0.5))
	}
	return t, true, nil
}
