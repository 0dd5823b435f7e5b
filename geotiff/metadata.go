package geotiff

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Band tags written by GDAL's GRIB driver.
const (
	TagElement   = "GRIB_ELEMENT"
	TagUnit      = "GRIB_UNIT"
	TagValidTime = "GRIB_VALID_TIME"
	TagRefTime   = "GRIB_REF_TIME"
	TagComment   = "GRIB_COMMENT"
)

type gdalMetadata struct {
	Items []gdalItem `xml:"Item"`
}

type gdalItem struct {
	Name   string `xml:"name,attr"`
	Sample *int   `xml:"sample,attr"`
	Role   string `xml:"role,attr"`
	Domain string `xml:"domain,attr"`
	Value  string `xml:",chardata"`
}

// metadata holds the default-domain GDAL metadata: dataset items and one
// map per band, keyed by 1-based band number.
type metadata struct {
	dataset map[string]string
	bands   map[int]map[string]string
}

// parseGDALMetadata decodes the GDAL_METADATA XML. Items with a role
// (band description, scale, offset) and items outside the default domain
// are not tags and are skipped.
func parseGDALMetadata(s string) (metadata, error) {
	md := metadata{dataset: map[string]string{}, bands: map[int]map[string]string{}}
	if strings.TrimSpace(s) == "" {
		return md, nil
	}
	var doc gdalMetadata
	if err := xml.Unmarshal([]byte(s), &doc); err != nil {
		return md, fmt.Errorf("GDAL_METADATA: %w", err)
	}
	for _, it := range doc.Items {
		if it.Role != "" || it.Domain != "" || it.Name == "" {
			continue
		}
		if it.Sample == nil {
			md.dataset[it.Name] = it.Value
			continue
		}
		band := *it.Sample + 1
		if md.bands[band] == nil {
			md.bands[band] = map[string]string{}
		}
		md.bands[band][it.Name] = it.Value
	}
	return md, nil
}

// parseNoData reads the GDAL_NODATA string. The second result is false
// when the tag is absent.
func parseNoData(s string, ok bool) (float64, bool, error) {
	if !ok {
		return 0, false, nil
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "-nan":
		s = "NaN"
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("GDAL_NODATA %q: %w", s, err)
	}
	return v, true, nil
}

// TimeFormatError reports a time tag that is not of the form
// "<seconds> sec UTC".
type TimeFormatError struct {
	Value string
}

func (e *TimeFormatError) Error() string {
	return fmt.Sprintf("unknown time format %q, expecting \"timestamp sec UTC\"", e.Value)
}

const timeSuffix = " sec UTC"

// ParseTimeTag parses a GRIB_VALID_TIME or GRIB_REF_TIME value such as
// "1700000000 sec UTC" into a UTC time.
func ParseTimeTag(s string) (time.Time, error) {
	if !strings.HasSuffix(s, timeSuffix) {
		return time.Time{}, &TimeFormatError{Value: s}
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(strings.TrimSuffix(s, timeSuffix)), 10, 64)
	if err != nil {
		return time.Time{}, &TimeFormatError{Value: s}
	}
	return time.Unix(secs, 0).UTC(), nil
}
