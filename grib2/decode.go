package grib2

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Message is one parsed GRIB2 message. Metadata is decoded eagerly; values
// are unpacked on demand by Field.
type Message struct {
	Index      int // 1-based position in the file, 0 when parsed standalone
	Discipline byte
	Ident      Identification
	Grid       Grid
	Product    Product
	Param      Parameter

	drsTemplate int
	simple      SimplePacking
	complex     ComplexPacking
	bitmap      []byte // non-nil when Section 6 carries a bitmap
	sec7        []byte
}

// ParseMessage walks the sections of a raw GRIB2 message (Section 0 through
// "7777"). Only the first field of a message is read.
func ParseMessage(raw []byte) (*Message, error) {
	s0, err := parseSection0(raw)
	if err != nil {
		return nil, err
	}
	m := &Message{Discipline: s0.Discipline, drsTemplate: -1}

	var hasIdent, hasProduct bool
	for off := 16; off < len(raw); {
		sn, err := nextSection(raw, off)
		if err != nil {
			return nil, err
		}
		if sn.Num == endSection {
			break
		}

		sec := sn.Data
		switch sn.Num {
		case 1:
			if m.Ident, err = parseSection1(sec); err != nil {
				return nil, err
			}
			hasIdent = true
		case 2:
			// local use
		case 3:
			if m.sec7 != nil {
				return nil, errors.New("multiple fields per message are not supported")
			}
			if m.Grid, err = parseSection3(sec); err != nil {
				return nil, err
			}
		case 4:
			if m.sec7 != nil {
				return nil, errors.New("multiple fields per message are not supported")
			}
			if m.Product, err = parseSection4(sec); err != nil {
				return nil, err
			}
			hasProduct = true
		case 5:
			if err := m.parseDRS(sec); err != nil {
				return nil, err
			}
		case 6:
			if len(sec) < 6 {
				return nil, fmt.Errorf("section 6 too short")
			}
			switch sec[5] {
			case bitmapNone:
			case bitmapPresent:
				m.bitmap = sec[6:]
			default:
				return nil, fmt.Errorf("bitmap section: unsupported indicator %d", sec[5])
			}
		case 7:
			m.sec7 = sec
		default:
			return nil, fmt.Errorf("unexpected section number %d at offset %d", sn.Num, off)
		}
		off = sn.End
	}

	switch {
	case !hasIdent:
		return nil, fmt.Errorf("no Section 1 found in message")
	case m.Grid == nil:
		return nil, fmt.Errorf("no Section 3 found in message")
	case !hasProduct:
		return nil, fmt.Errorf("no Section 4 found in message")
	case m.drsTemplate < 0:
		return nil, fmt.Errorf("no Section 5 found in message")
	case m.sec7 == nil:
		return nil, fmt.Errorf("no Section 7 found in message")
	}
	m.Param = LookupParameter(m.Discipline, m.Product)
	return m, nil
}

func (m *Message) parseDRS(sec []byte) error {
	if len(sec) < 11 {
		return fmt.Errorf("section 5 too short")
	}
	tmpl := int(binary.BigEndian.Uint16(sec[9:11]))
	var err error
	switch tmpl {
	case 0:
		m.simple, err = parseSimple(sec)
	case 2, 3:
		m.complex, err = parseComplex(sec, tmpl)
		if err == nil && m.complex.MissingMgmt != 0 {
			err = fmt.Errorf("missing value management %d is not supported", m.complex.MissingMgmt)
		}
	default:
		return fmt.Errorf("unsupported DRS template %d (supported: 5.0, 5.2, 5.3)", tmpl)
	}
	if err != nil {
		return fmt.Errorf("section 5: %w", err)
	}
	m.drsTemplate = tmpl
	return nil
}

// Name is the ecCodes parameter name, e.g. "2 metre temperature".
func (m *Message) Name() string { return m.Param.Name }

// Level is the first fixed surface value (hPa for isobaric surfaces).
func (m *Message) Level() int { return m.Product.Level() }

// RefTime is the reference (analysis) time from Section 1.
func (m *Message) RefTime() time.Time { return m.Ident.RefTime }

// ValidTime is the reference time plus the forecast time, or the end of the
// overall time interval for statistically processed products.
func (m *Message) ValidTime() (time.Time, error) {
	if !m.Product.IntervalEnd.IsZero() {
		return m.Product.IntervalEnd, nil
	}
	d, err := m.Product.ForecastDuration()
	if err != nil {
		return time.Time{}, fmt.Errorf("message %d: %w", m.Index, err)
	}
	return m.Ident.RefTime.Add(d), nil
}

// Field unpacks Section 7 onto the grid.
func (m *Message) Field() (*Field, error) {
	var vals []float64
	var err error
	switch m.drsTemplate {
	case 0:
		vals, err = m.simple.unpack(m.sec7)
		if err != nil {
			return nil, fmt.Errorf("unpack DRS 5.0: %w", err)
		}
	case 2, 3:
		vals, err = m.complex.unpack(m.sec7)
		if err != nil {
			return nil, fmt.Errorf("unpack DRS 5.%d: %w", m.drsTemplate, err)
		}
	default:
		return nil, fmt.Errorf("unsupported DRS template %d", m.drsTemplate)
	}

	ni, nj := m.Grid.Dims()
	// int64 keeps the product from overflowing on 32-bit platforms.
	expected := int64(ni) * int64(nj)

	// Unpacking yields one value per set bitmap bit; spread them over the grid.
	if m.bitmap != nil {
		if vals, err = applyBitmap(vals, m.bitmap, int(expected)); err != nil {
			return nil, fmt.Errorf("applying bitmap: %w", err)
		}
	}
	if int64(len(vals)) != expected {
		return nil, fmt.Errorf("decoded %d values, expected %d (%dx%d)", len(vals), expected, ni, nj)
	}
	return &Field{Grid: m.Grid, Vals: vals}, nil
}

// DecodeMessage parses a raw GRIB2 message and unpacks its values.
func DecodeMessage(raw []byte) (*Field, error) {
	m, err := ParseMessage(raw)
	if err != nil {
		return nil, err
	}
	return m.Field()
}
