package grib2

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/edsrzf/mmap-go"
)

// File is a GRIB2 message collection mapped read-only into memory. Messages
// point into the mapping and must be unpacked before Close; the values of a
// Field are copies.
type File struct {
	f    *os.File
	data mmap.MMap
	size int64
}

// Open maps path read-only.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("%s: empty file", path)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return &File{f: f, data: m, size: st.Size()}, nil
}

// Size is the file size in bytes.
func (g *File) Size() int64 { return g.size }

// Messages splits the file on Section 0 total lengths and parses every
// message. Bytes between messages are skipped up to the next "GRIB" marker.
func (g *File) Messages() ([]*Message, error) {
	return splitMessages(g.data)
}

func splitMessages(buf []byte) ([]*Message, error) {
	var msgs []*Message
	off := 0
	for {
		k := bytes.Index(buf[off:], []byte("GRIB"))
		if k < 0 {
			break
		}
		off += k
		s0, err := parseSection0(buf[off:])
		if err != nil {
			return nil, fmt.Errorf("message %d at offset %d: %w", len(msgs)+1, off, err)
		}
		if s0.TotalLength < 16+4 || s0.TotalLength > uint64(len(buf)-off) {
			return nil, fmt.Errorf("message %d at offset %d: total length %d overflows file (%d bytes left)",
				len(msgs)+1, off, s0.TotalLength, len(buf)-off)
		}
		end := off + int(s0.TotalLength)
		if !isEndMarker(buf, end-4) {
			return nil, fmt.Errorf("message %d at offset %d: missing 7777 end marker", len(msgs)+1, off)
		}
		m, err := ParseMessage(buf[off:end])
		if err != nil {
			return nil, fmt.Errorf("message %d at offset %d: %w", len(msgs)+1, off, err)
		}
		m.Index = len(msgs) + 1
		msgs = append(msgs, m)
		off = end
	}
	if len(msgs) == 0 {
		return nil, errors.New("no GRIB messages found")
	}
	return msgs, nil
}

// Close unmaps and closes the file.
func (g *File) Close() error {
	if g.data != nil {
		if err := g.data.Unmap(); err != nil {
			return err
		}
		g.data = nil
	}
	if g.f != nil {
		err := g.f.Close()
		g.f = nil
		return err
	}
	return nil
}

// Select keeps the messages whose name or short name is in names and whose
// level is in levels. An empty filter matches everything.
func Select(msgs []*Message, names []string, levels []int) []*Message {
	var out []*Message
	for _, m := range msgs {
		if len(names) > 0 && !slices.Contains(names, m.Param.Name) && !slices.Contains(names, m.Param.ShortName) {
			continue
		}
		if len(levels) > 0 && !slices.Contains(levels, m.Level()) {
			continue
		}
		out = append(out, m)
	}
	return out
}
