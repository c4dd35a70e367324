// Package image models the byte contents supplied to a decoding engine
// as an ordered set of loaded sections. Sections may be discontiguous;
// reads are resolved against their union.
package image

import (
	"errors"
	"fmt"
)

// ErrMemoryUnavailable is returned when no section covers any byte of a
// requested range. Partially covered ranges do not fail; see Read.
var ErrMemoryUnavailable = errors.New("memory unavailable")

// Perms describes a section's access permissions as recorded by the
// loader. The engine itself does not enforce them.
type Perms struct {
	Read    bool
	Write   bool
	Execute bool
}

// Section is one loaded byte range at a fixed base address.
type Section struct {
	Base  uint64
	Data  []byte
	Perms Perms
}

// End returns the address one past the last byte of the section.
func (s Section) End() uint64 {
	return s.Base + uint64(len(s.Data))
}

// contains reports whether addr falls inside the section.
func (s Section) contains(addr uint64) bool {
	return addr >= s.Base && addr < s.End()
}

// Image is an ordered set of sections. Earlier sections win where
// sections overlap. An Image is read-only once handed to an engine.
type Image struct {
	Sections []Section
}

// FromBytes builds a single-section image with read and execute
// permissions, the common case for decoding a raw code blob.
func FromBytes(base uint64, data []byte) *Image {
	return &Image{Sections: []Section{{
		Base:  base,
		Data:  data,
		Perms: Perms{Read: true, Execute: true},
	}}}
}

// Read fills buf with the bytes at [addr, addr+len(buf)). Bytes covered
// by a section come from that section; uncovered bytes are zero-filled.
// It returns the number of covered bytes. If no byte of the range is
// covered by any section the read fails with ErrMemoryUnavailable and
// buf is left untouched: decoding at a genuinely unmapped address must
// abort rather than decode zeros.
func (img *Image) Read(addr uint64, buf []byte) (int, error) {
	covered := 0
	for i := range buf {
		if _, ok := img.sectionAt(addr + uint64(i)); ok {
			covered++
		}
	}
	if covered == 0 {
		return 0, fmt.Errorf("%w: %#x+%d outside all sections", ErrMemoryUnavailable, addr, len(buf))
	}
	for i := range buf {
		a := addr + uint64(i)
		if sec, ok := img.sectionAt(a); ok {
			buf[i] = sec.Data[a-sec.Base]
		} else {
			buf[i] = 0
		}
	}
	return covered, nil
}

// sectionAt returns the first section containing addr.
func (img *Image) sectionAt(addr uint64) (Section, bool) {
	for _, sec := range img.Sections {
		if sec.contains(addr) {
			return sec, true
		}
	}
	return Section{}, false
}

// Covered reports whether every byte of [addr, addr+size) lies inside
// some section.
func (img *Image) Covered(addr uint64, size int) bool {
	for i := 0; i < size; i++ {
		if _, ok := img.sectionAt(addr + uint64(i)); !ok {
			return false
		}
	}
	return true
}

// Size returns the total number of loaded bytes across all sections.
func (img *Image) Size() int {
	n := 0
	for _, sec := range img.Sections {
		n += len(sec.Data)
	}
	return n
}

// Rebase returns a copy of the image shifted so its lowest section
// starts at base. Relative layout between sections is preserved; the
// section byte slices are shared with the receiver.
func (img *Image) Rebase(base uint64) *Image {
	if len(img.Sections) == 0 {
		return &Image{}
	}
	low := img.Sections[0].Base
	for _, sec := range img.Sections[1:] {
		if sec.Base < low {
			low = sec.Base
		}
	}
	out := &Image{Sections: make([]Section, len(img.Sections))}
	for i, sec := range img.Sections {
		sec.Base = base + (sec.Base - low)
		out.Sections[i] = sec
	}
	return out
}
