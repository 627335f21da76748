// This file is part of Cellforge.
//
// Cellforge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cellforge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Cellforge.  If not, see <https://www.gnu.org/licenses/>.

package object

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic bytes at the start of every encoded object.
const Magic = "CFOB"

// Version of the encoding.
const Version = 1

// ErrTruncated is returned by Parse() when the data ends early.
var ErrTruncated = errors.New("object: truncated data")

// MarshalBinary encodes the object.
func (f *File) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var b []byte
	b = append(b, Magic...)
	b = binary.LittleEndian.AppendUint16(b, Version)
	b = appendString(b, f.Name)
	b = appendString(b, f.Triple)

	b = binary.LittleEndian.AppendUint32(b, uint32(len(f.Sections)))
	for _, s := range f.Sections {
		b = append(b, byte(s.Kind))
		b = binary.LittleEndian.AppendUint32(b, s.Align)
		b = binary.LittleEndian.AppendUint32(b, uint32(len(s.Data)))
		b = append(b, s.Data...)
	}

	b = binary.LittleEndian.AppendUint32(b, uint32(len(f.Symbols)))
	for _, s := range f.Symbols {
		b = appendString(b, s.Name)
		b = binary.LittleEndian.AppendUint32(b, uint32(s.Section))
		b = binary.LittleEndian.AppendUint64(b, s.Offset)
		b = binary.LittleEndian.AppendUint64(b, s.Size)
		if s.Global {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}

	b = binary.LittleEndian.AppendUint32(b, uint32(len(f.Relocations)))
	for _, r := range f.Relocations {
		b = binary.LittleEndian.AppendUint32(b, uint32(r.Section))
		b = binary.LittleEndian.AppendUint64(b, r.Offset)
		b = append(b, byte(r.Kind))
		b = appendString(b, r.Symbol)
		b = binary.LittleEndian.AppendUint64(b, uint64(r.Addend))
	}

	return b, nil
}

func appendString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

// decoder consumes encoded data. the first error is sticky.
type decoder struct {
	b   []byte
	err error
}

func (d *decoder) take(n uint64) []byte {
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.b)) {
		d.err = ErrTruncated
		return nil
	}
	v := d.b[:n]
	d.b = d.b[n:]
	return v
}

func (d *decoder) u8() uint8 {
	if v := d.take(1); v != nil {
		return v[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if v := d.take(2); v != nil {
		return binary.LittleEndian.Uint16(v)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if v := d.take(4); v != nil {
		return binary.LittleEndian.Uint32(v)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if v := d.take(8); v != nil {
		return binary.LittleEndian.Uint64(v)
	}
	return 0
}

func (d *decoder) str() string {
	return string(d.take(uint64(d.u32())))
}

// count reads an element count. the count can not be larger than the
// remaining data divided by the smallest possible element size.
func (d *decoder) count(minSize int) int {
	n := d.u32()
	if d.err == nil && uint64(n)*uint64(minSize) > uint64(len(d.b)) {
		d.err = ErrTruncated
		return 0
	}
	return int(n)
}

// Parse decodes and validates an object.
func Parse(b []byte) (*File, error) {
	if !bytes.HasPrefix(b, []byte(Magic)) {
		return nil, fmt.Errorf("object: not an object file")
	}

	d := decoder{b: b[len(Magic):]}
	if v := d.u16(); d.err == nil && v != Version {
		return nil, fmt.Errorf("object: unsupported version (%d)", v)
	}

	f := &File{}
	f.Name = d.str()
	f.Triple = d.str()

	n := d.count(9)
	for i := 0; i < n && d.err == nil; i++ {
		s := Section{
			Kind:  SectionKind(d.u8()),
			Align: d.u32(),
		}
		s.Data = bytes.Clone(d.take(uint64(d.u32())))
		if s.Data == nil {
			s.Data = []byte{}
		}
		f.Sections = append(f.Sections, s)
	}

	n = d.count(25)
	for i := 0; i < n && d.err == nil; i++ {
		f.Symbols = append(f.Symbols, Symbol{
			Name:    d.str(),
			Section: int(d.u32()),
			Offset:  d.u64(),
			Size:    d.u64(),
			Global:  d.u8() != 0,
		})
	}

	n = d.count(25)
	for i := 0; i < n && d.err == nil; i++ {
		f.Relocations = append(f.Relocations, Relocation{
			Section: int(d.u32()),
			Offset:  d.u64(),
			Kind:    RelocKind(d.u8()),
			Symbol:  d.str(),
			Addend:  int64(d.u64()),
		})
	}

	if d.err != nil {
		return nil, d.err
	}
	if len(d.b) != 0 {
		return nil, fmt.Errorf("object: %d bytes of trailing data", len(d.b))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	return f, nil
}
