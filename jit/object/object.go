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

// Package object defines the relocatable object format produced by the JIT
// backend and stored by the object cache.
//
// An object has up to one section of each kind, a symbol table and a list of
// relocations. The binary encoding starts with the magic bytes "CFOB"
// followed by a version number. All integers are little endian.
//
// Parse() validates every index and bound in the encoded data. A truncated
// or corrupted object always fails to parse.
package object

import (
	"fmt"
	"math/bits"
)

// SectionKind identifies the purpose of a section.
type SectionKind uint8

// List of section kinds.
const (
	Text SectionKind = iota
	Data
	ReadOnly
)

func (k SectionKind) String() string {
	switch k {
	case Text:
		return "text"
	case Data:
		return "data"
	case ReadOnly:
		return "rodata"
	}
	return fmt.Sprintf("section(%d)", uint8(k))
}

// Section of an object.
type Section struct {
	Kind  SectionKind
	Align uint32
	Data  []byte
}

// Symbol defined by an object.
type Symbol struct {
	Name    string
	Section int
	Offset  uint64
	Size    uint64
	Global  bool
}

// RelocKind is the type of a relocation.
type RelocKind uint8

// List of relocation kinds.
const (
	// 64 bit absolute address of symbol plus addend
	Abs64 RelocKind = iota

	// 32 bit signed displacement from the end of the relocated field to the
	// symbol plus addend
	Rel32
)

func (k RelocKind) String() string {
	switch k {
	case Abs64:
		return "abs64"
	case Rel32:
		return "rel32"
	}
	return fmt.Sprintf("reloc(%d)", uint8(k))
}

// Width returns the number of bytes patched by the relocation.
func (k RelocKind) Width() uint64 {
	if k == Rel32 {
		return 4
	}
	return 8
}

// Relocation of a field in a section.
type Relocation struct {
	Section int
	Offset  uint64
	Kind    RelocKind
	Symbol  string
	Addend  int64
}

// File is a relocatable object.
type File struct {
	Name        string
	Triple      string
	Sections    []Section
	Symbols     []Symbol
	Relocations []Relocation
}

// Symbol returns the named symbol.
func (f *File) Symbol(name string) (Symbol, bool) {
	for _, s := range f.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// Section returns the index of the section of the specified kind.
func (f *File) Section(kind SectionKind) (int, bool) {
	for i, s := range f.Sections {
		if s.Kind == kind {
			return i, true
		}
	}
	return 0, false
}

// Validate checks the internal consistency of the object.
func (f *File) Validate() error {
	var seen [3]bool
	for i, s := range f.Sections {
		if s.Kind > ReadOnly {
			return fmt.Errorf("object: section %d: unknown kind (%d)", i, s.Kind)
		}
		if seen[s.Kind] {
			return fmt.Errorf("object: section %d: duplicate %s section", i, s.Kind)
		}
		seen[s.Kind] = true
		if s.Align == 0 || bits.OnesCount32(s.Align) != 1 {
			return fmt.Errorf("object: section %d: alignment %d is not a power of two", i, s.Align)
		}
	}

	names := make(map[string]bool, len(f.Symbols))
	for _, s := range f.Symbols {
		if s.Name == "" {
			return fmt.Errorf("object: symbol with no name")
		}
		if names[s.Name] {
			return fmt.Errorf("object: duplicate symbol (%s)", s.Name)
		}
		names[s.Name] = true
		if s.Section < 0 || s.Section >= len(f.Sections) {
			return fmt.Errorf("object: symbol %s: section %d out of range", s.Name, s.Section)
		}
		// empty sections are never placed in memory so have no address
		if len(f.Sections[s.Section].Data) == 0 {
			return fmt.Errorf("object: symbol %s: section %d is empty", s.Name, s.Section)
		}
		end := s.Offset + s.Size
		if end < s.Offset || end > uint64(len(f.Sections[s.Section].Data)) {
			return fmt.Errorf("object: symbol %s: extent outside of section", s.Name)
		}
	}

	for i, r := range f.Relocations {
		if r.Symbol == "" {
			return fmt.Errorf("object: relocation %d: no symbol", i)
		}
		if r.Kind > Rel32 {
			return fmt.Errorf("object: relocation %d: unknown kind (%d)", i, r.Kind)
		}
		if r.Section < 0 || r.Section >= len(f.Sections) {
			return fmt.Errorf("object: relocation %d: section %d out of range", i, r.Section)
		}
		end := r.Offset + r.Kind.Width()
		if end < r.Offset || end > uint64(len(f.Sections[r.Section].Data)) {
			return fmt.Errorf("object: relocation %d: field outside of section", i)
		}
	}

	return nil
}
