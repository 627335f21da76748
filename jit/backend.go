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

package jit

import (
	"errors"
	"fmt"

	"github.com/cellforge/cellforge/jit/object"
	"github.com/cellforge/cellforge/jit/target"
)

// Backend compiles a module into a relocatable object for the target
// machine.
type Backend interface {
	Compile(m *Module, mach target.Machine) (*object.File, error)
}

// ErrReleased is returned when compiling a module that has been released.
var ErrReleased = errors.New("jit: module has been released")

// default alignments.
const (
	functionAlign = 16
	globalAlign   = 8
)

// AssemblerBackend lays out already assembled functions and globals into
// sections and converts references into relocations.
type AssemblerBackend struct{}

type section struct {
	kind object.SectionKind
	obj  object.Section
}

func (s *section) place(data []byte, align uint32) uint64 {
	if align > s.obj.Align {
		s.obj.Align = align
	}
	off := (uint64(len(s.obj.Data)) + uint64(align) - 1) &^ (uint64(align) - 1)
	for uint64(len(s.obj.Data)) < off {
		s.obj.Data = append(s.obj.Data, 0)
	}
	s.obj.Data = append(s.obj.Data, data...)
	return off
}

func lower(ref Ref, inCode bool, model target.CodeModel) object.RelocKind {
	switch ref.Kind {
	case PCRel32:
		return object.Rel32
	case Abs64:
		return object.Abs64
	}
	if inCode && model == target.Small {
		return object.Rel32
	}
	return object.Abs64
}

// Compile implements the Backend interface.
func (AssemblerBackend) Compile(m *Module, mach target.Machine) (*object.File, error) {
	if m.Released() {
		return nil, ErrReleased
	}

	secs := []*section{
		{kind: object.Text, obj: object.Section{Kind: object.Text, Align: 1}},
		{kind: object.Data, obj: object.Section{Kind: object.Data, Align: 1}},
		{kind: object.ReadOnly, obj: object.Section{Kind: object.ReadOnly, Align: 1}},
	}

	type placed struct {
		name   string
		sec    int
		offset uint64
		size   uint64
		refs   []Ref
		inCode bool
	}
	var all []placed

	for _, f := range m.Functions {
		align := f.Align
		if align == 0 {
			align = functionAlign
		}
		off := secs[0].place(f.Code, align)
		all = append(all, placed{f.Name, 0, off, uint64(len(f.Code)), f.Refs, true})
	}

	for _, g := range m.Globals {
		align := g.Align
		if align == 0 {
			align = globalAlign
		}
		sec := 1
		if g.ReadOnly {
			sec = 2
		}
		off := secs[sec].place(g.Data, align)
		all = append(all, placed{g.Name, sec, off, uint64(len(g.Data)), g.Refs, false})
	}

	// only non-empty sections are emitted
	f := &object.File{
		Name:   m.Name,
		Triple: mach.Triple,
	}
	index := make(map[int]int)
	for i, s := range secs {
		if len(s.obj.Data) > 0 {
			index[i] = len(f.Sections)
			f.Sections = append(f.Sections, s.obj)
		}
	}

	for _, p := range all {
		if p.size == 0 {
			return nil, fmt.Errorf("jit: %s: %s is empty", m.Name, p.name)
		}
		sec := index[p.sec]
		f.Symbols = append(f.Symbols, object.Symbol{
			Name:    p.name,
			Section: sec,
			Offset:  p.offset,
			Size:    p.size,
			Global:  true,
		})
		for _, ref := range p.refs {
			kind := lower(ref, p.inCode, mach.CodeModel)
			if ref.Offset+kind.Width() > p.size {
				return nil, fmt.Errorf("jit: %s: reference to %s outside of %s", m.Name, ref.Symbol, p.name)
			}
			f.Relocations = append(f.Relocations, object.Relocation{
				Section: sec,
				Offset:  p.offset + ref.Offset,
				Kind:    kind,
				Symbol:  ref.Symbol,
				Addend:  ref.Addend,
			})
		}
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("jit: %s: %w", m.Name, err)
	}

	return f, nil
}
