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

import "fmt"

// RefKind is the kind of reference from generated code or data to a symbol.
type RefKind int

// List of reference kinds.
const (
	// the backend chooses according to the code model
	Auto RefKind = iota

	// 32 bit displacement relative to the end of the field
	PCRel32

	// 64 bit absolute address
	Abs64
)

func (k RefKind) String() string {
	switch k {
	case Auto:
		return "auto"
	case PCRel32:
		return "pcrel32"
	case Abs64:
		return "abs64"
	}
	return "unknown"
}

// Ref is a reference to a symbol at an offset into the code or data of a
// function or global.
type Ref struct {
	Offset uint64
	Symbol string
	Kind   RefKind
	Addend int64
}

// Function in a module. Code is machine code for the target with zeroed
// fields at every Ref.
type Function struct {
	Name  string
	Code  []byte
	Align uint32
	Refs  []Ref
}

// Global variable in a module.
type Global struct {
	Name     string
	Data     []byte
	Align    uint32
	ReadOnly bool
	Refs     []Ref
}

// Module is the intermediate representation of a compilation unit. The
// representation is released once the module has been compiled.
type Module struct {
	Name      string
	Functions []Function
	Globals   []Global

	released bool
}

// NewModule is the preferred method of initialisation for the Module type.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddFunction to the module.
func (m *Module) AddFunction(f Function) {
	m.Functions = append(m.Functions, f)
}

// AddGlobal to the module.
func (m *Module) AddGlobal(g Global) {
	m.Globals = append(m.Globals, g)
}

// Release the intermediate representation. The module can not be compiled
// again.
func (m *Module) Release() {
	m.Functions = nil
	m.Globals = nil
	m.released = true
}

// Released returns true if Release() has been called.
func (m *Module) Released() bool {
	return m.released
}

func (m *Module) String() string {
	if m.released {
		return fmt.Sprintf("%s (released)", m.Name)
	}
	return fmt.Sprintf("%s (%d functions, %d globals)", m.Name, len(m.Functions), len(m.Globals))
}
