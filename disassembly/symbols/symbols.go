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

package symbols

import (
	"sync"
)

// Symbols contains the all currently defined symbols.
type Symbols struct {
	functions *Table
	data      *Table
	labels    *Table

	crit sync.Mutex
}

// NewSymbols is the preferred method of initialisation for the Symbols type.
// In many instances however, ReadSymbolsFile() might be more appropriate.
func NewSymbols() *Symbols {
	return &Symbols{
		functions: newTable(Function),
		data:      newTable(Data),
		labels:    newTable(Label),
	}
}

func (sym *Symbols) table(kind Kind) *Table {
	switch kind {
	case Function:
		return sym.functions
	case Data:
		return sym.data
	}
	return sym.labels
}

// AddFunction adds a function symbol. An existing function at the same address
// is replaced.
func (sym *Symbols) AddFunction(addr uint32, size uint32, symbol string) {
	sym.crit.Lock()
	defer sym.crit.Unlock()
	sym.functions.add(Entry{Symbol: symbol, Address: addr, Size: size}, true)
}

// AddData adds a data symbol. An existing data symbol at the same address is
// replaced.
func (sym *Symbols) AddData(addr uint32, size uint32, symbol string) {
	sym.crit.Lock()
	defer sym.crit.Unlock()
	sym.data.add(Entry{Symbol: symbol, Address: addr, Size: size}, true)
}

// AddLabel adds a label. An existing label is only replaced if prefer is true.
func (sym *Symbols) AddLabel(addr uint32, symbol string, prefer bool) {
	sym.crit.Lock()
	defer sym.crit.Unlock()
	sym.labels.add(Entry{Symbol: symbol, Address: addr}, prefer)
}

// Remove the symbol of the specified kind at the address. Returns false if
// there was no such symbol.
func (sym *Symbols) Remove(kind Kind, addr uint32) bool {
	sym.crit.Lock()
	defer sym.crit.Unlock()
	return sym.table(kind).remove(addr)
}

// FunctionAt returns the size of the function starting at the address.
func (sym *Symbols) FunctionAt(addr uint32) (uint32, bool) {
	sym.crit.Lock()
	defer sym.crit.Unlock()
	e, ok := sym.functions.entries[addr]
	if !ok || e.Size == 0 {
		return 0, false
	}
	return e.Size, true
}

// DataAt returns the size of the data object starting at the address.
func (sym *Symbols) DataAt(addr uint32) (uint32, bool) {
	sym.crit.Lock()
	defer sym.crit.Unlock()
	e, ok := sym.data.entries[addr]
	if !ok || e.Size == 0 {
		return 0, false
	}
	return e.Size, true
}

// FunctionContaining returns the function whose extent includes the address.
func (sym *Symbols) FunctionContaining(addr uint32) (Entry, bool) {
	sym.crit.Lock()
	defer sym.crit.Unlock()
	return sym.functions.covering(addr)
}

// Containing returns the start address of the function or data symbol whose
// extent includes the address.
func (sym *Symbols) Containing(addr uint32) (uint32, bool) {
	sym.crit.Lock()
	defer sym.crit.Unlock()

	if e, ok := sym.functions.covering(addr); ok {
		return e.Address, true
	}
	if e, ok := sym.data.covering(addr); ok {
		return e.Address, true
	}
	return 0, false
}

// NextSymbolAddress returns the address of the first function or data symbol
// after the address.
func (sym *Symbols) NextSymbolAddress(addr uint32) (uint32, bool) {
	sym.crit.Lock()
	defer sym.crit.Unlock()

	f, fok := sym.functions.next(addr)
	d, dok := sym.data.next(addr)
	switch {
	case fok && dok:
		return min(f, d), true
	case fok:
		return f, true
	case dok:
		return d, true
	}
	return 0, false
}

// Label returns the name to display at the address. Functions and data
// symbols take priority over labels.
func (sym *Symbols) Label(addr uint32) (string, bool) {
	sym.crit.Lock()
	defer sym.crit.Unlock()

	for _, t := range []*Table{sym.functions, sym.data, sym.labels} {
		if e, ok := t.entries[addr]; ok {
			return e.Symbol, true
		}
	}
	return "", false
}

// LabelWidth returns the maximum number of characters required by any symbol.
func (sym *Symbols) LabelWidth() int {
	sym.crit.Lock()
	defer sym.crit.Unlock()
	return max(sym.functions.maxWidth, sym.data.maxWidth, sym.labels.maxWidth)
}

// Len returns the total number of symbols.
func (sym *Symbols) Len() int {
	sym.crit.Lock()
	defer sym.crit.Unlock()
	return sym.functions.Len() + sym.data.Len() + sym.labels.Len()
}
