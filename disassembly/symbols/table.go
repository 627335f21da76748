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
	"fmt"
	"sort"
	"strings"
)

// Kind of symbol.
type Kind int

// List of valid Kind values.
const (
	Function Kind = iota
	Data
	Label
)

func (k Kind) String() string {
	switch k {
	case Function:
		return "function"
	case Data:
		return "data"
	case Label:
		return "label"
	}
	return "unknown"
}

// Entry is a single symbol in a table.
type Entry struct {
	Symbol  string
	Address uint32

	// size is zero for labels
	Size uint32
}

func (e Entry) String() string {
	if e.Size == 0 {
		return fmt.Sprintf("%#08x -> %s", e.Address, e.Symbol)
	}
	return fmt.Sprintf("%#08x -> %s (%d bytes)", e.Address, e.Symbol, e.Size)
}

// Table maps an address to a symbol. It also keeps track of the widest symbol
// in the Table.
type Table struct {
	kind Kind

	// indexed by address
	entries map[uint32]Entry

	// index of keys in entries. sortable through the sort.Interface
	idx []uint32

	// the longest symbol in the entries map
	maxWidth int
}

func newTable(kind Kind) *Table {
	return &Table{
		kind:    kind,
		entries: make(map[uint32]Entry),
	}
}

func (t Table) String() string {
	s := strings.Builder{}
	for _, a := range t.idx {
		s.WriteString(t.entries[a].String())
		s.WriteString("\n")
	}
	return s.String()
}

func (t *Table) add(e Entry, prefer bool) {
	if _, ok := t.entries[e.Address]; ok {
		// overwrite existing symbol with preferred symbol
		if prefer {
			t.entries[e.Address] = e
			t.widen(e.Symbol)
		}
		return
	}

	t.entries[e.Address] = e
	t.idx = append(t.idx, e.Address)
	sort.Sort(t)
	t.widen(e.Symbol)
}

func (t *Table) widen(symbol string) {
	if len(symbol) > t.maxWidth {
		t.maxWidth = len(symbol)
	}
}

func (t *Table) remove(addr uint32) bool {
	if _, ok := t.entries[addr]; !ok {
		return false
	}
	delete(t.entries, addr)

	i := sort.Search(len(t.idx), func(i int) bool { return t.idx[i] >= addr })
	t.idx = append(t.idx[:i], t.idx[i+1:]...)

	t.maxWidth = 0
	for _, e := range t.entries {
		t.widen(e.Symbol)
	}
	return true
}

// next returns the first entry whose address is greater than addr.
func (t *Table) next(addr uint32) (uint32, bool) {
	i := sort.Search(len(t.idx), func(i int) bool { return t.idx[i] > addr })
	if i >= len(t.idx) {
		return 0, false
	}
	return t.idx[i], true
}

// covering returns the entry with an extent that contains addr.
func (t *Table) covering(addr uint32) (Entry, bool) {
	i := sort.Search(len(t.idx), func(i int) bool { return t.idx[i] > addr })
	if i == 0 {
		return Entry{}, false
	}
	e := t.entries[t.idx[i-1]]
	if addr-e.Address < e.Size {
		return e, true
	}
	return Entry{}, false
}

// Len implements the sort.Interface.
func (t Table) Len() int {
	return len(t.idx)
}

// Less implements the sort.Interface.
func (t Table) Less(i, j int) bool {
	return t.idx[i] < t.idx[j]
}

// Swap implements the sort.Interface.
func (t Table) Swap(i, j int) {
	t.idx[i], t.idx[j] = t.idx[j], t.idx[i]
}
