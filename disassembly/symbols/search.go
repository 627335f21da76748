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
	"strings"
)

// SearchTable is used to select which table to search.
type SearchTable int

// List of valid SearchTable values.
const (
	SearchAll SearchTable = iota
	SearchFunction
	SearchData
	SearchLabel
)

// SearchResults contains the normalised symbol info found in the Symbols
// tables.
type SearchResults struct {
	// the kind of symbol that was matched
	Kind Kind

	// the matched symbol and address
	Entry Entry
}

// Search return the address of the supplied symbol. Matching is
// case-insensitive. Returns nil if the symbol is not found.
func (sym *Symbols) Search(symbol string, target SearchTable) *SearchResults {
	sym.crit.Lock()
	defer sym.crit.Unlock()

	for _, t := range sym.searchOrder(target) {
		for _, e := range t.entries {
			if strings.EqualFold(e.Symbol, symbol) {
				return &SearchResults{Kind: t.kind, Entry: e}
			}
		}
	}

	return nil
}

// ReverseSearch returns the symbol for the address. Unlike Label() the
// address can be anywhere inside the extent of a function or data symbol.
// Returns nil if no symbol is found.
func (sym *Symbols) ReverseSearch(addr uint32, target SearchTable) *SearchResults {
	sym.crit.Lock()
	defer sym.crit.Unlock()

	for _, t := range sym.searchOrder(target) {
		if e, ok := t.entries[addr]; ok {
			return &SearchResults{Kind: t.kind, Entry: e}
		}
		if e, ok := t.covering(addr); ok {
			return &SearchResults{Kind: t.kind, Entry: e}
		}
	}

	return nil
}

func (sym *Symbols) searchOrder(target SearchTable) []*Table {
	switch target {
	case SearchFunction:
		return []*Table{sym.functions}
	case SearchData:
		return []*Table{sym.data}
	case SearchLabel:
		return []*Table{sym.labels}
	}
	return []*Table{sym.functions, sym.data, sym.labels}
}
