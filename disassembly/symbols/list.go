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
	"io"
)

// ListSymbols outputs every symbol.
func (sym *Symbols) ListSymbols(output io.Writer) {
	sym.crit.Lock()
	defer sym.crit.Unlock()

	for _, t := range []*Table{sym.functions, sym.data, sym.labels} {
		if t.Len() == 0 {
			continue
		}
		fmt.Fprintf(output, "%ss\n", t.kind)
		output.Write([]byte(t.String()))
	}
}

// Entries returns every symbol of the specified kind in address order.
func (sym *Symbols) Entries(kind Kind) []Entry {
	sym.crit.Lock()
	defer sym.crit.Unlock()

	t := sym.table(kind)
	ents := make([]Entry, 0, t.Len())
	for _, a := range t.idx {
		ents = append(ents, t.entries[a])
	}
	return ents
}
