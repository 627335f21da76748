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

package debugger

import (
	"github.com/cellforge/cellforge/disassembly/symbols"
)

// functions resolves identifiers in breakpoint and memcheck conditions.
// registers take priority over symbols.
type functions struct {
	dbg *Debugger
}

func (f functions) Lookup(name string) (uint64, bool) {
	if f.dbg.regs != nil {
		if v, ok := f.dbg.regs.Register(name); ok {
			return v, true
		}
	}
	if res := f.dbg.Sym.Search(name, symbols.SearchAll); res != nil {
		return uint64(res.Entry.Address), true
	}
	return 0, false
}

func (f functions) ReadMemory(addr uint32) (uint32, error) {
	return f.dbg.target.Read32(addr)
}
