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

package memmgr

import (
	"fmt"

	"github.com/cellforge/cellforge/jit/stubs"
)

// Resolver finds the address of a symbol required by generated code.
type Resolver struct {
	// symbols supplied by the embedding application when the compiler was
	// created. may be nil
	LinkTable map[string]uintptr

	// symbols owned by the host application that are looked up on demand. a
	// return value of zero means the symbol is not known. may be nil
	Cement func(name string) uintptr

	// last resort. may be nil, in which case unresolved symbols are an error
	Stubs *stubs.Table
}

// FindSymbol returns the address of the named symbol. The first non-zero
// result wins.
func (r *Resolver) FindSymbol(name string) (uintptr, error) {
	if addr, ok := r.LinkTable[name]; ok && addr != 0 {
		return addr, nil
	}

	if r.Cement != nil {
		if addr := r.Cement(name); addr != 0 {
			return addr, nil
		}
	}

	if r.Stubs != nil {
		return r.Stubs.ResolveOrStub(name)
	}

	return 0, fmt.Errorf("memmgr: unresolved symbol (%s)", name)
}
