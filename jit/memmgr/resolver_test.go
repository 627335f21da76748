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

package memmgr_test

import (
	"testing"

	"github.com/cellforge/cellforge/jit/fault"
	"github.com/cellforge/cellforge/jit/memmgr"
	"github.com/cellforge/cellforge/jit/stubs"
	"github.com/cellforge/cellforge/jit/vmem"
	"github.com/cellforge/cellforge/test"
)

func TestFindSymbolOrder(t *testing.T) {
	plt := vmem.NewSimulated(0x200000000, 0)
	rgn, err := stubs.NewRegion(plt, 0)
	test.DemandSuccess(t, err)
	tab := stubs.NewTable(rgn, stubs.AMD64SysV, 0x1000)

	var cemented []string
	r := memmgr.Resolver{
		LinkTable: map[string]uintptr{
			"linked": 0x1111,
			"both":   0x2222,
			"zero":   0,
		},
		Cement: func(name string) uintptr {
			cemented = append(cemented, name)
			switch name {
			case "both":
				return 0x3333
			case "cemented", "zero":
				return 0x4444
			}
			return 0
		},
		Stubs: tab,
	}

	addr, err := r.FindSymbol("linked")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, addr, uintptr(0x1111))

	// link table wins and the cement callback is not consulted
	addr, _ = r.FindSymbol("both")
	test.ExpectEquality(t, addr, uintptr(0x2222))
	test.ExpectEquality(t, len(cemented), 0)

	// zero in the link table means not found
	addr, _ = r.FindSymbol("zero")
	test.ExpectEquality(t, addr, uintptr(0x4444))

	addr, _ = r.FindSymbol("cemented")
	test.ExpectEquality(t, addr, uintptr(0x4444))

	addr, err = r.FindSymbol("missing")
	test.ExpectSuccess(t, err)
	stub, ok := tab.Lookup("missing")
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, addr, stub)

	_, err = r.FindSymbol("__0x00400000")
	test.ExpectEquality(t, fault.IsFatal(err), true)

	// without a stub table unresolved symbols are errors
	_, err = (&memmgr.Resolver{}).FindSymbol("missing")
	test.ExpectFailure(t, err)
}

func TestDelegate(t *testing.T) {
	arena, err := memmgr.NewSharedArena(vmem.NewSimulated(0x300000000, 0), 1<<20)
	test.DemandSuccess(t, err)

	a := memmgr.NewDelegate(arena, memmgr.Resolver{})
	b := memmgr.NewDelegate(arena, memmgr.Resolver{})

	x, err := a.Allocate(memmgr.Code, 64, 16)
	test.DemandSuccess(t, err)
	y, err := b.Allocate(memmgr.Code, 64, 16)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, y >= x+64, true)

	d, err := a.Allocate(memmgr.ReadOnly, 8, 8)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, b.Write(d, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	p := make([]byte, 8)
	test.ExpectSuccess(t, a.Read(p, d))
	test.ExpectEquality(t, p[7], uint8(8))

	st := arena.Stats()
	test.ExpectEquality(t, st[0].Cursor, uint64(128))
	test.ExpectEquality(t, st[1].Cursor, uint64(8))
	test.ExpectSuccess(t, a.Close())
}

func TestSharedArenaStubs(t *testing.T) {
	arena, err := memmgr.NewSharedArena(vmem.NewSimulated(0x400000000, 0), 1<<20)
	test.DemandSuccess(t, err)
	tab := stubs.NewTable(arena, stubs.ARM64, 0x1000)
	addr, err := tab.ResolveOrStub("helper")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, addr%16, uintptr(0))
}
