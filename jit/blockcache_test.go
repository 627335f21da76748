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

package jit_test

import (
	"testing"

	"github.com/cellforge/cellforge/jit"
	"github.com/cellforge/cellforge/test"
)

func TestBlockCache(t *testing.T) {
	bc := jit.NewBlockCache()
	test.ExpectSuccess(t, bc.Insert(jit.Block{Start: 0x1000, End: 0x1020, Symbol: "a"}))
	test.ExpectSuccess(t, bc.Insert(jit.Block{Start: 0x1020, End: 0x1040, Symbol: "b"}))
	test.ExpectSuccess(t, bc.Insert(jit.Block{Start: 0x2000, End: 0x2100, Symbol: "c"}))
	test.ExpectFailure(t, bc.Insert(jit.Block{Start: 0x3000, End: 0x3000}))

	b, ok := bc.Lookup(0x101c)
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, b.Symbol, "a")
	b, ok = bc.Lookup(0x1020)
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, b.Symbol, "b")
	_, ok = bc.Lookup(0x1040)
	test.ExpectEquality(t, ok, false)
	_, ok = bc.Lookup(0x0fff)
	test.ExpectEquality(t, ok, false)

	// a single address inside a block
	test.ExpectEquality(t, bc.Invalidate(0x1024, 0x1024), 1)
	_, ok = bc.Lookup(0x1024)
	test.ExpectEquality(t, ok, false)
	test.ExpectEquality(t, bc.Len(), 2)

	// range overlapping the end of one block and the start of another
	test.ExpectSuccess(t, bc.Insert(jit.Block{Start: 0x1020, End: 0x1040, Symbol: "b"}))
	test.ExpectEquality(t, bc.Invalidate(0x1010, 0x2001), 3)
	test.ExpectEquality(t, bc.Len(), 0)
}

func TestBlockCacheOverlappingInsert(t *testing.T) {
	bc := jit.NewBlockCache()
	test.ExpectSuccess(t, bc.Insert(jit.Block{Start: 0x1000, End: 0x1100, Symbol: "old"}))
	test.ExpectSuccess(t, bc.Insert(jit.Block{Start: 0x1080, End: 0x1180, Symbol: "new"}))
	test.ExpectEquality(t, bc.Len(), 1)
	b, ok := bc.Lookup(0x1000)
	test.ExpectEquality(t, ok, false)
	b, ok = bc.Lookup(0x1100)
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, b.Symbol, "new")

	test.ExpectSuccess(t, bc.Insert(jit.Block{Start: 0xffffff00, End: 0xffffffff, Symbol: "top"}))
	test.ExpectEquality(t, bc.Invalidate(0xfffffff0, 0xffffffff), 1)
	bc.Clear()
	test.ExpectEquality(t, bc.Len(), 0)
}
