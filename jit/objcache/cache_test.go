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

package objcache_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cellforge/cellforge/jit/objcache"
	"github.com/cellforge/cellforge/jit/object"
	"github.com/cellforge/cellforge/test"
)

func newCache(t *testing.T, budget uint64) *objcache.Cache {
	t.Helper()
	return &objcache.Cache{
		Path:   t.TempDir() + string(filepath.Separator),
		Budget: objcache.NewBudget(budget),
	}
}

func TestRoundTrip(t *testing.T) {
	c := newCache(t, 1<<20)

	for _, obj := range [][]byte{
		{0x01},
		[]byte("a compiled module"),
		bytes.Repeat([]byte{0x90, 0x90, 0xc3}, 10000),
	} {
		c.OnCompiled("module", obj)
		b, ok := objcache.Load(c.Path + "module")
		test.DemandEquality(t, ok, true)
		test.ExpectEquality(t, bytes.Equal(b, obj), true)
	}

	// no temporary files are left behind
	ents, err := objcache.Entries(c.Path)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, len(ents), 1)
	test.ExpectEquality(t, ents[0].Module, "module")
	test.ExpectEquality(t, ents[0].Compressed, true)
}

func TestStandardGzip(t *testing.T) {
	c := newCache(t, 1<<20)
	c.OnCompiled("std", []byte("readable by any gzip tool"))

	f, err := os.Open(c.EntryPath("std"))
	test.DemandSuccess(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	test.DemandSuccess(t, err)
	b, err := io.ReadAll(zr)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, string(b), "readable by any gzip tool")
}

func TestBudgetAccounting(t *testing.T) {
	obj := bytes.Repeat([]byte{0}, 4096)
	c := newCache(t, 1<<20)
	c.OnCompiled("zeros", obj)

	fi, err := os.Stat(c.EntryPath("zeros"))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, c.Budget.Remaining(), uint64(1<<20)-uint64(fi.Size()))
}

func TestInsufficientBudget(t *testing.T) {
	c := newCache(t, 100)
	c.OnCompiled("big", make([]byte, 26))

	_, err := os.Stat(c.EntryPath("big"))
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, c.Budget.Remaining(), uint64(100))
}

func TestEmptyObject(t *testing.T) {
	c := newCache(t, 100)
	c.OnCompiled("empty", nil)
	_, err := os.Stat(c.EntryPath("empty"))
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, c.Budget.Remaining(), uint64(100))
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	_, ok := objcache.Load(filepath.Join(dir, "never"))
	test.ExpectEquality(t, ok, false)

	// empty compressed file
	pth := filepath.Join(dir, "empty")
	test.DemandSuccess(t, os.WriteFile(pth+objcache.Extension, nil, 0o600))
	_, ok = objcache.Load(pth)
	test.ExpectEquality(t, ok, false)

	// truncated compressed file
	c := &objcache.Cache{Path: dir + string(filepath.Separator), Budget: objcache.NewBudget(1 << 20)}
	c.OnCompiled("trunc", bytes.Repeat([]byte("abcdefgh"), 1000))
	b, err := os.ReadFile(c.EntryPath("trunc"))
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, os.WriteFile(c.EntryPath("trunc"), b[:len(b)/2], 0o600))
	_, ok = objcache.Load(filepath.Join(dir, "trunc"))
	test.ExpectEquality(t, ok, false)

	// legacy uncompressed file
	test.DemandSuccess(t, os.WriteFile(filepath.Join(dir, "legacy"), []byte{1, 2, 3}, 0o600))
	b, ok = objcache.Load(filepath.Join(dir, "legacy"))
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, len(b), 3)
}

func TestIsValid(t *testing.T) {
	c := newCache(t, 1<<20)

	f := &object.File{
		Name:     "valid",
		Sections: []object.Section{{Kind: object.Text, Align: 16, Data: []byte{0xc3}}},
		Symbols:  []object.Symbol{{Name: "valid", Size: 1, Global: true}},
	}
	obj, err := f.MarshalBinary()
	test.DemandSuccess(t, err)
	c.OnCompiled("valid", obj)
	test.ExpectEquality(t, objcache.IsValid(c.Path+"valid"), true)

	// not an object. the entry is deleted
	c.OnCompiled("garbage", []byte("garbage"))
	test.ExpectEquality(t, objcache.IsValid(c.Path+"garbage"), false)
	_, err = os.Stat(c.EntryPath("garbage"))
	test.ExpectFailure(t, err)

	test.ExpectEquality(t, objcache.IsValid(c.Path+"missing"), false)
}

func TestUnitPrefix(t *testing.T) {
	dir := t.TempDir()
	c := &objcache.Cache{
		Path:   filepath.Join(dir, "ppu."),
		Budget: objcache.NewBudget(1 << 20),
	}
	test.ExpectEquality(t, c.EntryPath("block_00001000"), filepath.Join(dir, "ppu.block_00001000.gz"))

	c.OnCompiled("block_00001000", []byte("object"))
	b, ok := objcache.Load(c.Path + "block_00001000")
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, string(b), "object")

	ents, err := objcache.Entries(dir)
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(ents), 1)
	test.ExpectEquality(t, ents[0].Module, "ppu.block_00001000")
}
