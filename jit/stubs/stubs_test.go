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

package stubs_test

import (
	"encoding/binary"
	"strings"
	"sync"
	"testing"

	"github.com/cellforge/cellforge/jit/fault"
	"github.com/cellforge/cellforge/jit/stubs"
	"github.com/cellforge/cellforge/jit/vmem"
	"github.com/cellforge/cellforge/test"
)

const reporter = 0x7f0012345678

func newTable(t *testing.T, arch stubs.Arch) *stubs.Table {
	t.Helper()
	rgn, err := stubs.NewRegion(vmem.NewSimulated(0x40000000, 0), 0)
	test.DemandSuccess(t, err)
	return stubs.NewTable(rgn, arch, reporter)
}

func TestIdempotence(t *testing.T) {
	for _, arch := range []stubs.Arch{stubs.AMD64SysV, stubs.AMD64Windows, stubs.ARM64} {
		tab := newTable(t, arch)

		a, err := tab.ResolveOrStub("missing_function")
		test.DemandSuccess(t, err, arch)
		b, err := tab.ResolveOrStub("missing_function")
		test.DemandSuccess(t, err, arch)
		test.ExpectEquality(t, a, b, arch)
		test.ExpectEquality(t, a%16, uintptr(0), arch)

		c, err := tab.ResolveOrStub("another_function")
		test.DemandSuccess(t, err, arch)
		test.ExpectInequality(t, a, c, arch)

		// the stub reports exactly the name it was created for
		code, ok := tab.Code("missing_function")
		test.DemandEquality(t, ok, true, arch)
		d, err := stubs.Describe(code, arch)
		test.DemandSuccess(t, err, arch)
		test.ExpectEquality(t, d.Name, "missing_function", arch)
		test.ExpectEquality(t, d.Reporter, uintptr(reporter), arch)
		test.ExpectEquality(t, len(d.Instructions) >= 2, true, arch)
	}
}

func TestRegisterConvention(t *testing.T) {
	tab := newTable(t, stubs.AMD64SysV)
	_, err := tab.ResolveOrStub("f")
	test.DemandSuccess(t, err)
	code, _ := tab.Code("f")
	d, err := stubs.Describe(code, stubs.AMD64SysV)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, strings.Contains(d.Instructions[0], "rdi"), true)

	// a SysV trampoline is not a valid windows trampoline
	_, err = stubs.Describe(code, stubs.AMD64Windows)
	test.ExpectFailure(t, err)

	tab = newTable(t, stubs.ARM64)
	_, err = tab.ResolveOrStub("f")
	test.DemandSuccess(t, err)
	code, _ = tab.Code("f")
	test.ExpectEquality(t, binary.LittleEndian.Uint32(code), uint32(0x100000a0))
}

func TestGuestAddressName(t *testing.T) {
	tab := newTable(t, stubs.AMD64SysV)

	_, err := tab.ResolveOrStub("__0x00001234")
	test.ExpectEquality(t, fault.IsFatal(err), true)
	test.ExpectEquality(t, strings.Contains(err.Error(), "unhandled symbols cementing"), true)
	_, ok := tab.Lookup("__0x00001234")
	test.ExpectEquality(t, ok, false)

	// above the ceiling and malformed names are stubbed normally
	_, err = tab.ResolveOrStub("__0x80000000")
	test.ExpectSuccess(t, err)
	_, err = tab.ResolveOrStub("__0xnothex")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, len(tab.Names()), 2)
}

func TestReport(t *testing.T) {
	tab := newTable(t, stubs.AMD64SysV)
	addr, err := tab.ResolveOrStub("lost")
	test.DemandSuccess(t, err)

	err = tab.Report(addr + 21)
	test.ExpectEquality(t, fault.IsFatal(err), true)
	test.ExpectEquality(t, strings.Contains(err.Error(), "lost"), true)

	err = tab.Report(addr)
	test.ExpectEquality(t, fault.IsFatal(err), true)
	test.ExpectEquality(t, strings.Contains(err.Error(), "unknown stub"), true)
}

func TestConcurrentResolve(t *testing.T) {
	tab := newTable(t, stubs.ARM64)

	var wg sync.WaitGroup
	addrs := make([]uintptr, 16)
	for i := range addrs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addrs[i], _ = tab.ResolveOrStub("shared")
		}(i)
	}
	wg.Wait()

	for _, a := range addrs {
		test.ExpectEquality(t, a, addrs[0])
	}
	test.ExpectEquality(t, len(tab.Names()), 1)
}

func TestDescribeTruncated(t *testing.T) {
	_, err := stubs.Describe([]byte{0x48, 0x8d}, stubs.AMD64SysV)
	test.ExpectFailure(t, err)
	_, err = stubs.Describe([]byte{0xa0, 0x00}, stubs.ARM64)
	test.ExpectFailure(t, err)
}
