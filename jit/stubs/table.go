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

package stubs

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cellforge/cellforge/jit/fault"
	"github.com/cellforge/cellforge/logger"
	"golang.org/x/exp/slices"
)

// GuestAddressCeiling is the upper limit of the guest address space. A symbol
// named with GuestAddressPrefix followed by a hex address below the ceiling
// should always have been provided by the embedding application.
const GuestAddressCeiling = 0x80000000

// GuestAddressPrefix is the prefix of symbols that name a guest address.
const GuestAddressPrefix = "__0x"

// alignment of every trampoline.
const trampolineAlign = 16

type stub struct {
	name string
	addr uintptr
	code []byte
}

// Table of generated stubs.
type Table struct {
	crit     sync.RWMutex
	alloc    CodeAllocator
	arch     Arch
	reporter uintptr

	stubs map[string]*stub

	// name address to stub. used by Report()
	names map[uintptr]*stub
}

// NewTable is the preferred method of initialisation for the Table type. The
// reporter is the address of the function every stub jumps to.
func NewTable(alloc CodeAllocator, arch Arch, reporter uintptr) *Table {
	return &Table{
		alloc:    alloc,
		arch:     arch,
		reporter: reporter,
		stubs:    make(map[string]*stub),
		names:    make(map[uintptr]*stub),
	}
}

// isGuestAddress returns true if the name encodes a guest address below the
// ceiling.
func isGuestAddress(name string) bool {
	hex, ok := strings.CutPrefix(name, GuestAddressPrefix)
	if !ok {
		return false
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return false
	}
	return v < GuestAddressCeiling
}

// ResolveOrStub returns the address of the stub for the named symbol,
// generating one if necessary. Names that encode a guest address result in a
// fatal error.
func (tab *Table) ResolveOrStub(name string) (uintptr, error) {
	tab.crit.RLock()
	if s, ok := tab.stubs[name]; ok {
		tab.crit.RUnlock()
		return s.addr, nil
	}
	tab.crit.RUnlock()

	if isGuestAddress(name) {
		return 0, fault.Errorf("stubs: unhandled symbols cementing (%s)", name)
	}

	tab.crit.Lock()
	defer tab.crit.Unlock()

	// another goroutine may have generated the stub in the meantime
	if s, ok := tab.stubs[name]; ok {
		return s.addr, nil
	}

	code := assemble(tab.arch, name, tab.reporter)
	addr, err := tab.alloc.AllocateCode(uint64(len(code)), trampolineAlign)
	if err != nil {
		return 0, fmt.Errorf("stubs: %s: %w", name, err)
	}
	if err := tab.alloc.WriteCode(addr, code); err != nil {
		return 0, fmt.Errorf("stubs: %s: %w", name, err)
	}

	s := &stub{
		name: name,
		addr: addr,
		code: code,
	}
	tab.stubs[name] = s
	tab.names[addr+uintptr(tab.nameOffset())] = s

	logger.Logf(logger.Allow, "stubs", "generated stub for %s at %#x", name, addr)

	return addr, nil
}

func (tab *Table) nameOffset() int {
	if tab.arch == ARM64 {
		return arm64NameOffset
	}
	return amd64NameOffset
}

// Lookup returns the address of an existing stub.
func (tab *Table) Lookup(name string) (uintptr, bool) {
	tab.crit.RLock()
	defer tab.crit.RUnlock()
	s, ok := tab.stubs[name]
	if !ok {
		return 0, false
	}
	return s.addr, true
}

// Code returns a copy of the trampoline generated for the named symbol.
func (tab *Table) Code(name string) ([]byte, bool) {
	tab.crit.RLock()
	defer tab.crit.RUnlock()
	s, ok := tab.stubs[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(s.code), true
}

// Names returns the sorted list of symbols that have been stubbed.
func (tab *Table) Names() []string {
	tab.crit.RLock()
	defer tab.crit.RUnlock()
	n := make([]string, 0, len(tab.stubs))
	for k := range tab.stubs {
		n = append(n, k)
	}
	slices.Sort(n)
	return n
}

// Arch returns the trampoline architecture of the table.
func (tab *Table) Arch() Arch {
	return tab.arch
}

// Report is the body of the reporting function. The argument is the value
// the trampoline loaded into the first argument register. The returned error
// is always fatal.
func (tab *Table) Report(namePtr uintptr) error {
	tab.crit.RLock()
	s, ok := tab.names[namePtr]
	tab.crit.RUnlock()

	if !ok {
		return fault.Errorf("stubs: call to missing symbol (unknown stub %#x)", namePtr)
	}

	logger.Logf(logger.Allow, "stubs", "call to missing symbol %s", s.name)
	return fault.Errorf("stubs: call to missing symbol %s", s.name)
}
