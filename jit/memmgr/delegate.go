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
	"sync"

	"github.com/cellforge/cellforge/jit/vmem"
)

// Arena is the external allocator used by the Delegate manager.
type Arena interface {
	Allocate(size uint64, align uint64, code bool) (uintptr, error)
	Write(addr uintptr, p []byte) error
	Read(p []byte, addr uintptr) error
}

// Delegate is the memory manager for auxiliary compilers.
type Delegate struct {
	Resolver
	arena Arena
}

// NewDelegate creates a manager that forwards allocations to the arena.
func NewDelegate(arena Arena, resolver Resolver) *Delegate {
	return &Delegate{
		Resolver: resolver,
		arena:    arena,
	}
}

// Allocate forwards the allocation to the arena. Read-only data is allocated
// as ordinary data.
func (mem *Delegate) Allocate(kind Kind, size uint64, align uint64) (uintptr, error) {
	if mem.arena == nil {
		return 0, fmt.Errorf("memmgr: delegate has no arena")
	}
	return mem.arena.Allocate(size, align, kind == Code)
}

// Write forwards to the arena.
func (mem *Delegate) Write(addr uintptr, p []byte) error {
	return mem.arena.Write(addr, p)
}

// Read forwards to the arena.
func (mem *Delegate) Read(p []byte, addr uintptr) error {
	return mem.arena.Read(p, addr)
}

// Close does nothing. The arena is owned by somebody else.
func (mem *Delegate) Close() error {
	return nil
}

// SharedArena is an Arena safe for use by more than one auxiliary compiler.
// It also satisfies the stubs.CodeAllocator interface.
type SharedArena struct {
	crit sync.Mutex
	mem  *Reserved
}

// NewSharedArena creates an arena with blocks of the specified size.
func NewSharedArena(plt vmem.Platform, blockSize uint64) (*SharedArena, error) {
	mem, err := NewReserved(plt, blockSize, Resolver{})
	if err != nil {
		return nil, err
	}
	return &SharedArena{mem: mem}, nil
}

// Allocate implements the Arena interface.
func (a *SharedArena) Allocate(size uint64, align uint64, code bool) (uintptr, error) {
	a.crit.Lock()
	defer a.crit.Unlock()
	if code {
		return a.mem.Allocate(Code, size, align)
	}
	return a.mem.Allocate(Data, size, align)
}

// Write implements the Arena interface.
func (a *SharedArena) Write(addr uintptr, p []byte) error {
	return a.mem.Write(addr, p)
}

// Read implements the Arena interface.
func (a *SharedArena) Read(p []byte, addr uintptr) error {
	return a.mem.Read(p, addr)
}

// AllocateCode implements the stubs.CodeAllocator interface.
func (a *SharedArena) AllocateCode(size uint64, align uint64) (uintptr, error) {
	return a.Allocate(size, align, true)
}

// WriteCode implements the stubs.CodeAllocator interface.
func (a *SharedArena) WriteCode(addr uintptr, code []byte) error {
	return a.Write(addr, code)
}

// Stats returns the block statistics of the underlying manager.
func (a *SharedArena) Stats() []BlockStats {
	return a.mem.Stats()
}
