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
	"sync"

	"github.com/cellforge/cellforge/jit/vmem"
)

// CodeAllocator provides executable memory for trampolines.
type CodeAllocator interface {
	AllocateCode(size uint64, align uint64) (uintptr, error)
	WriteCode(addr uintptr, code []byte) error
}

// DefaultRegionSize is the amount of address space reserved by a Region when
// no size is specified.
const DefaultRegionSize = 1 << 20

// Region is a CodeAllocator dedicated to trampolines. Pages are committed as
// they are needed and are never decommitted.
type Region struct {
	crit      sync.Mutex
	res       vmem.Reservation
	pageSize  uint64
	cursor    uint64
	committed uint64
}

// NewRegion reserves address space for trampolines.
func NewRegion(plt vmem.Platform, size uint64) (*Region, error) {
	if size == 0 {
		size = DefaultRegionSize
	}
	res, err := plt.Reserve(size)
	if err != nil {
		return nil, fmt.Errorf("stubs: %w", err)
	}
	return &Region{
		res:      res,
		pageSize: plt.PageSize(),
	}, nil
}

// AllocateCode implements the CodeAllocator interface.
func (r *Region) AllocateCode(size uint64, align uint64) (uintptr, error) {
	r.crit.Lock()
	defer r.crit.Unlock()

	if align == 0 {
		align = 1
	}
	start := (r.cursor + align - 1) &^ (align - 1)
	end := start + size
	if end > r.res.Size() {
		return 0, fmt.Errorf("stubs: trampoline region exhausted")
	}

	if end > r.committed {
		top := (end + r.pageSize - 1) &^ (r.pageSize - 1)
		if err := r.res.Commit(r.committed, top-r.committed, vmem.ProtReadWriteExec); err != nil {
			return 0, fmt.Errorf("stubs: %w", err)
		}
		r.committed = top
	}

	r.cursor = end
	return r.res.Base() + uintptr(start), nil
}

// WriteCode implements the CodeAllocator interface.
func (r *Region) WriteCode(addr uintptr, code []byte) error {
	return r.res.WriteAt(code, addr)
}
