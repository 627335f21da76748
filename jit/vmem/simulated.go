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

package vmem

import (
	"fmt"
	"sync"
)

// DefaultSimulatedPageSize is the page size used by NewSimulated() when the
// page size argument is zero.
const DefaultSimulatedPageSize = 4096

// Simulated is a Platform that hands out reservations at increasing fake
// addresses. Committed pages are backed by heap memory and are allocated
// lazily, so reserving gigabytes is cheap.
type Simulated struct {
	crit     sync.Mutex
	next     uintptr
	pageSize uint64
}

// NewSimulated returns a simulated platform. The first reservation starts at
// base.
func NewSimulated(base uintptr, pageSize uint64) *Simulated {
	if pageSize == 0 {
		pageSize = DefaultSimulatedPageSize
	}
	return &Simulated{
		next:     base,
		pageSize: pageSize,
	}
}

// PageSize implements the Platform interface.
func (s *Simulated) PageSize() uint64 {
	return s.pageSize
}

// Reserve implements the Platform interface.
func (s *Simulated) Reserve(size uint64) (Reservation, error) {
	s.crit.Lock()
	defer s.crit.Unlock()

	if size == 0 {
		return nil, fmt.Errorf("vmem: reserve: zero size")
	}
	size = (size + s.pageSize - 1) &^ (s.pageSize - 1)

	r := &simulatedReservation{
		base:    s.next,
		size:    size,
		pages:   newPages(size, s.pageSize),
		backing: make(map[uint64][]byte),
	}

	// leave a guard page between reservations
	s.next += uintptr(size + s.pageSize)

	return r, nil
}

type simulatedReservation struct {
	crit    sync.Mutex
	base    uintptr
	size    uint64
	pages   pages
	backing map[uint64][]byte
}

func (r *simulatedReservation) Base() uintptr {
	return r.base
}

func (r *simulatedReservation) Size() uint64 {
	return r.size
}

func (r *simulatedReservation) Commit(offset uint64, size uint64, prot Protection) error {
	r.crit.Lock()
	defer r.crit.Unlock()

	first, last, err := r.pages.span(offset, size)
	if err != nil {
		return err
	}
	r.pages.set(first, last, prot)
	return nil
}

func (r *simulatedReservation) Decommit(offset uint64, size uint64) error {
	r.crit.Lock()
	defer r.crit.Unlock()

	first, last, err := r.pages.span(offset, size)
	if err != nil {
		return err
	}
	r.pages.set(first, last, ProtNone)

	// decommitted pages read as zero when committed again
	for i := first; i < last; i++ {
		delete(r.backing, uint64(i))
	}
	return nil
}

func (r *simulatedReservation) offset(addr uintptr) (uint64, error) {
	if addr < r.base || uint64(addr-r.base) >= r.size {
		return 0, fmt.Errorf("vmem: %#x: %w", addr, ErrRange)
	}
	return uint64(addr - r.base), nil
}

func (r *simulatedReservation) access(p []byte, addr uintptr, write bool) error {
	r.crit.Lock()
	defer r.crit.Unlock()

	off, err := r.offset(addr)
	if err != nil {
		return err
	}
	if err := r.pages.check(off, uint64(len(p)), write); err != nil {
		return err
	}

	ps := r.pages.pageSize
	for n := 0; n < len(p); {
		idx := (off + uint64(n)) / ps
		po := (off + uint64(n)) % ps
		pg, ok := r.backing[idx]
		if !ok {
			pg = make([]byte, ps)
			r.backing[idx] = pg
		}
		var c int
		if write {
			c = copy(pg[po:], p[n:])
		} else {
			c = copy(p[n:], pg[po:])
		}
		n += c
	}
	return nil
}

func (r *simulatedReservation) ReadAt(p []byte, addr uintptr) error {
	return r.access(p, addr, false)
}

func (r *simulatedReservation) WriteAt(p []byte, addr uintptr) error {
	return r.access(p, addr, true)
}

func (r *simulatedReservation) Committed() uint64 {
	r.crit.Lock()
	defer r.crit.Unlock()
	return r.pages.committed
}

func (r *simulatedReservation) Protection(addr uintptr) Protection {
	r.crit.Lock()
	defer r.crit.Unlock()
	off, err := r.offset(addr)
	if err != nil {
		return ProtNone
	}
	return r.pages.protection(off)
}
