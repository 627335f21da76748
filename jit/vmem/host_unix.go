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

//go:build linux || darwin

package vmem

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

type host struct{}

// Host returns the platform implementation for the operating system.
func Host() (Platform, error) {
	return host{}, nil
}

func (host) PageSize() uint64 {
	return uint64(unix.Getpagesize())
}

func (h host) Reserve(size uint64) (Reservation, error) {
	ps := h.PageSize()
	size = (size + ps - 1) &^ (ps - 1)

	mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE)
	if err != nil {
		return nil, fmt.Errorf("vmem: reserve %#x: %w", size, err)
	}

	return &hostReservation{
		mem:   mem,
		pages: newPages(size, ps),
	}, nil
}

type hostReservation struct {
	crit  sync.Mutex
	mem   []byte
	pages pages
}

func hostProt(prot Protection) int {
	switch prot {
	case ProtRead:
		return unix.PROT_READ
	case ProtReadWrite:
		return unix.PROT_READ | unix.PROT_WRITE
	case ProtReadWriteExec:
		return unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
	}
	return unix.PROT_NONE
}

func (r *hostReservation) Base() uintptr {
	return uintptr(unsafe.Pointer(&r.mem[0]))
}

func (r *hostReservation) Size() uint64 {
	return uint64(len(r.mem))
}

func (r *hostReservation) Commit(offset uint64, size uint64, prot Protection) error {
	r.crit.Lock()
	defer r.crit.Unlock()

	first, last, err := r.pages.span(offset, size)
	if err != nil {
		return err
	}
	if err := unix.Mprotect(r.mem[offset:offset+size], hostProt(prot)); err != nil {
		return fmt.Errorf("vmem: commit %#x+%#x: %w", offset, size, err)
	}
	r.pages.set(first, last, prot)
	return nil
}

func (r *hostReservation) Decommit(offset uint64, size uint64) error {
	r.crit.Lock()
	defer r.crit.Unlock()

	first, last, err := r.pages.span(offset, size)
	if err != nil {
		return err
	}
	b := r.mem[offset : offset+size]
	if err := unix.Madvise(b, unix.MADV_DONTNEED); err != nil {
		return fmt.Errorf("vmem: decommit %#x+%#x: %w", offset, size, err)
	}
	if err := unix.Mprotect(b, unix.PROT_NONE); err != nil {
		return fmt.Errorf("vmem: decommit %#x+%#x: %w", offset, size, err)
	}
	r.pages.set(first, last, ProtNone)
	return nil
}

func (r *hostReservation) offset(addr uintptr) (uint64, error) {
	base := r.Base()
	if addr < base || uint64(addr-base) >= uint64(len(r.mem)) {
		return 0, fmt.Errorf("vmem: %#x: %w", addr, ErrRange)
	}
	return uint64(addr - base), nil
}

func (r *hostReservation) ReadAt(p []byte, addr uintptr) error {
	r.crit.Lock()
	defer r.crit.Unlock()

	off, err := r.offset(addr)
	if err != nil {
		return err
	}
	if err := r.pages.check(off, uint64(len(p)), false); err != nil {
		return err
	}
	copy(p, r.mem[off:])
	return nil
}

func (r *hostReservation) WriteAt(p []byte, addr uintptr) error {
	r.crit.Lock()
	defer r.crit.Unlock()

	off, err := r.offset(addr)
	if err != nil {
		return err
	}
	if err := r.pages.check(off, uint64(len(p)), true); err != nil {
		return err
	}
	copy(r.mem[off:], p)
	return nil
}

func (r *hostReservation) Committed() uint64 {
	r.crit.Lock()
	defer r.crit.Unlock()
	return r.pages.committed
}

func (r *hostReservation) Protection(addr uintptr) Protection {
	r.crit.Lock()
	defer r.crit.Unlock()
	off, err := r.offset(addr)
	if err != nil {
		return ProtNone
	}
	return r.pages.protection(off)
}
