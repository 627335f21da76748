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

// Package vmem abstracts the virtual memory operations needed by the JIT
// memory managers: reserving a range of address space, committing pages
// within the range with a protection and decommitting them again.
//
// Host() returns the operating system implementation. NewSimulated() returns
// an implementation that keeps the same bookkeeping with ordinary heap
// backing, for use in tests and on hosts without a native implementation.
//
// A Reservation is never released. Decommitting returns the physical pages
// but the address range stays reserved for the lifetime of the process.
package vmem

import (
	"errors"
	"fmt"
)

// Protection of committed pages.
type Protection int

// List of valid protections.
const (
	ProtNone Protection = iota
	ProtRead
	ProtReadWrite
	ProtReadWriteExec
)

func (p Protection) String() string {
	switch p {
	case ProtNone:
		return "---"
	case ProtRead:
		return "r--"
	case ProtReadWrite:
		return "rw-"
	case ProtReadWriteExec:
		return "rwx"
	}
	return "???"
}

// Platform reserves address space.
type Platform interface {
	PageSize() uint64
	Reserve(size uint64) (Reservation, error)
}

// Reservation is a fixed range of reserved address space. Offsets are
// relative to Base() and must be page aligned. Addresses supplied to ReadAt()
// and WriteAt() are absolute.
type Reservation interface {
	Base() uintptr
	Size() uint64
	Commit(offset uint64, size uint64, prot Protection) error
	Decommit(offset uint64, size uint64) error
	ReadAt(p []byte, addr uintptr) error
	WriteAt(p []byte, addr uintptr) error
	Committed() uint64
	Protection(addr uintptr) Protection
}

// Sentinel errors returned by Reservation implementations.
var (
	ErrRange       = errors.New("outside of reservation")
	ErrAlignment   = errors.New("not page aligned")
	ErrUncommitted = errors.New("access to uncommitted page")
	ErrProtection  = errors.New("protection violation")
)

// pages keeps track of the protection of every page in a reservation.
type pages struct {
	pageSize  uint64
	prot      []Protection
	committed uint64
}

func newPages(size uint64, pageSize uint64) pages {
	return pages{
		pageSize: pageSize,
		prot:     make([]Protection, (size+pageSize-1)/pageSize),
	}
}

// span checks the offset and size and returns the first and last+1 page
// indexes.
func (pg *pages) span(offset uint64, size uint64) (int, int, error) {
	if offset%pg.pageSize != 0 || size%pg.pageSize != 0 {
		return 0, 0, fmt.Errorf("vmem: %#x+%#x: %w", offset, size, ErrAlignment)
	}
	if offset+size < offset || (offset+size)/pg.pageSize > uint64(len(pg.prot)) {
		return 0, 0, fmt.Errorf("vmem: %#x+%#x: %w", offset, size, ErrRange)
	}
	return int(offset / pg.pageSize), int((offset + size) / pg.pageSize), nil
}

func (pg *pages) set(first int, last int, prot Protection) {
	for i := first; i < last; i++ {
		if pg.prot[i] == ProtNone && prot != ProtNone {
			pg.committed += pg.pageSize
		} else if pg.prot[i] != ProtNone && prot == ProtNone {
			pg.committed -= pg.pageSize
		}
		pg.prot[i] = prot
	}
}

// check that every page touched by the access is committed and allows the
// access.
func (pg *pages) check(offset uint64, size uint64, write bool) error {
	if size == 0 {
		return nil
	}
	if offset+size < offset || offset+size > uint64(len(pg.prot))*pg.pageSize {
		return fmt.Errorf("vmem: %#x+%#x: %w", offset, size, ErrRange)
	}
	for i := offset / pg.pageSize; i <= (offset+size-1)/pg.pageSize; i++ {
		switch pg.prot[i] {
		case ProtNone:
			return fmt.Errorf("vmem: page %#x: %w", i*pg.pageSize, ErrUncommitted)
		case ProtRead:
			if write {
				return fmt.Errorf("vmem: page %#x: %w", i*pg.pageSize, ErrProtection)
			}
		}
	}
	return nil
}

func (pg *pages) protection(offset uint64) Protection {
	i := offset / pg.pageSize
	if i >= uint64(len(pg.prot)) {
		return ProtNone
	}
	return pg.prot[i]
}
