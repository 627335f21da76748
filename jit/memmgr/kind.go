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

import "github.com/cellforge/cellforge/jit/vmem"

// Kind of memory being allocated.
type Kind int

// List of allocation kinds. Each kind has its own block in the Reserved
// manager.
const (
	Code Kind = iota
	Data
	ReadOnly
	numKinds
)

func (k Kind) String() string {
	switch k {
	case Code:
		return "code"
	case Data:
		return "data"
	case ReadOnly:
		return "rodata"
	}
	return "unknown"
}

// protection used when committing pages for the kind. read-only data is
// written when objects are loaded so it is committed as read/write.
func (k Kind) protection() vmem.Protection {
	if k == Code {
		return vmem.ProtReadWriteExec
	}
	return vmem.ProtReadWrite
}

// Manager is the interface shared by the memory managers.
type Manager interface {
	Allocate(kind Kind, size uint64, align uint64) (uintptr, error)
	Write(addr uintptr, p []byte) error
	Read(p []byte, addr uintptr) error
	FindSymbol(name string) (uintptr, error)
	Close() error
}
