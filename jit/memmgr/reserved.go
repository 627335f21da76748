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
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/cellforge/cellforge/jit/fault"
	"github.com/cellforge/cellforge/jit/vmem"
	"github.com/cellforge/cellforge/logger"
)

// DefaultBlockSize is the maximum size of each of the three blocks.
const DefaultBlockSize = 256 << 20

// CommitGranularity is the largest alignment an allocation may request.
const CommitGranularity = 64 << 10

// ErrClosed is returned by operations on a closed manager.
var ErrClosed = errors.New("memmgr: manager is closed")

type block struct {
	kind      Kind
	offset    uint64
	cursor    uint64
	committed uint64
}

// BlockStats reports the state of a single block.
type BlockStats struct {
	Kind      Kind
	Base      uintptr
	Size      uint64
	Cursor    uint64
	Committed uint64
}

func (s BlockStats) String() string {
	return fmt.Sprintf("%-6s %#016x used %d committed %d of %d", s.Kind, s.Base, s.Cursor, s.Committed, s.Size)
}

// Reserved is the self-contained memory manager.
type Reserved struct {
	Resolver

	crit      sync.Mutex
	res       vmem.Reservation
	pageSize  uint64
	blockSize uint64
	blocks    [numKinds]block
	closed    bool
}

// NewReserved reserves three blocks of blockSize bytes. A blockSize of zero
// selects DefaultBlockSize. The block size is rounded up to the commit
// granularity.
func NewReserved(plt vmem.Platform, blockSize uint64, resolver Resolver) (*Reserved, error) {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	blockSize = (blockSize + CommitGranularity - 1) &^ (CommitGranularity - 1)

	res, err := plt.Reserve(blockSize * uint64(numKinds))
	if err != nil {
		return nil, fault.Errorf("memmgr: %w", err)
	}

	mem := &Reserved{
		Resolver:  resolver,
		res:       res,
		pageSize:  plt.PageSize(),
		blockSize: blockSize,
	}
	for k := range mem.blocks {
		mem.blocks[k] = block{
			kind:   Kind(k),
			offset: uint64(k) * blockSize,
		}
	}

	return mem, nil
}

// BlockSize returns the size of each block.
func (mem *Reserved) BlockSize() uint64 {
	return mem.blockSize
}

// Allocate size bytes of the specified kind. The address is aligned to align,
// which must be a power of two no larger than CommitGranularity.
//
// Returned addresses for a kind are strictly increasing. Allocations that can
// never be satisfied are fatal.
func (mem *Reserved) Allocate(kind Kind, size uint64, align uint64) (uintptr, error) {
	mem.crit.Lock()
	defer mem.crit.Unlock()

	if mem.closed {
		return 0, ErrClosed
	}
	if kind < 0 || kind >= numKinds {
		return 0, fmt.Errorf("memmgr: unknown allocation kind (%d)", kind)
	}

	if align == 0 {
		align = 1
	}
	if bits.OnesCount64(align) != 1 {
		return 0, fault.Errorf("memmgr: alignment %d is not a power of two", align)
	}
	if align > CommitGranularity {
		return 0, fault.Errorf("memmgr: alignment %d exceeds commit granularity", align)
	}

	alignedSize := (size + align - 1) &^ (align - 1)
	if alignedSize < size {
		return 0, fault.Errorf("memmgr: aligned size of %d overflows", size)
	}
	if alignedSize > mem.blockSize {
		return 0, fault.Errorf("memmgr: %s allocation of %d bytes exceeds block size of %d", kind, size, mem.blockSize)
	}

	blk := &mem.blocks[kind]
	start := (blk.cursor + align - 1) &^ (align - 1)
	end := start + alignedSize
	if end > mem.blockSize {
		return 0, fault.Errorf("memmgr: %s allocation of %d bytes crosses end of block", kind, size)
	}

	// the first allocation commits a single page regardless of size. many
	// compiled units only need a small amount of memory
	if blk.committed == 0 {
		if err := mem.commit(blk, mem.pageSize); err != nil {
			return 0, err
		}
	}

	if end > blk.committed {
		top := (end + mem.pageSize - 1) &^ (mem.pageSize - 1)
		if err := mem.commit(blk, top-blk.committed); err != nil {
			return 0, err
		}
	}

	blk.cursor = end
	return mem.res.Base() + uintptr(blk.offset+start), nil
}

func (mem *Reserved) commit(blk *block, size uint64) error {
	if err := mem.res.Commit(blk.offset+blk.committed, size, blk.kind.protection()); err != nil {
		return fault.Errorf("memmgr: commit %s: %w", blk.kind, err)
	}
	blk.committed += size
	return nil
}

// Contains returns true if the address is inside the block of the kind.
func (mem *Reserved) Contains(kind Kind, addr uintptr) bool {
	if kind < 0 || kind >= numKinds {
		return false
	}
	base := mem.res.Base() + uintptr(mem.blocks[kind].offset)
	return addr >= base && uint64(addr-base) < mem.blockSize
}

// Write data to memory previously returned by Allocate().
func (mem *Reserved) Write(addr uintptr, p []byte) error {
	return mem.res.WriteAt(p, addr)
}

// Read data from memory previously returned by Allocate().
func (mem *Reserved) Read(p []byte, addr uintptr) error {
	return mem.res.ReadAt(p, addr)
}

// Stats returns the state of the code, data and read-only blocks in that
// order.
func (mem *Reserved) Stats() []BlockStats {
	mem.crit.Lock()
	defer mem.crit.Unlock()

	s := make([]BlockStats, 0, numKinds)
	for _, blk := range mem.blocks {
		s = append(s, BlockStats{
			Kind:      blk.kind,
			Base:      mem.res.Base() + uintptr(blk.offset),
			Size:      mem.blockSize,
			Cursor:    blk.cursor,
			Committed: blk.committed,
		})
	}
	return s
}

// Close decommits all three blocks. The address space is not released and no
// further allocations are possible.
func (mem *Reserved) Close() error {
	mem.crit.Lock()
	defer mem.crit.Unlock()

	if mem.closed {
		return nil
	}
	mem.closed = true

	var err error
	for k := range mem.blocks {
		blk := &mem.blocks[k]
		if blk.committed == 0 {
			continue
		}
		if e := mem.res.Decommit(blk.offset, blk.committed); e != nil {
			logger.Logf(logger.Allow, "memmgr", "decommit %s: %v", blk.kind, e)
			err = errors.Join(err, e)
			continue
		}
		blk.committed = 0
	}

	return err
}
