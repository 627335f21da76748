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

package jit

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
)

// Block is a range of guest code and the entry point of its translation.
type Block struct {
	Start  uint32
	End    uint32
	Symbol string
	Entry  uintptr
}

func (b Block) String() string {
	return fmt.Sprintf("%08x-%08x %s", b.Start, b.End, b.Symbol)
}

// BlockCache maps guest address ranges to translated code. Ranges do not
// overlap. Translations are discarded when the guest code they were made
// from is invalidated, for example when a breakpoint is added.
type BlockCache struct {
	crit sync.RWMutex
	tree *redblacktree.Tree
}

// NewBlockCache is the preferred method of initialisation for the BlockCache
// type.
func NewBlockCache() *BlockCache {
	return &BlockCache{
		tree: redblacktree.NewWith(utils.UInt32Comparator),
	}
}

// Insert a translated block. Existing blocks that overlap the new block are
// removed. End is exclusive.
func (bc *BlockCache) Insert(b Block) error {
	if b.End <= b.Start {
		return fmt.Errorf("jit: block %s is empty", b)
	}

	bc.crit.Lock()
	defer bc.crit.Unlock()

	bc.invalidate(b.Start, b.End)
	bc.tree.Put(b.Start, b)
	return nil
}

// Lookup the block containing the guest address.
func (bc *BlockCache) Lookup(addr uint32) (Block, bool) {
	bc.crit.RLock()
	defer bc.crit.RUnlock()

	n, ok := bc.tree.Floor(addr)
	if !ok {
		return Block{}, false
	}
	b := n.Value.(Block)
	if addr >= b.End {
		return Block{}, false
	}
	return b, true
}

// Invalidate removes every block overlapping the guest range [start, end) and
// returns the number of blocks removed.
func (bc *BlockCache) Invalidate(start uint32, end uint32) int {
	bc.crit.Lock()
	defer bc.crit.Unlock()
	return bc.invalidate(start, end)
}

func (bc *BlockCache) invalidate(start uint32, end uint32) int {
	if end <= start {
		end = start + 1
	}

	var remove []uint32

	if n, ok := bc.tree.Floor(start); ok {
		if n.Value.(Block).End > start {
			remove = append(remove, n.Key.(uint32))
		}
	}

	key := start
	for {
		n, ok := bc.tree.Ceiling(key)
		if !ok || n.Key.(uint32) >= end {
			break
		}
		if k := n.Key.(uint32); len(remove) == 0 || remove[len(remove)-1] != k {
			remove = append(remove, k)
		}
		if n.Key.(uint32) == ^uint32(0) {
			break
		}
		key = n.Key.(uint32) + 1
	}

	for _, k := range remove {
		bc.tree.Remove(k)
	}
	return len(remove)
}

// Len returns the number of blocks in the cache.
func (bc *BlockCache) Len() int {
	bc.crit.RLock()
	defer bc.crit.RUnlock()
	return bc.tree.Size()
}

// Clear removes all blocks.
func (bc *BlockCache) Clear() {
	bc.crit.Lock()
	defer bc.crit.Unlock()
	bc.tree.Clear()
}
