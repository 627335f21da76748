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

package objcache

import (
	"fmt"

	"github.com/cellforge/cellforge/jit/fault"
	"github.com/shirou/gopsutil/disk"
	"go.uber.org/atomic"
)

// DefaultBudgetFraction is the fraction of free space on the cache volume
// made available to the cache.
const DefaultBudgetFraction = 0.25

// Budget is the number of bytes the cache is still allowed to write. It is
// safe for concurrent use and never goes below zero.
type Budget struct {
	remaining atomic.Uint64
}

// NewBudget creates a budget of the specified number of bytes.
func NewBudget(bytes uint64) *Budget {
	b := &Budget{}
	b.remaining.Store(bytes)
	return b
}

// NewBudgetFromVolume creates a budget from a fraction of the space currently
// available on the volume containing dir.
func NewBudgetFromVolume(dir string, fraction float64) (*Budget, error) {
	if fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("objcache: budget fraction %.3f out of range", fraction)
	}
	usage, err := disk.Usage(dir)
	if err != nil {
		return nil, fmt.Errorf("objcache: %w", err)
	}
	return NewBudget(uint64(float64(usage.Free) * fraction)), nil
}

// Reserve n bytes. Returns false, and reserves nothing, if fewer than n bytes
// remain.
func (b *Budget) Reserve(n uint64) bool {
	for {
		old := b.remaining.Load()
		if old < n {
			return false
		}
		if b.remaining.CAS(old, old-n) {
			return true
		}
	}
}

// Release n bytes back to the budget. Releasing so many bytes that the counter
// would wrap is a fatal error.
func (b *Budget) Release(n uint64) error {
	for {
		old := b.remaining.Load()
		nw := old + n
		if nw < old {
			return fault.Errorf("objcache: budget overflow releasing %d bytes", n)
		}
		if b.remaining.CAS(old, nw) {
			return nil
		}
	}
}

// Remaining returns the number of bytes that can still be reserved.
func (b *Budget) Remaining() uint64 {
	return b.remaining.Load()
}
