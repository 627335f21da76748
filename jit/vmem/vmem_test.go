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

package vmem_test

import (
	"errors"
	"testing"

	"github.com/cellforge/cellforge/jit/vmem"
	"github.com/cellforge/cellforge/test"
)

func TestSimulatedCommit(t *testing.T) {
	plt := vmem.NewSimulated(0x10000000, 0)
	test.ExpectEquality(t, plt.PageSize(), uint64(4096))

	res, err := plt.Reserve(1 << 20)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, res.Base(), uintptr(0x10000000))
	test.ExpectEquality(t, res.Size(), uint64(1<<20))
	test.ExpectEquality(t, res.Committed(), uint64(0))

	// access to uncommitted memory fails
	err = res.WriteAt([]byte{1}, res.Base())
	test.ExpectEquality(t, errors.Is(err, vmem.ErrUncommitted), true)

	test.ExpectSuccess(t, res.Commit(0, 8192, vmem.ProtReadWrite))
	test.ExpectEquality(t, res.Committed(), uint64(8192))
	test.ExpectEquality(t, res.Protection(res.Base()+4096), vmem.ProtReadWrite)

	// write straddling a page boundary
	test.ExpectSuccess(t, res.WriteAt([]byte{1, 2, 3, 4}, res.Base()+4094))
	b := make([]byte, 4)
	test.ExpectSuccess(t, res.ReadAt(b, res.Base()+4094))
	test.ExpectEquality(t, string(b), string([]byte{1, 2, 3, 4}))

	// crossing into an uncommitted page
	test.ExpectFailure(t, res.WriteAt([]byte{1, 2}, res.Base()+8191))

	// unaligned commit
	err = res.Commit(100, 4096, vmem.ProtReadWrite)
	test.ExpectEquality(t, errors.Is(err, vmem.ErrAlignment), true)

	// out of range
	err = res.Commit(1<<20, 4096, vmem.ProtReadWrite)
	test.ExpectEquality(t, errors.Is(err, vmem.ErrRange), true)
}

func TestSimulatedDecommit(t *testing.T) {
	plt := vmem.NewSimulated(0x20000000, 0)
	res, err := plt.Reserve(16384)
	test.DemandSuccess(t, err)

	test.ExpectSuccess(t, res.Commit(0, 16384, vmem.ProtReadWriteExec))
	test.ExpectSuccess(t, res.WriteAt([]byte{0xff}, res.Base()))
	test.ExpectSuccess(t, res.Decommit(0, 16384))
	test.ExpectEquality(t, res.Committed(), uint64(0))
	test.ExpectFailure(t, res.ReadAt(make([]byte, 1), res.Base()))

	// recommitted memory is zeroed
	test.ExpectSuccess(t, res.Commit(0, 4096, vmem.ProtRead))
	b := make([]byte, 1)
	test.ExpectSuccess(t, res.ReadAt(b, res.Base()))
	test.ExpectEquality(t, b[0], uint8(0))

	// read-only pages refuse writes
	err = res.WriteAt([]byte{1}, res.Base())
	test.ExpectEquality(t, errors.Is(err, vmem.ErrProtection), true)
}

func TestSimulatedReservationsDisjoint(t *testing.T) {
	plt := vmem.NewSimulated(0x1000, 0)
	a, err := plt.Reserve(100)
	test.DemandSuccess(t, err)
	b, err := plt.Reserve(100)
	test.DemandSuccess(t, err)

	// sizes are rounded up to whole pages
	test.ExpectEquality(t, a.Size(), uint64(4096))
	test.ExpectEquality(t, b.Base() >= a.Base()+uintptr(a.Size()), true)
	test.ExpectFailure(t, a.ReadAt(make([]byte, 1), b.Base()))
}
