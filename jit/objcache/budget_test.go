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

package objcache_test

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/cellforge/cellforge/jit/fault"
	"github.com/cellforge/cellforge/jit/objcache"
	"github.com/cellforge/cellforge/test"
)

func TestBudgetNeverNegative(t *testing.T) {
	b := objcache.NewBudget(1000)
	rnd := rand.New(rand.NewSource(1))

	var held uint64
	for i := 0; i < 1000; i++ {
		n := uint64(rnd.Intn(400))
		if rnd.Intn(2) == 0 {
			before := b.Remaining()
			ok := b.Reserve(n)
			test.ExpectEquality(t, ok, n <= before, i)
			if ok {
				held += n
			} else {
				test.ExpectEquality(t, b.Remaining(), before, i)
			}
		} else if n <= held {
			test.ExpectSuccess(t, b.Release(n), i)
			held -= n
		}
		test.ExpectEquality(t, b.Remaining()+held, uint64(1000), i)
	}
}

func TestBudgetOverflow(t *testing.T) {
	b := objcache.NewBudget(math.MaxUint64 - 10)
	test.ExpectSuccess(t, b.Release(10))
	err := b.Release(1)
	test.ExpectEquality(t, fault.IsFatal(err), true)
	test.ExpectEquality(t, b.Remaining(), uint64(math.MaxUint64))
}

func TestBudgetConcurrent(t *testing.T) {
	b := objcache.NewBudget(10000)

	var wg sync.WaitGroup
	var crit sync.Mutex
	var granted int
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if b.Reserve(100) {
					crit.Lock()
					granted++
					crit.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	test.ExpectEquality(t, granted, 100)
	test.ExpectEquality(t, b.Remaining(), uint64(0))
}

func TestBudgetFromVolume(t *testing.T) {
	_, err := objcache.NewBudgetFromVolume(t.TempDir(), 0)
	test.ExpectFailure(t, err)
	_, err = objcache.NewBudgetFromVolume(t.TempDir(), 1.5)
	test.ExpectFailure(t, err)

	b, err := objcache.NewBudgetFromVolume(t.TempDir(), objcache.DefaultBudgetFraction)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, b.Remaining() > 0, true)
}
