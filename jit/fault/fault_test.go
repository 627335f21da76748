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

package fault_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cellforge/cellforge/jit/fault"
	"github.com/cellforge/cellforge/test"
)

func TestFatal(t *testing.T) {
	base := errors.New("base")
	err := fault.Errorf("allocation: %w", base)
	test.ExpectEquality(t, fault.IsFatal(err), true)
	test.ExpectEquality(t, errors.Is(err, base), true)
	test.ExpectEquality(t, err.Error(), "allocation: base")

	// wrapping a fatal error keeps it fatal
	test.ExpectEquality(t, fault.IsFatal(fmt.Errorf("outer: %w", err)), true)
	test.ExpectEquality(t, fault.IsFatal(base), false)
	test.ExpectEquality(t, fault.IsFatal(nil), false)
}

func TestGuardAndHandler(t *testing.T) {
	var handled []error
	test.ExpectEquality(t, fault.InstallHandler(func(err error) {
		handled = append(handled, err)
	}), true)

	// second installation is ignored
	test.ExpectEquality(t, fault.InstallHandler(func(err error) {
		t.Errorf("second handler should not be called")
	}), false)

	err := fault.Guard(func() error {
		panic("engine exploded")
	})
	test.ExpectEquality(t, fault.IsFatal(err), true)
	test.ExpectEquality(t, err.Error(), "backend abort: engine exploded")
	test.ExpectEquality(t, len(handled), 1)

	plain := errors.New("plain")
	test.ExpectEquality(t, fault.Guard(func() error { return plain }), plain)
	test.ExpectSuccess(t, fault.Guard(func() error { return nil }))
	test.ExpectEquality(t, len(handled), 1)
}
