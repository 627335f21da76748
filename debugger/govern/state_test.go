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

package govern_test

import (
	"testing"

	"github.com/cellforge/cellforge/debugger/govern"
	"github.com/cellforge/cellforge/test"
)

func TestStateIntegrity(t *testing.T) {
	test.ExpectEquality(t, govern.StateIntegrity(govern.Running, govern.Normal), true)
	test.ExpectEquality(t, govern.StateIntegrity(govern.Paused, govern.PausedAtBreakpoint), true)
	test.ExpectEquality(t, govern.StateIntegrity(govern.Running, govern.PausedAtMemCheck), false)
	test.ExpectEquality(t, govern.Paused.String(), "Paused")
	test.ExpectEquality(t, govern.Active.String(), "active")
}
