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

package govern

// CompilerState is the lifecycle state of the JIT compiler. The compiler is
// only usable in the Active state.
type CompilerState int

// List of compiler states. Transitions only ever move forward.
const (
	Uninitialized CompilerState = iota
	Active
	Destroying
)

func (s CompilerState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Active:
		return "active"
	case Destroying:
		return "destroying"
	}
	return ""
}
