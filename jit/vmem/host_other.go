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

//go:build !linux && !darwin

package vmem

import "errors"

// Host returns the platform implementation for the operating system. On this
// operating system there is no native implementation and the simulated
// platform should be used instead.
func Host() (Platform, error) {
	return nil, errors.New("vmem: no host implementation for this platform")
}
