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

package colorterm

// pens used by the terminal
const (
	normal    = "\033[0m"
	bold      = "\033[1m"
	red       = "\033[31m"
	cyan      = "\033[36m"
	dimWhite  = "\033[2;37m"
	dimYellow = "\033[2;33m"
)
