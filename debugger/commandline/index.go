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

package commandline

// Index maps names to entries in a commands table. Allows direct access to
// individual nodes without having to search the list. Useful for stuff like:
//
//	help(index["foo"])
type Index map[string]*node

// CreateIndex returns an index of the Commands structure.
func CreateIndex(cmds *Commands) Index {
	idx := make(Index, len(*cmds))
	for _, c := range *cmds {
		idx[c.tag] = c
	}
	return idx
}

// Usage returns the template for the named command. Returns the empty string
// if the command does not exist.
func (idx Index) Usage(name string) string {
	n, ok := idx[name]
	if !ok {
		return ""
	}
	return n.String()
}
