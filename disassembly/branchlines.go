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

package disassembly

import (
	"fmt"
	"sort"
)

// NumLanes is the number of lanes available for drawing branch lines.
const NumLanes = 8

// BranchDirection of a BranchLine.
type BranchDirection int

// List of valid BranchDirection values.
const (
	BranchDown BranchDirection = iota
	BranchUp
)

func (d BranchDirection) String() string {
	if d == BranchUp {
		return "up"
	}
	return "down"
}

// BranchLine is a branch from one instruction to another in the same function.
// First is the lower of the two addresses.
type BranchLine struct {
	First     uint32
	Second    uint32
	Direction BranchDirection

	// lane the line should be drawn in. a value of -1 means there was no lane
	// free for the line and it should not be drawn
	Lane int
}

func (bl BranchLine) String() string {
	return fmt.Sprintf("%08x-%08x %s lane %d", bl.First, bl.Second, bl.Direction, bl.Lane)
}

// assign each line to the lowest numbered lane that is not occupied. a lane
// becomes free once the line occupying it has ended.
func assignLanes(lines []BranchLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].First == lines[j].First {
			return lines[i].Second < lines[j].Second
		}
		return lines[i].First < lines[j].First
	})

	var inUse [NumLanes]bool
	var ends [NumLanes]uint32

	for i := range lines {
		lines[i].Lane = -1
		for l := range NumLanes {
			if !inUse[l] || ends[l] < lines[i].First {
				inUse[l] = true
				ends[l] = lines[i].Second
				lines[i].Lane = l
				break
			}
		}
	}
}
