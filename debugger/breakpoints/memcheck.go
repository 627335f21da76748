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

package breakpoints

import (
	"fmt"
	"strings"

	"github.com/cellforge/cellforge/debugger/expression"
)

// MemCond is the type of memory access a MemCheck is interested in.
type MemCond uint8

// List of valid MemCond bits.
const (
	CondRead MemCond = 1 << iota
	CondWrite

	// only writes that change the value in memory. should be combined with
	// CondWrite
	CondWriteOnChange

	CondReadWrite = CondRead | CondWrite
)

func (c MemCond) String() string {
	var s []string
	if c&CondRead == CondRead {
		s = append(s, "read")
	}
	if c&CondWrite == CondWrite {
		if c&CondWriteOnChange == CondWriteOnChange {
			s = append(s, "write-on-change")
		} else {
			s = append(s, "write")
		}
	}
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, "/")
}

// deferred reports whether the condition requires the value in memory to
// change.
func (c MemCond) deferred() bool {
	return c&(CondWrite|CondWriteOnChange) == CondWrite|CondWriteOnChange
}

// MemResult is what happens when a MemCheck is hit.
type MemResult uint8

// List of valid MemResult bits.
const (
	ResultLog MemResult = 1 << iota
	ResultBreak

	ResultLogAndBreak = ResultLog | ResultBreak
)

func (r MemResult) String() string {
	switch r {
	case ResultLog:
		return "log"
	case ResultBreak:
		return "break"
	case ResultLogAndBreak:
		return "log/break"
	}
	return "none"
}

// MemCheck watches a range of memory. End is exclusive. A MemCheck with End
// equal to Start watches the single address.
type MemCheck struct {
	Start  uint32
	End    uint32
	Cond   MemCond
	Result MemResult

	Condition *expression.Condition

	NumHits uint64

	// details of the most recent hit
	LastPC   uint32
	LastAddr uint32
	LastSize int
}

func (mc MemCheck) String() string {
	if mc.End <= mc.Start {
		return fmt.Sprintf("%#08x %s %s (%d hits)", mc.Start, mc.Cond, mc.Result, mc.NumHits)
	}
	return fmt.Sprintf("%#08x-%#08x %s %s (%d hits)", mc.Start, mc.End, mc.Cond, mc.Result, mc.NumHits)
}

// matches returns true if the access type is one the check is interested in.
func (mc *MemCheck) matches(write bool) bool {
	if write {
		return mc.Cond&CondWrite == CondWrite
	}
	return mc.Cond&CondRead == CondRead
}

// BreakPoint halts execution at an address.
type BreakPoint struct {
	Address   uint32
	Enabled   bool
	Temporary bool

	Condition *expression.Condition
}

func (bp BreakPoint) String() string {
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("%#08x", bp.Address))
	if bp.Temporary {
		s.WriteString(" (temporary)")
	}
	if !bp.Enabled {
		s.WriteString(" (disabled)")
	}
	if bp.Condition != nil {
		s.WriteString(fmt.Sprintf(" if %s", bp.Condition))
	}
	return s.String()
}

// WatchToken is a memory access that has been checked by JitBefore() but
// which can only be acted on once the access has completed.
type WatchToken struct {
	Check   *MemCheck
	Address uint32
	PC      uint32
	Size    int

	// value in memory before the access. not valid if Captured is false
	Before   uint64
	Captured bool
}

// ChangeDetector reports whether the access described by the token changed
// the value in memory.
type ChangeDetector func(tok WatchToken) bool
