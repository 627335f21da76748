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

package debugger

import (
	"fmt"

	"github.com/cellforge/cellforge/debugger/govern"
	"golang.org/x/exp/slices"
)

// NextAddresses returns the addresses that control can pass to once the
// instruction at the PC has been executed. If over is true then calls are
// treated as a single instruction.
func (dbg *Debugger) NextAddresses(pc uint32, over bool) ([]uint32, error) {
	w, err := dbg.target.Read32(pc)
	if err != nil {
		return nil, fmt.Errorf("debugger: %w", err)
	}

	ins := dbg.dec.Decode(pc, w)
	size := ins.Size
	if size == 0 {
		size = 4
	}
	next := pc + size

	br := ins.Branch
	if !br.IsBranch || (br.Link && over) {
		return []uint32{next}, nil
	}

	var addrs []uint32
	if br.HasTarget {
		addrs = append(addrs, br.Target)
	} else if br.Register != "" && dbg.regs != nil {
		if v, ok := dbg.regs.Register(br.Register); ok {
			addrs = append(addrs, uint32(v)&^0x3)
		}
	}

	// the fall through address is also possible if the branch is conditional
	// or if the target can not be determined
	if br.Conditional || len(addrs) == 0 {
		addrs = append(addrs, next)
	}

	slices.Sort(addrs)
	return slices.Compact(addrs), nil
}

// StepInto executes the current instruction, following calls. Returns the
// addresses of the temporary breakpoints.
func (dbg *Debugger) StepInto() ([]uint32, error) {
	return dbg.step(false)
}

// StepOver executes the current instruction. If it is a call then execution
// continues until the call returns. Returns the addresses of the temporary
// breakpoints.
func (dbg *Debugger) StepOver() ([]uint32, error) {
	return dbg.step(true)
}

func (dbg *Debugger) step(over bool) ([]uint32, error) {
	if !dbg.target.IsPaused() {
		return nil, ErrNotPaused
	}

	addrs, err := dbg.NextAddresses(dbg.target.GetPC(), over)
	if err != nil {
		return nil, err
	}

	for _, a := range addrs {
		dbg.Engine.AddBreakPoint(a, true)
	}
	dbg.resume(govern.Stepping)

	return addrs, nil
}
