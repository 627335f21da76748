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
	"strconv"
	"strings"

	"github.com/cellforge/cellforge/debugger/breakpoints"
	"github.com/cellforge/cellforge/debugger/commandline"
	"github.com/cellforge/cellforge/debugger/expression"
)

// resolve a numeric or symbolic address.
func (dbg *Debugger) resolveAddress(s string) (uint32, error) {
	ai := dbg.Mem.GetAddressInfo(s)
	if ai == nil {
		return 0, fmt.Errorf("unrecognised address (%s)", s)
	}
	return ai.Address, nil
}

func parseValue(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("numeric argument required (%s is not numeric)", s)
	}
	return uint32(v), nil
}

// tokenise arguments for the named command and validate them.
func (dbg *Debugger) arguments(cmd string, args string) (*commandline.Tokens, error) {
	tokens := commandline.TokeniseInput(cmd + " " + args)
	if err := dbg.cmds.ValidateTokens(tokens); err != nil {
		return nil, err
	}
	tokens.Get()
	return tokens, nil
}

// ParseBreak adds a breakpoint from a description of the form:
//
//	ADDRESS [IF CONDITION]
//
// The address can be numeric or a symbol. Nothing is changed if the
// description or the condition is invalid. Returns the address of the
// breakpoint.
func (dbg *Debugger) ParseBreak(args string) (uint32, error) {
	tokens, err := dbg.arguments(cmdBreak, args)
	if err != nil {
		return 0, err
	}
	return dbg.parseBreak(tokens)
}

func (dbg *Debugger) parseBreak(tokens *commandline.Tokens) (uint32, error) {
	tok, _ := tokens.Get()
	addr, err := dbg.resolveAddress(tok)
	if err != nil {
		return 0, err
	}

	var cond *expression.Condition
	if _, ok := tokens.Get(); ok {
		cond, err = expression.NewCondition(tokens.Remainder(), functions{dbg: dbg})
		if err != nil {
			return 0, fmt.Errorf("condition: %w", err)
		}
	}

	dbg.Engine.AddBreakPoint(addr, false)
	if cond != nil {
		dbg.Engine.ChangeBreakPointAddCond(addr, cond)
	}

	return addr, nil
}

// ParseWatch adds a memory check from a description of the form:
//
//	READ|WRITE|CHANGE|ACCESS ADDRESS [LENGTH] [LOG|BREAK|BOTH]
//
// A watch without a length covers the single address. The default result is
// BREAK. Nothing is changed if the description is invalid. Returns the memory
// check as added. If an identical range is already watched then the returned
// value shows the combined conditions.
func (dbg *Debugger) ParseWatch(args string) (breakpoints.MemCheck, error) {
	tokens, err := dbg.arguments(cmdWatch, args)
	if err != nil {
		return breakpoints.MemCheck{}, err
	}
	return dbg.parseWatch(tokens)
}

func (dbg *Debugger) parseWatch(tokens *commandline.Tokens) (breakpoints.MemCheck, error) {
	var mc breakpoints.MemCheck

	kind, _ := tokens.Get()
	switch strings.ToUpper(kind) {
	case "READ":
		mc.Cond = breakpoints.CondRead
	case "WRITE":
		mc.Cond = breakpoints.CondWrite
	case "CHANGE":
		mc.Cond = breakpoints.CondWrite | breakpoints.CondWriteOnChange
	case "ACCESS":
		mc.Cond = breakpoints.CondReadWrite
	}

	tok, _ := tokens.Get()
	start, err := dbg.resolveAddress(tok)
	if err != nil {
		return mc, err
	}
	mc.Start = start
	mc.End = start

	mc.Result = breakpoints.ResultBreak
	for tok, ok := tokens.Get(); ok; tok, ok = tokens.Get() {
		switch strings.ToUpper(tok) {
		case "LOG":
			mc.Result = breakpoints.ResultLog
		case "BREAK":
			mc.Result = breakpoints.ResultBreak
		case "BOTH":
			mc.Result = breakpoints.ResultLogAndBreak
		default:
			n, err := parseValue(tok)
			if err != nil {
				return mc, err
			}
			if uint64(start)+uint64(n) > 0xffffffff {
				return mc, fmt.Errorf("watch extends beyond the address space")
			}
			mc.End = start + n
		}
	}

	dbg.Engine.AddMemCheck(mc.Start, mc.End, mc.Cond, mc.Result)

	for _, m := range dbg.Engine.MemChecks() {
		if m.Start == mc.Start && m.End == mc.End {
			return m, nil
		}
	}
	return mc, nil
}
