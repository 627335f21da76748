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
	"errors"
	"fmt"

	"github.com/cellforge/cellforge/debugger/breakpoints"
	"github.com/cellforge/cellforge/debugger/commandline"
	"github.com/cellforge/cellforge/debugger/dbgmem"
	"github.com/cellforge/cellforge/debugger/govern"
	"github.com/cellforge/cellforge/debugger/terminal"
	"github.com/cellforge/cellforge/disassembly"
	"github.com/cellforge/cellforge/disassembly/symbols"
	"github.com/cellforge/cellforge/logger"
	"go.uber.org/atomic"
)

// Config for a new Debugger.
type Config struct {
	// the guest. required
	Target dbgmem.Target

	// instruction decoder for the guest. required
	Decoder disassembly.Decoder

	// symbol table. a new, empty table is created if this is nil
	Symbols *symbols.Symbols

	// translated code that must be discarded when breakpoints change. can be
	// nil
	Invalidator breakpoints.Invalidator

	// mirror mask for breakpoints and memory checks. zero means no masking
	Mask uint32
}

// Debugger is the basic debugging frontend for the guest.
type Debugger struct {
	target dbgmem.Target
	dec    disassembly.Decoder

	// register access. nil if the target does not implement the
	// dbgmem.Registers interface
	regs dbgmem.Registers

	Sym    *symbols.Symbols
	Mem    dbgmem.DbgMem
	Disasm *disassembly.Manager
	Engine *breakpoints.Engine

	// state is atomic because it can be read from the guest goroutine
	state    atomic.Int32
	subState atomic.Int32

	// the commands recognised by ParseCommand()
	cmds *commandline.Commands
	idx  commandline.Index

	// output for commands. never nil
	term terminal.Output

	// the address used by the previous DISASM command
	lastDisasm uint32
}

// NewDebugger is the preferred method of initialisation for the Debugger type.
func NewDebugger(cfg Config) (*Debugger, error) {
	if cfg.Target == nil {
		return nil, fmt.Errorf("debugger: no target")
	}
	if cfg.Decoder == nil {
		return nil, fmt.Errorf("debugger: no decoder")
	}

	dbg := &Debugger{
		target: cfg.Target,
		dec:    cfg.Decoder,
		Sym:    cfg.Symbols,
		term:   discard{},
	}

	if dbg.Sym == nil {
		dbg.Sym = symbols.NewSymbols()
	}
	if regs, ok := cfg.Target.(dbgmem.Registers); ok {
		dbg.regs = regs
	}

	dbg.Mem = dbgmem.DbgMem{
		Target: cfg.Target,
		Sym:    dbg.Sym,
		Mask:   cfg.Mask,
	}

	dbg.Disasm = disassembly.NewManager(cfg.Target, cfg.Decoder, dbg.Sym)

	dbg.Engine = breakpoints.NewEngine(breakpoints.Config{
		Mask:        cfg.Mask,
		Target:      cfg.Target,
		Functions:   functions{dbg: dbg},
		Invalidator: cfg.Invalidator,
	})

	var err error
	dbg.cmds, err = commandline.ParseCommandTemplate(commandTemplate)
	if err != nil {
		return nil, fmt.Errorf("debugger: %w", err)
	}
	dbg.idx = commandline.CreateIndex(dbg.cmds)

	state := govern.Running
	if cfg.Target.IsPaused() {
		state = govern.Paused
	}
	dbg.setState(state, govern.Normal)

	return dbg, nil
}

// State returns the current state of the guest as seen by the debugger.
func (dbg *Debugger) State() (govern.State, govern.SubState) {
	return govern.State(dbg.state.Load()), govern.SubState(dbg.subState.Load())
}

func (dbg *Debugger) setState(state govern.State, sub govern.SubState) {
	dbg.state.Store(int32(state))
	dbg.subState.Store(int32(sub))
	logger.Logf(logger.Allow, "debugger", "state: %s (%s)", state, sub)
}

// ErrNotPaused is returned by stepping functions when the guest is running.
var ErrNotPaused = errors.New("guest is not paused")

// Pause halts the guest and removes any temporary breakpoints.
func (dbg *Debugger) Pause() {
	dbg.target.Pause()
	dbg.Engine.ClearTemporaryBreakPoints()
	dbg.setState(govern.Paused, govern.PausedByUser)
}

// Resume the guest. If there is a breakpoint at the current PC it will not
// trigger on the first fetch.
func (dbg *Debugger) Resume() {
	dbg.resume(govern.Running)
}

func (dbg *Debugger) resume(state govern.State) {
	pc := dbg.target.GetPC()
	if dbg.Engine.IsAddressBreakPoint(pc) {
		dbg.Engine.SkipFirst(pc)
	}
	dbg.setState(state, govern.Normal)
	dbg.target.Resume()
}

// OnFetch must be called by the guest before the instruction at the PC is
// executed. Returns true if the guest has been halted.
func (dbg *Debugger) OnFetch(pc uint32) bool {
	stepped := dbg.Engine.IsTempBreakPoint(pc)

	if !dbg.Engine.CheckFetch(pc) {
		return false
	}

	dbg.Engine.ClearTemporaryBreakPoints()

	sub := govern.PausedAtBreakpoint
	if stepped && !dbg.Engine.IsAddressBreakPoint(pc) {
		sub = govern.Normal
	}
	dbg.setState(govern.Paused, sub)

	return true
}

// OnAccess must be called by instrumented code before a memory access.
// Returns true if the guest has been halted.
func (dbg *Debugger) OnAccess(addr uint32, write bool, size int, pc uint32) bool {
	if !dbg.Engine.JitBefore(addr, write, size, pc) {
		return false
	}
	dbg.memcheckHalt()
	return true
}

// OnInstructionEnd must be called by instrumented code once an instruction
// that called OnAccess() has completed. Returns true if the guest has been
// halted.
func (dbg *Debugger) OnInstructionEnd(detector breakpoints.ChangeDetector) bool {
	if !dbg.Engine.JitCleanup(detector) {
		return false
	}
	dbg.memcheckHalt()
	return true
}

func (dbg *Debugger) memcheckHalt() {
	dbg.Engine.ClearTemporaryBreakPoints()
	dbg.setState(govern.Paused, govern.PausedAtMemCheck)
}

// discard is used as the output before a terminal has been attached
type discard struct{}

func (discard) TermPrintLine(terminal.Style, string) {}
