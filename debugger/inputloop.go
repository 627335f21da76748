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
	"github.com/cellforge/cellforge/debugger/govern"
	"github.com/cellforge/cellforge/debugger/terminal"
)

// Start the input loop. Returns when the user quits or the input ends.
func (dbg *Debugger) Start(term terminal.Terminal) error {
	term.RegisterTabCompletion(commandline.NewTabCompletion(dbg.cmds))
	if err := term.Initialise(); err != nil {
		return fmt.Errorf("debugger: %w", err)
	}
	defer term.CleanUp()

	dbg.term = term
	defer func() {
		dbg.term = discard{}
	}()

	var lastHalt breakpoints.Halt
	for {
		if h, ok := dbg.Engine.LastHalt(); ok && h != lastHalt {
			dbg.printLine(terminal.StyleHalt, "halted: %s", h)
			lastHalt = h
		}

		input, err := term.TermRead(dbg.prompt())
		if err != nil {
			if errors.Is(err, terminal.ErrUserInterrupt) {
				if state, _ := dbg.State(); state != govern.Paused {
					dbg.Pause()
				}
				continue
			}
			if errors.Is(err, terminal.ErrUserAbort) {
				return nil
			}
			return fmt.Errorf("debugger: %w", err)
		}

		quit, err := dbg.ParseCommand(input)
		if err != nil {
			dbg.printLine(terminal.StyleError, "%v", err)
		}
		if quit {
			return nil
		}
	}
}

func (dbg *Debugger) prompt() terminal.Prompt {
	state, _ := dbg.State()
	p := terminal.Prompt{
		State: state,
		PC:    dbg.target.GetPC(),
	}
	p.Label, _ = dbg.Sym.Label(p.PC)
	return p
}
