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

package terminal

import (
	"errors"

	"github.com/chzyer/readline"
)

// Sentinel errors returned by TermRead().
var (
	// the user interrupted input (ctrl-c). the debugger should pause the guest
	// if it is running
	ErrUserInterrupt = errors.New("user interrupt")

	// the input has ended (ctrl-d or end of file). the debugger should quit
	ErrUserAbort = errors.New("user abort")
)

// Input defines the operations required by an interface that allows input.
type Input interface {
	// TermRead returns the next line of input. Returns ErrUserInterrupt or
	// ErrUserAbort as appropriate.
	TermRead(prompt Prompt) (string, error)

	// IsInteractive() should return true for implementations that require user
	// interaction. Instances that don't expect user intervention should return
	// false.
	IsInteractive() bool
}

// Output defines the operations required by an interface that allows output.
type Output interface {
	TermPrintLine(Style, string)
}

// Terminal defines the operations required by the debugger's command line
// interface.
type Terminal interface {
	Input
	Output

	// Initialise the terminal. not all terminal implementations will need to
	// do anything.
	Initialise() error

	// Restore the terminal to its original state, if possible. not all
	// terminal implementations will need to do anything.
	CleanUp()

	// Register a tab completion implementation to use with the terminal. Not
	// all implementations need to respond meaningfully to this.
	RegisterTabCompletion(readline.AutoCompleter)

	// Silence all output except error messages.
	Silence(silenced bool)
}
