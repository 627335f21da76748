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

// Package plainterm implements the Terminal interface for the debugger. It's
// as simple as simple can be and offers no special features. It is suitable
// for scripted input.
package plainterm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/cellforge/cellforge/debugger/terminal"
	"github.com/chzyer/readline"
)

// PlainTerminal is the default, most basic terminal interface.
type PlainTerminal struct {
	Input  io.Reader
	Output io.Writer

	// print the prompt before reading input
	ShowPrompt bool

	scanner  *bufio.Scanner
	silenced bool
}

// Initialise perfoms any setting up required for the terminal. Nil Input and
// Output fields default to stdin and stdout.
func (pt *PlainTerminal) Initialise() error {
	if pt.Input == nil {
		pt.Input = os.Stdin
	}
	if pt.Output == nil {
		pt.Output = os.Stdout
	}
	pt.scanner = bufio.NewScanner(pt.Input)
	return nil
}

// CleanUp perfoms any cleaning up required for the terminal.
func (pt *PlainTerminal) CleanUp() {
}

// RegisterTabCompletion implements the terminal.Terminal interface.
func (pt *PlainTerminal) RegisterTabCompletion(readline.AutoCompleter) {
}

// Silence implements the terminal.Terminal interface.
func (pt *PlainTerminal) Silence(silenced bool) {
	pt.silenced = silenced
}

// IsInteractive implements the terminal.Input interface.
func (pt *PlainTerminal) IsInteractive() bool {
	return false
}

// TermPrintLine implements the terminal.Output interface.
func (pt *PlainTerminal) TermPrintLine(style terminal.Style, s string) {
	if pt.silenced && style != terminal.StyleError {
		return
	}

	switch style {
	case terminal.StyleEcho:
		return
	case terminal.StyleError:
		s = fmt.Sprintf("* %s", s)
	}

	fmt.Fprintln(pt.Output, s)
}

// TermRead implements the terminal.Input interface.
func (pt *PlainTerminal) TermRead(prompt terminal.Prompt) (string, error) {
	if pt.ShowPrompt && !pt.silenced {
		fmt.Fprint(pt.Output, prompt.String())
	}

	if !pt.scanner.Scan() {
		if err := pt.scanner.Err(); err != nil {
			return "", err
		}
		return "", terminal.ErrUserAbort
	}

	return pt.scanner.Text(), nil
}
