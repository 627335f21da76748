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

// Package colorterm implements the Terminal interface for the debugger. It
// supports color output, history and tab completion through the readline
// package.
package colorterm

import (
	"errors"
	"io"

	"github.com/cellforge/cellforge/debugger/terminal"
	"github.com/chzyer/readline"
)

// ColorTerminal implements debugger UI interface with a basic ANSI terminal.
type ColorTerminal struct {
	// file used to store history between sessions. can be empty
	HistoryFile string

	rl       *readline.Instance
	complete readline.AutoCompleter
	silenced bool
}

// Initialise perfoms any setting up required for the terminal.
func (ct *ColorTerminal) Initialise() error {
	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:       ct.HistoryFile,
		AutoComplete:      ct.complete,
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	ct.rl = rl
	return nil
}

// CleanUp perfoms any cleaning up required for the terminal.
func (ct *ColorTerminal) CleanUp() {
	if ct.rl != nil {
		_ = ct.rl.Close()
	}
}

// RegisterTabCompletion implements the terminal.Terminal interface.
func (ct *ColorTerminal) RegisterTabCompletion(tc readline.AutoCompleter) {
	ct.complete = tc
	if ct.rl != nil {
		ct.rl.Config.AutoComplete = tc
	}
}

// Silence implements the terminal.Terminal interface.
func (ct *ColorTerminal) Silence(silenced bool) {
	ct.silenced = silenced
}

// IsInteractive implements the terminal.Input interface.
func (ct *ColorTerminal) IsInteractive() bool {
	return true
}

// TermPrintLine implements the terminal.Output interface.
func (ct *ColorTerminal) TermPrintLine(style terminal.Style, s string) {
	if ct.silenced && style != terminal.StyleError {
		return
	}

	// readline already shows the input
	if style == terminal.StyleEcho {
		return
	}

	var pen string
	switch style {
	case terminal.StyleHelp, terminal.StyleFeedback:
		pen = dimWhite
	case terminal.StyleInstrument:
		pen = cyan
	case terminal.StyleLog:
		pen = dimYellow
	case terminal.StyleHalt:
		pen = bold
	case terminal.StyleError:
		pen = red
		s = "* " + s
	}

	_, _ = io.WriteString(ct.rl.Stdout(), pen+s+normal+"\n")
}

// TermRead implements the terminal.Input interface.
func (ct *ColorTerminal) TermRead(prompt terminal.Prompt) (string, error) {
	ct.rl.SetPrompt(bold + prompt.String() + normal)

	line, err := ct.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", terminal.ErrUserInterrupt
		}
		if errors.Is(err, io.EOF) {
			return "", terminal.ErrUserAbort
		}
		return "", err
	}

	return line, nil
}
