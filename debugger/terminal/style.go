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

// Style is used to identify the category of text being sent to the
// Terminal.TermPrintLine() function. The terminal implementation can choose to
// interpret the style however it wishes, and may ignore it completely.
type Style int

// List of terminal styles.
const (
	// input from the user echoed back to the output. implementations do not
	// need to print this if the terminal already shows what was typed
	StyleEcho Style = iota

	// information from the help command
	StyleHelp

	// general information
	StyleFeedback

	// disassembly and memory listings
	StyleInstrument

	// entries copied from the central logger
	StyleLog

	// information about why the guest has halted
	StyleHalt

	// an error has occurred
	StyleError
)
