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

// Package commandline parses and validates the commands typed into the
// debugger.
//
// Commands are described by templates. A template is a list of words, the
// first of which is the command name. Keywords are matched case
// insensitively. Arguments are described by placeholders:
//
//	%V	numeric value (decimal, or hex with a 0x or $ prefix)
//	%S	string
//	%F	filename
//	%I	floating-point value
//	%*	all remaining input
//
// Square brackets group required arguments and parentheses group optional
// arguments. Alternatives inside a group are separated by a vertical bar.
// For example:
//
//	WATCH [READ|WRITE|CHANGE] %V (%V) (LOG|BREAK)
//
// The Commands type returned by ParseCommandTemplate() is used to validate
// Tokens and to provide tab completion for the readline package.
package commandline
