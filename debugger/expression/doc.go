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

// Package expression compiles and evaluates the conditions attached to
// breakpoints and memory checks.
//
// An expression is compiled once, when the condition is set, and evaluated
// every time the breakpoint is hit. Compilation converts the infix text to
// postfix and checks that every identifier can be resolved. Identifiers are
// resolved again at evaluation time because register values change.
//
// Numbers are decimal or hexadecimal with a 0x or $ prefix. Square brackets
// read a 32bit word from guest memory. Operators have the same precedence as
// in C:
//
//	unary:  - ! ~
//	binary: * / % + - << >> < <= > >= == != & ^ | && ||
//
// All arithmetic is unsigned 64bit. Comparisons and logical operators produce
// zero or one.
package expression
