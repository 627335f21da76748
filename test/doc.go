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

// Package test contains helper functions to remove common boilerplate to make
// testing easier.
//
// The ExpectEquality() function compares two values of the same comparable
// type and reports an error if they differ. ExpectSuccess() and
// ExpectFailure() interpret a value as success or failure according to its
// type: a bool is successful when true and an error is successful when nil.
//
// The Demand*() functions are variants of the Expect*() functions that stop
// the test immediately on failure. These are useful when the value being
// tested will be used in subsequent tests and so must be correct.
//
// ExpectPanic() tests that a function panics. RingWriter is an io.Writer that
// keeps only the most recent output and is useful for capturing log echoes.
package test
