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

// Package breakpoints decides whether execution of the guest should halt. It
// is consulted on every instruction fetch and on every memory access made by
// instrumented code.
//
// Breakpoints halt execution at an address. A breakpoint can be temporary, in
// which case it is removed by ClearTemporaryBreakPoints(); this is how
// stepping is implemented. A permanent and a temporary breakpoint can exist at
// the same address.
//
// Memory checks watch a range of memory for reads or writes. A write check can
// be restricted to writes that change the stored value. Because the new value
// is only known once the write has happened the check is done in two steps:
// JitBefore() is called before the write and queues a WatchToken, and
// JitCleanup() is called once the instruction has completed and drains the
// queue.
//
// All addresses are masked with the mirror mask before comparison, so that
// the cached and uncached views of the same memory are treated alike.
//
// Changes to breakpoints invalidate translated code for the affected
// addresses. The guest is paused for the duration of the invalidation. The
// tables are protected by a lock and, optionally, by an ownership assertion
// that requires all changes to be made by the same goroutine.
package breakpoints
