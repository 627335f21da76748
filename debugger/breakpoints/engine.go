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

package breakpoints

import (
	"cmp"
	"fmt"
	"sync"

	"github.com/cellforge/cellforge/assert"
	"github.com/cellforge/cellforge/debugger/dbgmem"
	"github.com/cellforge/cellforge/debugger/expression"
	"github.com/cellforge/cellforge/debugger/govern"
	"github.com/cellforge/cellforge/logger"
	"golang.org/x/exp/slices"
)

// Invalidator discards translated code overlapping the range [start, end).
// Returns the number of blocks discarded.
type Invalidator interface {
	Invalidate(start uint32, end uint32) int
}

// Halt describes the reason the engine last halted the guest.
type Halt struct {
	Reason  govern.SubState
	PC      uint32
	Address uint32
	Check   *MemCheck
}

func (h Halt) String() string {
	switch h.Reason {
	case govern.PausedAtBreakpoint:
		return fmt.Sprintf("breakpoint at %#08x", h.PC)
	case govern.PausedAtMemCheck:
		return fmt.Sprintf("memcheck at %#08x by %#08x", h.Address, h.PC)
	}
	return h.Reason.String()
}

// Config for a new Engine. All fields are optional.
type Config struct {
	// mirror mask applied to every address before comparison. zero means
	// no masking
	Mask uint32

	// the guest. used to pause and resume around invalidation, to halt on a
	// hit and to read memory for write-on-change checks
	Target dbgmem.Target

	// used to resolve identifiers in conditions
	Functions expression.Functions

	// receives the address ranges of changed breakpoints
	Invalidator Invalidator

	// if not nil, all changes to the tables must be made from the goroutine
	// that has claimed the owner
	Owner *assert.Owner
}

// Engine maintains the lists of breakpoints and memchecks.
type Engine struct {
	crit sync.RWMutex

	mask       uint32
	target     dbgmem.Target
	funcs      expression.Functions
	invalidate Invalidator
	owner      *assert.Owner

	breaks    []*BreakPoint
	memchecks []*MemCheck

	// write-on-change checks waiting for the current instruction to complete
	pending []WatchToken

	skipFirst    uint32
	skipFirstSet bool

	halt    Halt
	halted  bool
	updates int
}

// NewEngine is the preferred method of initialisation for the Engine type.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		mask:       cfg.Mask,
		target:     cfg.Target,
		funcs:      cfg.Functions,
		invalidate: cfg.Invalidator,
		owner:      cfg.Owner,
	}
	if e.mask == 0 {
		e.mask = 0xffffffff
	}
	return e
}

// SetFunctions changes how identifiers in conditions are resolved.
func (e *Engine) SetFunctions(funcs expression.Functions) {
	e.crit.Lock()
	defer e.crit.Unlock()
	e.funcs = funcs
}

func (e *Engine) checkOwner() {
	if e.owner == nil {
		return
	}
	if err := e.owner.Check("breakpoints"); err != nil {
		panic(err)
	}
}

func (e *Engine) masked(addr uint32) uint32 {
	return addr & e.mask
}

// find breakpoint at address. a breakpoint with the matching temporary flag is
// preferred. returns -1 if there is no breakpoint at the address.
func (e *Engine) find(addr uint32, temp bool) int {
	addr = e.masked(addr)
	found := -1
	for i, bp := range e.breaks {
		if e.masked(bp.Address) != addr {
			continue
		}
		if bp.Temporary == temp {
			return i
		}
		if found == -1 {
			found = i
		}
	}
	return found
}

// findExact is like find but the temporary flag must match.
func (e *Engine) findExact(addr uint32, temp bool) int {
	i := e.find(addr, temp)
	if i >= 0 && e.breaks[i].Temporary != temp {
		return -1
	}
	return i
}

// AddBreakPoint adds a breakpoint at the address. If an identical breakpoint
// exists it is enabled.
func (e *Engine) AddBreakPoint(addr uint32, temp bool) {
	e.checkOwner()

	e.crit.Lock()
	if i := e.findExact(addr, temp); i >= 0 {
		if e.breaks[i].Enabled {
			e.crit.Unlock()
			return
		}
		e.breaks[i].Enabled = true
	} else {
		e.breaks = append(e.breaks, &BreakPoint{
			Address:   e.masked(addr),
			Enabled:   true,
			Temporary: temp,
		})
	}
	e.crit.Unlock()

	e.Update(addr)
}

// RemoveBreakPoint removes the breakpoint at the address. If both a permanent
// and a temporary breakpoint exist then both are removed.
func (e *Engine) RemoveBreakPoint(addr uint32) {
	e.checkOwner()

	e.crit.Lock()
	i := e.find(addr, false)
	if i < 0 {
		e.crit.Unlock()
		return
	}
	e.breaks = slices.Delete(e.breaks, i, i+1)
	if i = e.find(addr, false); i >= 0 {
		e.breaks = slices.Delete(e.breaks, i, i+1)
	}
	e.crit.Unlock()

	e.Update(addr)
}

// RemoveTempBreakPoint removes the temporary breakpoint at the address. A
// permanent breakpoint at the same address is left alone.
func (e *Engine) RemoveTempBreakPoint(addr uint32) {
	e.checkOwner()

	e.crit.Lock()
	i := e.findExact(addr, true)
	if i < 0 {
		e.crit.Unlock()
		return
	}
	e.breaks = slices.Delete(e.breaks, i, i+1)
	e.crit.Unlock()

	e.Update(addr)
}

// ChangeBreakPoint enables or disables the breakpoint at the address.
func (e *Engine) ChangeBreakPoint(addr uint32, enabled bool) {
	e.checkOwner()

	e.crit.Lock()
	i := e.find(addr, false)
	if i < 0 || e.breaks[i].Enabled == enabled {
		e.crit.Unlock()
		return
	}
	e.breaks[i].Enabled = enabled
	e.crit.Unlock()

	e.Update(addr)
}

// ChangeBreakPointAddCond attaches a condition to the breakpoint at the
// address. Any existing condition is replaced.
func (e *Engine) ChangeBreakPointAddCond(addr uint32, cond *expression.Condition) {
	e.checkOwner()

	e.crit.Lock()
	i := e.find(addr, false)
	if i < 0 {
		e.crit.Unlock()
		return
	}
	e.breaks[i].Condition = cond
	e.crit.Unlock()

	e.Update(addr)
}

// ChangeBreakPointRemoveCond removes any condition from the breakpoint at the
// address.
func (e *Engine) ChangeBreakPointRemoveCond(addr uint32) {
	e.ChangeBreakPointAddCond(addr, nil)
}

// IsAddressBreakPoint returns true if there is an enabled breakpoint at the
// address.
func (e *Engine) IsAddressBreakPoint(addr uint32) bool {
	e.crit.RLock()
	defer e.crit.RUnlock()

	addr = e.masked(addr)
	for _, bp := range e.breaks {
		if bp.Address == addr && bp.Enabled {
			return true
		}
	}
	return false
}

// IsBreakPointDefined returns true if there is any breakpoint at the address.
// The second return value is true if it is enabled.
func (e *Engine) IsBreakPointDefined(addr uint32) (bool, bool) {
	e.crit.RLock()
	defer e.crit.RUnlock()

	i := e.find(addr, false)
	if i < 0 {
		return false, false
	}
	return true, e.breaks[i].Enabled
}

// IsTempBreakPoint returns true if there is a temporary breakpoint at the
// address.
func (e *Engine) IsTempBreakPoint(addr uint32) bool {
	e.crit.RLock()
	defer e.crit.RUnlock()
	return e.findExact(addr, true) >= 0
}

// BreakPointCondition returns the condition for the breakpoint at the
// address. Returns nil if there is no breakpoint or no condition.
func (e *Engine) BreakPointCondition(addr uint32) *expression.Condition {
	e.crit.RLock()
	defer e.crit.RUnlock()

	i := e.find(addr, false)
	if i < 0 {
		return nil
	}
	return e.breaks[i].Condition
}

// ClearAllBreakPoints removes every breakpoint.
func (e *Engine) ClearAllBreakPoints() {
	e.checkOwner()

	e.crit.Lock()
	n := len(e.breaks)
	e.breaks = e.breaks[:0]
	e.crit.Unlock()

	if n > 0 {
		e.updateAll()
	}
}

// ClearTemporaryBreakPoints removes every temporary breakpoint.
func (e *Engine) ClearTemporaryBreakPoints() {
	e.checkOwner()

	var removed []uint32

	e.crit.Lock()
	e.breaks = slices.DeleteFunc(e.breaks, func(bp *BreakPoint) bool {
		if bp.Temporary {
			removed = append(removed, bp.Address)
			return true
		}
		return false
	})
	e.crit.Unlock()

	for _, addr := range removed {
		e.Update(addr)
	}
}

// BreakPoints returns a copy of all breakpoints sorted by address.
func (e *Engine) BreakPoints() []BreakPoint {
	e.crit.RLock()
	defer e.crit.RUnlock()

	bps := make([]BreakPoint, 0, len(e.breaks))
	for _, bp := range e.breaks {
		bps = append(bps, *bp)
	}
	slices.SortStableFunc(bps, func(a, b BreakPoint) int {
		return cmp.Compare(a.Address, b.Address)
	})
	return bps
}

// AddMemCheck adds a memory check for the range [start, end). If a check for
// the same range exists the conditions and results are combined with it.
func (e *Engine) AddMemCheck(start uint32, end uint32, cond MemCond, result MemResult) {
	e.checkOwner()

	e.crit.Lock()
	if i := e.findMemCheck(start, end); i >= 0 {
		e.memchecks[i].Cond |= cond
		e.memchecks[i].Result |= result
	} else {
		e.memchecks = append(e.memchecks, &MemCheck{
			Start:  start,
			End:    end,
			Cond:   cond,
			Result: result,
		})
	}
	e.crit.Unlock()

	e.updateAll()
}

// ChangeMemCheckAddCond attaches a condition to the memcheck with the range.
// The check is only actioned if the condition is true.
func (e *Engine) ChangeMemCheckAddCond(start uint32, end uint32, cond *expression.Condition) {
	e.checkOwner()

	e.crit.Lock()
	defer e.crit.Unlock()
	if i := e.findMemCheck(start, end); i >= 0 {
		e.memchecks[i].Condition = cond
	}
}

func (e *Engine) findMemCheck(start uint32, end uint32) int {
	return slices.IndexFunc(e.memchecks, func(mc *MemCheck) bool {
		return mc.Start == start && mc.End == end
	})
}

// RemoveMemCheck removes the memory check with the range.
func (e *Engine) RemoveMemCheck(start uint32, end uint32) {
	e.checkOwner()

	e.crit.Lock()
	i := e.findMemCheck(start, end)
	if i < 0 {
		e.crit.Unlock()
		return
	}
	e.memchecks = slices.Delete(e.memchecks, i, i+1)
	e.crit.Unlock()

	e.updateAll()
}

// ClearAllMemChecks removes every memory check.
func (e *Engine) ClearAllMemChecks() {
	e.checkOwner()

	e.crit.Lock()
	n := len(e.memchecks)
	e.memchecks = e.memchecks[:0]
	e.pending = e.pending[:0]
	e.crit.Unlock()

	if n > 0 {
		e.updateAll()
	}
}

// MemChecks returns a copy of all memory checks sorted by start address.
func (e *Engine) MemChecks() []MemCheck {
	e.crit.RLock()
	defer e.crit.RUnlock()

	mcs := make([]MemCheck, 0, len(e.memchecks))
	for _, mc := range e.memchecks {
		mcs = append(mcs, *mc)
	}
	slices.SortStableFunc(mcs, func(a, b MemCheck) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return mcs
}

// Query returns the first memory check covering any byte of the access. A
// check with an empty range only matches an access starting at exactly its
// address.
func (e *Engine) Query(addr uint32, size int) (MemCheck, bool) {
	e.crit.RLock()
	defer e.crit.RUnlock()

	mc := e.query(addr, size)
	if mc == nil {
		return MemCheck{}, false
	}
	return *mc, true
}

func (e *Engine) query(addr uint32, size int) *MemCheck {
	addr = e.masked(addr)
	last := uint64(addr) + uint64(size)

	for _, mc := range e.memchecks {
		start := e.masked(mc.Start)

		// the length is taken from the stored range. masking the end address
		// would wrap a range that finishes on the mirror boundary
		if mc.End <= mc.Start {
			if addr == start {
				return mc
			}
			continue
		}
		end := uint64(start) + uint64(mc.End-mc.Start)
		if uint64(addr) < end && last > uint64(start) {
			return mc
		}
	}

	return nil
}

// ExecCheck checks the access against the memory checks and actions the first
// match. Returns true if the access caused the guest to halt.
func (e *Engine) ExecCheck(addr uint32, write bool, size int, pc uint32) bool {
	e.crit.Lock()
	mc := e.query(addr, size)
	if mc == nil {
		e.crit.Unlock()
		return false
	}
	halt := e.action(mc, addr, write, size, pc)
	e.crit.Unlock()

	if halt {
		e.pauseTarget()
	}
	return halt
}

// JitBefore is called by instrumented code before a memory access. Checks
// interested only in writes that change memory are queued until JitCleanup().
// Other checks are actioned immediately. Returns true if the access caused the
// guest to halt.
func (e *Engine) JitBefore(addr uint32, write bool, size int, pc uint32) bool {
	e.crit.Lock()
	mc := e.query(addr, size)
	if mc == nil {
		e.crit.Unlock()
		return false
	}

	if write && mc.Cond.deferred() {
		tok := WatchToken{
			Check:   mc,
			Address: addr,
			PC:      pc,
			Size:    size,
		}
		if e.target != nil {
			if v, err := dbgmem.ReadSized(e.target, addr, size); err == nil {
				tok.Before = v
				tok.Captured = true
			}
		}
		e.pending = append(e.pending, tok)
		e.crit.Unlock()
		return false
	}

	halt := e.action(mc, addr, write, size, pc)
	e.crit.Unlock()

	if halt {
		e.pauseTarget()
	}
	return halt
}

// Pending returns the number of accesses waiting for JitCleanup().
func (e *Engine) Pending() int {
	e.crit.RLock()
	defer e.crit.RUnlock()
	return len(e.pending)
}

// JitCleanup is called once the instruction that caused one or more calls to
// JitBefore() has completed. Pending checks are actioned in the order they
// were queued if the detector reports that memory has changed. If the
// detector is nil the value captured by JitBefore() is compared with the
// value now in memory. Returns true if the guest was halted.
func (e *Engine) JitCleanup(detector ChangeDetector) bool {
	e.crit.Lock()
	pending := e.pending
	e.pending = nil

	var halt bool
	for _, tok := range pending {
		var changed bool
		if detector != nil {
			changed = detector(tok)
		} else if tok.Captured && e.target != nil {
			v, err := dbgmem.ReadSized(e.target, tok.Address, tok.Size)
			changed = err == nil && v != tok.Before
		}
		if !changed {
			continue
		}
		if e.action(tok.Check, tok.Address, true, tok.Size, tok.PC) {
			halt = true
		}
	}
	e.crit.Unlock()

	if halt {
		e.pauseTarget()
	}
	return halt
}

// action a memory check. returns true if the guest should halt. the critical
// section must be held.
func (e *Engine) action(mc *MemCheck, addr uint32, write bool, size int, pc uint32) bool {
	if !mc.matches(write) {
		return false
	}
	if !e.evaluate(mc.Condition) {
		return false
	}

	mc.NumHits++
	mc.LastPC = pc
	mc.LastAddr = addr
	mc.LastSize = size

	if mc.Result&ResultLog == ResultLog {
		access := "read"
		if write {
			access = "write"
		}
		logger.Logf(logger.Allow, "breakpoints", "memcheck: %s of %d bytes at %#08x by %#08x", access, size, addr, pc)
	}

	if mc.Result&ResultBreak == ResultBreak {
		e.halt = Halt{
			Reason:  govern.PausedAtMemCheck,
			PC:      pc,
			Address: addr,
			Check:   mc,
		}
		e.halted = true
		return true
	}

	return false
}

// evaluate condition. a condition that can not be evaluated is false. the
// critical section must be held.
func (e *Engine) evaluate(cond *expression.Condition) bool {
	if cond == nil {
		return true
	}
	ok, err := cond.Evaluate(e.funcs)
	if err != nil {
		logger.Logf(logger.Allow, "breakpoints", "condition %q: %v", cond.String(), err)
		return false
	}
	return ok
}

// SkipFirst causes the next call to CheckFetch() to ignore a breakpoint at the
// PC. Used when resuming from a breakpoint.
func (e *Engine) SkipFirst(pc uint32) {
	e.crit.Lock()
	defer e.crit.Unlock()
	e.skipFirst = e.masked(pc)
	e.skipFirstSet = true
}

// CheckSkipFirst returns true if the next fetch at the PC would be ignored.
// The skip is not consumed.
func (e *Engine) CheckSkipFirst(pc uint32) bool {
	e.crit.RLock()
	defer e.crit.RUnlock()
	return e.skipFirstSet && e.skipFirst == e.masked(pc)
}

// the skip is consumed by the first fetch whatever its address.
func (e *Engine) consumeSkipFirst(pc uint32) bool {
	if !e.skipFirstSet {
		return false
	}
	e.skipFirstSet = false
	return e.skipFirst == e.masked(pc)
}

// CheckFetch is called before the instruction at the PC is executed. Returns
// true if the guest has been halted.
func (e *Engine) CheckFetch(pc uint32) bool {
	e.crit.Lock()
	if e.consumeSkipFirst(pc) {
		e.crit.Unlock()
		return false
	}

	addr := e.masked(pc)
	hit := false
	for _, bp := range e.breaks {
		if bp.Address != addr || !bp.Enabled {
			continue
		}
		if !e.evaluate(bp.Condition) {
			continue
		}
		hit = true
		break
	}

	if hit {
		e.halt = Halt{
			Reason:  govern.PausedAtBreakpoint,
			PC:      pc,
			Address: pc,
		}
		e.halted = true
	}
	e.crit.Unlock()

	if hit {
		e.pauseTarget()
	}
	return hit
}

// LastHalt returns the reason for the most recent halt. The second return
// value is false if the engine has never halted the guest.
func (e *Engine) LastHalt() (Halt, bool) {
	e.crit.RLock()
	defer e.crit.RUnlock()
	return e.halt, e.halted
}

func (e *Engine) pauseTarget() {
	if e.target != nil && !e.target.IsPaused() {
		e.target.Pause()
	}
}

// Update invalidates translated code at the address. The guest is paused for
// the duration if it is running.
func (e *Engine) Update(addr uint32) {
	e.update(addr, addr+4)
}

func (e *Engine) updateAll() {
	e.update(0, 0xffffffff)
}

func (e *Engine) update(start uint32, end uint32) {
	var paused bool
	if e.target != nil && !e.target.IsPaused() {
		e.target.Pause()
		paused = true
	}

	if e.invalidate != nil {
		n := e.invalidate.Invalidate(start, end)
		if n > 0 {
			logger.Logf(logger.Allow, "breakpoints", "invalidated %d blocks in %#08x-%#08x", n, start, end)
		}
	}

	e.crit.Lock()
	e.updates++
	e.crit.Unlock()

	if paused {
		e.target.Resume()
	}
}

// Updates returns the number of times translated code has been invalidated.
func (e *Engine) Updates() int {
	e.crit.RLock()
	defer e.crit.RUnlock()
	return e.updates
}
