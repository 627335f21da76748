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
	"os"
	"sort"
	"strings"

	"github.com/bradleyjkemp/memviz"
	"github.com/cellforge/cellforge/debugger/breakpoints"
	"github.com/cellforge/cellforge/debugger/commandline"
	"github.com/cellforge/cellforge/debugger/expression"
	"github.com/cellforge/cellforge/debugger/terminal"
	"github.com/cellforge/cellforge/disassembly/symbols"
	"github.com/cellforge/cellforge/logger"
	"github.com/olekukonko/tablewriter"
)

// number of lines in a disassembly listing
const disasmLines = 16

// number of bytes shown by the MEM command if no length is given
const memBytes = 64

// ParseCommand validates and executes a single line of input. Returns true if
// the input was the QUIT command.
func (dbg *Debugger) ParseCommand(input string) (bool, error) {
	tokens := commandline.TokeniseInput(input)
	if tokens.Len() == 0 {
		return false, nil
	}

	if err := dbg.cmds.ValidateTokens(tokens); err != nil {
		return false, err
	}

	dbg.term.TermPrintLine(terminal.StyleEcho, input)

	return dbg.processTokens(tokens)
}

func (dbg *Debugger) printLine(style terminal.Style, s string, args ...any) {
	dbg.term.TermPrintLine(style, fmt.Sprintf(s, args...))
}

// print a multi-line string line by line.
func (dbg *Debugger) printLines(style terminal.Style, s string) {
	for _, l := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		dbg.term.TermPrintLine(style, l)
	}
}

func (dbg *Debugger) processTokens(tokens *commandline.Tokens) (bool, error) {
	command, _ := tokens.Get()
	command = strings.ToUpper(command)

	switch command {
	case cmdQuit:
		return true, nil

	case cmdHelp:
		dbg.commandHelp(tokens)

	case cmdBreak:
		addr, err := dbg.parseBreak(tokens)
		if err != nil {
			return false, err
		}
		dbg.printLine(terminal.StyleFeedback, "breakpoint added at %#08x", addr)

	case cmdCondition:
		tok, _ := tokens.Get()
		addr, err := dbg.resolveAddress(tok)
		if err != nil {
			return false, err
		}
		if defined, _ := dbg.Engine.IsBreakPointDefined(addr); !defined {
			return false, fmt.Errorf("no breakpoint at %#08x", addr)
		}
		if tokens.IsEnd() {
			dbg.Engine.ChangeBreakPointRemoveCond(addr)
			break
		}
		cond, err := dbg.newCondition(tokens.Remainder())
		if err != nil {
			return false, err
		}
		dbg.Engine.ChangeBreakPointAddCond(addr, cond)

	case cmdEnable, cmdDisable:
		tok, _ := tokens.Get()
		addr, err := dbg.resolveAddress(tok)
		if err != nil {
			return false, err
		}
		if defined, _ := dbg.Engine.IsBreakPointDefined(addr); !defined {
			return false, fmt.Errorf("no breakpoint at %#08x", addr)
		}
		dbg.Engine.ChangeBreakPoint(addr, command == cmdEnable)

	case cmdWatch:
		mc, err := dbg.parseWatch(tokens)
		if err != nil {
			return false, err
		}
		dbg.printLine(terminal.StyleFeedback, "watch: %s", mc)

	case cmdDelete:
		return false, dbg.commandDelete(tokens)

	case cmdList:
		dbg.commandList(tokens)

	case cmdDisasm:
		return false, dbg.commandDisasm(tokens)

	case cmdBranches:
		return false, dbg.commandBranches(tokens)

	case cmdRecheck:
		start := uint32(0)
		size := uint32(0xffffffff)
		if tok, ok := tokens.Get(); ok {
			var err error
			start, err = dbg.resolveAddress(tok)
			if err != nil {
				return false, err
			}
			size = 4
		}
		if tok, ok := tokens.Get(); ok {
			v, err := parseValue(tok)
			if err != nil {
				return false, err
			}
			size = v
		}
		n := dbg.Disasm.Recheck(start, size)
		dbg.printLine(terminal.StyleFeedback, "%d entries rebuilt", n)

	case cmdStep:
		over := true
		if tok, ok := tokens.Get(); ok {
			over = strings.ToUpper(tok) != "INTO"
		}
		var addrs []uint32
		var err error
		if over {
			addrs, err = dbg.StepOver()
		} else {
			addrs, err = dbg.StepInto()
		}
		if err != nil {
			return false, err
		}
		s := make([]string, 0, len(addrs))
		for _, a := range addrs {
			s = append(s, fmt.Sprintf("%#08x", a))
		}
		dbg.printLine(terminal.StyleFeedback, "stepping to %s", strings.Join(s, ", "))

	case cmdRun:
		dbg.Resume()

	case cmdHalt:
		dbg.Pause()

	case cmdGoto:
		tok, _ := tokens.Get()
		addr, err := dbg.resolveAddress(tok)
		if err != nil {
			return false, err
		}
		pc, ok := dbg.target.(interface{ SetPC(uint32) })
		if !ok {
			return false, fmt.Errorf("the PC can not be changed")
		}
		pc.SetPC(addr)

	case cmdRegs:
		s, ok := dbg.target.(fmt.Stringer)
		if !ok {
			return false, fmt.Errorf("registers are not available")
		}
		dbg.printLines(terminal.StyleInstrument, s.String())

	case cmdMem:
		return false, dbg.commandMem(tokens)

	case cmdPoke:
		tok, _ := tokens.Get()
		val, _ := tokens.Get()
		v, err := parseValue(val)
		if err != nil {
			return false, err
		}
		if v > 0xff {
			return false, fmt.Errorf("poke value must be a single byte")
		}
		ai, err := dbg.Mem.Poke(tok, uint8(v))
		if err != nil {
			return false, err
		}
		dbg.printLine(terminal.StyleFeedback, "%s", ai)

	case cmdSymbol:
		tok, _ := tokens.Get()
		res := dbg.Sym.Search(tok, symbols.SearchAll)
		if res == nil {
			return false, fmt.Errorf("%s not found", tok)
		}
		dbg.printLine(terminal.StyleFeedback, "%s %s", res.Kind, res.Entry)

	case cmdLog:
		n := 10
		if tok, ok := tokens.Get(); ok {
			v, err := parseValue(tok)
			if err != nil {
				return false, err
			}
			n = int(v)
		}
		s := &strings.Builder{}
		logger.Tail(s, n)
		if s.Len() > 0 {
			dbg.printLines(terminal.StyleLog, s.String())
		}

	case cmdMemviz:
		tok, _ := tokens.Get()
		return false, dbg.commandMemviz(tok)

	default:
		return false, fmt.Errorf("%s is not yet implemented", command)
	}

	return false, nil
}

func (dbg *Debugger) newCondition(s string) (*expression.Condition, error) {
	cond, err := expression.NewCondition(s, functions{dbg: dbg})
	if err != nil {
		return nil, fmt.Errorf("condition: %w", err)
	}
	return cond, nil
}

func (dbg *Debugger) commandHelp(tokens *commandline.Tokens) {
	if tok, ok := tokens.Get(); ok {
		cmd := strings.ToUpper(tok)
		usage := dbg.idx.Usage(cmd)
		if usage == "" {
			dbg.printLine(terminal.StyleError, "no help for %s", tok)
			return
		}
		dbg.printLine(terminal.StyleHelp, "%s", help[cmd])
		dbg.printLine(terminal.StyleHelp, "  usage: %s", usage)
		return
	}

	names := dbg.cmds.Names()
	for i := 0; i < len(names); i += 6 {
		dbg.printLine(terminal.StyleHelp, "%s", strings.Join(names[i:min(i+6, len(names))], "  "))
	}
}

func (dbg *Debugger) commandDelete(tokens *commandline.Tokens) error {
	kind, _ := tokens.Get()
	tok, _ := tokens.Get()
	addr, err := dbg.resolveAddress(tok)
	if err != nil {
		return err
	}

	if strings.ToUpper(kind) == "BREAK" {
		if defined, _ := dbg.Engine.IsBreakPointDefined(addr); !defined {
			return fmt.Errorf("no breakpoint at %#08x", addr)
		}
		dbg.Engine.RemoveBreakPoint(addr)
		return nil
	}

	end := addr
	if tok, ok := tokens.Get(); ok {
		n, err := parseValue(tok)
		if err != nil {
			return err
		}
		end = addr + n
	}
	if _, ok := dbg.findMemCheck(addr, end); !ok {
		return fmt.Errorf("no watch for %#08x-%#08x", addr, end)
	}
	dbg.Engine.RemoveMemCheck(addr, end)
	return nil
}

func (dbg *Debugger) findMemCheck(start uint32, end uint32) (breakpoints.MemCheck, bool) {
	for _, mc := range dbg.Engine.MemChecks() {
		if mc.Start == start && mc.End == end {
			return mc, true
		}
	}
	return breakpoints.MemCheck{}, false
}

// render a table with the debugger's preferred style
func (dbg *Debugger) table(header []string, rows [][]string) {
	s := &strings.Builder{}
	tw := tablewriter.NewWriter(s)
	tw.SetHeader(header)
	tw.SetBorder(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.AppendBulk(rows)
	tw.Render()
	dbg.printLines(terminal.StyleInstrument, s.String())
}

func (dbg *Debugger) commandList(tokens *commandline.Tokens) {
	what, _ := tokens.Get()
	what = strings.ToUpper(what)

	if what == "" || what == "BREAK" {
		bps := dbg.Engine.BreakPoints()
		if len(bps) == 0 {
			dbg.printLine(terminal.StyleFeedback, "no breakpoints")
		} else {
			var rows [][]string
			for _, bp := range bps {
				cond := ""
				if bp.Condition != nil {
					cond = bp.Condition.String()
				}
				label, _ := dbg.Sym.Label(bp.Address)
				rows = append(rows, []string{
					fmt.Sprintf("%#08x", bp.Address), label,
					fmt.Sprintf("%v", bp.Enabled), fmt.Sprintf("%v", bp.Temporary), cond,
				})
			}
			dbg.table([]string{"address", "symbol", "enabled", "temp", "condition"}, rows)
		}
	}

	if what == "" || what == "WATCH" {
		mcs := dbg.Engine.MemChecks()
		if len(mcs) == 0 {
			dbg.printLine(terminal.StyleFeedback, "no watches")
		} else {
			var rows [][]string
			for _, mc := range mcs {
				rows = append(rows, []string{
					fmt.Sprintf("%#08x", mc.Start), fmt.Sprintf("%#08x", mc.End),
					mc.Cond.String(), mc.Result.String(), fmt.Sprintf("%d", mc.NumHits),
					fmt.Sprintf("%#08x", mc.LastPC),
				})
			}
			dbg.table([]string{"start", "end", "condition", "result", "hits", "last pc"}, rows)
		}
	}

	if what == "SYMBOLS" {
		s := &strings.Builder{}
		dbg.Sym.ListSymbols(s)
		if s.Len() == 0 {
			dbg.printLine(terminal.StyleFeedback, "no symbols")
			return
		}
		dbg.printLines(terminal.StyleInstrument, s.String())
	}
}

// DisassemblyListing returns the disassembly of n lines starting at the
// address. The line at the current PC is marked with a > and lines with a
// breakpoint are marked with a *.
func (dbg *Debugger) DisassemblyListing(addr uint32, n int) ([]string, uint32) {
	pc := dbg.target.GetPC()

	addr = dbg.Disasm.GetStartAddress(addr)
	lines := make([]string, 0, n)
	for range n {
		l, ok := dbg.Disasm.GetLine(addr)
		if !ok {
			break
		}

		mark := ' '
		if dbg.Engine.IsAddressBreakPoint(addr) {
			mark = '*'
		}
		if addr == pc {
			mark = '>'
		}
		lines = append(lines, fmt.Sprintf("%c %s", mark, l.String()))

		next := dbg.Disasm.GetNthNextAddress(addr, 1)
		if next <= addr {
			break
		}
		addr = next
	}

	return lines, addr
}

func (dbg *Debugger) commandDisasm(tokens *commandline.Tokens) error {
	addr := dbg.lastDisasm
	if tok, ok := tokens.Get(); ok {
		var err error
		addr, err = dbg.resolveAddress(tok)
		if err != nil {
			return err
		}
	} else if addr == 0 {
		addr = dbg.target.GetPC()
	}

	n := disasmLines
	if tok, ok := tokens.Get(); ok {
		v, err := parseValue(tok)
		if err != nil {
			return err
		}
		n = int(v)
	}

	lines, next := dbg.DisassemblyListing(addr, n)
	for _, l := range lines {
		dbg.printLine(terminal.StyleInstrument, "%s", l)
	}
	dbg.lastDisasm = next

	return nil
}

func (dbg *Debugger) commandBranches(tokens *commandline.Tokens) error {
	tok, _ := tokens.Get()
	addr, err := dbg.resolveAddress(tok)
	if err != nil {
		return err
	}

	size := uint32(0x100)
	if tok, ok := tokens.Get(); ok {
		size, err = parseValue(tok)
		if err != nil {
			return err
		}
	}

	dbg.Disasm.Analyze(addr, size)
	bls := dbg.Disasm.GetBranchLines(addr, size)
	if len(bls) == 0 {
		dbg.printLine(terminal.StyleFeedback, "no branches")
		return nil
	}

	sort.Slice(bls, func(i, j int) bool { return bls[i].First < bls[j].First })

	var rows [][]string
	for _, bl := range bls {
		lane := "-"
		if bl.Lane >= 0 {
			lane = fmt.Sprintf("%d", bl.Lane)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%#08x", bl.First), fmt.Sprintf("%#08x", bl.Second), bl.Direction.String(), lane,
		})
	}
	dbg.table([]string{"first", "second", "direction", "lane"}, rows)

	return nil
}

func (dbg *Debugger) commandMem(tokens *commandline.Tokens) error {
	tok, _ := tokens.Get()
	addr, err := dbg.resolveAddress(tok)
	if err != nil {
		return err
	}

	n := uint32(memBytes)
	if tok, ok := tokens.Get(); ok {
		n, err = parseValue(tok)
		if err != nil {
			return err
		}
	}

	for line := uint32(0); line < n; line += 16 {
		s := strings.Builder{}
		s.WriteString(fmt.Sprintf("%#08x ", addr+line))
		for i := line; i < min(line+16, n); i++ {
			b, err := dbg.target.Read8(addr + i)
			if err != nil {
				s.WriteString(" --")
				continue
			}
			s.WriteString(fmt.Sprintf(" %02x", b))
		}
		dbg.printLine(terminal.StyleInstrument, "%s", s.String())
	}

	return nil
}

// the structure written by the MEMVIZ command
type memvizSnapshot struct {
	BreakPoints []breakpoints.BreakPoint
	MemChecks   []breakpoints.MemCheck
}

func (dbg *Debugger) commandMemviz(pth string) error {
	f, err := os.Create(pth)
	if err != nil {
		return err
	}

	snapshot := &memvizSnapshot{
		BreakPoints: dbg.Engine.BreakPoints(),
		MemChecks:   dbg.Engine.MemChecks(),
	}
	memviz.Map(f, snapshot)

	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("memviz: %s", pth), err)
	}
	dbg.printLine(terminal.StyleFeedback, "graph written to %s", pth)

	return nil
}
