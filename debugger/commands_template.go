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

// debugger keywords
const (
	cmdBreak     = "BREAK"
	cmdBranches  = "BRANCHES"
	cmdCondition = "CONDITION"
	cmdDelete    = "DELETE"
	cmdDisable   = "DISABLE"
	cmdDisasm    = "DISASM"
	cmdEnable    = "ENABLE"
	cmdGoto      = "GOTO"
	cmdHalt      = "HALT"
	cmdHelp      = "HELP"
	cmdList      = "LIST"
	cmdLog       = "LOG"
	cmdMem       = "MEM"
	cmdMemviz    = "MEMVIZ"
	cmdPoke      = "POKE"
	cmdQuit      = "QUIT"
	cmdRecheck   = "RECHECK"
	cmdRegs      = "REGS"
	cmdRun       = "RUN"
	cmdStep      = "STEP"
	cmdSymbol    = "SYMBOL"
	cmdWatch     = "WATCH"
)

var commandTemplate = []string{
	cmdBreak + " %S (IF %*)",
	cmdBranches + " %S (%V)",
	cmdCondition + " %S (%*)",
	cmdDelete + " [BREAK|WATCH] %S (%V)",
	cmdDisable + " %S",
	cmdDisasm + " (%S) (%V)",
	cmdEnable + " %S",
	cmdGoto + " %S",
	cmdHalt,
	cmdHelp + " (%S)",
	cmdList + " (BREAK|WATCH|SYMBOLS)",
	cmdLog + " (%V)",
	cmdMem + " %S (%V)",
	cmdMemviz + " %F",
	cmdPoke + " %S %V",
	cmdQuit,
	cmdRecheck + " (%S) (%V)",
	cmdRegs,
	cmdRun,
	cmdStep + " (OVER|INTO)",
	cmdSymbol + " %S",
	cmdWatch + " [READ|WRITE|CHANGE|ACCESS] %S (%V) (LOG|BREAK|BOTH)",
}

var help = map[string]string{
	cmdBreak:     "Halt execution when the PC reaches the address. The breakpoint can be conditional",
	cmdBranches:  "List the branches in the function at the address, with the lane each should be drawn in",
	cmdCondition: "Change or remove the condition of the breakpoint at the address",
	cmdDelete:    "Remove a breakpoint, or the watch with the address and length",
	cmdDisable:   "Disable the breakpoint at the address",
	cmdDisasm:    "Disassemble from the address. Continues from the previous listing if there is no address",
	cmdEnable:    "Enable the breakpoint at the address",
	cmdGoto:      "Change the PC",
	cmdHalt:      "Pause the guest",
	cmdHelp:      "List commands or show help for the command",
	cmdList:      "List breakpoints, watches or symbols",
	cmdLog:       "Show the most recent entries in the log",
	cmdMem:       "Show the contents of memory",
	cmdMemviz:    "Write a graphviz description of the breakpoints and watches to the file",
	cmdPoke:      "Change the byte at the address",
	cmdQuit:      "Leave the debugger",
	cmdRecheck:   "Rebuild any disassembly that no longer matches memory",
	cmdRegs:      "Show the registers",
	cmdRun:       "Resume the guest",
	cmdStep:      "Execute the current instruction. Steps over calls by default",
	cmdSymbol:    "Search for a symbol",
	cmdWatch:     "Halt or log when memory in the range is read or written. CHANGE only matches writes that change memory",
}
