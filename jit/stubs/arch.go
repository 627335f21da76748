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

package stubs

import (
	"encoding/binary"
	"fmt"
	"runtime"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// Arch is the instruction set and calling convention of the trampolines.
type Arch int

// List of supported trampoline architectures.
const (
	AMD64SysV Arch = iota
	AMD64Windows
	ARM64
)

func (a Arch) String() string {
	switch a {
	case AMD64SysV:
		return "amd64"
	case AMD64Windows:
		return "amd64 (windows)"
	case ARM64:
		return "arm64"
	}
	return "unknown"
}

// HostArch returns the trampoline architecture of the running process.
func HostArch() (Arch, error) {
	switch runtime.GOARCH {
	case "amd64":
		if runtime.GOOS == "windows" {
			return AMD64Windows, nil
		}
		return AMD64SysV, nil
	case "arm64":
		return ARM64, nil
	}
	return 0, fmt.Errorf("stubs: unsupported host architecture (%s)", runtime.GOARCH)
}

// offsets of the handler address and the name within a trampoline.
const (
	amd64HandlerOffset = 13
	amd64NameOffset    = 21
	arm64HandlerOffset = 12
	arm64NameOffset    = 20
)

// assemble the trampoline for the named symbol.
func assemble(arch Arch, name string, reporter uintptr) []byte {
	var code []byte

	switch arch {
	case AMD64SysV, AMD64Windows:
		// lea rdi/rcx, [rip+14]
		if arch == AMD64Windows {
			code = append(code, 0x48, 0x8d, 0x0d)
		} else {
			code = append(code, 0x48, 0x8d, 0x3d)
		}
		code = binary.LittleEndian.AppendUint32(code, amd64NameOffset-7)

		// jmp [rip+0]
		code = append(code, 0xff, 0x25, 0x00, 0x00, 0x00, 0x00)
		code = binary.LittleEndian.AppendUint64(code, uint64(reporter))

	case ARM64:
		code = binary.LittleEndian.AppendUint32(code, 0x100000a0) // adr x0, #20
		code = binary.LittleEndian.AppendUint32(code, 0x58000050) // ldr x16, #8
		code = binary.LittleEndian.AppendUint32(code, 0xd61f0200) // br x16
		code = binary.LittleEndian.AppendUint64(code, uint64(reporter))
	}

	code = append(code, name...)
	return append(code, 0x00)
}

// Description of a decoded trampoline.
type Description struct {
	Name     string
	Reporter uintptr

	// disassembly of the instructions in the trampoline
	Instructions []string
}

// Describe decodes a trampoline and recovers the embedded symbol name and the
// address of the reporting function.
func Describe(code []byte, arch Arch) (Description, error) {
	var d Description
	var nameOffset, handlerOffset int

	switch arch {
	case AMD64SysV, AMD64Windows:
		lea, err := x86asm.Decode(code, 64)
		if err != nil {
			return d, fmt.Errorf("stubs: describe: %w", err)
		}
		reg := x86asm.RDI
		if arch == AMD64Windows {
			reg = x86asm.RCX
		}
		mem, ok := lea.Args[1].(x86asm.Mem)
		if lea.Op != x86asm.LEA || lea.Args[0] != reg || !ok || mem.Base != x86asm.RIP {
			return d, fmt.Errorf("stubs: describe: unexpected instruction (%s)", lea)
		}
		nameOffset = lea.Len + int(mem.Disp)

		jmp, err := x86asm.Decode(code[lea.Len:], 64)
		if err != nil {
			return d, fmt.Errorf("stubs: describe: %w", err)
		}
		mem, ok = jmp.Args[0].(x86asm.Mem)
		if jmp.Op != x86asm.JMP || !ok || mem.Base != x86asm.RIP {
			return d, fmt.Errorf("stubs: describe: unexpected instruction (%s)", jmp)
		}
		handlerOffset = lea.Len + jmp.Len + int(mem.Disp)

		d.Instructions = append(d.Instructions, x86asm.GNUSyntax(lea, 0, nil), x86asm.GNUSyntax(jmp, uint64(lea.Len), nil))

	case ARM64:
		if len(code) < 12 {
			return d, fmt.Errorf("stubs: describe: trampoline too short")
		}
		var insts [3]arm64asm.Inst
		for i := range insts {
			var err error
			insts[i], err = arm64asm.Decode(code[i*4:])
			if err != nil {
				return d, fmt.Errorf("stubs: describe: %w", err)
			}
			d.Instructions = append(d.Instructions, arm64asm.GNUSyntax(insts[i]))
		}

		adr, ok := insts[0].Args[1].(arm64asm.PCRel)
		if insts[0].Op != arm64asm.ADR || insts[0].Args[0] != arm64asm.X0 || !ok {
			return d, fmt.Errorf("stubs: describe: unexpected instruction (%s)", insts[0])
		}
		nameOffset = int(adr)

		ldr, ok := insts[1].Args[1].(arm64asm.PCRel)
		if insts[1].Op != arm64asm.LDR || !ok {
			return d, fmt.Errorf("stubs: describe: unexpected instruction (%s)", insts[1])
		}
		handlerOffset = 4 + int(ldr)

		if insts[2].Op != arm64asm.BR {
			return d, fmt.Errorf("stubs: describe: unexpected instruction (%s)", insts[2])
		}

	default:
		return d, fmt.Errorf("stubs: describe: unsupported architecture (%s)", arch)
	}

	if handlerOffset+8 > len(code) || nameOffset >= len(code) {
		return d, fmt.Errorf("stubs: describe: trampoline truncated")
	}
	d.Reporter = uintptr(binary.LittleEndian.Uint64(code[handlerOffset:]))

	end := nameOffset
	for end < len(code) && code[end] != 0x00 {
		end++
	}
	if end == len(code) {
		return d, fmt.Errorf("stubs: describe: name is not terminated")
	}
	d.Name = string(code[nameOffset:end])

	return d, nil
}
