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

package hardware

import (
	"fmt"
	"strconv"
	"strings"
)

// Registers of the guest CPU.
type Registers struct {
	GPR [32]uint64
	LR  uint64
	CTR uint64
	CR  uint32
	XER uint64
}

// Register returns the value of the named register. Register names are case
// insensitive: r0 to r31, lr, ctr, cr and xer.
func (r *Registers) Register(name string) (uint64, bool) {
	p, ok := r.lookup(name)
	if !ok {
		return 0, false
	}
	return *p, true
}

// SetRegister sets the value of the named register.
func (r *Registers) SetRegister(name string, v uint64) error {
	if strings.EqualFold(name, "cr") {
		r.CR = uint32(v)
		return nil
	}
	p, ok := r.lookup(name)
	if !ok {
		return fmt.Errorf("hardware: unknown register %q", name)
	}
	*p = v
	return nil
}

func (r *Registers) lookup(name string) (*uint64, bool) {
	name = strings.ToLower(name)
	switch name {
	case "lr":
		return &r.LR, true
	case "ctr":
		return &r.CTR, true
	case "xer":
		return &r.XER, true
	case "cr":
		v := uint64(r.CR)
		return &v, true
	}

	n, ok := strings.CutPrefix(name, "r")
	if !ok {
		return nil, false
	}
	i, err := strconv.Atoi(n)
	if err != nil || i < 0 || i >= len(r.GPR) {
		return nil, false
	}
	return &r.GPR[i], true
}

func (r *Registers) String() string {
	s := strings.Builder{}
	for i, v := range r.GPR {
		s.WriteString(fmt.Sprintf("r%-2d %016x", i, v))
		if i%4 == 3 {
			s.WriteString("\n")
		} else {
			s.WriteString("  ")
		}
	}
	s.WriteString(fmt.Sprintf("lr  %016x  ctr %016x  cr  %08x  xer %016x", r.LR, r.CTR, r.CR, r.XER))
	return s.String()
}
